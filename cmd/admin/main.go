// Command admin is the staff console: login, live order board, status
// changes, and session management.
//
//	admin -login
//	admin -watch
//	admin -order ORD-1a2b3c4d
//	admin -status ORD-1a2b3c4d -action accept
//	admin -close <session-id>
//	admin -table "Table 7"
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"

	"festival-orders/internal/admin"
	"festival-orders/internal/config"
	"festival-orders/internal/feed"
	"festival-orders/internal/logger"
	"festival-orders/internal/tokenstore"
)

var (
	urgentC    = color.New(color.FgRed, color.Bold)
	waitingC   = color.New(color.FgYellow)
	preparingC = color.New(color.FgCyan)
	okC        = color.New(color.FgGreen)
)

func main() {
	logger.New()

	var (
		login    = flag.Bool("login", false, "authenticate with the staff PIN")
		logout   = flag.Bool("logout", false, "discard the stored credential")
		watch    = flag.Bool("watch", false, "follow the live order board")
		list     = flag.Bool("list", false, "print the order board once")
		orderID  = flag.String("order", "", "show one order")
		statusID = flag.String("status", "", "order to apply -action to")
		action   = flag.String("action", "", "status action: accept, serve, cancel")
		reason   = flag.String("reason", "", "optional reason for the status change")
		closeID  = flag.String("close", "", "force-close a customer session by id")
		menu     = flag.Bool("menu", false, "print the admin menu view")
		table    = flag.String("table", "", "issue or refresh a table slug by label")
	)
	flag.Parse()

	cfg := config.Load()
	store := tokenstore.NewFileStore(cfg.CredentialsPath)
	cli := admin.New(cfg.ResolvedBase(), store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case *login:
		err = doLogin(ctx, cli)
	case *logout:
		err = cli.Logout()
	case *watch:
		err = doWatch(ctx, cfg, cli)
	case *list:
		err = printBoard(ctx, cli)
	case *orderID != "":
		err = printOrder(ctx, cli, *orderID)
	case *statusID != "":
		err = cli.PatchOrderStatus(ctx, *statusID, *action, *reason)
		if err == nil {
			okC.Printf("order %s: %s applied\n", *statusID, *action)
		}
	case *closeID != "":
		err = cli.ForceCloseSession(ctx, *closeID)
		if err == nil {
			okC.Printf("session %s closed\n", *closeID)
		}
	case *menu:
		err = printMenu(ctx, cli)
	case *table != "":
		err = ensureTable(ctx, cli, *table)
	default:
		flag.Usage()
		return
	}

	if err != nil {
		if errors.Is(err, admin.ErrLoginRequired) || errors.Is(err, admin.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, "not logged in (or the session expired), run: admin -login")
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func doLogin(ctx context.Context, cli *admin.Client) error {
	pin := os.Getenv("ADMIN_PIN")
	if pin == "" {
		fmt.Print("Staff PIN: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read pin: %w", err)
		}
		pin = strings.TrimSpace(line)
	}
	if err := cli.Login(ctx, pin); err != nil {
		return err
	}
	okC.Println("logged in")
	return nil
}

func printBoard(ctx context.Context, cli *admin.Client) error {
	orders, err := cli.GetActiveOrders(ctx)
	if err != nil {
		return err
	}
	renderBoard(orders)
	return nil
}

func renderBoard(orders *admin.ActiveOrders) {
	fmt.Println(strings.Repeat("-", 46))
	printBucket(urgentC, "URGENT", orders.Urgent)
	printBucket(waitingC, "WAITING", orders.Waiting)
	printBucket(preparingC, "PREPARING", orders.Preparing)
}

func printBucket(c *color.Color, name string, orders []admin.AdminOrder) {
	if len(orders) == 0 {
		return
	}
	c.Printf("%s (%d)\n", name, len(orders))
	for _, o := range orders {
		label := o.TableLabel
		if label == "" {
			label = o.OrderType
		}
		fmt.Printf("  %-14s %-12s %-10s %6d won\n", o.OrderID, label, o.PayerName, o.Total)
	}
}

func doWatch(ctx context.Context, cfg *config.Config, cli *admin.Client) error {
	token, err := cli.Token()
	if err != nil {
		return err
	}

	f, err := feed.Open(feed.Config{
		StreamURLs: feed.EndpointURLs(cfg.ResolvedBase(), token),
		Snapshot:   cli.GetActiveOrdersRaw,
		Handler: func(event string, data []byte) {
			switch event {
			case feed.EventSnapshot:
				var orders admin.ActiveOrders
				if err := json.Unmarshal(data, &orders); err == nil {
					renderBoard(&orders)
				}
			case feed.EventOrdersChanged:
				// Delta notification: refetch the full board.
				if orders, err := cli.GetActiveOrders(ctx); err == nil {
					renderBoard(orders)
				}
			case feed.EventPing:
				// Liveness only.
			}
		},
		OnError: func(err error) {
			fmt.Fprintln(os.Stderr, "feed:", err)
		},
	})
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Printf("watching orders (%s transport), Ctrl-C to stop\n", f.Transport())
	<-ctx.Done()
	return nil
}

func printOrder(ctx context.Context, cli *admin.Client, id string) error {
	order, err := cli.GetOrderDetails(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s  %s  %s  %d won\n", order.OrderID, order.Status, order.OrderType, order.PayerName, order.Total)
	for _, line := range order.Items {
		fmt.Printf("  product %d × %d\n", line.ProductID, line.Quantity)
	}
	return nil
}

func printMenu(ctx context.Context, cli *admin.Client) error {
	items, err := cli.GetMenu(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		state := okC.Sprint("available")
		if item.IsSoldOut {
			state = urgentC.Sprint("sold out")
		}
		fmt.Printf("%3d  %-24s %8d won  %s\n", item.ID, item.Name, item.Price, state)
	}
	return nil
}

func ensureTable(ctx context.Context, cli *admin.Client, label string) error {
	t, err := cli.EnsureTable(ctx, label, true)
	if err != nil {
		return err
	}
	okC.Printf("table %q -> slug %s\n", t.Label, t.Slug)
	return nil
}
