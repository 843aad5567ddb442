// Command order is the customer ordering client: browse the menu, build a
// cart, and place an order against a table slug.
//
//	order -slug table7 -menu
//	order -slug table7 -name "Kim" -items 2:1,4:2
//	order -slug front-booth -name "Lee" -items 1:1 -wait
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"festival-orders/internal/cart"
	"festival-orders/internal/client"
	"festival-orders/internal/config"
	"festival-orders/internal/logger"
	"festival-orders/internal/session"
	"festival-orders/internal/tokenstore"
)

// submitting gates order submission: a second trigger while a request is
// outstanding is a no-op, never a duplicate order.
var submitting atomic.Bool

func main() {
	logger.New()

	var (
		slug      = flag.String("slug", "", "table or channel slug (falls back to DEFAULT_SLUG)")
		showMenu  = flag.Bool("menu", false, "print the menu and exit")
		topN      = flag.Int("top", 0, "print the top-N best sellers and exit")
		payerName = flag.String("name", "", "payer name for the order")
		items     = flag.String("items", "", "order lines as product:qty[,product:qty...]")
		code      = flag.String("code", "", "dine-in table code (prompted when omitted)")
		wait      = flag.Bool("wait", false, "poll the order status after submission")
	)
	flag.Parse()

	cfg := config.Load()
	if *slug == "" {
		*slug = cfg.DefaultSlug
	}

	store := tokenstore.NewFileStore(cfg.CredentialsPath)
	api := client.New(cfg.ResolvedBase(), store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *showMenu:
		printMenu(ctx, api)
	case *topN > 0:
		printTop(ctx, api, *topN)
	default:
		if *slug == "" {
			fatal("a slug is required: pass -slug or set DEFAULT_SLUG")
		}
		if *payerName == "" || *items == "" {
			fatal("placing an order needs -name and -items")
		}
		placeOrder(ctx, cfg, api, store, *slug, *payerName, *items, *code, *wait)
	}
}

func printMenu(ctx context.Context, api *client.Client) {
	menu, err := api.GetPublicMenu(ctx)
	if err != nil {
		fatal("load menu: %v", err)
	}
	for _, item := range menu {
		state := ""
		if item.IsSoldOut {
			state = "  (sold out)"
		}
		fmt.Printf("%3d  %-24s %8d won%s\n", item.ID, item.Name, item.Price, state)
	}
}

func printTop(ctx context.Context, api *client.Client, n int) {
	top, err := api.GetTopMenu(ctx, n)
	if err != nil {
		fatal("load top menu: %v", err)
	}
	for i, item := range top {
		fmt.Printf("%d. %s (%d sold)\n", i+1, item.Name, item.QtySold)
	}
}

// channelFor resolves the ordering channel for a slug: the TAKEOUT_SLUGS
// config wins, then the slug-types document, defaulting to dine-in.
func channelFor(cfg *config.Config, slug string) tokenstore.Channel {
	if len(cfg.TakeoutSlugs) > 0 {
		if cfg.IsTakeoutSlug(slug) {
			return tokenstore.ChannelTakeout
		}
		return tokenstore.ChannelDineIn
	}
	types, err := config.LoadSlugTypes(os.Getenv("SLUG_TYPES_FILE"))
	if err != nil {
		slog.Warn("slug types unavailable, defaulting to dine-in", "error", err)
		return tokenstore.ChannelDineIn
	}
	if types.IsTakeout(slug) {
		return tokenstore.ChannelTakeout
	}
	return tokenstore.ChannelDineIn
}

func placeOrder(ctx context.Context, cfg *config.Config, api *client.Client, store tokenstore.Store, slug, payerName, items, code string, wait bool) {
	if !submitting.CompareAndSwap(false, true) {
		return
	}
	defer submitting.Store(false)

	channel := channelFor(cfg, slug)
	basket, err := buildCart(ctx, api, items)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Channel: %s   Subtotal: %d won", channel, basket.Subtotal())
	if d := basket.Discount(channel); d > 0 {
		fmt.Printf("   Takeout discount: -%d won", d)
	}
	fmt.Printf("   Total: %d won\n", basket.Total(channel))

	mgr := session.NewManager(store, api)
	if _, err := mgr.EnsureBeforeOrder(ctx, slug, channel); err != nil {
		if !errors.Is(err, session.ErrCodeRequired) {
			fatal("session: %v", err)
		}
		if code == "" {
			code = promptCode(slug)
		}
		if _, err := mgr.OpenWithCode(ctx, slug, code); err != nil {
			fatal("table code rejected: %v", err)
		}
	}

	result, err := api.CreateOrder(ctx, slug, basket.PendingOrder(channel, payerName))
	if err != nil {
		fatal("order failed: %v", err)
	}
	fmt.Printf("Order placed: %s\n", result.OrderID)

	if wait {
		waitForOrder(ctx, api, result.OrderID)
	}
}

// buildCart parses "product:qty,..." and prices the lines against the menu.
func buildCart(ctx context.Context, api *client.Client, spec string) (*cart.Cart, error) {
	menu, err := api.GetPublicMenu(ctx)
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	byID := make(map[int64]client.MenuItem, len(menu))
	for _, item := range menu {
		byID[item.ID] = item
	}

	basket := cart.New()
	for _, part := range strings.Split(spec, ",") {
		id, qty, err := parseLine(part)
		if err != nil {
			return nil, err
		}
		item, found := byID[id]
		if !found {
			return nil, fmt.Errorf("no menu item with id %d", id)
		}
		if item.IsSoldOut {
			return nil, fmt.Errorf("%s is sold out", item.Name)
		}
		basket.Set(id, item.Name, item.Price, qty)
	}
	if basket.Empty() {
		return nil, fmt.Errorf("cart is empty")
	}
	return basket, nil
}

func parseLine(part string) (int64, int, error) {
	id, qty, found := strings.Cut(strings.TrimSpace(part), ":")
	if !found {
		return 0, 0, fmt.Errorf("malformed line %q, want product:qty", part)
	}
	productID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed product id %q", id)
	}
	quantity, err := strconv.Atoi(qty)
	if err != nil || quantity <= 0 {
		return 0, 0, fmt.Errorf("malformed quantity %q", qty)
	}
	return productID, quantity, nil
}

func promptCode(slug string) string {
	fmt.Printf("Table %s needs a code. Enter it: ", slug)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fatal("read code: %v", err)
	}
	return strings.TrimSpace(line)
}

func waitForOrder(ctx context.Context, api *client.Client, orderID string) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		detail, err := api.GetOrderDetails(ctx, orderID)
		if err != nil {
			slog.Warn("order status check failed", "order_id", orderID, "error", err)
		} else {
			fmt.Printf("Order %s: %s\n", detail.OrderID, detail.Status)
			if detail.Status == "SERVED" || detail.Status == "CANCELLED" {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
