// Package client implements the customer-facing API client: menu reads,
// session opening, and order submission against a slug-scoped session.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"festival-orders/internal/api"
	"festival-orders/internal/tokenstore"
)

// Client talks to the customer endpoints of the ordering backend. Session
// credentials are read from and invalidated in the token store.
type Client struct {
	api   *api.Client
	store tokenstore.Store
	log   *slog.Logger
}

// New creates a customer client for the resolved base URL.
func New(base string, store tokenstore.Store, opts ...api.Option) *Client {
	return &Client{
		api:   api.NewClient(base, opts...),
		store: store,
		log:   slog.Default().With("component", "client"),
	}
}

// openSessionRequest is the body of POST /sessions/open. Code is present for
// dine-in only.
type openSessionRequest struct {
	Slug    string `json:"slug"`
	Channel string `json:"channel"`
	Code    string `json:"code,omitempty"`
}

type openSessionResponse struct {
	Token     string    `json:"token"`
	Channel   string    `json:"channel,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// OpenDineInSession verifies a table code and opens a dine-in session for
// the slug. The resulting session replaces any stored one for that slug.
func (c *Client) OpenDineInSession(ctx context.Context, slug, code string) (*tokenstore.Session, error) {
	return c.openSession(ctx, slug, tokenstore.ChannelDineIn, code)
}

// OpenTakeoutSession opens a takeout session for the slug. Takeout needs no
// verification code: the slug alone identifies the ordering channel.
func (c *Client) OpenTakeoutSession(ctx context.Context, slug string) (*tokenstore.Session, error) {
	return c.openSession(ctx, slug, tokenstore.ChannelTakeout, "")
}

func (c *Client) openSession(ctx context.Context, slug string, ch tokenstore.Channel, code string) (*tokenstore.Session, error) {
	body := openSessionRequest{Slug: slug, Channel: string(ch), Code: code}
	env, status, err := c.api.Do(ctx, http.MethodPost, "/sessions/open", nil, body)
	if err != nil {
		return nil, err
	}
	if err := api.EnvelopeError(status, env); err != nil {
		return nil, err
	}

	var data openSessionResponse
	if err := api.DecodeData(env, &data); err != nil {
		return nil, err
	}
	if data.Token == "" {
		return nil, &api.Error{Status: status, Message: "session response carried no token"}
	}

	sess := tokenstore.Session{
		Slug:      slug,
		Token:     data.Token,
		Channel:   ch,
		ExpiresAt: data.ExpiresAt,
	}
	if err := c.store.SetSession(slug, sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	c.log.Info("session opened", "slug", slug, "channel", ch)
	return &sess, nil
}

// CreateOrder submits a pending order using the stored session for the slug.
// A 401 removes the stored session before the error is returned, so the next
// attempt starts from a clean state.
func (c *Client) CreateOrder(ctx context.Context, slug string, order PendingOrder) (*OrderResult, error) {
	sess, err := c.store.GetSession(slug)
	if err != nil {
		return nil, fmt.Errorf("no session for %q: %w", slug, api.ErrUnauthorized)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+sess.Token)

	env, status, err := c.api.Do(ctx, http.MethodPost, "/orders", headers, order)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		if err := c.store.RemoveSession(slug); err != nil {
			c.log.Warn("failed to remove rejected session", "slug", slug, "error", err)
		}
		return nil, fmt.Errorf("session rejected for %q: %w", slug, api.ErrUnauthorized)
	}
	if err := api.EnvelopeError(status, env); err != nil {
		return nil, err
	}

	var result OrderResult
	if err := api.DecodeData(env, &result); err != nil {
		return nil, err
	}
	c.log.Info("order created", "slug", slug, "order_id", result.OrderID)
	return &result, nil
}

// GetPublicMenu fetches the full public menu.
func (c *Client) GetPublicMenu(ctx context.Context) ([]MenuItem, error) {
	env, status, err := c.api.Do(ctx, http.MethodGet, "/menu", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := api.EnvelopeError(status, env); err != nil {
		return nil, err
	}
	var items []MenuItem
	if err := api.DecodeData(env, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetTopMenu fetches the n best-selling items.
func (c *Client) GetTopMenu(ctx context.Context, n int) ([]MenuItem, error) {
	q := url.Values{"n": {strconv.Itoa(n)}}
	env, status, err := c.api.Do(ctx, http.MethodGet, c.api.URL("/menu/top", q), nil, nil)
	if err != nil {
		return nil, err
	}
	if err := api.EnvelopeError(status, env); err != nil {
		return nil, err
	}
	var items []MenuItem
	if err := api.DecodeData(env, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetOrderDetails fetches the running state of an order for the waiting
// customer view.
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (*OrderDetail, error) {
	env, status, err := c.api.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return nil, err
	}
	if err := api.EnvelopeError(status, env); err != nil {
		return nil, err
	}
	var detail OrderDetail
	if err := api.DecodeData(env, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
