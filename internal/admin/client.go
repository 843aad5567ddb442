// Package admin implements the staff API client. Every request first runs a
// client-side token validity check and fails fast without touching the
// network when the credential is gone or expired. Endpoints exist on a
// primary path and, for deployments still on the old API layout, a legacy
// path tried once after a 404.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"festival-orders/internal/api"
	"festival-orders/internal/client"
	"festival-orders/internal/tokenstore"
)

var (
	// ErrLoginRequired is returned when no credential is stored or the
	// client-side check rejected it. The credential slot is already cleared.
	ErrLoginRequired = errors.New("admin login required")
	// ErrSessionExpired is returned when the server answered 401. The
	// credential slot is already cleared.
	ErrSessionExpired = errors.New("admin session expired")
)

// Client talks to the admin endpoints of the ordering backend.
type Client struct {
	api   *api.Client
	store tokenstore.Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates an admin client for the resolved base URL.
func New(base string, store tokenstore.Store, opts ...api.Option) *Client {
	return &Client{
		api:   api.NewClient(base, opts...),
		store: store,
		log:   slog.Default().With("component", "admin"),
		now:   time.Now,
	}
}

// Login authenticates with the staff PIN and stores the issued JWT.
func (c *Client) Login(ctx context.Context, pin string) error {
	env, status, err := c.api.Do(ctx, http.MethodPost, "/admin/login", nil, map[string]string{"pin": pin})
	if err != nil {
		return err
	}
	if err := api.EnvelopeError(status, env); err != nil {
		return err
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := api.DecodeData(env, &data); err != nil {
		return err
	}
	if data.Token == "" {
		return &api.Error{Status: status, Message: "login response carried no token"}
	}

	cred := tokenstore.AdminCredential{Token: data.Token, LoginAt: c.now()}
	if err := c.store.SetAdminCredential(cred); err != nil {
		return fmt.Errorf("persist admin credential: %w", err)
	}
	c.log.Info("admin logged in")
	return nil
}

// Logout discards the stored credential.
func (c *Client) Logout() error {
	return c.store.ClearAdminCredential()
}

// Token returns the stored JWT without a Bearer prefix, after the client-side
// validity check. The order stream passes it as a query parameter because a
// browser EventSource cannot carry headers; the CLI keeps the same contract.
func (c *Client) Token() (string, error) {
	cred, err := c.credential()
	if err != nil {
		return "", err
	}
	return rawToken(cred.Token), nil
}

// credential loads the stored credential and enforces client-side validity.
// An invalid credential is cleared before the error is returned.
func (c *Client) credential() (*tokenstore.AdminCredential, error) {
	cred, err := c.store.GetAdminCredential()
	if err != nil {
		return nil, ErrLoginRequired
	}
	if !credentialValid(cred, c.now()) {
		if err := c.store.ClearAdminCredential(); err != nil {
			c.log.Warn("failed to clear invalid credential", "error", err)
		}
		return nil, ErrLoginRequired
	}
	return cred, nil
}

// do executes an authenticated admin request: client-side validity first,
// one legacy-path retry on 404, credential invalidation on 401.
func (c *Client) do(ctx context.Context, method, primary, legacy string, payload any) (api.Envelope, error) {
	cred, err := c.credential()
	if err != nil {
		return api.Envelope{}, err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+rawToken(cred.Token))

	env, status, err := c.api.Do(ctx, method, primary, headers, payload)
	if err != nil {
		return api.Envelope{}, err
	}
	if status == http.StatusNotFound && legacy != "" {
		c.log.Debug("primary path missing, retrying legacy", "primary", primary, "legacy", legacy)
		env, status, err = c.api.Do(ctx, method, legacy, headers, payload)
		if err != nil {
			return api.Envelope{}, err
		}
	}
	if status == http.StatusUnauthorized {
		if err := c.store.ClearAdminCredential(); err != nil {
			c.log.Warn("failed to clear rejected credential", "error", err)
		}
		return api.Envelope{}, ErrSessionExpired
	}
	if err := api.EnvelopeError(status, env); err != nil {
		return api.Envelope{}, err
	}
	return env, nil
}

// ValidateToken checks the credential against the server. The client-side
// check runs first; a backend without the validate endpoint (transport
// failure) is treated as a pass so older deployments keep working.
func (c *Client) ValidateToken(ctx context.Context) (bool, error) {
	if _, err := c.credential(); err != nil {
		return false, err
	}
	_, err := c.do(ctx, http.MethodGet, "/admin/validate", "", nil)
	if err != nil {
		var transport *api.TransportError
		if errors.As(err, &transport) {
			c.log.Debug("validate endpoint unreachable, accepting token", "error", transport.Err)
			return true, nil
		}
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrLoginRequired) {
			return false, err
		}
		// Any other rejection: the token did not validate.
		if err := c.store.ClearAdminCredential(); err != nil {
			c.log.Warn("failed to clear rejected credential", "error", err)
		}
		return false, err
	}
	return true, nil
}

// AdminOrder is one active order on the staff board.
type AdminOrder struct {
	OrderID    string             `json:"order_id"`
	TableLabel string             `json:"table_label,omitempty"`
	SessionID  string             `json:"session_id,omitempty"`
	OrderType  string             `json:"order_type"`
	PayerName  string             `json:"payer_name"`
	Status     string             `json:"status"`
	Items      []client.OrderLine `json:"items,omitempty"`
	Total      int64              `json:"total,omitempty"`
	CreatedAt  time.Time          `json:"created_at,omitempty"`
}

// ActiveOrders groups the in-progress orders by urgency bucket.
type ActiveOrders struct {
	Urgent    []AdminOrder `json:"urgent"`
	Waiting   []AdminOrder `json:"waiting"`
	Preparing []AdminOrder `json:"preparing"`
}

// GetActiveOrders fetches the current staff board.
func (c *Client) GetActiveOrders(ctx context.Context) (*ActiveOrders, error) {
	env, err := c.do(ctx, http.MethodGet, "/admin/orders/active", "", nil)
	if err != nil {
		return nil, err
	}
	var orders ActiveOrders
	if err := api.DecodeData(env, &orders); err != nil {
		return nil, err
	}
	return &orders, nil
}

// GetActiveOrdersRaw fetches the staff board as raw JSON, for the order feed
// to deliver unchanged as a snapshot payload.
func (c *Client) GetActiveOrdersRaw(ctx context.Context) (json.RawMessage, error) {
	env, err := c.do(ctx, http.MethodGet, "/admin/orders/active", "", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetOrderDetails fetches one order, falling back to the legacy path layout.
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (*AdminOrder, error) {
	id := url.PathEscape(orderID)
	env, err := c.do(ctx, http.MethodGet, "/admin/orders/"+id, "/orders/admin/"+id, nil)
	if err != nil {
		return nil, err
	}
	var order AdminOrder
	if err := api.DecodeData(env, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// PatchOrderStatus applies a status action (accept, serve, cancel, ...) to an
// order, with an optional reason.
func (c *Client) PatchOrderStatus(ctx context.Context, orderID, action, reason string) error {
	id := url.PathEscape(orderID)
	body := map[string]string{"action": action}
	if reason != "" {
		body["reason"] = reason
	}
	_, err := c.do(ctx, http.MethodPatch, "/admin/orders/"+id+"/status", "/orders/"+id+"/status", body)
	return err
}

// ForceCloseSession terminates a customer session, kicking the table back to
// code entry.
func (c *Client) ForceCloseSession(ctx context.Context, sessionID string) error {
	id := url.PathEscape(sessionID)
	_, err := c.do(ctx, http.MethodPost, "/admin/sessions/"+id+"/close", "/sessions/"+id+"/close", nil)
	return err
}

// GetMenu fetches the admin view of the menu, sold-out items included.
func (c *Client) GetMenu(ctx context.Context) ([]client.MenuItem, error) {
	env, err := c.do(ctx, http.MethodGet, "/admin/menu", "/menu/admin", nil)
	if err != nil {
		return nil, err
	}
	var items []client.MenuItem
	if err := api.DecodeData(env, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Table is a slug issued for a physical table.
type Table struct {
	Slug   string `json:"slug"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// EnsureTable issues or refreshes the slug for a table label.
func (c *Client) EnsureTable(ctx context.Context, label string, active bool) (*Table, error) {
	body := map[string]any{"label": label, "active": active}
	env, err := c.do(ctx, http.MethodPost, "/admin/tables/ensure", "", body)
	if err != nil {
		return nil, err
	}
	var table Table
	if err := api.DecodeData(env, &table); err != nil {
		return nil, err
	}
	return &table, nil
}
