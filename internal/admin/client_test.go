package admin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festival-orders/internal/admin"
	"festival-orders/internal/api"
	"festival-orders/internal/client"
	"festival-orders/internal/devserver"
	"festival-orders/internal/tokenstore"
)

// seededStore returns a store holding a credential that passes the
// client-side check via the login-time fallback.
func seededStore(t *testing.T) tokenstore.Store {
	t.Helper()
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.SetAdminCredential(tokenstore.AdminCredential{
		Token: "opaque-staff-token", LoginAt: time.Now(),
	}))
	return store
}

func TestLegacyPathFallbackOn404(t *testing.T) {
	hits := map[string]int{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		if r.URL.Path == "/orders/admin/ORD-1" {
			w.Write([]byte(`{"success":true,"data":{"order_id":"ORD-1","status":"WAITING"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"no route"}`))
	}))
	defer backend.Close()

	cli := admin.New(backend.URL, seededStore(t))
	order, err := cli.GetOrderDetails(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", order.OrderID)
	assert.Equal(t, 1, hits["/admin/orders/ORD-1"], "primary tried exactly once")
	assert.Equal(t, 1, hits["/orders/admin/ORD-1"], "legacy tried exactly once")
}

func TestLegacyPathSecond404IsFinal(t *testing.T) {
	hits := map[string]int{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"no route"}`))
	}))
	defer backend.Close()

	cli := admin.New(backend.URL, seededStore(t))
	_, err := cli.GetOrderDetails(context.Background(), "ORD-1")
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, 1, hits["/admin/orders/ORD-1"])
	assert.Equal(t, 1, hits["/orders/admin/ORD-1"], "no retries beyond the single fallback")
}

func Test401ClearsCredential(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"token rejected"}`))
	}))
	defer backend.Close()

	store := seededStore(t)
	cli := admin.New(backend.URL, store)
	_, err := cli.GetActiveOrders(context.Background())
	assert.ErrorIs(t, err, admin.ErrSessionExpired)

	_, err = store.GetAdminCredential()
	assert.ErrorIs(t, err, tokenstore.ErrNotFound, "401 must clear the credential before the error returns")
}

func TestInvalidCredentialFailsFast(t *testing.T) {
	var hits int
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer backend.Close()

	// Unparsable token with a 25-hour-old login: rejected client-side.
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.SetAdminCredential(tokenstore.AdminCredential{
		Token: "not-a-jwt", LoginAt: time.Now().Add(-25 * time.Hour),
	}))

	cli := admin.New(backend.URL, store)
	_, err := cli.GetActiveOrders(context.Background())
	assert.ErrorIs(t, err, admin.ErrLoginRequired)
	assert.Zero(t, hits, "an invalid credential must not reach the network")

	_, err = store.GetAdminCredential()
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestNoCredentialFailsFast(t *testing.T) {
	cli := admin.New("http://127.0.0.1:1", tokenstore.NewMemoryStore())
	_, err := cli.GetActiveOrders(context.Background())
	assert.ErrorIs(t, err, admin.ErrLoginRequired)
}

func TestValidateTokenUnreachableEndpointPasses(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	cli := admin.New(backend.URL, seededStore(t))
	valid, err := cli.ValidateToken(context.Background())
	require.NoError(t, err)
	assert.True(t, valid, "a backend without the validate endpoint is treated as a pass")
}

// TestAdminFlowAgainstDevserver runs the staff path end to end: PIN login,
// board reads on both path layouts, status patching, and force-close.
func TestAdminFlowAgainstDevserver(t *testing.T) {
	backend := httptest.NewServer(devserver.New(devserver.Config{
		PIN:       "9999",
		JWTSecret: []byte("test-secret"),
	}).Router())
	defer backend.Close()
	ctx := context.Background()

	store := tokenstore.NewMemoryStore()
	cli := admin.New(backend.URL, store)

	// Wrong PIN is a plain envelope failure.
	err := cli.Login(ctx, "0000")
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.NoError(t, cli.Login(ctx, "9999"))
	valid, err := cli.ValidateToken(ctx)
	require.NoError(t, err)
	assert.True(t, valid)

	// Seed one customer order through the public surface.
	custStore := tokenstore.NewMemoryStore()
	cust := client.New(backend.URL, custStore)
	_, err = cust.OpenTakeoutSession(ctx, "pickup")
	require.NoError(t, err)
	placed, err := cust.CreateOrder(ctx, "pickup", client.PendingOrder{
		OrderType: "TAKEOUT", PayerName: "Lee",
		Items: []client.OrderLine{{ProductID: 2, Quantity: 1}},
	})
	require.NoError(t, err)

	board, err := cli.GetActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, board.Waiting, 1)
	assert.Equal(t, placed.OrderID, board.Waiting[0].OrderID)

	require.NoError(t, cli.PatchOrderStatus(ctx, placed.OrderID, "accept", ""))
	board, err = cli.GetActiveOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, board.Waiting)
	require.Len(t, board.Preparing, 1)

	detail, err := cli.GetOrderDetails(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "PREPARING", detail.Status)

	menu, err := cli.GetMenu(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, menu)

	table, err := cli.EnsureTable(ctx, "Table 7", true)
	require.NoError(t, err)
	assert.NotEmpty(t, table.Slug)

	// Force-close the customer session: the next order is rejected.
	require.NoError(t, cli.ForceCloseSession(ctx, detail.SessionID))
	_, err = cust.CreateOrder(ctx, "pickup", client.PendingOrder{
		OrderType: "TAKEOUT", PayerName: "Lee",
		Items: []client.OrderLine{{ProductID: 2, Quantity: 1}},
	})
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	require.NoError(t, cli.Logout())
	_, err = cli.GetActiveOrders(ctx)
	assert.ErrorIs(t, err, admin.ErrLoginRequired)
}
