package devserver

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"festival-orders/internal/client"
)

func (s *Server) handlePublicMenu(c *gin.Context) {
	s.mu.Lock()
	items := append([]client.MenuItem(nil), s.menu...)
	s.mu.Unlock()
	ok(c, items)
}

func (s *Server) handleTopMenu(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("n", "3"))
	if err != nil || n <= 0 {
		fail(c, http.StatusBadRequest, "n must be a positive integer")
		return
	}

	s.mu.Lock()
	items := append([]client.MenuItem(nil), s.menu...)
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].QtySold > items[j].QtySold })
	if n < len(items) {
		items = items[:n]
	}
	ok(c, items)
}

type openSessionRequest struct {
	Slug    string `json:"slug"`
	Channel string `json:"channel"`
	Code    string `json:"code"`
}

func (s *Server) handleOpenSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Slug == "" {
		fail(c, http.StatusBadRequest, "slug is required")
		return
	}

	channel := strings.ToUpper(req.Channel)
	switch channel {
	case "DINEIN":
		want := s.cfg.DefaultCode
		if code, okc := s.cfg.TableCodes[req.Slug]; okc {
			want = code
		}
		if req.Code != want {
			fail(c, http.StatusForbidden, "invalid table code")
			return
		}
	case "TAKEOUT":
		// Takeout needs no code: the slug identifies the channel.
	default:
		fail(c, http.StatusBadRequest, "channel must be DINEIN or TAKEOUT")
		return
	}

	rec := &sessionRec{
		ID:        uuid.NewString(),
		Slug:      req.Slug,
		Channel:   channel,
		ExpiresAt: time.Now().Add(s.cfg.SessionTTL),
	}
	token := newSessionToken()

	s.mu.Lock()
	// One session per slug: opening replaces any prior one.
	for t, old := range s.sessions {
		if old.Slug == req.Slug {
			delete(s.sessions, t)
		}
	}
	s.sessions[token] = rec
	s.mu.Unlock()

	s.log.Info("session opened", "slug", req.Slug, "channel", channel)
	ok(c, gin.H{
		"token":      token,
		"session_id": rec.ID,
		"channel":    channel,
		"expires_at": rec.ExpiresAt,
	})
}

// sessionFromRequest resolves the bearer session token, nil when absent,
// expired, or unknown.
func (s *Server) sessionFromRequest(c *gin.Context) (string, *sessionRec) {
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", nil
	}
	token := auth[len(prefix):]

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, found := s.sessions[token]
	if !found {
		return token, nil
	}
	if time.Now().After(rec.ExpiresAt) {
		delete(s.sessions, token)
		return token, nil
	}
	return token, rec
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	_, sess := s.sessionFromRequest(c)
	if sess == nil {
		fail(c, http.StatusUnauthorized, "session missing or expired")
		return
	}

	var req client.PendingOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed order")
		return
	}
	if req.PayerName == "" || len(req.Items) == 0 {
		fail(c, http.StatusBadRequest, "payer_name and items are required")
		return
	}

	order := &orderRec{
		OrderID:   "ORD-" + uuid.NewString()[:8],
		SessionID: sess.ID,
		TableSlug: sess.Slug,
		OrderType: req.OrderType,
		PayerName: req.PayerName,
		Status:    "WAITING",
		Items:     req.Items,
		Total:     s.priceOf(req.Items, req.OrderType),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.orders[order.OrderID] = order
	s.mu.Unlock()

	s.log.Info("order created", "order_id", order.OrderID, "slug", sess.Slug)
	s.broadcast("orders_changed", gin.H{"order_id": order.OrderID, "status": order.Status})
	ok(c, gin.H{"order_id": order.OrderID, "status": order.Status})
}

// priceOf totals the lines against the menu, applying the takeout discount.
func (s *Server) priceOf(items []client.OrderLine, orderType string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, line := range items {
		for _, m := range s.menu {
			if m.ID == line.ProductID {
				sum += m.Price * int64(line.Quantity)
			}
		}
	}
	if orderType == "TAKEOUT" {
		sum -= sum / 10
	}
	return sum
}

func (s *Server) handleOrderDetail(c *gin.Context) {
	s.mu.Lock()
	order, found := s.orders[c.Param("id")]
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "order not found")
		return
	}
	ok(c, order)
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PIN == "" {
		fail(c, http.StatusBadRequest, "pin is required")
		return
	}
	if req.PIN != s.cfg.PIN {
		fail(c, http.StatusUnauthorized, "wrong PIN")
		return
	}

	token, err := s.issueAdminToken(time.Now())
	if err != nil {
		fail(c, http.StatusInternalServerError, "could not issue token")
		return
	}
	ok(c, gin.H{"token": token})
}

func (s *Server) handleValidate(c *gin.Context) {
	ok(c, gin.H{"valid": true})
}

// urgentAfter is how long a waiting order sits before the board flags it.
const urgentAfter = 5 * time.Minute

func (s *Server) activeOrdersPayload() gin.H {
	s.mu.Lock()
	defer s.mu.Unlock()

	urgent := []*orderRec{}
	waiting := []*orderRec{}
	preparing := []*orderRec{}
	now := time.Now()
	for _, o := range s.orders {
		switch o.Status {
		case "WAITING":
			if now.Sub(o.CreatedAt) > urgentAfter {
				urgent = append(urgent, o)
			} else {
				waiting = append(waiting, o)
			}
		case "PREPARING":
			preparing = append(preparing, o)
		}
	}
	for _, bucket := range [][]*orderRec{urgent, waiting, preparing} {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].CreatedAt.Before(bucket[j].CreatedAt) })
	}
	return gin.H{"urgent": urgent, "waiting": waiting, "preparing": preparing}
}

func (s *Server) handleActiveOrders(c *gin.Context) {
	ok(c, s.activeOrdersPayload())
}

func (s *Server) handleAdminOrderDetail(c *gin.Context) {
	s.mu.Lock()
	order, found := s.orders[c.Param("id")]
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "order not found")
		return
	}
	ok(c, order)
}

// statusActions maps a patch action to the resulting order status.
var statusActions = map[string]string{
	"accept":   "PREPARING",
	"serve":    "SERVED",
	"complete": "SERVED",
	"cancel":   "CANCELLED",
}

func (s *Server) handlePatchStatus(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed status patch")
		return
	}
	next, known := statusActions[strings.ToLower(req.Action)]
	if !known {
		fail(c, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	s.mu.Lock()
	order, found := s.orders[c.Param("id")]
	if found {
		order.Status = next
	}
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "order not found")
		return
	}

	s.log.Info("order status changed", "order_id", order.OrderID, "status", next, "reason", req.Reason)
	s.broadcast("orders_changed", gin.H{"order_id": order.OrderID, "status": next})
	ok(c, order)
}

func (s *Server) handleForceClose(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	var closed bool
	for token, rec := range s.sessions {
		if rec.ID == id {
			delete(s.sessions, token)
			closed = true
		}
	}
	s.mu.Unlock()

	if !closed {
		fail(c, http.StatusNotFound, "session not found")
		return
	}
	s.log.Info("session force-closed", "session_id", id)
	ok(c, gin.H{"closed": true})
}

func (s *Server) handleAdminMenu(c *gin.Context) {
	s.mu.Lock()
	items := append([]client.MenuItem(nil), s.menu...)
	s.mu.Unlock()
	ok(c, items)
}

func (s *Server) handleEnsureTable(c *gin.Context) {
	var req struct {
		Label  string `json:"label"`
		Active bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Label == "" {
		fail(c, http.StatusBadRequest, "label is required")
		return
	}

	s.mu.Lock()
	slug, found := s.tables[req.Label]
	if !found {
		slug = "t-" + uuid.NewString()[:8]
		s.tables[req.Label] = slug
	}
	s.mu.Unlock()

	ok(c, gin.H{"slug": slug, "label": req.Label, "active": req.Active})
}

// handleOrderStream serves the SSE order feed. EventSource clients cannot
// set headers, so the admin token arrives as a query parameter.
func (s *Server) handleOrderStream(c *gin.Context) {
	token := c.Query("token")
	if token == "" || s.verifyAdminToken(token) != nil {
		fail(c, http.StatusUnauthorized, "invalid or missing token")
		return
	}

	sub := s.subscribe()
	defer s.unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Every subscriber starts from a full snapshot.
	c.SSEvent("snapshot", s.activeOrdersPayload())
	c.Writer.Flush()

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev := <-sub:
			c.SSEvent(ev.name, ev.data)
			return true
		case <-ping.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
