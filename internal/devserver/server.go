// Package devserver is an in-memory stand-in for the ordering backend, for
// local development and demos. It implements the same HTTP surface and
// response envelope as production, on both the current and the legacy path
// layouts, so the clients can be exercised without a real deployment.
package devserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"festival-orders/internal/client"
)

// Config controls the stub backend.
type Config struct {
	// PIN is the staff login PIN.
	PIN string
	// JWTSecret signs admin tokens (HS256).
	JWTSecret []byte
	// TableCodes maps dine-in slugs to their verification codes. A slug not
	// present here accepts DefaultCode.
	TableCodes map[string]string
	// DefaultCode is the fallback dine-in code. Default "1234".
	DefaultCode string
	// SessionTTL bounds customer sessions. Default 2h.
	SessionTTL time.Duration
	// AdminTokenTTL bounds issued admin JWTs. Default 12h.
	AdminTokenTTL time.Duration
}

type sessionRec struct {
	ID        string
	Slug      string
	Channel   string
	ExpiresAt time.Time
}

type orderRec struct {
	OrderID   string             `json:"order_id"`
	SessionID string             `json:"session_id,omitempty"`
	TableSlug string             `json:"table_label,omitempty"`
	OrderType string             `json:"order_type"`
	PayerName string             `json:"payer_name"`
	Status    string             `json:"status"`
	Items     []client.OrderLine `json:"items,omitempty"`
	Total     int64              `json:"total,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type streamEvent struct {
	name string
	data any
}

// Server holds the in-memory state.
type Server struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	menu     []client.MenuItem
	sessions map[string]*sessionRec // session token -> record
	orders   map[string]*orderRec
	tables   map[string]string // label -> slug
	subs     map[chan streamEvent]struct{}
}

// New creates a stub backend seeded with a small menu.
func New(cfg Config) *Server {
	if cfg.DefaultCode == "" {
		cfg.DefaultCode = "1234"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.AdminTokenTTL <= 0 {
		cfg.AdminTokenTTL = 12 * time.Hour
	}
	return &Server{
		cfg:      cfg,
		log:      slog.Default().With("component", "devserver"),
		menu:     seedMenu(),
		sessions: make(map[string]*sessionRec),
		orders:   make(map[string]*orderRec),
		tables:   make(map[string]string),
		subs:     make(map[chan streamEvent]struct{}),
	}
}

func seedMenu() []client.MenuItem {
	return []client.MenuItem{
		{ID: 1, Name: "Memory Set", Description: "Signature set for the table", Price: 25000, QtySold: 41},
		{ID: 2, Name: "Grilled Pork Belly", Price: 15000, QtySold: 58},
		{ID: 3, Name: "Spicy Rice Cakes", Price: 8000, QtySold: 23},
		{ID: 4, Name: "Fruit Punch", Price: 6000, QtySold: 35},
		{ID: 5, Name: "Cola", Price: 2000, QtySold: 12},
		{ID: 6, Name: "Kimchi Pancake", Price: 10000, IsSoldOut: true},
	}
}

// Router builds the HTTP surface.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Customer surface.
	r.GET("/menu", s.handlePublicMenu)
	r.GET("/menu/top", s.handleTopMenu)
	r.POST("/sessions/open", s.handleOpenSession)
	r.POST("/orders", s.handleCreateOrder)
	r.GET("/orders/:id", s.handleOrderDetail)

	// Admin surface, primary paths.
	r.POST("/admin/login", s.handleAdminLogin)
	admin := r.Group("/", s.adminAuth())
	{
		admin.GET("/admin/validate", s.handleValidate)
		admin.GET("/admin/orders/active", s.handleActiveOrders)
		admin.GET("/admin/orders/:id", s.handleAdminOrderDetail)
		admin.PATCH("/admin/orders/:id/status", s.handlePatchStatus)
		admin.POST("/admin/sessions/:id/close", s.handleForceClose)
		admin.GET("/admin/menu", s.handleAdminMenu)
		admin.POST("/admin/tables/ensure", s.handleEnsureTable)

		// Legacy path layout, kept for deployed clients mid-migration.
		admin.GET("/orders/admin/:id", s.handleAdminOrderDetail)
		admin.PATCH("/orders/:id/status", s.handlePatchStatus)
		admin.POST("/sessions/:id/close", s.handleForceClose)
		admin.GET("/menu/admin", s.handleAdminMenu)
	}

	// Stream endpoints authenticate via token query, not headers.
	r.GET("/admin/sse/orders/stream", s.handleOrderStream)
	r.GET("/sse/orders/stream", s.handleOrderStream)

	return r
}

// ok writes a success envelope.
func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// fail writes a failure envelope.
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// adminAuth validates the bearer JWT on admin routes.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
			fail(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}
		if err := s.verifyAdminToken(auth[len(prefix):]); err != nil {
			fail(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) verifyAdminToken(raw string) error {
	_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.cfg.JWTSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	return err
}

func (s *Server) issueAdminToken(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.AdminTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.JWTSecret)
}

// broadcast fans an event out to all stream subscribers. Slow subscribers
// drop events rather than block the sender.
func (s *Server) broadcast(name string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- streamEvent{name: name, data: data}:
		default:
		}
	}
}

func (s *Server) subscribe() chan streamEvent {
	ch := make(chan streamEvent, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan streamEvent) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func newSessionToken() string {
	return "sess_" + uuid.NewString()
}
