// Package session decides whether a usable session exists for a slug and
// guarantees one before an order is submitted.
//
// The two channels have asymmetric trust rules: takeout sessions are opened
// silently because the slug alone identifies the order channel, while dine-in
// gates a shared physical table and always requires a person at the table to
// enter a verification code. A dine-in session is therefore never reopened
// automatically.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"festival-orders/internal/api"
	"festival-orders/internal/tokenstore"
)

var (
	// ErrCodeRequired is returned when a dine-in order has no usable session.
	// The caller must collect a table code from the customer; no network call
	// is made.
	ErrCodeRequired = errors.New("table code required to open a dine-in session")
	// ErrTakeoutOpenFailed is returned when the silent takeout open fails for
	// a session-related reason. Other failures propagate unchanged.
	ErrTakeoutOpenFailed = errors.New("takeout session could not be established")
)

// State is the lifecycle position of a slug's session.
type State string

const (
	StateNoSession State = "NO_SESSION"
	StateActive    State = "ACTIVE"
	StateExpired   State = "EXPIRED"
)

// Opener opens sessions against the backend. *client.Client satisfies it.
type Opener interface {
	OpenTakeoutSession(ctx context.Context, slug string) (*tokenstore.Session, error)
	OpenDineInSession(ctx context.Context, slug, code string) (*tokenstore.Session, error)
}

// Manager resolves slugs to active sessions and opens new ones. Concurrent
// opens for the same slug are coalesced: the second caller awaits the first
// instead of racing it.
type Manager struct {
	store  tokenstore.Store
	opener Opener
	group  singleflight.Group
	log    *slog.Logger
	now    func() time.Time
}

// NewManager creates a session manager over the given store and opener.
func NewManager(store tokenstore.Store, opener Opener) *Manager {
	return &Manager{
		store:  store,
		opener: opener,
		log:    slog.Default().With("component", "session"),
		now:    time.Now,
	}
}

// State reports the current lifecycle state for a slug without side effects.
func (m *Manager) State(slug string) State {
	sess, err := m.store.GetSession(slug)
	if err != nil {
		return StateNoSession
	}
	if sess.Expired(m.now()) {
		return StateExpired
	}
	return StateActive
}

// EnsureBeforeOrder guarantees a usable session for the slug and expected
// channel, per the channel trust rules:
//
//   - an active session on the expected channel is returned with no network
//     call;
//   - takeout opens a session automatically when none is usable;
//   - dine-in fails with ErrCodeRequired, it never opens silently.
//
// A locally expired session is removed from the store before anything else,
// so the next call starts clean.
func (m *Manager) EnsureBeforeOrder(ctx context.Context, slug string, expected tokenstore.Channel) (*tokenstore.Session, error) {
	sess, err := m.store.GetSession(slug)
	if err == nil {
		if sess.Expired(m.now()) {
			m.log.Info("session expired locally", "slug", slug, "channel", sess.Channel)
			if err := m.store.RemoveSession(slug); err != nil {
				return nil, fmt.Errorf("remove expired session: %w", err)
			}
		} else if sess.Channel == expected {
			return sess, nil
		}
		// Channel mismatch falls through: the stored session cannot serve
		// this order, and a successful open replaces it.
	}

	if expected == tokenstore.ChannelTakeout {
		return m.openTakeout(ctx, slug)
	}
	return nil, ErrCodeRequired
}

// OpenWithCode opens a dine-in session using a customer-entered table code.
// Concurrent calls for the same slug share one in-flight open.
func (m *Manager) OpenWithCode(ctx context.Context, slug, code string) (*tokenstore.Session, error) {
	v, err, _ := m.group.Do("dinein:"+slug, func() (any, error) {
		return m.opener.OpenDineInSession(ctx, slug, code)
	})
	if err != nil {
		return nil, err
	}
	return v.(*tokenstore.Session), nil
}

// Invalidate removes the stored session for a slug. Used when a server
// response rejects the session after the fact.
func (m *Manager) Invalidate(slug string) error {
	return m.store.RemoveSession(slug)
}

func (m *Manager) openTakeout(ctx context.Context, slug string) (*tokenstore.Session, error) {
	v, err, shared := m.group.Do("takeout:"+slug, func() (any, error) {
		return m.opener.OpenTakeoutSession(ctx, slug)
	})
	if err != nil {
		if isSessionError(err) {
			return nil, fmt.Errorf("%w: %w", ErrTakeoutOpenFailed, err)
		}
		return nil, err
	}
	if shared {
		m.log.Debug("coalesced concurrent takeout open", "slug", slug)
	}
	return v.(*tokenstore.Session), nil
}

// isSessionError reports whether a failure is about the session itself, as
// opposed to an unreachable backend or an unrelated rejection.
func isSessionError(err error) bool {
	if errors.Is(err, api.ErrUnauthorized) {
		return true
	}
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
