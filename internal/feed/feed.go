// Package feed delivers near-real-time order updates to the staff console.
//
// Transports are tried as an ordered list of strategies: the primary SSE
// endpoint, then the legacy SSE endpoint, then periodic polling of the active
// orders operation. Downstream consumers see the same callback regardless of
// which transport won; polling results arrive as snapshot events.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"
)

// Event types emitted by the backend stream.
const (
	EventSnapshot      = "snapshot"
	EventOrdersChanged = "orders_changed"
	EventPing          = "ping"
)

// DefaultPollInterval is how often the polling fallback refreshes the board.
const DefaultPollInterval = 10 * time.Second

// defaultConnectWindow bounds one SSE connection attempt, reconnect backoff
// included, so a dead endpoint cannot stall the strategy chain.
const defaultConnectWindow = 5 * time.Second

// Handler receives every feed event. Data is the raw event payload; for ping
// events it is opaque.
type Handler func(event string, data []byte)

// Config wires a Feed to its transports.
type Config struct {
	// StreamURLs are the SSE endpoints to try in order, token query included.
	StreamURLs []string
	// Snapshot is the polling fallback: fetch the active orders payload.
	Snapshot func(ctx context.Context) (json.RawMessage, error)
	// Handler receives events from whichever transport is active. Required.
	Handler Handler
	// OnError is notified of transport errors after attachment. Optional.
	OnError func(error)

	// PollInterval overrides DefaultPollInterval (tests use a short one).
	PollInterval time.Duration
	// ConnectWindow overrides defaultConnectWindow.
	ConnectWindow time.Duration

	Logger *slog.Logger
}

// EndpointURLs builds the primary and legacy stream URLs for a resolved API
// base. The token travels as a query parameter: the browser EventSource this
// protocol was designed for cannot set headers.
func EndpointURLs(base, token string) []string {
	base = strings.TrimSuffix(base, "/")
	q := url.Values{"token": {token}}.Encode()
	return []string{
		base + "/admin/sse/orders/stream?" + q,
		base + "/sse/orders/stream?" + q,
	}
}

// Feed is a live order feed over whichever transport attached.
type Feed struct {
	cancel    context.CancelFunc
	closeOnce sync.Once
	transport string
}

// Transport reports which transport is active: "sse" or "poll".
func (f *Feed) Transport() string {
	return f.transport
}

// Close tears down the active transport. Safe to call more than once.
func (f *Feed) Close() {
	f.closeOnce.Do(f.cancel)
}

// Open attaches a feed. SSE endpoints are tried in order; when none attaches
// within its connect window the feed degrades to polling. Open itself only
// fails on misconfiguration.
func Open(cfg Config) (*Feed, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("feed: Handler is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ConnectWindow <= 0 {
		cfg.ConnectWindow = defaultConnectWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "feed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	feed := &Feed{cancel: cancel}

	for _, streamURL := range cfg.StreamURLs {
		if attachStream(ctx, streamURL, cfg) {
			cfg.Logger.Info("order stream attached", "url", streamURL)
			feed.transport = "sse"
			return feed, nil
		}
		cfg.Logger.Warn("order stream endpoint failed", "url", streamURL)
	}

	if cfg.Snapshot == nil {
		cancel()
		return nil, fmt.Errorf("feed: no stream endpoint attached and no Snapshot fallback configured")
	}

	cfg.Logger.Info("degrading to polling", "interval", cfg.PollInterval)
	feed.transport = "poll"
	go pollLoop(ctx, cfg)
	return feed, nil
}

// attachStream tries one SSE endpoint. It reports success once the
// connection is up; afterwards the subscription runs until the feed closes,
// surfacing later errors through OnError.
func attachStream(ctx context.Context, streamURL string, cfg Config) bool {
	attemptCtx, cancelAttempt := context.WithCancel(ctx)

	c := sse.NewClient(streamURL)
	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = cfg.ConnectWindow
	c.ReconnectStrategy = strategy

	connected := make(chan struct{})
	var connectOnce sync.Once
	c.OnConnect(func(*sse.Client) {
		connectOnce.Do(func() { close(connected) })
	})

	errc := make(chan error, 1)
	go func() {
		errc <- c.SubscribeRawWithContext(attemptCtx, func(msg *sse.Event) {
			dispatch(cfg.Handler, msg)
		})
	}()

	select {
	case <-connected:
		go func() {
			defer cancelAttempt()
			err := <-errc
			if err != nil && ctx.Err() == nil {
				cfg.Logger.Warn("order stream lost", "url", streamURL, "error", err)
				if cfg.OnError != nil {
					cfg.OnError(err)
				}
			}
		}()
		return true
	case <-errc:
		cancelAttempt()
		return false
	case <-time.After(cfg.ConnectWindow):
		cancelAttempt()
		return false
	}
}

func dispatch(handler Handler, msg *sse.Event) {
	event := string(msg.Event)
	if event == "" {
		event = "message"
	}
	handler(event, msg.Data)
}

// pollLoop fetches the active orders on a fixed interval and delivers each
// result as a snapshot, keeping consumers protocol-agnostic. The first poll
// fires immediately.
func pollLoop(ctx context.Context, cfg Config) {
	poll := func() {
		data, err := cfg.Snapshot(ctx)
		if err != nil {
			if ctx.Err() == nil && cfg.OnError != nil {
				cfg.OnError(err)
			}
			return
		}
		cfg.Handler(EventSnapshot, data)
	}

	poll()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
