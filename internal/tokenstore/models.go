// Package tokenstore holds session and admin credentials with expiry
// bookkeeping. It is the only persistence layer in the client: session
// entries keyed by table slug plus a single admin credential slot.
package tokenstore

import "time"

// Channel identifies the ordering channel a session authorizes.
type Channel string

const (
	ChannelDineIn  Channel = "DINEIN"
	ChannelTakeout Channel = "TAKEOUT"
)

// Session is the authorization to place orders for one table or channel.
// At most one session is active per slug; a new open replaces the prior one.
type Session struct {
	Slug      string    `json:"slug"`
	Token     string    `json:"token"`
	Channel   Channel   `json:"channel"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session is past its client-known expiry.
// A zero ExpiresAt means the server is the only expiry authority.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AdminCredential is the staff authorization: a JWT plus the login time used
// as a fallback expiry anchor when the token cannot be parsed.
type AdminCredential struct {
	Token   string    `json:"token"`
	LoginAt time.Time `json:"login_at"`
}
