package tokenstore

import "errors"

// ErrNotFound is returned when no entry exists for the requested key.
var ErrNotFound = errors.New("credential not found")

// Store defines the credential storage operations. Implementations must
// tolerate the backing storage being cleared externally: a missing entry is
// ErrNotFound, never a panic or a corrupt read.
type Store interface {
	// GetSession returns the session for a slug, or ErrNotFound.
	GetSession(slug string) (*Session, error)
	// SetSession stores a session with overwrite-on-write semantics.
	SetSession(slug string, s Session) error
	// RemoveSession deletes a session. Removing an absent session is a no-op.
	RemoveSession(slug string) error

	// GetAdminCredential returns the single admin slot, or ErrNotFound.
	GetAdminCredential() (*AdminCredential, error)
	// SetAdminCredential overwrites the admin slot.
	SetAdminCredential(cred AdminCredential) error
	// ClearAdminCredential empties the admin slot. Idempotent.
	ClearAdminCredential() error
}
