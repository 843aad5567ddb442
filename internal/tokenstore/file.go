package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileState is the on-disk layout. LegacyToken carries the admin token key
// used by earlier releases; it is read as a fallback and removed on clear.
type fileState struct {
	Sessions    map[string]Session `json:"sessions"`
	Admin       *AdminCredential   `json:"admin,omitempty"`
	LegacyToken string             `json:"accesstoken,omitempty"`
}

// fileStore persists credentials as a JSON document on disk.
type fileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a Store backed by a JSON file at path. The file and
// its parent directories are created on first write.
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

// load reads the current state. Missing or unreadable files yield an empty
// state: externally cleared storage means "no credentials", never an error.
func (f *fileStore) load() fileState {
	st := fileState{Sessions: make(map[string]Session)}
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return st
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return fileState{Sessions: make(map[string]Session)}
	}
	if st.Sessions == nil {
		st.Sessions = make(map[string]Session)
	}
	return st
}

func (f *fileStore) save(st fileState) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

func (f *fileStore) GetSession(slug string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.load()
	s, ok := st.Sessions[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (f *fileStore) SetSession(slug string, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.load()
	st.Sessions[slug] = s
	return f.save(st)
}

func (f *fileStore) RemoveSession(slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.load()
	if _, ok := st.Sessions[slug]; !ok {
		return nil
	}
	delete(st.Sessions, slug)
	return f.save(st)
}

func (f *fileStore) GetAdminCredential() (*AdminCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.load()
	if st.Admin != nil {
		cred := *st.Admin
		return &cred, nil
	}
	if st.LegacyToken != "" {
		// Old layout stored only the raw token; anchor the fallback expiry
		// check to now so the credential is not rejected outright.
		return &AdminCredential{Token: st.LegacyToken, LoginAt: time.Now()}, nil
	}
	return nil, ErrNotFound
}

func (f *fileStore) SetAdminCredential(cred AdminCredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.load()
	st.Admin = &cred
	return f.save(st)
}

func (f *fileStore) ClearAdminCredential() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.load()
	if st.Admin == nil && st.LegacyToken == "" {
		return nil
	}
	st.Admin = nil
	st.LegacyToken = ""
	return f.save(st)
}
