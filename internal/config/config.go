// Package config loads runtime configuration for the ordering clients from
// the environment and resolves the backend base URL.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// localBase matches development backends reachable directly, without a
// reverse proxy in front: loopback or private 192.168.* addresses.
var localBase = regexp.MustCompile(`(?i)^http://(localhost|127\.0\.0\.1)|^https?://192\.168\.`)

// Config holds the runtime settings shared by the CLIs.
type Config struct {
	APIBase         string
	APIPrefix       string
	DefaultSlug     string
	TakeoutSlugs    []string
	CredentialsPath string

	prefixSet bool
}

// Load reads configuration from the environment.
//
// API_PREFIX distinguishes unset from set-empty: an explicitly empty prefix
// against a non-local base still defaults to /api, so the same build runs
// against a local backend and a production backend behind a proxy path.
func Load() *Config {
	prefix, prefixSet := os.LookupEnv("API_PREFIX")

	cfg := &Config{
		APIBase:         getEnv("API_BASE", "https://api.limswoo.shop"),
		APIPrefix:       prefix,
		prefixSet:       prefixSet,
		DefaultSlug:     os.Getenv("DEFAULT_SLUG"),
		CredentialsPath: getEnv("CREDENTIALS_FILE", defaultCredentialsPath()),
	}
	if raw := os.Getenv("TAKEOUT_SLUGS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.TakeoutSlugs = append(cfg.TakeoutSlugs, s)
			}
		}
	}
	return cfg
}

// ResolvedBase combines the API base with the path prefix. A local base with
// no configured prefix gets an empty prefix; any other base without one
// defaults to /api.
func (c *Config) ResolvedBase() string {
	return ResolveBase(c.APIBase, c.APIPrefix, c.prefixSet)
}

// ResolveBase applies the prefix-defaulting rule to an arbitrary base URL.
func ResolveBase(base, prefix string, prefixSet bool) string {
	base = strings.TrimSuffix(base, "/")
	if !prefixSet || prefix == "" {
		if localBase.MatchString(base) {
			return base
		}
		return base + "/api"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return base + prefix
}

// IsTakeoutSlug reports whether the slug is configured as a takeout channel.
func (c *Config) IsTakeoutSlug(slug string) bool {
	for _, s := range c.TakeoutSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// SlugTypes classifies slugs into channels when TAKEOUT_SLUGS is not set,
// loaded from a JSON document of the shape {"takeout": [...], "dinein": [...]}.
type SlugTypes struct {
	Takeout []string `json:"takeout"`
	Dinein  []string `json:"dinein"`
}

// LoadSlugTypes reads a slug-types document from disk. A missing file is not
// an error; it yields an empty classification and callers fall back to the
// dine-in default.
func LoadSlugTypes(path string) (*SlugTypes, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &SlugTypes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slug types: %w", err)
	}
	var st SlugTypes
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("parse slug types: %w", err)
	}
	return &st, nil
}

func contains(list []string, slug string) bool {
	for _, s := range list {
		if s == slug {
			return true
		}
	}
	return false
}

// IsTakeout reports whether the document classifies the slug as takeout.
func (st *SlugTypes) IsTakeout(slug string) bool {
	return contains(st.Takeout, slug)
}

// ValidateEnv ensures all required environment variables are present.
func ValidateEnv(required []string) error {
	var missing []string
	for _, name := range required {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "credentials.json"
	}
	return filepath.Join(dir, "festival-orders", "credentials.json")
}
