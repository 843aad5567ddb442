package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBase(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		prefix    string
		prefixSet bool
		want      string
	}{
		{"production default prefix", "https://api.limswoo.shop", "", false, "https://api.limswoo.shop/api"},
		{"production explicit empty still gets api", "https://api.limswoo.shop", "", true, "https://api.limswoo.shop/api"},
		{"production explicit prefix", "https://api.limswoo.shop", "/v2", true, "https://api.limswoo.shop/v2"},
		{"prefix without slash", "https://api.limswoo.shop", "v2", true, "https://api.limswoo.shop/v2"},
		{"localhost no prefix", "http://localhost:8080", "", false, "http://localhost:8080"},
		{"loopback no prefix", "http://127.0.0.1:8080", "", false, "http://127.0.0.1:8080"},
		{"private network no prefix", "http://192.168.0.10:8080", "", false, "http://192.168.0.10:8080"},
		{"local with explicit prefix", "http://localhost:8080", "/api", true, "http://localhost:8080/api"},
		{"trailing slash trimmed", "http://localhost:8080/", "", false, "http://localhost:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveBase(tt.base, tt.prefix, tt.prefixSet))
		})
	}
}

func TestLoadTakeoutSlugs(t *testing.T) {
	t.Setenv("TAKEOUT_SLUGS", "front-booth, pickup ,")

	cfg := Load()
	assert.Equal(t, []string{"front-booth", "pickup"}, cfg.TakeoutSlugs)
	assert.True(t, cfg.IsTakeoutSlug("pickup"))
	assert.False(t, cfg.IsTakeoutSlug("table7"))
}

func TestLoadSlugTypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slug-types.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"takeout":["pickup"],"dinein":["table7"]}`), 0o644))

	st, err := LoadSlugTypes(path)
	require.NoError(t, err)
	assert.True(t, st.IsTakeout("pickup"))
	assert.False(t, st.IsTakeout("table7"))
}

func TestLoadSlugTypesMissingFile(t *testing.T) {
	st, err := LoadSlugTypes(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.False(t, st.IsTakeout("anything"))
}

func TestValidateEnv(t *testing.T) {
	t.Setenv("CFG_TEST_PRESENT", "yes")

	assert.NoError(t, ValidateEnv([]string{"CFG_TEST_PRESENT"}))
	err := ValidateEnv([]string{"CFG_TEST_PRESENT", "CFG_TEST_MISSING"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CFG_TEST_MISSING")
}
