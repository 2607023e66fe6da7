package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig returns a valid Config for testing
func newTestConfig() Config {
	return Config{
		Env:  "development",
		Port: 5000,
		MongoDB: MongoDBConfig{
			Database:       "shopfront",
			ConnectTimeout: 10 * time.Second,
		},
		API:   APIConfig{BodyLimit: 1024},
		Docs:  DocsConfig{Enabled: true, Path: "docs/swagger.yaml"},
		Cache: CacheConfig{PaletteSize: 16},
	}
}

func loadIsolated(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("NODE_ENV", "")
	t.Setenv("MONGODB_URI", "")
	os.Unsetenv("PORT")
	os.Unsetenv("NODE_ENV")
	os.Unsetenv("MONGODB_URI")

	cfg := loadIsolated(t)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.Production())
	assert.Empty(t, cfg.MongoDB.URI)
	assert.Equal(t, "shopfront", cfg.MongoDB.Database)
	assert.Equal(t, 10*time.Second, cfg.MongoDB.ConnectTimeout)
	assert.Equal(t, int64(100*1024), cfg.API.BodyLimit)
	assert.Empty(t, cfg.API.AllowedOrigins)
	assert.Equal(t, "docs/swagger.yaml", cfg.Docs.Path)
	assert.True(t, cfg.Docs.Enabled)
}

func TestLoadConfig_ConventionalEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("MONGODB_URI", "mongodb://db.internal:27017/shop")

	cfg := loadIsolated(t)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Production())
	assert.Equal(t, "mongodb://db.internal:27017/shop", cfg.MongoDB.URI)
}

func TestLoadConfig_PrefixedEnv(t *testing.T) {
	t.Setenv("SHOPFRONT_DOCS_PATH", "/srv/api.yaml")
	t.Setenv("SHOPFRONT_CACHE_PALETTE_SIZE", "32")

	cfg := loadIsolated(t)

	assert.Equal(t, "/srv/api.yaml", cfg.Docs.Path)
	assert.Equal(t, 32, cfg.Cache.PaletteSize)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "shopfront.yaml")
	content := "port: 7000\napi:\n  allowed_origins:\n    - https://shop.example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.API.AllowedOrigins)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"Production", false},
		{"prod", false},
		{"development", false},
		{"", false},
		{" production", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := newTestConfig()
			cfg.Env = tt.env
			assert.Equal(t, tt.want, cfg.Production())
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero is allowed", func(c *Config) { c.Port = 0 }, false},
		{"negative port", func(c *Config) { c.Port = -1 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"zero body limit", func(c *Config) { c.API.BodyLimit = 0 }, true},
		{"zero cache", func(c *Config) { c.Cache.PaletteSize = 0 }, true},
		{"zero timeout", func(c *Config) { c.MongoDB.ConnectTimeout = 0 }, true},
		{"docs without path", func(c *Config) { c.Docs.Path = "" }, true},
		{"disabled docs without path", func(c *Config) { c.Docs.Enabled = false; c.Docs.Path = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
