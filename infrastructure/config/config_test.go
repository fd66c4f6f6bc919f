package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APPLICATION_URL", "https://cms.example.com/")
	t.Setenv("SITE_TITLE", "Example")
	t.Setenv("ENABLE_METRICS", "yes")
	t.Setenv("SESSION_TTL", "90")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://cms.example.com", cfg.ApplicationURL)
	assert.Equal(t, "Example", cfg.SiteTitle)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	writeFile(t, path, `
site_title: From File
log_level: debug
session_ttl: 30m
principals:
  - name: admin
    title: Administrator
    email: admin@example.com
    groups: ["role:admin"]
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "From File", cfg.SiteTitle)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Len(t, cfg.Principals, 1)
	assert.Equal(t, []string{"role:admin"}, cfg.Principals[0].Groups)

	t.Run("Should reject unknown keys", func(t *testing.T) {
		writeFile(t, path, "site_titel: typo\n")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "production without secret",
			mutate:  func(c *Config) { c.Environment = "production" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "dynamodb without table",
			mutate:  func(c *Config) { c.StorageBackend = StorageDynamoDB; c.DynamoDBTable = "" },
			wantErr: "TABLE_NAME",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.StorageBackend = "postgres" },
			wantErr: "STORAGE_BACKEND",
		},
		{
			name:    "events without bus",
			mutate:  func(c *Config) { c.EnableEvents = true; c.EventBusName = "" },
			wantErr: "EVENT_BUS_NAME",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWatcher_Reload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	writeFile(t, path, "site_title: Before\n")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SITE_TITLE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	w, err := newWatcher(ctx, cfg, zap.NewNop(), 10*time.Millisecond)
	require.NoError(t, err)

	var title atomic.Value
	w.OnChange(func(c *Config) { title.Store(c.SiteTitle) })

	writeFile(t, path, "site_title: After\n")

	require.Eventually(t, func() bool {
		v, _ := title.Load().(string)
		return v == "After"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "After", w.Config().SiteTitle)
}

func TestWatcher_WithoutFile(t *testing.T) {
	w, err := NewWatcher(context.Background(), defaults(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, w.watcher)
}
