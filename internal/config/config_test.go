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

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "assettrack.sqlite3", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Listing.PageSize)
	assert.Equal(t, 100, cfg.Listing.MaxPageSize)
	assert.Equal(t, StorageFS, cfg.Storage.Backend)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  read_timeout: 5s
database:
  path: /tmp/assets.db
listing:
  page_size: 25
`), 0o644))

	t.Setenv("ASSETTRACK_SERVER_ADDR", ":7070")
	t.Setenv("ASSETTRACK_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "environment overrides the file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/assets.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Listing.PageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ASSETTRACK_DATABASE_PATH=from-dotenv.db\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ASSETTRACK_DATABASE_PATH") })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Path: "a.db"},
			Log:      LogConfig{Level: "info"},
			Listing:  ListingConfig{PageSize: 10, MaxPageSize: 100},
			Storage:  StorageConfig{Backend: StorageFS, Dir: "docs"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"no database", func(c *Config) { c.Database.Path = "" }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"zero page size", func(c *Config) { c.Listing.PageSize = 0 }, false},
		{"max below default", func(c *Config) { c.Listing.MaxPageSize = 5 }, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, false},
		{"minio without endpoint", func(c *Config) { c.Storage.Backend = StorageMinIO; c.MinIO.Bucket = "b" }, false},
		{"minio", func(c *Config) {
			c.Storage.Backend = StorageMinIO
			c.MinIO.Endpoint = "localhost:9000"
			c.MinIO.Bucket = "b"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
