package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "default values when no env vars set",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "3003", cfg.Server.Port)
				assert.Equal(t, "https://luna-converter.vercel.app", cfg.Server.AllowedOrigin)
				assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
				assert.Equal(t, 100, cfg.Upload.MaxFiles)
				assert.Equal(t, int64(20<<20), cfg.Upload.MaxFileBytes)
				assert.Equal(t, "webp", cfg.Conversion.Format)
				assert.Equal(t, time.Hour, cfg.Session.TTL)
				assert.False(t, cfg.Minio.Enabled)
				assert.Equal(t, "converted-archives", cfg.Minio.Bucket)
			},
		},
		{
			name: "custom values from env vars",
			envVars: map[string]string{
				"LUNA_SERVER_PORT":           "8080",
				"LUNA_SERVER_ALLOWED_ORIGIN": "http://localhost:3000",
				"LUNA_CONVERSION_FORMAT":     "PNG",
				"LUNA_SESSION_TTL":           "15m",
				"LUNA_MINIO_ENABLED":         "true",
				"LUNA_MINIO_BUCKET":          "custom-bucket",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "8080", cfg.Server.Port)
				assert.Equal(t, "http://localhost:3000", cfg.Server.AllowedOrigin)
				assert.Equal(t, "png", cfg.Conversion.Format)
				assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
				assert.True(t, cfg.Minio.Enabled)
				assert.Equal(t, "custom-bucket", cfg.Minio.Bucket)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load("")
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "luna.json")
	content := `{
		"server": {"port": "9090", "request_timeout": "5s"},
		"upload": {"max_files": 3},
		"conversion": {"format": "jpeg", "quality": 75}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Run("file values override defaults", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
		assert.Equal(t, 3, cfg.Upload.MaxFiles)
		assert.Equal(t, "jpeg", cfg.Conversion.Format)
		assert.Equal(t, 75, cfg.Conversion.Quality)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("LUNA_SERVER_PORT", "7070")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Server.Port)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.json"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: "3003", AllowedOrigin: "https://example.com"},
			Upload:     UploadConfig{MaxFiles: 10, MaxFileBytes: 1024},
			Conversion: ConversionConfig{Format: "webp", Quality: 90},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"unsupported format", func(c *Config) { c.Conversion.Format = "avif" }, true},
		{"quality too high", func(c *Config) { c.Conversion.Quality = 101 }, true},
		{"zero max files", func(c *Config) { c.Upload.MaxFiles = 0 }, true},
		{"zero max file bytes", func(c *Config) { c.Upload.MaxFileBytes = 0 }, true},
		{"negative workers", func(c *Config) { c.Conversion.Workers = -1 }, true},
		{"empty origin", func(c *Config) { c.Server.AllowedOrigin = "" }, true},
		{"minio without bucket", func(c *Config) { c.Minio.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
