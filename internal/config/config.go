package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "LUNA"

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Session    SessionConfig    `mapstructure:"session"`
	Minio      MinioConfig      `mapstructure:"minio"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// UploadConfig bounds what a single upload may carry
type UploadConfig struct {
	MaxFiles        int    `mapstructure:"max_files"`
	MaxFileBytes    int64  `mapstructure:"max_file_bytes"`
	MaxRequestBytes string `mapstructure:"max_request_bytes"`
}

// ConversionConfig selects the target format and the worker limit
type ConversionConfig struct {
	Format  string `mapstructure:"format"`
	Quality int    `mapstructure:"quality"`
	Workers int    `mapstructure:"workers"`
}

// SessionConfig controls idle session expiry
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

// MinioConfig configures the optional archive sink
type MinioConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig configures the zerolog logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

var supportedFormats = map[string]bool{"webp": true, "png": true, "jpeg": true}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3003")
	v.SetDefault("server.allowed_origin", "https://luna-converter.vercel.app")
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("upload.max_files", 100)
	v.SetDefault("upload.max_file_bytes", int64(20<<20))
	v.SetDefault("upload.max_request_bytes", "64M")

	v.SetDefault("conversion.format", "webp")
	v.SetDefault("conversion.quality", 90)
	v.SetDefault("conversion.workers", 0)

	v.SetDefault("session.ttl", time.Hour)
	v.SetDefault("session.sweep_schedule", "@every 1m")

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "minioadmin")
	v.SetDefault("minio.secret_key", "minioadmin")
	v.SetDefault("minio.bucket", "converted-archives")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads configuration from defaults, an optional config file and LUNA_* environment
// variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Conversion.Format = strings.ToLower(strings.TrimSpace(cfg.Conversion.Format))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.Server.AllowedOrigin == "" {
		return fmt.Errorf("server.allowed_origin must not be empty")
	}
	if c.Upload.MaxFiles <= 0 {
		return fmt.Errorf("upload.max_files must be > 0, got %d", c.Upload.MaxFiles)
	}
	if c.Upload.MaxFileBytes <= 0 {
		return fmt.Errorf("upload.max_file_bytes must be > 0, got %d", c.Upload.MaxFileBytes)
	}
	if !supportedFormats[c.Conversion.Format] {
		return fmt.Errorf("conversion.format %q is not supported (webp, png, jpeg)", c.Conversion.Format)
	}
	if c.Conversion.Quality < 1 || c.Conversion.Quality > 100 {
		return fmt.Errorf("conversion.quality must be within 1-100, got %d", c.Conversion.Quality)
	}
	if c.Conversion.Workers < 0 {
		return fmt.Errorf("conversion.workers must be >= 0, got %d", c.Conversion.Workers)
	}
	if c.Minio.Enabled && c.Minio.Bucket == "" {
		return fmt.Errorf("minio.bucket must be set when minio is enabled")
	}
	return nil
}
