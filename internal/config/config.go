// Package config provides configuration management for the NDVI service.
package config

import (
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/aydiaziz/ndvi-webapp/internal/acquire"
	"github.com/aydiaziz/ndvi-webapp/internal/ndvi"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig      `envPrefix:"SERVER_"`
	SentinelHub SentinelHubConfig `envPrefix:"SENTINELHUB_"`
	Static      StaticConfig
	NDVI        NDVIConfig    `envPrefix:"NDVI_"`
	Logging     LoggingConfig `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// PublicBaseURL is the externally visible URL. Empty means derive it
	// from each request.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:""`
}

// SentinelHubConfig contains Process API client configuration. Without
// credentials the service runs on synthetic bands only.
type SentinelHubConfig struct {
	ClientID     string        `env:"CLIENT_ID" envDefault:""`
	ClientSecret string        `env:"CLIENT_SECRET" envDefault:""`
	BaseURL      string        `env:"BASE_URL" envDefault:"https://sh.dataspace.copernicus.eu"`
	TokenURL     string        `env:"TOKEN_URL" envDefault:"https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"`
	Collection   string        `env:"COLLECTION" envDefault:"sentinel-2-l2a"`
	TimeStart    string        `env:"TIME_START" envDefault:""`
	TimeEnd      string        `env:"TIME_END" envDefault:""`
	LookbackDays int           `env:"LOOKBACK_DAYS" envDefault:"30"`
	Resolution   float64       `env:"RESOLUTION" envDefault:"10"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// HasCredentials reports whether live acquisition is possible.
func (s *SentinelHubConfig) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// StaticConfig locates the directory served under /static/.
type StaticConfig struct {
	Dir string `env:"STATIC_DIR" envDefault:"static"`
}

// NDVIConfig contains output and rendering configuration.
type NDVIConfig struct {
	OutputSubdir    string  `env:"OUTPUT_SUBDIR" envDefault:"ndvi"`
	LowerPercentile float64 `env:"LOWER_PERCENTILE" envDefault:"2"`
	UpperPercentile float64 `env:"UPPER_PERCENTILE" envDefault:"98"`
	Colormap        string  `env:"COLORMAP" envDefault:"ramp"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.Server.PublicBaseURL != "" {
		u, err := url.Parse(c.Server.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("public base URL must be an absolute URL, got %q", c.Server.PublicBaseURL)
		}
	}

	// Validate Sentinel Hub config
	if c.SentinelHub.BaseURL == "" {
		return fmt.Errorf("sentinel hub base URL is required")
	}

	if c.SentinelHub.HasCredentials() && c.SentinelHub.TokenURL == "" {
		return fmt.Errorf("sentinel hub token URL is required when credentials are set")
	}

	if c.SentinelHub.Timeout <= 0 {
		return fmt.Errorf("sentinel hub timeout must be positive, got %s", c.SentinelHub.Timeout)
	}

	if c.SentinelHub.LookbackDays < 1 {
		return fmt.Errorf("lookback days must be at least 1, got %d", c.SentinelHub.LookbackDays)
	}

	if c.SentinelHub.Resolution <= 0 || math.IsInf(c.SentinelHub.Resolution, 0) || math.IsNaN(c.SentinelHub.Resolution) {
		return fmt.Errorf("resolution must be a positive number of metres, got %v", c.SentinelHub.Resolution)
	}

	if _, err := acquire.ResolveTimeRange(c.SentinelHub.TimeStart, c.SentinelHub.TimeEnd,
		c.SentinelHub.LookbackDays, time.Now()); err != nil {
		return fmt.Errorf("invalid sentinel hub time window: %w", err)
	}

	// Validate output config
	if c.Static.Dir == "" {
		return fmt.Errorf("static directory is required")
	}

	if !filepath.IsLocal(c.NDVI.OutputSubdir) {
		return fmt.Errorf("output subdirectory must be a relative path inside the static directory, got %q", c.NDVI.OutputSubdir)
	}

	if err := ndvi.ValidatePercentiles(c.NDVI.LowerPercentile, c.NDVI.UpperPercentile); err != nil {
		return err
	}

	if _, err := ndvi.ParseColormap(c.NDVI.Colormap, ""); err != nil || c.NDVI.Colormap == "" {
		return fmt.Errorf("invalid colormap %q, must be one of: ramp, gray", c.NDVI.Colormap)
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OutputDir returns the directory NDVI products are written to.
func (c *Config) OutputDir() string {
	return filepath.Join(c.Static.Dir, c.NDVI.OutputSubdir)
}
