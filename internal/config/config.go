package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variable names recognized by spotify-mcp.
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI  = "SPOTIFY_REDIRECT_URI"
	EnvMetricsAddr  = "METRICS_ADDR"
	EnvDebug        = "MCP_DEBUG"
)

// Config holds the startup configuration for the server.
type Config struct {
	// ClientID is the Spotify application client identifier. Required.
	ClientID string

	// ClientSecret is the Spotify application client secret. Required.
	ClientSecret string

	// RedirectURI is the OAuth redirect URI registered with the Spotify
	// application, e.g. http://localhost:8888/callback. The interactive
	// authorization flow binds its local callback listener to this
	// host/port/path. Required.
	RedirectURI string

	// MetricsAddr is the optional address for the Prometheus metrics
	// server (e.g. ":9090"). Empty disables metrics.
	MetricsAddr string

	// Debug enables debug logging.
	Debug bool
}

// Load reads the configuration from the environment.
// All missing required variables are reported together.
func Load() (*Config, error) {
	cfg := &Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RedirectURI:  os.Getenv(EnvRedirectURI),
		MetricsAddr:  os.Getenv(EnvMetricsAddr),
		Debug:        os.Getenv(EnvDebug) == "true",
	}

	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if cfg.RedirectURI == "" {
		missing = append(missing, EnvRedirectURI)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
