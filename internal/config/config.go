// Package config provides configuration loading for chatscand.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. See LoadWithFile for precedence and mapping rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete chatscand configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
	Providers     ProvidersConfig     `koanf:"providers"`
	Scan          ScanConfig          `koanf:"scan"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	ServiceName    string `koanf:"service_name"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
	Protocol       string `koanf:"protocol"` // grpc or http/protobuf
	Insecure       bool   `koanf:"insecure"`
	MetricsEnabled bool   `koanf:"metrics_enabled"`
}

// ProvidersConfig holds per-provider OAuth application settings.
type ProvidersConfig struct {
	Slack   ProviderAppConfig `koanf:"slack"`
	Discord ProviderAppConfig `koanf:"discord"`
}

// ProviderAppConfig holds one chat platform's OAuth app credentials.
// BaseURL overrides the provider API root, used by tests and proxies.
type ProviderAppConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret Secret `koanf:"client_secret"`
	// BotToken is required by providers that call guild APIs with a
	// static application token (Discord); others leave it empty.
	BotToken    Secret `koanf:"bot_token"`
	RedirectURL string `koanf:"redirect_url"`
	BaseURL     string `koanf:"base_url"`
}

// Configured returns true if the provider app has credentials set.
func (p ProviderAppConfig) Configured() bool {
	return p.ClientID != "" && p.ClientSecret.IsSet()
}

// ScanConfig holds scan pipeline tuning knobs.
type ScanConfig struct {
	// ChannelMessageCap bounds messages fetched per channel.
	ChannelMessageCap int `koanf:"channel_message_cap"`
	// PageSize is the per-request page size for provider pagination.
	PageSize int `koanf:"page_size"`
	// SessionTTL is how long finished sessions stay reachable by id.
	SessionTTL time.Duration `koanf:"session_ttl"`
	// FetchConcurrency bounds concurrent channel fetches per scan.
	FetchConcurrency int `koanf:"fetch_concurrency"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout cannot be negative"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	switch c.Observability.Protocol {
	case "", "grpc", "http/protobuf":
	default:
		errs = append(errs, fmt.Errorf("observability.protocol must be grpc or http/protobuf, got %q", c.Observability.Protocol))
	}

	if c.Scan.ChannelMessageCap < 1 {
		errs = append(errs, fmt.Errorf("scan.channel_message_cap must be positive, got %d", c.Scan.ChannelMessageCap))
	}
	if c.Scan.PageSize < 1 {
		errs = append(errs, fmt.Errorf("scan.page_size must be positive, got %d", c.Scan.PageSize))
	}
	if c.Scan.PageSize > c.Scan.ChannelMessageCap {
		errs = append(errs, fmt.Errorf("scan.page_size (%d) cannot exceed scan.channel_message_cap (%d)", c.Scan.PageSize, c.Scan.ChannelMessageCap))
	}
	if c.Scan.FetchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("scan.fetch_concurrency must be positive, got %d", c.Scan.FetchConcurrency))
	}
	if c.Scan.SessionTTL <= 0 {
		errs = append(errs, errors.New("scan.session_ttl must be positive"))
	}

	return errors.Join(errs...)
}
