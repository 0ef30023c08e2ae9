package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithFile_Defaults(t *testing.T) {
	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}

	if cfg.Server.Port != 9480 {
		t.Errorf("Server.Port = %d, want 9480", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Scan.ChannelMessageCap != 200 {
		t.Errorf("Scan.ChannelMessageCap = %d, want 200", cfg.Scan.ChannelMessageCap)
	}
	if cfg.Scan.PageSize != 100 {
		t.Errorf("Scan.PageSize = %d, want 100", cfg.Scan.PageSize)
	}
	if cfg.Scan.SessionTTL != time.Hour {
		t.Errorf("Scan.SessionTTL = %v, want 1h", cfg.Scan.SessionTTL)
	}
}

func TestLoadWithFile_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "8123")
	t.Setenv("SCAN_CHANNEL_MESSAGE_CAP", "50")
	t.Setenv("SCAN_PAGE_SIZE", "25")
	t.Setenv("PROVIDERS_SLACK_CLIENT_ID", "slack-app-id")
	t.Setenv("PROVIDERS_SLACK_CLIENT_SECRET", "shhh")

	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}

	if cfg.Server.Port != 8123 {
		t.Errorf("Server.Port = %d, want 8123", cfg.Server.Port)
	}
	if cfg.Scan.ChannelMessageCap != 50 {
		t.Errorf("Scan.ChannelMessageCap = %d, want 50", cfg.Scan.ChannelMessageCap)
	}
	if cfg.Providers.Slack.ClientID != "slack-app-id" {
		t.Errorf("Providers.Slack.ClientID = %q, want slack-app-id", cfg.Providers.Slack.ClientID)
	}
	if cfg.Providers.Slack.ClientSecret.Value() != "shhh" {
		t.Errorf("Providers.Slack.ClientSecret = %q, want shhh", cfg.Providers.Slack.ClientSecret.Value())
	}
	if !cfg.Providers.Slack.Configured() {
		t.Error("Providers.Slack.Configured() = false, want true")
	}
}

func TestLoadWithFile_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7070\nscan:\n  page_size: 10\n  channel_message_cap: 40\n")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Scan.PageSize != 10 {
		t.Errorf("Scan.PageSize = %d, want 10", cfg.Scan.PageSize)
	}
}

func TestLoadWithFile_RejectsWeakPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadWithFile(path); err == nil {
		t.Error("LoadWithFile() accepted world-readable config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = -1 }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "page size above cap", mutate: func(c *Config) { c.Scan.PageSize = 500 }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Scan.FetchConcurrency = 0 }, wantErr: true},
		{name: "bad protocol", mutate: func(c *Config) { c.Observability.Protocol = "udp" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			applyDefaults(&cfg)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-secret")
	if s.String() != "[REDACTED]" {
		t.Errorf("String() = %q, want [REDACTED]", s.String())
	}
	if s.Value() != "super-secret" {
		t.Errorf("Value() = %q, want super-secret", s.Value())
	}

	b, err := s.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(b) != `"[REDACTED]"` {
		t.Errorf("MarshalJSON() = %s, want \"[REDACTED]\"", b)
	}
}
