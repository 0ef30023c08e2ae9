package logging

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_DefaultConfig(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !logger.Enabled(zapcore.InfoLevel) {
		t.Error("Enabled(Info) = false, want true")
	}
	if logger.Enabled(zapcore.DebugLevel) {
		t.Error("Enabled(Debug) = true, want false at default level")
	}
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "plaintext"
	if _, err := NewLogger(cfg); err == nil {
		t.Error("NewLogger() accepted invalid format")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "trace", want: TraceLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "info", want: zapcore.InfoLevel},
		{in: "warn", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LevelFromString(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	if got := ContextFields(ctx); len(got) != 0 {
		t.Errorf("ContextFields(empty) = %d fields, want 0", len(got))
	}

	ctx = WithTenantID(ctx, "tenant-1")
	ctx = WithSessionID(ctx, "session-1")
	ctx = WithRequestID(ctx, "req-1")

	fields := ContextFields(ctx)
	if len(fields) != 3 {
		t.Fatalf("ContextFields() = %d fields, want 3", len(fields))
	}

	if TenantIDFromContext(ctx) != "tenant-1" {
		t.Errorf("TenantIDFromContext() = %q, want tenant-1", TenantIDFromContext(ctx))
	}
	if SessionIDFromContext(ctx) != "session-1" {
		t.Errorf("SessionIDFromContext() = %q, want session-1", SessionIDFromContext(ctx))
	}
	if RequestIDFromContext(ctx) != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want req-1", RequestIDFromContext(ctx))
	}
}
