// Chatscand scans chat workspaces for actionable tasks.
//
// The daemon connects to Slack and Discord workspaces over OAuth, fetches
// channel history, classifies messages into candidate tasks and imports the
// curated selection into the project store through an HTTP API.
//
// Configuration is loaded from a YAML file with environment overrides. See
// internal/config for the mapping rules.
//
// Usage:
//
//	# Start with the default config search path
//	chatscand
//
//	# Explicit config file
//	chatscand -config /etc/chatscand/config.yaml
//
//	# Configure via environment
//	SERVER_PORT=9480 PROVIDERS_SLACK_CLIENT_ID=... chatscand
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/draftdesk/chatscan/internal/config"
	"github.com/draftdesk/chatscan/internal/connection"
	"github.com/draftdesk/chatscan/internal/extraction"
	httpapi "github.com/draftdesk/chatscan/internal/http"
	"github.com/draftdesk/chatscan/internal/importer"
	"github.com/draftdesk/chatscan/internal/logging"
	"github.com/draftdesk/chatscan/internal/project"
	"github.com/draftdesk/chatscan/internal/provider"
	"github.com/draftdesk/chatscan/internal/provider/discord"
	"github.com/draftdesk/chatscan/internal/provider/slack"
	"github.com/draftdesk/chatscan/internal/scan"
	"github.com/draftdesk/chatscan/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  chatscand           Start the chatscand daemon\n")
			fmt.Fprintf(os.Stderr, "  chatscand version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("chatscand\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the pipeline and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting chatscand",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	tel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}()

	registry := buildRegistry(ctx, cfg, logger)
	if len(registry.Names()) == 0 {
		logger.Warn(ctx, "no provider credentials configured; connect endpoints will reject all providers")
	}

	conns := connection.NewStore()
	projects := project.NewStore()

	engine, err := extraction.NewEngine(extraction.DefaultConfig())
	if err != nil {
		return fmt.Errorf("building extraction engine: %w", err)
	}

	sessions := scan.NewStore(cfg.Scan.SessionTTL)
	defer sessions.Close()

	scans := scan.NewService(registry, conns, engine, sessions, cfg.Scan, logger, scan.NewMetrics(logger.Underlying()))
	resolver := importer.NewResolver(sessions, projects, logger, importer.NewMetrics(logger.Underlying()))

	server, err := httpapi.NewServer(registry, conns, scans, resolver, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("building http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Logging.Format

	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = level

	return logging.NewLogger(logCfg)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Observability.MetricsEnabled || cfg.Observability.OTLPEndpoint != ""
	if cfg.Observability.OTLPEndpoint != "" {
		telCfg.Endpoint = cfg.Observability.OTLPEndpoint
	}
	if cfg.Observability.Protocol != "" {
		telCfg.Protocol = cfg.Observability.Protocol
	}
	if cfg.Observability.ServiceName != "" {
		telCfg.ServiceName = cfg.Observability.ServiceName
	}
	telCfg.ServiceVersion = version
	telCfg.Insecure = cfg.Observability.Insecure
	telCfg.Metrics.Enabled = cfg.Observability.MetricsEnabled

	return telemetry.New(ctx, telCfg)
}

// buildRegistry registers an adapter for every provider with credentials
// configured. Unconfigured providers are skipped, not errors, so a
// Slack-only deployment needs no Discord settings.
func buildRegistry(ctx context.Context, cfg *config.Config, logger *logging.Logger) *provider.Registry {
	registry := provider.NewRegistry()

	if cfg.Providers.Slack.Configured() {
		registry.Register(slack.New(slack.Config{
			ClientID:     cfg.Providers.Slack.ClientID,
			ClientSecret: cfg.Providers.Slack.ClientSecret.Value(),
			RedirectURL:  cfg.Providers.Slack.RedirectURL,
			BaseURL:      cfg.Providers.Slack.BaseURL,
			PageSize:     cfg.Scan.PageSize,
		}))
		logger.Info(ctx, "registered provider", zap.String("provider", "slack"))
	}

	if cfg.Providers.Discord.Configured() {
		registry.Register(discord.New(discord.Config{
			ClientID:     cfg.Providers.Discord.ClientID,
			ClientSecret: cfg.Providers.Discord.ClientSecret.Value(),
			BotToken:     cfg.Providers.Discord.BotToken.Value(),
			RedirectURL:  cfg.Providers.Discord.RedirectURL,
			BaseURL:      cfg.Providers.Discord.BaseURL,
			PageSize:     cfg.Scan.PageSize,
		}))
		logger.Info(ctx, "registered provider", zap.String("provider", "discord"))
	}

	return registry
}
