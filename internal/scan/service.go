package scan

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/draftdesk/chatscan/internal/config"
	"github.com/draftdesk/chatscan/internal/connection"
	"github.com/draftdesk/chatscan/internal/extraction"
	"github.com/draftdesk/chatscan/internal/logging"
	"github.com/draftdesk/chatscan/internal/provider"
)

// Service runs scan sessions: it fans out channel fetches against a
// provider adapter, filters the collected batch, runs the extraction
// engine and lands the session in ready for review.
type Service struct {
	registry *provider.Registry
	conns    connection.Store
	engine   *extraction.Engine
	store    *Store
	cfg      config.ScanConfig
	logger   *logging.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService wires a scan service. The store's janitor keeps abandoned
// sessions from leaking; callers own the store and close it on shutdown.
func NewService(registry *provider.Registry, conns connection.Store, engine *extraction.Engine, store *Store, cfg config.ScanConfig, logger *logging.Logger, metrics *Metrics) *Service {
	return &Service{
		registry: registry,
		conns:    conns,
		engine:   engine,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer(instrumentationName),
		now:      time.Now,
	}
}

// Store exposes the session store for the import resolver, which shares
// its transition discipline.
func (s *Service) Store() *Store {
	return s.store
}

// StartInput carries a scan request.
type StartInput struct {
	TenantID     string     `json:"tenant_id"`
	ConnectionID string     `json:"connection_id"`
	ChannelIDs   []string   `json:"channel_ids"`
	Window       TimeWindow `json:"window"`
	AuthorFilter string     `json:"author_filter,omitempty"`
}

func (in *StartInput) validate() error {
	if in.TenantID == "" {
		return NewValidationError("tenant_id", "required")
	}
	if in.ConnectionID == "" {
		return NewValidationError("connection_id", "required")
	}
	if len(in.ChannelIDs) == 0 {
		return NewValidationError("channel_ids", "at least one channel must be selected")
	}
	if in.Window == "" {
		in.Window = WindowAll
	}
	if !in.Window.Valid() {
		return NewValidationError("window", "must be one of today, 2days, week, 2weeks, month, all")
	}
	return nil
}

// Start validates the request, runs fetch and extraction to completion and
// returns the session in ready state. A channel that fails mid-fetch
// contributes its partial page set and an entry in ChannelErrors; the scan
// only fails outright when the channel listing itself is rejected or every
// selected channel errors with nothing fetched.
func (s *Service) Start(ctx context.Context, in StartInput) (*Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	conn, err := s.conns.Get(ctx, in.TenantID, in.ConnectionID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.Get(conn.Provider)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "scan.start")
	defer span.End()

	span.SetAttributes(
		attribute.String("tenant_id", in.TenantID),
		attribute.String("provider", conn.Provider),
		attribute.Int("channels", len(in.ChannelIDs)),
	)

	session := &Session{
		ID:           uuid.New().String(),
		TenantID:     in.TenantID,
		ConnectionID: conn.ID,
		Provider:     conn.Provider,
		Status:       StatusFetching,
		ChannelIDs:   in.ChannelIDs,
		Window:       in.Window,
		AuthorFilter: in.AuthorFilter,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	s.store.Put(session)
	s.metrics.recordScan(ctx, conn.Provider)
	ctx = logging.WithSessionID(ctx, session.ID)

	if refresher, ok := adapter.(provider.GrantRefresher); ok && conn.NeedsRefresh(s.now()) {
		if err := conn.Refresh(s.now(), func(g provider.Grant) (*provider.Grant, error) {
			return refresher.RefreshGrant(ctx, g)
		}); err != nil {
			s.fail(session.ID, StatusFetching, err)
			return nil, err
		}
	}

	creds := conn.Credentials()
	channelNames, err := s.channelNames(ctx, adapter, creds)
	if err != nil {
		s.fail(session.ID, StatusFetching, err)
		return nil, err
	}

	fetchCtx, fetchSpan := s.tracer.Start(ctx, "scan.fetch")
	messages, channelErrors := s.fetchAll(fetchCtx, adapter, creds, channelNames, in.ChannelIDs)
	fetchSpan.SetAttributes(
		attribute.Int("messages", len(messages)),
		attribute.Int("channel_errors", len(channelErrors)),
	)
	fetchSpan.End()
	if len(channelErrors) == len(in.ChannelIDs) && len(messages) == 0 {
		err := firstError(channelErrors)
		s.fail(session.ID, StatusFetching, err)
		return nil, err
	}

	if err := s.store.Transition(session.ID, StatusExtracting, StatusFetching); err != nil {
		return nil, err
	}

	_, extractSpan := s.tracer.Start(ctx, "scan.extract")
	messages = s.filter(messages, in.Window, in.AuthorFilter)
	tasks := s.engine.Extract(messages)
	extractSpan.SetAttributes(
		attribute.Int("messages", len(messages)),
		attribute.Int("tasks", len(tasks)),
	)
	extractSpan.End()

	s.metrics.recordMessages(ctx, conn.Provider, len(messages))
	s.metrics.recordTasks(ctx, conn.Provider, len(tasks))

	err = s.store.Update(session.ID, func(live *Session) error {
		live.Messages = messages
		live.MessageCount = len(messages)
		live.Tasks = tasks
		live.ChannelErrors = errorStrings(channelErrors)
		live.Status = StatusReady
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "scan completed",
		zap.String("provider", conn.Provider),
		zap.Int("channels", len(in.ChannelIDs)),
		zap.Int("channel_errors", len(channelErrors)),
		zap.Int("messages", len(messages)),
		zap.Int("tasks", len(tasks)))

	return s.store.Get(in.TenantID, session.ID)
}

// Get returns a session snapshot for polling.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Session, error) {
	return s.store.Get(tenantID, id)
}

// Recover moves a session out of error: back to ready when extraction
// already produced tasks, otherwise back to idle for a fresh start.
func (s *Service) Recover(ctx context.Context, tenantID, id string) (*Session, error) {
	if _, err := s.store.Get(tenantID, id); err != nil {
		return nil, err
	}
	err := s.store.Update(id, func(live *Session) error {
		if live.Status != StatusError {
			return ErrInvalidState
		}
		if len(live.Tasks) > 0 {
			live.Status = StatusReady
		} else {
			live.Status = StatusIdle
		}
		live.ErrorMessage = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(tenantID, id)
}

// channelNames lists the connection's channels once so fetched messages
// can carry their channel name.
func (s *Service) channelNames(ctx context.Context, adapter provider.Adapter, creds provider.Credentials) (map[string]string, error) {
	channels, err := adapter.ListChannels(ctx, creds)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(channels))
	for _, ch := range channels {
		names[ch.ID] = ch.Name
	}
	return names, nil
}

// fetchAll runs one fetch per channel through a bounded worker pool and
// collects messages and per-channel errors.
func (s *Service) fetchAll(ctx context.Context, adapter provider.Adapter, creds provider.Credentials, names map[string]string, channelIDs []string) ([]provider.Message, map[string]error) {
	concurrency := s.cfg.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var (
		mu       sync.Mutex
		messages []provider.Message
		failures = make(map[string]error)
		wg       sync.WaitGroup
	)

	for _, channelID := range channelIDs {
		wg.Add(1)
		go func(channelID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			batch, err := adapter.FetchMessages(ctx, creds, channelID, s.cfg.ChannelMessageCap)
			for i := range batch {
				batch[i].ChannelName = names[channelID]
			}

			mu.Lock()
			defer mu.Unlock()
			messages = append(messages, batch...)
			if err != nil {
				failures[channelID] = err
				s.metrics.recordChannelFailure(ctx, adapter.Name())
				s.logger.Warn(ctx, "channel fetch failed",
					zap.String("channel_id", channelID),
					zap.Int("partial_messages", len(batch)),
					zap.Error(err))
			}
		}(channelID)
	}
	wg.Wait()

	return messages, failures
}

// filter applies the time window and the optional case-insensitive author
// substring match.
func (s *Service) filter(messages []provider.Message, window TimeWindow, author string) []provider.Message {
	cutoff, bounded := window.Cutoff(s.now())
	author = strings.ToLower(strings.TrimSpace(author))

	kept := messages[:0:0]
	for _, m := range messages {
		if bounded && m.Timestamp.Before(cutoff) {
			continue
		}
		if author != "" && !strings.Contains(strings.ToLower(m.Author), author) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func (s *Service) fail(id string, from Status, cause error) {
	err := s.store.Update(id, func(live *Session) error {
		if live.Status != from {
			return ErrInvalidState
		}
		live.Status = StatusError
		live.ErrorMessage = cause.Error()
		return nil
	})
	if err != nil {
		s.logger.Warn(context.Background(), "failed to mark session errored",
			zap.String("session_id", id), zap.Error(err))
	}
}

func firstError(failures map[string]error) error {
	for _, err := range failures {
		return err
	}
	return nil
}

func errorStrings(failures map[string]error) map[string]string {
	if len(failures) == 0 {
		return nil
	}
	out := make(map[string]string, len(failures))
	for id, err := range failures {
		out[id] = err.Error()
	}
	return out
}
