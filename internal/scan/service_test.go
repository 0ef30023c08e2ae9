package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/draftdesk/chatscan/internal/config"
	"github.com/draftdesk/chatscan/internal/connection"
	"github.com/draftdesk/chatscan/internal/extraction"
	"github.com/draftdesk/chatscan/internal/logging"
	"github.com/draftdesk/chatscan/internal/provider"
)

type fakeAdapter struct {
	channels []provider.Channel
	messages map[string][]provider.Message
	failures map[string]error
	listErr  error
}

func (f *fakeAdapter) Name() string                   { return "fake" }
func (f *fakeAdapter) AuthorizationURL(string) string { return "https://example.com/auth" }

func (f *fakeAdapter) ExchangeCode(ctx context.Context, code string) (*provider.Grant, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) ListChannels(ctx context.Context, creds provider.Credentials) ([]provider.Channel, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.channels, nil
}

func (f *fakeAdapter) FetchMessages(ctx context.Context, creds provider.Credentials, channelID string, limit int) ([]provider.Message, error) {
	if err, ok := f.failures[channelID]; ok {
		return nil, err
	}
	return f.messages[channelID], nil
}

func fakeMessage(id, channel, author, text string, ts time.Time) provider.Message {
	return provider.Message{
		ID:        id,
		ChannelID: channel,
		Author:    author,
		Text:      text,
		Timestamp: ts,
		Provider:  "fake",
	}
}

type fixture struct {
	svc  *Service
	conn *connection.Connection
}

func newFixture(t *testing.T, adapter *fakeAdapter) *fixture {
	t.Helper()

	registry := provider.NewRegistry()
	registry.Register(adapter)

	conns := connection.NewStore()
	conn, err := connection.New("tenant-a", "fake", provider.Grant{
		AccessToken: "tok",
		WorkspaceID: "W1",
	})
	if err != nil {
		t.Fatalf("connection.New() error = %v", err)
	}
	if err := conns.Save(context.Background(), conn); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	engineCfg := extraction.DefaultConfig()
	engine, err := extraction.NewEngine(engineCfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	logger, err := logging.NewLogger(logging.NewDefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	store := NewStore(time.Hour)
	t.Cleanup(store.Close)

	cfg := config.ScanConfig{
		ChannelMessageCap: 200,
		PageSize:          100,
		SessionTTL:        time.Hour,
		FetchConcurrency:  4,
	}
	svc := NewService(registry, conns, engine, store, cfg, logger, NewMetrics(nil))
	return &fixture{svc: svc, conn: conn}
}

func TestStart_FiveMessagesTwoTasks(t *testing.T) {
	now := time.Now()
	adapter := &fakeAdapter{
		channels: []provider.Channel{{ID: "C1", Name: "site-updates", Selectable: true}},
		messages: map[string][]provider.Message{
			"C1": {
				fakeMessage("1", "C1", "Maria", "Please send the revised elevations to the client", now.Add(-time.Hour)),
				fakeMessage("2", "C1", "Jon", "The weather held up nicely at the site", now.Add(-2*time.Hour)),
				fakeMessage("3", "C1", "Maria", "Don't forget the zoning variance paperwork", now.Add(-3*time.Hour)),
				fakeMessage("4", "C1", "Jon", "Lunch was decent at that new place downtown", now.Add(-4*time.Hour)),
				fakeMessage("5", "C1", "Priya", "Photos from the walkthrough are in the drive", now.Add(-5*time.Hour)),
			},
		},
	}
	f := newFixture(t, adapter)

	session, err := f.svc.Start(context.Background(), StartInput{
		TenantID:     "tenant-a",
		ConnectionID: f.conn.ID,
		ChannelIDs:   []string{"C1"},
		Window:       WindowWeek,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if session.Status != StatusReady {
		t.Errorf("Status = %s, want ready", session.Status)
	}
	if session.MessageCount != 5 {
		t.Errorf("MessageCount = %d, want 5", session.MessageCount)
	}
	if len(session.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(session.Tasks))
	}
	for _, task := range session.Tasks {
		if task.Source.ChannelName != "site-updates" {
			t.Errorf("task %s ChannelName = %q, want site-updates", task.ID, task.Source.ChannelName)
		}
	}
}

func TestStart_OneChannelFails(t *testing.T) {
	now := time.Now()
	adapter := &fakeAdapter{
		channels: []provider.Channel{
			{ID: "C1", Name: "general", Selectable: true},
			{ID: "C2", Name: "locked", Selectable: true},
		},
		messages: map[string][]provider.Message{
			"C1": {
				fakeMessage("1", "C1", "Maria", "Please chase the structural engineer today", now.Add(-time.Hour)),
			},
		},
		failures: map[string]error{
			"C2": &provider.APIError{Provider: "fake", Op: "history", StatusCode: 403, Reason: "missing_scope"},
		},
	}
	f := newFixture(t, adapter)

	session, err := f.svc.Start(context.Background(), StartInput{
		TenantID:     "tenant-a",
		ConnectionID: f.conn.ID,
		ChannelIDs:   []string{"C1", "C2"},
		Window:       WindowAll,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if session.Status != StatusReady {
		t.Errorf("Status = %s, want ready despite one failed channel", session.Status)
	}
	if session.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", session.MessageCount)
	}
	if _, ok := session.ChannelErrors["C2"]; !ok {
		t.Errorf("ChannelErrors = %v, want entry for C2", session.ChannelErrors)
	}
}

func TestStart_AllChannelsFail(t *testing.T) {
	adapter := &fakeAdapter{
		channels: []provider.Channel{{ID: "C1", Name: "general", Selectable: true}},
		failures: map[string]error{
			"C1": &provider.APIError{Provider: "fake", Op: "history", StatusCode: 401, Reason: "invalid_auth"},
		},
	}
	f := newFixture(t, adapter)

	_, err := f.svc.Start(context.Background(), StartInput{
		TenantID:     "tenant-a",
		ConnectionID: f.conn.ID,
		ChannelIDs:   []string{"C1"},
	})

	var apiErr *provider.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Start() error = %v, want APIError", err)
	}
}

func TestStart_WindowFiltersOldMessages(t *testing.T) {
	now := time.Now()
	adapter := &fakeAdapter{
		channels: []provider.Channel{{ID: "C1", Name: "general", Selectable: true}},
		messages: map[string][]provider.Message{
			"C1": {
				fakeMessage("1", "C1", "Maria", "Please confirm the consultant meeting", now.Add(-time.Hour)),
				fakeMessage("2", "C1", "Maria", "Please archive last month's punch list", now.AddDate(0, 0, -30)),
			},
		},
	}
	f := newFixture(t, adapter)

	session, err := f.svc.Start(context.Background(), StartInput{
		TenantID:     "tenant-a",
		ConnectionID: f.conn.ID,
		ChannelIDs:   []string{"C1"},
		Window:       WindowWeek,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if session.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1 after window filter", session.MessageCount)
	}
}

func TestStart_AuthorFilter(t *testing.T) {
	now := time.Now()
	adapter := &fakeAdapter{
		channels: []provider.Channel{{ID: "C1", Name: "general", Selectable: true}},
		messages: map[string][]provider.Message{
			"C1": {
				fakeMessage("1", "C1", "Maria Rojas", "Please confirm the consultant meeting", now.Add(-time.Hour)),
				fakeMessage("2", "C1", "Jon Aldren", "Please forward the contractor invoice", now.Add(-time.Hour)),
			},
		},
	}
	f := newFixture(t, adapter)

	session, err := f.svc.Start(context.Background(), StartInput{
		TenantID:     "tenant-a",
		ConnectionID: f.conn.ID,
		ChannelIDs:   []string{"C1"},
		Window:       WindowAll,
		AuthorFilter: "maria",
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if session.MessageCount != 1 {
		t.Fatalf("MessageCount = %d, want 1 after author filter", session.MessageCount)
	}
	if session.Tasks[0].Source.Author != "Maria Rojas" {
		t.Errorf("surviving author = %q, want Maria Rojas", session.Tasks[0].Source.Author)
	}
}

func TestStart_Validation(t *testing.T) {
	f := newFixture(t, &fakeAdapter{})

	tests := []struct {
		name  string
		input StartInput
	}{
		{"missing tenant", StartInput{ConnectionID: "c", ChannelIDs: []string{"C1"}}},
		{"missing connection", StartInput{TenantID: "t", ChannelIDs: []string{"C1"}}},
		{"no channels", StartInput{TenantID: "t", ConnectionID: "c"}},
		{"bad window", StartInput{TenantID: "t", ConnectionID: "c", ChannelIDs: []string{"C1"}, Window: "fortnight"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Start(context.Background(), tt.input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Start() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestStart_ConnectionScoping(t *testing.T) {
	f := newFixture(t, &fakeAdapter{
		channels: []provider.Channel{{ID: "C1", Name: "general", Selectable: true}},
	})

	_, err := f.svc.Start(context.Background(), StartInput{
		TenantID:     "tenant-b",
		ConnectionID: f.conn.ID,
		ChannelIDs:   []string{"C1"},
	})
	if !errors.Is(err, connection.ErrForbidden) {
		t.Errorf("cross-tenant Start: err = %v, want connection.ErrForbidden", err)
	}

	_, err = f.svc.Start(context.Background(), StartInput{
		TenantID:     "tenant-a",
		ConnectionID: "missing",
		ChannelIDs:   []string{"C1"},
	})
	if !errors.Is(err, connection.ErrNotFound) {
		t.Errorf("unknown connection Start: err = %v, want connection.ErrNotFound", err)
	}
}

func TestRecover(t *testing.T) {
	f := newFixture(t, &fakeAdapter{})
	store := f.svc.Store()

	withTasks := newSession("s1", "tenant-a", StatusError)
	withTasks.Tasks = []extraction.Task{{ID: "fake-1", Title: "Chase the surveyor"}}
	withTasks.ErrorMessage = "persistence failed"
	store.Put(withTasks)

	empty := newSession("s2", "tenant-a", StatusError)
	store.Put(empty)

	got, err := f.svc.Recover(context.Background(), "tenant-a", "s1")
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if got.Status != StatusReady || got.ErrorMessage != "" {
		t.Errorf("Recover with tasks = %s (%q), want ready with cleared error", got.Status, got.ErrorMessage)
	}

	got, err = f.svc.Recover(context.Background(), "tenant-a", "s2")
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if got.Status != StatusIdle {
		t.Errorf("Recover without tasks = %s, want idle", got.Status)
	}

	if _, err := f.svc.Recover(context.Background(), "tenant-a", "s1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Recover on ready session: err = %v, want ErrInvalidState", err)
	}
}
