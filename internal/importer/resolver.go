// Package importer commits curated scan results into the project store
// exactly once per task.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/draftdesk/chatscan/internal/extraction"
	"github.com/draftdesk/chatscan/internal/logging"
	"github.com/draftdesk/chatscan/internal/project"
	"github.com/draftdesk/chatscan/internal/scan"
)

// Destination selects where committed tasks land.
type Destination string

const (
	// DestinationInbox appends tasks to the tenant's holding project.
	DestinationInbox Destination = "inbox"
	// DestinationNewProject creates a project for this commit.
	DestinationNewProject Destination = "new_project"
)

// PersistenceError reports a task write failure mid-commit. Tasks already
// committed before the failure stay committed.
type PersistenceError struct {
	TaskID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting task %s: %v", e.TaskID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CommitInput carries one commit request.
type CommitInput struct {
	TenantID    string      `json:"tenant_id"`
	SessionID   string      `json:"session_id"`
	Destination Destination `json:"destination"`

	// ProjectName names the new project. nil asks the generator for a
	// suggestion; a blank string is rejected before any write.
	ProjectName *string `json:"project_name,omitempty"`

	// Tasks is the operator's final selection with any edits applied.
	// nil commits the session's default selection. Ids outside the
	// session's extracted set are ignored.
	Tasks []extraction.Task `json:"tasks,omitempty"`
}

// Result reports a completed commit.
type Result struct {
	Imported    int    `json:"imported"`
	Skipped     int    `json:"skipped"`
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
}

// Resolver commits selected tasks from a ready session into the project
// store. Commits against one session are serialized through the session
// store's transition compare-and-swap.
type Resolver struct {
	sessions *scan.Store
	projects project.Store
	logger   *logging.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewResolver wires an import resolver.
func NewResolver(sessions *scan.Store, projects project.Store, logger *logging.Logger, metrics *Metrics) *Resolver {
	return &Resolver{
		sessions: sessions,
		projects: projects,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer(instrumentationName),
		now:      time.Now,
	}
}

// Commit persists the selected tasks exactly once. Already-committed task
// ids are skipped, so retrying after a partial failure only applies the
// remainder. A blank new-project name is rejected before any state
// changes; a persistence failure parks the session in error with the
// partial committed list intact.
func (r *Resolver) Commit(ctx context.Context, in CommitInput) (*Result, error) {
	if in.TenantID == "" {
		return nil, scan.NewValidationError("tenant_id", "required")
	}
	if in.SessionID == "" {
		return nil, scan.NewValidationError("session_id", "required")
	}
	switch in.Destination {
	case DestinationInbox, DestinationNewProject:
	default:
		return nil, scan.NewValidationError("destination", "must be inbox or new_project")
	}
	if in.Destination == DestinationNewProject && in.ProjectName != nil && strings.TrimSpace(*in.ProjectName) == "" {
		return nil, scan.NewValidationError("project_name", "cannot be blank")
	}

	session, err := r.sessions.Get(in.TenantID, in.SessionID)
	if err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "importer.commit")
	defer span.End()

	span.SetAttributes(
		attribute.String("tenant_id", in.TenantID),
		attribute.String("session_id", in.SessionID),
		attribute.String("destination", string(in.Destination)),
	)

	// The swap is the commit lock: a concurrent commit observes
	// importing and is rejected here.
	if err := r.sessions.Transition(in.SessionID, scan.StatusImporting, scan.StatusReady, scan.StatusImported); err != nil {
		return nil, err
	}
	ctx = logging.WithSessionID(ctx, session.ID)

	selected := r.selection(session, in.Tasks)

	dest, err := r.resolveDestination(ctx, in, session, selected)
	if err != nil {
		r.fail(ctx, in.SessionID, err)
		return nil, err
	}

	// Recorded before the first task write so a retry after a partial
	// failure, or a repeat commit, lands in the same project.
	if session.ProjectID == "" {
		err = r.sessions.Update(in.SessionID, func(live *scan.Session) error {
			live.ProjectID = dest.ID
			live.ProjectName = dest.Name
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	result := &Result{ProjectID: dest.ID, ProjectName: dest.Name}
	for _, task := range selected {
		if session.Committed(task.ID) {
			result.Skipped++
			continue
		}

		record := &project.Task{
			ID:             task.ID,
			Title:          task.Title,
			Description:    provenance(task),
			Priority:       string(task.Priority),
			DueDate:        task.DueDate,
			SourceProvider: task.Source.Provider,
			SourceChannel:  task.Source.ChannelName,
			SourceAuthor:   task.Source.Author,
		}
		if err := r.projects.AddTask(ctx, in.TenantID, dest.ID, record); err != nil {
			perr := &PersistenceError{TaskID: task.ID, Err: err}
			r.fail(ctx, in.SessionID, perr)
			return nil, perr
		}

		// Recorded after each durable write so a later failure keeps
		// everything committed so far.
		err = r.sessions.Update(in.SessionID, func(live *scan.Session) error {
			live.CommittedIDs = append(live.CommittedIDs, task.ID)
			return nil
		})
		if err != nil {
			return nil, err
		}
		session.CommittedIDs = append(session.CommittedIDs, task.ID)
		result.Imported++
	}

	if err := r.sessions.Transition(in.SessionID, scan.StatusImported, scan.StatusImporting); err != nil {
		return nil, err
	}

	r.metrics.recordImported(ctx, session.Provider, result.Imported)
	r.metrics.recordSkipped(ctx, session.Provider, result.Skipped)

	r.logger.Info(ctx, "import committed",
		zap.String("project_id", dest.ID),
		zap.String("project_name", dest.Name),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

// selection resolves the final task set: the caller's edited list when
// present, otherwise the session's default selection. Ids unknown to the
// session are dropped to keep committed ids a subset of extracted ids.
func (r *Resolver) selection(session *scan.Session, edited []extraction.Task) []extraction.Task {
	if edited == nil {
		var selected []extraction.Task
		for _, t := range session.Tasks {
			if t.Selected {
				selected = append(selected, t)
			}
		}
		return selected
	}

	var selected []extraction.Task
	for _, t := range edited {
		if !t.Selected {
			continue
		}
		original, ok := session.Task(t.ID)
		if !ok {
			continue
		}
		if t.Title == "" {
			t.Title = original.Title
		}
		t.Source = original.Source
		selected = append(selected, t)
	}
	return selected
}

// resolveDestination picks the target project. A session that already
// committed once is pinned to its recorded destination regardless of the
// requested one.
func (r *Resolver) resolveDestination(ctx context.Context, in CommitInput, session *scan.Session, selected []extraction.Task) (*project.Project, error) {
	if session.ProjectID != "" {
		return r.projects.Get(ctx, in.TenantID, session.ProjectID)
	}
	if in.Destination == DestinationInbox {
		return r.projects.EnsureInbox(ctx, in.TenantID)
	}

	name := ""
	if in.ProjectName != nil {
		name = strings.TrimSpace(*in.ProjectName)
	}
	if name == "" {
		name = GenerateProjectName(selected, session.Provider, r.now())
	}
	return r.projects.Create(ctx, in.TenantID, name)
}

// provenance renders the source channel and author trail used as the task
// description.
func provenance(task extraction.Task) string {
	channel := task.Source.ChannelName
	if channel == "" {
		channel = task.Source.ChannelID
	}
	return fmt.Sprintf("From #%s by %s", channel, task.Source.Author)
}

func (r *Resolver) fail(ctx context.Context, sessionID string, cause error) {
	err := r.sessions.Update(sessionID, func(live *scan.Session) error {
		live.Status = scan.StatusError
		live.ErrorMessage = cause.Error()
		return nil
	})
	if err != nil {
		r.logger.Warn(ctx, "failed to mark session errored", zap.Error(err))
	}
}
