package scan

import (
	"time"

	"github.com/draftdesk/chatscan/internal/extraction"
	"github.com/draftdesk/chatscan/internal/provider"
)

// Status is the scan session state.
type Status string

// Session states. A session walks idle through imported; error is reachable
// from fetching, extracting and importing.
const (
	StatusIdle       Status = "idle"
	StatusFetching   Status = "fetching"
	StatusExtracting Status = "extracting"
	StatusReady      Status = "ready"
	StatusImporting  Status = "importing"
	StatusImported   Status = "imported"
	StatusError      Status = "error"
)

// TimeWindow bounds how far back a scan reaches.
type TimeWindow string

// Supported scan windows.
const (
	WindowToday    TimeWindow = "today"
	WindowTwoDays  TimeWindow = "2days"
	WindowWeek     TimeWindow = "week"
	WindowTwoWeeks TimeWindow = "2weeks"
	WindowMonth    TimeWindow = "month"
	WindowAll      TimeWindow = "all"
)

// Valid reports whether w names a supported window.
func (w TimeWindow) Valid() bool {
	switch w {
	case WindowToday, WindowTwoDays, WindowWeek, WindowTwoWeeks, WindowMonth, WindowAll:
		return true
	}
	return false
}

// Cutoff returns the earliest message timestamp the window admits. The
// second return is false for WindowAll, which admits everything.
func (w TimeWindow) Cutoff(now time.Time) (time.Time, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch w {
	case WindowToday:
		return midnight, true
	case WindowTwoDays:
		return midnight.AddDate(0, 0, -1), true
	case WindowWeek:
		return now.AddDate(0, 0, -7), true
	case WindowTwoWeeks:
		return now.AddDate(0, 0, -14), true
	case WindowMonth:
		return now.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}

// Session tracks one fetch-extract-review-import cycle.
type Session struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	ConnectionID string     `json:"connection_id"`
	Provider     string     `json:"provider"`
	Status       Status     `json:"status"`
	ChannelIDs   []string   `json:"channel_ids"`
	Window       TimeWindow `json:"window"`
	AuthorFilter string     `json:"author_filter,omitempty"`

	// Messages is the full collected batch after window and author
	// filtering; MessageCount mirrors its length once the session
	// reaches ready.
	Messages     []provider.Message `json:"-"`
	MessageCount int                `json:"message_count"`

	// Tasks is the ranked extraction output.
	Tasks []extraction.Task `json:"tasks"`

	// CommittedIDs lists task ids already durably imported. It only
	// ever grows; re-importing a listed id is a no-op.
	CommittedIDs []string `json:"committed_ids"`

	// ProjectID and ProjectName record the import destination resolved
	// by the first commit. Later commits of the same session reuse it,
	// so a retry never lands tasks in a second project.
	ProjectID   string `json:"project_id,omitempty"`
	ProjectName string `json:"project_name,omitempty"`

	// ChannelErrors records per-channel fetch failures for diagnostics,
	// keyed by channel id. A failed channel contributes zero messages
	// and does not fail the session.
	ChannelErrors map[string]string `json:"channel_errors,omitempty"`

	// ErrorMessage carries the diagnostic when Status is error.
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Committed reports whether the task id is already in the committed list.
func (s *Session) Committed(taskID string) bool {
	for _, id := range s.CommittedIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// Task returns the extracted task with the given id, if present.
func (s *Session) Task(taskID string) (extraction.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return extraction.Task{}, false
}
