package importer

import (
	"testing"
	"time"

	"github.com/draftdesk/chatscan/internal/extraction"
)

func titled(titles ...string) []extraction.Task {
	tasks := make([]extraction.Task, len(titles))
	for i, title := range titles {
		tasks[i] = extraction.Task{ID: "slack-" + title[:3], Title: title}
	}
	return tasks
}

func TestGenerateProjectName(t *testing.T) {
	now := time.Date(2026, 4, 22, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		titles []string
		want   string
	}{
		{
			name:   "roof wins on frequency",
			titles: []string{"Fix the roof leak", "Fix the roof drainage"},
			want:   "Roof & Leak — Apr 22",
		},
		{
			name:   "first seen breaks frequency ties",
			titles: []string{"Order lumber delivery", "Confirm lumber order date"},
			want:   "Order & Lumber — Apr 22",
		},
		{
			name:   "duplicate token in one title counts once",
			titles: []string{"Paint the paint room", "Stock brushes"},
			want:   "Paint & Room — Apr 22",
		},
		{
			name:   "stop words and short tokens excluded",
			titles: []string{"Make sure we get the permit for it"},
			want:   "Permit — Apr 22",
		},
		{
			name:   "no usable tokens falls back to provider",
			titles: []string{"Fix all the"},
			want:   "Slack Tasks — Apr 22",
		},
		{
			name:   "no tasks falls back to provider",
			titles: nil,
			want:   "Slack Tasks — Apr 22",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateProjectName(titled(tt.titles...), "slack", now)
			if got != tt.want {
				t.Errorf("GenerateProjectName(%v) = %q, want %q", tt.titles, got, tt.want)
			}
		})
	}
}

func TestGenerateProjectName_Deterministic(t *testing.T) {
	now := time.Date(2026, 4, 22, 10, 0, 0, 0, time.UTC)
	tasks := titled("Chase the surveyor report", "File the survey paperwork", "Chase the permit office")

	first := GenerateProjectName(tasks, "discord", now)
	for i := 0; i < 5; i++ {
		if got := GenerateProjectName(tasks, "discord", now); got != first {
			t.Fatalf("run %d produced %q, first run produced %q", i, got, first)
		}
	}
}
