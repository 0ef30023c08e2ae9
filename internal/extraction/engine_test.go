package extraction

import (
	"reflect"
	"testing"
	"time"

	"github.com/draftdesk/chatscan/internal/provider"
)

// fixedNow is a Wednesday.
var fixedNow = time.Date(2026, 4, 22, 15, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return fixedNow }
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func msg(id, text string) provider.Message {
	return provider.Message{
		ID:        id,
		ChannelID: "C1",
		Author:    "Maria R",
		Text:      text,
		Timestamp: fixedNow,
		Provider:  "slack",
	}
}

func TestExtract_Classification(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name         string
		text         string
		wantLen      int
		wantPattern  string
		wantPriority Priority
	}{
		{
			name:         "urgent keyword",
			text:         "This is urgent, the client presentation moved up",
			wantLen:      1,
			wantPattern:  "urgent",
			wantPriority: PriorityUrgent,
		},
		{
			name:         "asap maps to urgent",
			text:         "Send the structural calcs asap",
			wantLen:      1,
			wantPattern:  "urgent",
			wantPriority: PriorityUrgent,
		},
		{
			name:         "make sure is high",
			text:         "Make sure the permit drawings go out this week",
			wantLen:      1,
			wantPattern:  "make_sure",
			wantPriority: PriorityHigh,
		},
		{
			name:         "please is medium",
			text:         "Please send over the updated floor plans",
			wantLen:      1,
			wantPattern:  "please",
			wantPriority: PriorityMedium,
		},
		{
			name:         "should is medium",
			text:         "We should revisit the facade material choice",
			wantLen:      1,
			wantPattern:  "should",
			wantPriority: PriorityMedium,
		},
		{
			name:    "no pattern no task",
			text:    "The weather was nice at the site today",
			wantLen: 0,
		},
		{
			name:    "short message discarded",
			text:    "do it now",
			wantLen: 0,
		},
		{
			// 9 runes but 10 bytes; the length floor counts runes.
			name:    "short multibyte message discarded",
			text:    "urgent ça",
			wantLen: 0,
		},
		{
			name:    "greeting discarded even with pattern word",
			text:    "Thanks, that should do it for today",
			wantLen: 0,
		},
		{
			name:    "good morning discarded",
			text:    "Good morning everyone, hope the week is going well",
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := engine.Extract([]provider.Message{msg("m1", tt.text)})
			if len(tasks) != tt.wantLen {
				t.Fatalf("Extract() got %d tasks, want %d", len(tasks), tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}
			if tasks[0].Pattern != tt.wantPattern {
				t.Errorf("Pattern = %q, want %q", tasks[0].Pattern, tt.wantPattern)
			}
			if tasks[0].Priority != tt.wantPriority {
				t.Errorf("Priority = %q, want %q", tasks[0].Priority, tt.wantPriority)
			}
		})
	}
}

func TestExtract_HighestConfidenceWins(t *testing.T) {
	engine := newTestEngine(t)

	// "please" (0.80) and "urgent" (0.90) both match; urgent must win even
	// though please appears first in the text.
	tasks := engine.Extract([]provider.Message{
		msg("m1", "Please review the drainage plan, it's urgent"),
	})
	if len(tasks) != 1 {
		t.Fatalf("Extract() got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Pattern != "urgent" {
		t.Errorf("Pattern = %q, want urgent (highest confidence)", tasks[0].Pattern)
	}
	if tasks[0].Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", tasks[0].Confidence)
	}
}

func TestExtract_EqualConfidenceTableOrderWins(t *testing.T) {
	// make_sure and action_item both carry 0.85; the earlier table row
	// must win when both match.
	engine := newTestEngine(t)

	tasks := engine.Extract([]provider.Message{
		msg("m1", "Make sure the to-do list covers the lighting spec"),
	})
	if len(tasks) != 1 {
		t.Fatalf("Extract() got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Pattern != "make_sure" {
		t.Errorf("Pattern = %q, want make_sure (first in table order)", tasks[0].Pattern)
	}
}

func TestExtract_SelectionThreshold(t *testing.T) {
	engine := newTestEngine(t)

	tasks := engine.Extract([]provider.Message{
		msg("m1", "This is urgent, call the engineer"),         // 0.90
		msg("m2", "We should look at the budget numbers again"), // 0.70
		msg("m3", "Let's grab coffee and talk courtyards"),      // 0.65
	})
	if len(tasks) != 3 {
		t.Fatalf("Extract() got %d tasks, want 3 (low confidence still returned)", len(tasks))
	}

	for _, task := range tasks {
		wantSelected := task.Confidence >= 0.70
		if task.Selected != wantSelected {
			t.Errorf("task %q Selected = %v, want %v (confidence %v)",
				task.Pattern, task.Selected, wantSelected, task.Confidence)
		}
	}
}

func TestExtract_SortedByConfidenceDescending(t *testing.T) {
	engine := newTestEngine(t)

	tasks := engine.Extract([]provider.Message{
		msg("m1", "We should repaint the sample wall"),       // 0.70
		msg("m2", "Urgent: structural review due"),            // 0.90
		msg("m3", "Please forward the contractor's invoice"), // 0.80
	})
	if len(tasks) != 3 {
		t.Fatalf("Extract() got %d tasks, want 3", len(tasks))
	}

	for i := 1; i < len(tasks); i++ {
		if tasks[i-1].Confidence < tasks[i].Confidence {
			t.Errorf("tasks not sorted: index %d confidence %v < index %d confidence %v",
				i-1, tasks[i-1].Confidence, i, tasks[i].Confidence)
		}
	}
	if tasks[0].Pattern != "urgent" {
		t.Errorf("first task = %q, want urgent", tasks[0].Pattern)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	engine := newTestEngine(t)

	messages := []provider.Message{
		msg("m1", "Please schedule the site walkthrough for Friday"),
		msg("m2", "Don't forget the zoning variance paperwork"),
		msg("m3", "We should must review... make sure everything is filed asap"),
	}

	first := engine.Extract(messages)
	second := engine.Extract(messages)

	if !reflect.DeepEqual(first, second) {
		t.Error("Extract() is not deterministic: two runs over identical input differ")
	}
}

func TestExtract_DueDateAttached(t *testing.T) {
	engine := newTestEngine(t)

	tasks := engine.Extract([]provider.Message{
		msg("m1", "Please send the revised elevations tomorrow"),
	})
	if len(tasks) != 1 {
		t.Fatalf("Extract() got %d tasks, want 1", len(tasks))
	}
	if tasks[0].DueDate == nil {
		t.Fatal("DueDate = nil, want tomorrow")
	}
	want := time.Date(2026, 4, 23, 0, 0, 0, 0, time.UTC)
	if !tasks[0].DueDate.Equal(want) {
		t.Errorf("DueDate = %v, want %v", tasks[0].DueDate, want)
	}
}

func TestNewEngine_InvalidPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Patterns = []Pattern{{Name: "broken", Expr: "([", Confidence: 0.5}}
	if _, err := NewEngine(cfg); err == nil {
		t.Error("NewEngine() accepted an invalid pattern expression")
	}
}
