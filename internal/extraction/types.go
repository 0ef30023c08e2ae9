// Package extraction turns normalized chat messages into scored candidate
// tasks using an ordered weighted pattern table. Classification is
// rule-based and deterministic: no network, no model, and the only clock
// dependency is due-date resolution relative to "now".
package extraction

import (
	"time"

	"github.com/draftdesk/chatscan/internal/provider"
)

// Priority is the urgency assigned to a candidate task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Pattern is one row of the classification table.
type Pattern struct {
	Name       string   `json:"name"`
	Expr       string   `json:"expr"`
	Priority   Priority `json:"priority"`
	Confidence float64  `json:"confidence"`
}

// Task is a scored candidate task extracted from one message.
// Mutated only by operator edits (title, priority, due date, selection)
// prior to import.
type Task struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Priority    Priority         `json:"priority"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	Confidence  float64          `json:"confidence"`
	Selected    bool             `json:"selected"`
	Pattern     string           `json:"pattern"`
	Source      provider.Message `json:"source"`
}

// Config holds extraction engine settings.
type Config struct {
	// Patterns overrides the default classification table.
	Patterns []Pattern
	// SelectionThreshold is the confidence at or above which a task is
	// pre-selected for import. Defaults to 0.70.
	SelectionThreshold float64
	// MinMessageLength discards shorter messages after trimming.
	// Defaults to 10.
	MinMessageLength int
	// Now supplies the reference time for due-date resolution.
	// Defaults to time.Now.
	Now func() time.Time
}

// DefaultPatterns returns the classification table, ordered. When a
// message matches several rows the highest confidence wins; equal
// confidences resolve to the earlier row.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "urgent", Expr: `(?i)\b(urgent|urgently|asap|emergency|critical)\b`, Priority: PriorityUrgent, Confidence: 0.90},
		{Name: "deadline", Expr: `(?i)\b(deadline|overdue|due (by|on|date))\b`, Priority: PriorityHigh, Confidence: 0.88},
		{Name: "make_sure", Expr: `(?i)\bmake sure\b`, Priority: PriorityHigh, Confidence: 0.85},
		{Name: "action_item", Expr: `(?i)\b(action item|to-?do)\b`, Priority: PriorityHigh, Confidence: 0.85},
		{Name: "dont_forget", Expr: `(?i)\bdon'?t forget\b`, Priority: PriorityHigh, Confidence: 0.82},
		{Name: "please", Expr: `(?i)\bplease\b`, Priority: PriorityMedium, Confidence: 0.80},
		{Name: "remember_to", Expr: `(?i)\bremember to\b`, Priority: PriorityHigh, Confidence: 0.80},
		{Name: "need_to", Expr: `(?i)\b(need|needs|we need) to\b`, Priority: PriorityHigh, Confidence: 0.78},
		{Name: "can_you", Expr: `(?i)\b(can|could|would) you\b`, Priority: PriorityMedium, Confidence: 0.75},
		{Name: "follow_up", Expr: `(?i)\bfollow(ing)? up\b`, Priority: PriorityMedium, Confidence: 0.75},
		{Name: "must", Expr: `(?i)\bmust (be|have|get|send|finish|review)\b`, Priority: PriorityHigh, Confidence: 0.72},
		{Name: "should", Expr: `(?i)\bshould\b`, Priority: PriorityMedium, Confidence: 0.70},
		{Name: "lets", Expr: `(?i)\blet'?s\b`, Priority: PriorityMedium, Confidence: 0.65},
		{Name: "nice_to_have", Expr: `(?i)\bwould be (good|nice|great) to\b`, Priority: PriorityLow, Confidence: 0.60},
	}
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Patterns:           DefaultPatterns(),
		SelectionThreshold: 0.70,
		MinMessageLength:   10,
		Now:                time.Now,
	}
}
