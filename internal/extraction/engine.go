package extraction

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/draftdesk/chatscan/internal/provider"
)

// greetingDenylist matches conversational noise anchored at message start.
// These never become tasks no matter what patterns they also contain.
var greetingDenylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(hi|hello|hey|yo|howdy)\b`),
	regexp.MustCompile(`(?i)^good (morning|afternoon|evening|night)\b`),
	regexp.MustCompile(`(?i)^(thanks|thank you|thx|ty)\b`),
	regexp.MustCompile(`(?i)^(ok|okay|sounds good|got it|will do|no problem|np|sure)\b`),
	regexp.MustCompile(`(?i)^(great|nice|cool|awesome|perfect)[.!\s]*$`),
	regexp.MustCompile(`(?i)^(lol|haha|welcome|congrats|\+1)\b`),
}

// compiledPattern holds a pre-compiled table row.
type compiledPattern struct {
	Pattern
	regex *regexp.Regexp
}

// Engine classifies normalized messages into candidate tasks.
type Engine struct {
	patterns           []*compiledPattern
	selectionThreshold float64
	minLength          int
	now                func() time.Time
}

// NewEngine creates an extraction engine from config.
func NewEngine(cfg Config) (*Engine, error) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}

	compiled := make([]*compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Name, err)
		}
		compiled = append(compiled, &compiledPattern{Pattern: p, regex: re})
	}

	threshold := cfg.SelectionThreshold
	if threshold == 0 {
		threshold = 0.70
	}
	minLength := cfg.MinMessageLength
	if minLength == 0 {
		minLength = 10
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		patterns:           compiled,
		selectionThreshold: threshold,
		minLength:          minLength,
		now:                now,
	}, nil
}

// Extract classifies a batch of messages into candidate tasks, sorted by
// confidence descending. Deterministic given identical input and clock.
func (e *Engine) Extract(messages []provider.Message) []Task {
	now := e.now()
	var tasks []Task

	for _, msg := range messages {
		text := strings.TrimSpace(msg.Text)
		if utf8.RuneCountInString(text) < e.minLength {
			continue
		}
		if isGreeting(text) {
			continue
		}

		match := e.findBestMatch(text)
		if match == nil {
			continue
		}

		task := Task{
			ID:         msg.Provider + "-" + msg.ID,
			Title:      GenerateTitle(text),
			Priority:   match.Priority,
			Confidence: match.Confidence,
			Selected:   match.Confidence >= e.selectionThreshold,
			Pattern:    match.Name,
			Source:     msg,
		}
		if due, ok := inferDueDate(text, now); ok {
			task.DueDate = &due
		}

		tasks = append(tasks, task)
	}

	// Stable keeps input order among equal confidences, which keeps the
	// whole extraction deterministic.
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Confidence > tasks[j].Confidence
	})

	return tasks
}

// findBestMatch returns the matching table row with the highest confidence.
// Only a strictly greater confidence replaces the current best, so equal
// confidences resolve to the earlier row in table order.
func (e *Engine) findBestMatch(text string) *compiledPattern {
	var best *compiledPattern
	for _, p := range e.patterns {
		if p.regex.MatchString(text) {
			if best == nil || p.Confidence > best.Confidence {
				best = p
			}
		}
	}
	return best
}

// isGreeting reports whether the message is conversational noise.
func isGreeting(text string) bool {
	for _, re := range greetingDenylist {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
