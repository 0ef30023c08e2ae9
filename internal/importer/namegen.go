package importer

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/draftdesk/chatscan/internal/extraction"
)

// stopWords are dropped before frequency counting: pronouns, articles,
// auxiliaries and filler verbs too generic to name a project after.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "these": {}, "those": {}, "you": {}, "your": {}, "our": {},
	"their": {}, "his": {}, "her": {}, "its": {}, "are": {}, "was": {},
	"were": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"have": {}, "has": {}, "had": {}, "can": {}, "not": {}, "all": {},
	"any": {}, "out": {}, "about": {}, "into": {}, "over": {}, "please": {},
	"make": {}, "sure": {}, "need": {}, "needs": {}, "get": {}, "send": {},
	"fix": {}, "check": {}, "update": {}, "review": {}, "task": {},
	"tasks": {}, "todo": {}, "item": {}, "new": {},
}

// GenerateProjectName derives a project name from the selected task
// titles: tokenize, lowercase, strip punctuation, drop short tokens and
// stop words, count document frequency (each task contributes a distinct
// token once), take the top two by frequency with first-seen tie-break,
// Title-case them and join with " & ", suffixed with the month and day.
// With no usable tokens it falls back to "<Provider> Tasks — <Mon> <Day>".
func GenerateProjectName(tasks []extraction.Task, providerName string, now time.Time) string {
	freq := make(map[string]int)
	var order []string

	for _, task := range tasks {
		seen := make(map[string]struct{})
		for _, raw := range strings.Fields(strings.ToLower(task.Title)) {
			token := strings.Trim(raw, ".,;:!?\"'()[]{}#@&-")
			if len(token) <= 2 {
				continue
			}
			if _, stop := stopWords[token]; stop {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			if freq[token] == 0 {
				order = append(order, token)
			}
			freq[token]++
		}
	}

	top := topTokens(freq, order, 2)
	suffix := now.Format("Jan 2")

	if len(top) == 0 {
		name := titleCase(providerName)
		if name == "" {
			name = "Chat"
		}
		return fmt.Sprintf("%s Tasks — %s", name, suffix)
	}

	for i, token := range top {
		top[i] = titleCase(token)
	}
	return fmt.Sprintf("%s — %s", strings.Join(top, " & "), suffix)
}

// titleCase upper-cases the first rune of a single lowercase token.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// topTokens selects the n highest-frequency tokens, breaking ties by
// first-seen order.
func topTokens(freq map[string]int, order []string, n int) []string {
	var top []string
	used := make(map[string]struct{})

	for len(top) < n {
		best := ""
		for _, token := range order {
			if _, taken := used[token]; taken {
				continue
			}
			if best == "" || freq[token] > freq[best] {
				best = token
			}
		}
		if best == "" {
			break
		}
		used[best] = struct{}{}
		top = append(top, best)
	}
	return top
}
