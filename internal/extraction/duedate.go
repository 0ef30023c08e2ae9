package extraction

import (
	"regexp"
	"time"
)

// temporalKeyword maps one temporal phrase to its resolution rule.
type temporalKeyword struct {
	regex   *regexp.Regexp
	resolve func(now time.Time) time.Time
}

// temporalKeywords is evaluated in order; the first phrase present in the
// message wins.
var temporalKeywords = []temporalKeyword{
	{regexp.MustCompile(`(?i)\btomorrow\b`), func(now time.Time) time.Time {
		return dateOf(now).AddDate(0, 0, 1)
	}},
	{regexp.MustCompile(`(?i)\b(tonight|end of (the )?day|eod)\b`), func(now time.Time) time.Time {
		return dateOf(now)
	}},
	{regexp.MustCompile(`(?i)\bnext week\b`), func(now time.Time) time.Time {
		return dateOf(now).AddDate(0, 0, 7)
	}},
	{regexp.MustCompile(`(?i)\b(end of (the )?week|eow)\b`), func(now time.Time) time.Time {
		return nextWeekday(now, time.Friday)
	}},
	{regexp.MustCompile(`(?i)\bmonday\b`), weekdayResolver(time.Monday)},
	{regexp.MustCompile(`(?i)\btuesday\b`), weekdayResolver(time.Tuesday)},
	{regexp.MustCompile(`(?i)\bwednesday\b`), weekdayResolver(time.Wednesday)},
	{regexp.MustCompile(`(?i)\bthursday\b`), weekdayResolver(time.Thursday)},
	{regexp.MustCompile(`(?i)\bfriday\b`), weekdayResolver(time.Friday)},
	{regexp.MustCompile(`(?i)\bsaturday\b`), weekdayResolver(time.Saturday)},
	{regexp.MustCompile(`(?i)\bsunday\b`), weekdayResolver(time.Sunday)},
}

func weekdayResolver(day time.Weekday) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		return nextWeekday(now, day)
	}
}

// inferDueDate resolves the first temporal keyword found in the text to a
// concrete date relative to now. Absent or unresolvable keywords leave the
// due date unset.
func inferDueDate(text string, now time.Time) (time.Time, bool) {
	for _, kw := range temporalKeywords {
		if kw.regex.MatchString(text) {
			return kw.resolve(now), true
		}
	}
	return time.Time{}, false
}

// nextWeekday returns the next occurrence of day strictly after today.
// Naming today's own weekday rolls a full week out, never same-day.
func nextWeekday(now time.Time, day time.Weekday) time.Time {
	days := (int(day) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return dateOf(now).AddDate(0, 0, days)
}

// dateOf truncates a time to midnight in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
