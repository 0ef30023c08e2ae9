package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxTitleLength   = 80
	titlePlaceholder = "Untitled task"
	titleEllipsis    = "..."
)

var (
	// <@U123>, <@!123>, <#C123|general>, <#123> - provider mention and
	// channel reference syntax.
	bracketTokenRe = regexp.MustCompile(`<[@#][^>]*>`)
	// bare @mentions at a word boundary; the leading group keeps email
	// addresses intact.
	bareMentionRe = regexp.MustCompile(`(^|\s)@[\w.-]+`)
	urlRe         = regexp.MustCompile(`https?://\S+`)
	emojiCodeRe   = regexp.MustCompile(`:[a-z0-9_+-]+:`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// GenerateTitle derives a task title from message text: provider mention
// syntax, channel references, URLs and emoji shortcodes are stripped,
// whitespace collapsed, the first character capitalized, and the result
// truncated to 80 characters with an ellipsis marker.
func GenerateTitle(text string) string {
	s := bracketTokenRe.ReplaceAllString(text, " ")
	s = urlRe.ReplaceAllString(s, " ")
	s = emojiCodeRe.ReplaceAllString(s, " ")
	s = bareMentionRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if s == "" {
		return titlePlaceholder
	}

	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]

	if utf8.RuneCountInString(s) > maxTitleLength {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:maxTitleLength-len(titleEllipsis)])) + titleEllipsis
	}

	return s
}
