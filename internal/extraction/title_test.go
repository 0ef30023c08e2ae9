package extraction

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "plain text capitalized",
			text: "please review the drainage plan",
			want: "Please review the drainage plan",
		},
		{
			name: "bracket mention stripped",
			text: "<@U02ABC> can you send the elevations",
			want: "Can you send the elevations",
		},
		{
			name: "channel reference stripped",
			text: "post the update in <#C99|site-updates> please",
			want: "Post the update in please",
		},
		{
			name: "bare mention stripped",
			text: "@maria please check the permit status",
			want: "Please check the permit status",
		},
		{
			name: "email survives mention stripping",
			text: "send the set to bids@norr.example please",
			want: "Send the set to bids@norr.example please",
		},
		{
			name: "url stripped",
			text: "review https://example.com/specs/a-201.pdf before friday",
			want: "Review before friday",
		},
		{
			name: "emoji shortcode stripped",
			text: ":rotating_light: urgent fix for the atrium glazing",
			want: "Urgent fix for the atrium glazing",
		},
		{
			name: "whitespace collapsed",
			text: "make   sure\tthe  lobby\n\nrenders go out",
			want: "Make sure the lobby renders go out",
		},
		{
			name: "only noise falls back to placeholder",
			text: "<@U02ABC> :wave: https://example.com",
			want: "Untitled task",
		},
		{
			name: "empty falls back to placeholder",
			text: "   ",
			want: "Untitled task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateTitle(tt.text); got != tt.want {
				t.Errorf("GenerateTitle(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestGenerateTitle_Truncation(t *testing.T) {
	long := "please make sure the full structural load calculation set for the north tower podium is reviewed"
	got := GenerateTitle(long)

	if n := utf8.RuneCountInString(got); n > 80 {
		t.Errorf("title length = %d runes, want at most 80", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated title %q missing ellipsis", got)
	}
	if !strings.HasPrefix(got, "Please make sure") {
		t.Errorf("truncated title %q lost its prefix", got)
	}
}

func TestGenerateTitle_ShortTextNotTruncated(t *testing.T) {
	got := GenerateTitle("fix the roof leak")
	if got != "Fix the roof leak" {
		t.Errorf("GenerateTitle() = %q, want %q", got, "Fix the roof leak")
	}
}
