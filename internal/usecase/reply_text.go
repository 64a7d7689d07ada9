package usecase

import (
	"regexp"
	"strings"

	"github.com/matcreates/tribe-sub001/internal/htmltext"
)

const (
	maxReplyLength = 10000
	EmptyReplyText = "[Empty reply]"
)

var (
	onWrote         = regexp.MustCompile(`(?im)^[ \t]*On\s[^\n]*?(?:\n[^\n]*?)?\bwrote:[ \t]*$`)
	originalMessage = regexp.MustCompile(`(?im)^[ \t]*-{2,}\s*Original Message\s*-{2,}`)
	forwarded       = regexp.MustCompile(`(?im)^[ \t]*(?:-{2,}\s*Forwarded message\s*-{2,}|Begin forwarded message:)`)
	fromHeaderBlock = regexp.MustCompile(`(?im)^[ \t]*\*?From:\*?[ \t]+[^\n]+\n(?:[^\n]*\n){0,3}?[ \t]*\*?(?:Sent|Date|To|Subject):`)

	mobileSignature = regexp.MustCompile(`(?im)^[ \t]*(?:Sent from my (?:iPhone|iPad|Android)[^\n]*|Sent from Mail for Windows[^\n]*|Get Outlook for (?:iOS|Android)[^\n]*)$`)
	urlPattern      = regexp.MustCompile(`(?i)\b(?:https?|ftp)://\S+`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// quoteRules run in this order; each one cuts the text at the start of the
// quoted part it recognizes.
var quoteRules = []func(string) string{
	cutAt(onWrote),
	cutAt(originalMessage),
	cutAt(forwarded),
	cutAt(fromHeaderBlock),
	trimQuotedTail,
}

// StripQuotedReply removes the quoted original message from a reply body.
// It is pure and only meant for display, never for identifying anything.
func StripQuotedReply(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, rule := range quoteRules {
		text = rule(text)
	}
	return strings.TrimSpace(text)
}

// CleanReplyText turns a raw inbound body into the text shown to authors.
func CleanReplyText(raw string) string {
	text := raw
	if htmltext.LooksLikeHTML(text) {
		text = htmltext.FromHTML(text)
	}
	text = StripQuotedReply(text)

	text = mobileSignature.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")
	text = strings.NewReplacer("<", "", ">", "").Replace(text)
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))

	if text == "" {
		return EmptyReplyText
	}
	if r := []rune(text); len(r) > maxReplyLength {
		text = string(r[:maxReplyLength]) + "... [truncated]"
	}
	return text
}

func cutAt(re *regexp.Regexp) func(string) string {
	return func(s string) string {
		if loc := re.FindStringIndex(s); loc != nil {
			return s[:loc[0]]
		}
		return s
	}
}

func trimQuotedTail(s string) string {
	lines := strings.Split(s, "\n")
	end := len(lines)
	for end > 0 {
		l := strings.TrimSpace(lines[end-1])
		if l != "" && !strings.HasPrefix(l, ">") {
			break
		}
		end--
	}
	return strings.Join(lines[:end], "\n")
}
