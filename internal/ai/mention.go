package ai

import (
	"regexp"
	"strings"
)

// MentionToken is the assistant mention clients type in group messages.
const MentionToken = "@gemini"

var mentionRe = regexp.MustCompile(`(?i)@gemini\b`)

// HasMention reports whether the text mentions the assistant
// (case-insensitive, word-boundary).
func HasMention(text string) bool {
	return mentionRe.MatchString(text)
}

// StripMention removes assistant mention tokens from the text, leaving the
// prompt to send to the responder.
func StripMention(text string) string {
	stripped := mentionRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(stripped), " ")
}
