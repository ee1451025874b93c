package util

import (
	"regexp"
	"strings"
)

var (
	reReplyPrefix = regexp.MustCompile(`(?i)^((re|fw|fwd)\s*(\[\d+\])?\s*:\s*)+`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reAngleAddr   = regexp.MustCompile(`<([^<>]+)>`)
)

// NormalizeSubject strips reply/forward prefixes, lowercases and collapses
// whitespace so follow-ups on the same conversation compare equal.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		stripped := reReplyPrefix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.ToLower(s)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanAddress reduces a From/To header value to the bare lowercase address.
// "Jane Doe <jane@example.com>" becomes "jane@example.com".
func CleanAddress(addr string) string {
	s := strings.TrimSpace(addr)
	if m := reAngleAddr.FindStringSubmatch(s); len(m) == 2 {
		s = m[1]
	}
	s = strings.Trim(s, "<>")
	return strings.ToLower(strings.TrimSpace(s))
}

// CleanMessageID trims whitespace and angle brackets from a Message-ID
// style header value.
func CleanMessageID(id string) string {
	return strings.Trim(strings.TrimSpace(id), "<>")
}

// SplitReferences parses a References header into individual message ids,
// oldest first.
func SplitReferences(header string) []string {
	fields := strings.Fields(header)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		id := CleanMessageID(f)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// FallbackThreadKey builds the sender+subject key used when a message
// carries no usable identifiers.
func FallbackThreadKey(sender, subject string) string {
	return CleanAddress(sender) + "|" + NormalizeSubject(subject)
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
