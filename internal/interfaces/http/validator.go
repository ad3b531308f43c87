package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxTextLength     = 4096 // Telegram message limit
	MaxUsernameLength = 64
	MaxChannelLength  = 100
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidSlug checks if an identifier is safe (alphanumeric + underscore +
// hyphen).
func ValidSlug(s string) bool {
	return s != "" && len(s) <= MaxUsernameLength && slugPattern.MatchString(s)
}

// ValidChannelID accepts numeric chat ids and @usernames.
func ValidChannelID(s string) bool {
	if s == "" || len(s) > MaxChannelLength {
		return false
	}
	if strings.HasPrefix(s, "@") {
		return ValidSlug(strings.TrimPrefix(s, "@"))
	}
	trimmed := strings.TrimPrefix(s, "-")
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return false
		}
	}
	return trimmed != ""
}

// SanitizeString removes null bytes and invalid UTF-8.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString safely truncates a string to max length.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
