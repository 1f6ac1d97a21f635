package util

import (
	"fmt"
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone reduces user input to the backend's 7XXXXXXXXXX form.
// Russian numbers written with a leading 8 are rewritten to 7.
func NormalizePhone(raw string) string {
	s := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")

	if strings.HasPrefix(s, "8") && len(s) == 11 {
		s = "7" + s[1:]
	}

	return s
}

// ValidPhone reports whether a normalized number is an 11-digit Russian
// mobile number.
func ValidPhone(s string) bool {
	return len(s) == 11 && strings.HasPrefix(s, "7")
}

// FormatPhone renders a normalized number as +7 (XXX) XXX-XX-XX for
// display; anything else is returned untouched.
func FormatPhone(s string) string {
	if len(s) != 11 {
		return s
	}
	return fmt.Sprintf("+%s (%s) %s-%s-%s", s[:1], s[1:4], s[4:7], s[7:9], s[9:])
}
