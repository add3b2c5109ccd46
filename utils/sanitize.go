package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizePlain strips all markup and returns plain text suitable for an email body.
func SanitizePlain(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// SanitizeHeader is SanitizePlain with line breaks removed, for use in mail headers.
func SanitizeHeader(input string) string {
	s := SanitizePlain(input)
	return strings.Join(strings.Fields(s), " ")
}
