package util

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// user content is plain text in the app, so every tag is stripped
var XSSPolicy = bluemonday.StrictPolicy()

// XSSSanitize strips HTML and returns the unescaped text. Entities are decoded
// before sanitizing too, so escaped markup cannot come back out as tags.
func XSSSanitize(val string) string {
	return html.UnescapeString(XSSPolicy.Sanitize(html.UnescapeString(val)))
}

// CleanText sanitizes user text and trims the surrounding whitespace.
func CleanText(val string) string {
	return strings.TrimSpace(XSSSanitize(val))
}
