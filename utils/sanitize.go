package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy = bluemonday.StrictPolicy()
	bodyPolicy = bluemonday.UGCPolicy()
)

// SanitizeText strips every tag; used for titles, names and short reasons.
func SanitizeText(input string) string {
	return strings.TrimSpace(textPolicy.Sanitize(input))
}

// Sanitize cleans user supplied bodies, keeping safe formatting markup.
func Sanitize(input string) string {
	return strings.TrimSpace(bodyPolicy.Sanitize(input))
}
