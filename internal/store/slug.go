package store

import (
	"regexp"
	"strings"
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases title, turns every run of non-alphanumerics into one dash and
// trims dashes from both ends. "Hello, World!" becomes "hello-world".
func Slugify(title string) string {
	return strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(title), "-"), "-")
}
