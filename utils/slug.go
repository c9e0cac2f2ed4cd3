package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Slugify lowercases the input and collapses anything that is not a letter
// or digit into single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// MakePostSlug builds a URL-safe slug from a title with a millisecond
// timestamp suffix for uniqueness. Slugs are not stable across edits.
func MakePostSlug(title string) string {
	base := Slugify(title)
	if base == "" {
		base = "post"
	}
	return fmt.Sprintf("%s-%d", base, time.Now().UnixMilli())
}
