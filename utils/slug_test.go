package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":        "hello-world",
		"  spaced   out  ":   "spaced-out",
		"Go 1.23 Released!":  "go-1-23-released",
		"---":                "",
		"ALREADY-hyphenated": "already-hyphenated",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestMakePostSlug(t *testing.T) {
	slug := MakePostSlug("Hello World")
	assert.True(t, strings.HasPrefix(slug, "hello-world-"), "got %q", slug)

	// punctuation-only titles still produce a usable slug
	slug = MakePostSlug("!!!")
	assert.True(t, strings.HasPrefix(slug, "post-"), "got %q", slug)
}
