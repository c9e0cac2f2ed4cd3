package models

import (
	"encoding/json"
	"strings"
)

// FlexibleTags accepts the three tag input shapes clients send: a plain JSON
// array, a JSON-encoded array inside a string, or a comma-separated string.
// Parsing tries those shapes in that order; anything unparseable yields an
// empty set rather than an error.
type FlexibleTags []string

// UnmarshalJSON implements the permissive parse order. It never returns an
// error for malformed input.
func (t *FlexibleTags) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*t = NormalizeTagNames(arr)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = nil
		return nil
	}
	*t = ParseTagString(s)
	return nil
}

// ParseTagString parses a raw string as a JSON array first and falls back to
// comma-separated values.
func ParseTagString(s string) FlexibleTags {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return NormalizeTagNames(arr)
		}
		// malformed JSON array yields an empty set, not a CSV guess
		return nil
	}
	return NormalizeTagNames(strings.Split(s, ","))
}

// NormalizeTagNames trims, lowercases and deduplicates tag names, dropping
// empties.
func NormalizeTagNames(names []string) FlexibleTags {
	seen := make(map[string]struct{}, len(names))
	out := make(FlexibleTags, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
