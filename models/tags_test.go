package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleTagsUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want FlexibleTags
	}{
		{"json array", `["Go", "Web"]`, FlexibleTags{"go", "web"}},
		{"json array in a string", `"[\"go\", \"web\"]"`, FlexibleTags{"go", "web"}},
		{"csv string", `"go, web ,go"`, FlexibleTags{"go", "web"}},
		{"single value", `"go"`, FlexibleTags{"go"}},
		{"empty string", `""`, nil},
		{"empty array", `[]`, nil},
		{"malformed json array string", `"[go, web"`, nil},
		{"number yields nothing", `42`, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got FlexibleTags
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFlexibleTagsInStruct(t *testing.T) {
	var payload struct {
		Tags FlexibleTags `json:"tags"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tags": "a,b,c"}`), &payload))
	assert.Equal(t, FlexibleTags{"a", "b", "c"}, payload.Tags)
}

func TestNormalizeTagNames(t *testing.T) {
	got := NormalizeTagNames([]string{" Go ", "GO", "", "web"})
	assert.Equal(t, FlexibleTags{"go", "web"}, got)

	assert.Nil(t, NormalizeTagNames([]string{"", "  "}))
	assert.Nil(t, NormalizeTagNames(nil))
}
