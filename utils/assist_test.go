package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"tags": ["go"]}`, `{"tags": ["go"]}`},
		{"fenced", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced with language hint", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n ", "{}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripCodeFence(tc.in))
		})
	}
}

func TestParseAssistReply(t *testing.T) {
	t.Run("titles", func(t *testing.T) {
		got, err := ParseAssistReply(`{"titles": ["One", "Two"]}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"One", "Two"}, got.Titles)
	})

	t.Run("fenced summary", func(t *testing.T) {
		got, err := ParseAssistReply("```json\n{\"summary\": \"short\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "short", got.Summary)
	})

	t.Run("non-json is a parse error", func(t *testing.T) {
		_, err := ParseAssistReply("Sure! Here are some titles:")
		assert.ErrorIs(t, err, ErrAssistParse)
	})
}
