package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/plumehq/plume/config"
)

// ErrAssistParse is returned when the provider reply is not valid JSON after
// stripping markdown fences. The raw reply is never surfaced to clients.
var ErrAssistParse = errors.New("failed to parse AI response")

// Assist modes accepted by the content-assist endpoint.
const (
	AssistTitle   = "title"
	AssistTags    = "tags"
	AssistSummary = "summary"
)

// AssistResult is the structured reply shape requested from the provider.
type AssistResult struct {
	Titles  []string `json:"titles,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

var (
	assistClient openai.Client
	assistOnce   sync.Once
)

func getAssistClient() openai.Client {
	assistOnce.Do(func() {
		cfg := config.Get()
		opts := []option.RequestOption{option.WithAPIKey(cfg.AIAPIKey)}
		if cfg.AIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.AIBaseURL))
		}
		assistClient = openai.NewClient(opts...)
	})
	return assistClient
}

// GenerateAssist forwards the user's draft to the generative-text provider
// and parses the JSON-shaped reply. Stateless: no retry, no caching.
func GenerateAssist(ctx context.Context, mode, title, content string) (*AssistResult, error) {
	prompt := buildAssistPrompt(mode, title, content)

	client := getAssistClient()
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(config.Get().AIModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, ErrAssistParse
	}

	return ParseAssistReply(completion.Choices[0].Message.Content)
}

// ParseAssistReply strips markdown code fences and decodes the JSON body.
func ParseAssistReply(raw string) (*AssistResult, error) {
	cleaned := stripCodeFence(raw)
	var result AssistResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, ErrAssistParse
	}
	return &result, nil
}

func buildAssistPrompt(mode, title, content string) string {
	var task string
	switch mode {
	case AssistTitle:
		task = `suggest 5 improved titles for the draft as {"titles": [...]}`
	case AssistTags:
		task = `suggest up to 8 short lowercase topic tags as {"tags": [...]}`
	default:
		task = `write a summary of at most 3 sentences as {"summary": "..."}`
	}
	return fmt.Sprintf(
		"You are a writing assistant for a blogging platform. %s. Reply with JSON only, no prose.\n\nTitle: %s\n\nContent:\n%s",
		task, title, content,
	)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language hint line, e.g. ```json
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
