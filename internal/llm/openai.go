// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/research-agent/pkg/types"
)

// openAIBaseURL is the chat completions API root. Package-level var for test substitution.
var openAIBaseURL = "https://api.openai.com/v1"

// OpenAI invokes an OpenAI chat model.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI constructs a chat client for model. A missing apiKey is a
// configuration error.
func NewOpenAI(model, apiKey string, httpClient *http.Client) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, types.MissingCredential("LLMAPIKey", "openai")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = openAIBaseURL
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Model returns the model identifier.
func (o *OpenAI) Model() string { return o.model }

// Invoke sends the system instruction and user message as one chat
// completion request and returns the first choice's content.
func (o *OpenAI) Invoke(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("OpenAI API returned %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
