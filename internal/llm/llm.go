// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the language-model gateway used by every pipeline stage:
// a system instruction and a user message go in, completion text comes out.
package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// StubModelName selects the deterministic offline model.
const StubModelName = "stub"

// Model invokes a language model. Implementations must be safe for
// concurrent use; fan-out stages call Invoke from several goroutines.
type Model interface {
	Invoke(ctx context.Context, system, user string) (string, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, system, user string) (string, error)

// Invoke calls f.
func (f ModelFunc) Invoke(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// New returns the model named by name. The name "stub" selects the offline
// Stub; any other name is an OpenAI chat model and requires apiKey. The
// returned model retries failed calls up to maxRetries times.
func New(name, apiKey string, maxRetries int, client *http.Client) (Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &types.ConfigError{Field: "Model", Reason: "must be set"}
	}
	if name == StubModelName {
		return Stub{}, nil
	}
	m, err := NewOpenAI(name, apiKey, client)
	if err != nil {
		return nil, err
	}
	return WithRetry(m, maxRetries), nil
}
