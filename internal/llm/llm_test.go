// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

// withOpenAIServer points the OpenAI client at an httptest server for the
// duration of the test.
func withOpenAIServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := openAIBaseURL
	openAIBaseURL = ts.URL
	t.Cleanup(func() {
		openAIBaseURL = old
		ts.Close()
	})
	return ts
}

func chatResponse(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o",`+
		`"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		apiKey    string
		wantStub  bool
		wantField string
	}{
		{name: "stub needs no key", model: "stub", wantStub: true},
		{name: "openai with key", model: "gpt-4o", apiKey: "sk-test"},
		{name: "openai without key", model: "gpt-4o", wantField: "LLMAPIKey"},
		{name: "empty model name", model: "  ", apiKey: "sk-test", wantField: "Model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.model, tt.apiKey, 2, nil)
			if tt.wantField != "" {
				var cfgErr *types.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.wantField, cfgErr.Field)
				return
			}
			require.NoError(t, err)
			_, isStub := m.(Stub)
			assert.Equal(t, tt.wantStub, isStub)
		})
	}
}

func TestNewOpenAIMissingKeyIsMissingCredential(t *testing.T) {
	_, err := NewOpenAI("gpt-4o", "", nil)
	assert.ErrorIs(t, err, types.ErrMissingCredential)
}

func TestOpenAIInvoke(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth string
	ts := withOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatResponse("hello from the model"))
	})

	m, err := NewOpenAI("gpt-4o-mini", "sk-test", ts.Client())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", m.Model())

	out, err := m.Invoke(context.Background(), "be terse", "say hi")
	require.NoError(t, err)
	assert.Equal(t, "hello from the model", out)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be terse", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "say hi", got.Messages[1].Content)
}

func TestOpenAIInvokeAPIError(t *testing.T) {
	ts := withOpenAIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	})

	m, err := NewOpenAI("gpt-4o", "sk-bad", ts.Client())
	require.NoError(t, err)

	_, err = m.Invoke(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestOpenAIInvokeNoChoices(t *testing.T) {
	ts := withOpenAIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	})

	m, err := NewOpenAI("gpt-4o", "sk-test", ts.Client())
	require.NoError(t, err)

	_, err = m.Invoke(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "no choices")
}

func TestWithRetry(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name       string
		failures   int32
		maxRetries int
		wantCalls  int32
		wantErr    bool
	}{
		{name: "first call succeeds", failures: 0, maxRetries: 3, wantCalls: 1},
		{name: "succeeds after two failures", failures: 2, maxRetries: 3, wantCalls: 3},
		{name: "exhausts retries", failures: 10, maxRetries: 2, wantCalls: 3, wantErr: true},
		{name: "retries disabled", failures: 10, maxRetries: 0, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			inner := ModelFunc(func(context.Context, string, string) (string, error) {
				if atomic.AddInt32(&calls, 1) <= tt.failures {
					return "", errBoom
				}
				return "ok", nil
			})

			out, err := WithRetry(inner, tt.maxRetries).Invoke(context.Background(), "s", "u")
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			if tt.wantErr {
				assert.ErrorIs(t, err, errBoom)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", out)
		})
	}
}

func TestWithRetryStopsOnContextError(t *testing.T) {
	var calls int32
	inner := ModelFunc(func(context.Context, string, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", context.DeadlineExceeded
	})

	_, err := WithRetry(inner, 5).Invoke(context.Background(), "s", "u")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWithRetryCancelledDuringBackoff(t *testing.T) {
	old := backoffBase
	backoffBase = time.Second
	defer func() { backoffBase = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	inner := ModelFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("unavailable")
	})
	_, err := WithRetry(inner, 3).Invoke(ctx, "s", "u")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
