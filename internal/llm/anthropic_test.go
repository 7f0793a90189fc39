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
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewAnthropicClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	c.(*anthropicClient).baseBackoff = time.Millisecond
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewAnthropicClient_RequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key required")
}

func TestCompleteWithTools_TextAnswer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("Anthropic-Version"))
		writeJSON(w, http.StatusOK, map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "hello"}},
			"stop_reason": "end_turn",
		})
	})

	got, err := c.CompleteWithTools(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
	assert.Empty(t, got.ToolCalls)
}

func TestCompleteWithTools_ToolUse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// System messages fold into the system field, not the message list.
		assert.Equal(t, "you are a coding assistant", req.System)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "internal:files", req.Tools[0].Name)

		writeJSON(w, http.StatusOK, map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "reading the file"},
				{"type": "tool_use", "id": "tu_1", "name": "internal:files",
					"input": map[string]any{"operation": "read", "path": "package.json"}},
			},
			"stop_reason": "tool_use",
		})
	})

	got, err := c.CompleteWithTools(context.Background(),
		[]Message{
			{Role: RoleSystem, Content: "you are a coding assistant"},
			{Role: RoleUser, Content: "show me package.json"},
		},
		[]ToolDefinition{{Name: "internal:files", Description: "file ops",
			Parameters: map[string]any{"type": "object"}}},
		Options{})
	require.NoError(t, err)

	assert.Equal(t, "reading the file", got.Text)
	require.Len(t, got.ToolCalls, 1)
	assert.Equal(t, "internal:files", got.ToolCalls[0].Name)
	assert.Equal(t, "read", got.ToolCalls[0].Arguments["operation"])
}

func TestCompleteWithTools_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "boom"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"content": []map[string]any{{"type": "text", "text": "recovered"}},
		})
	})

	got, err := c.CompleteWithTools(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteWithTools_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"type": "invalid_request_error", "message": "bad model"},
		})
	})

	_, err := c.CompleteWithTools(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteWithTools_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.CompleteWithTools(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(defaultMaxRetries+1), calls.Load())
}

func TestCompleteWithTools_ContextCancelledDuringBackoff(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	_, err := c.CompleteWithTools(ctx,
		[]Message{{Role: RoleUser, Content: "hi"}}, nil, Options{})
	require.Error(t, err)
}

func TestCheckConnection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"content": []map[string]any{{"type": "text", "text": "pong"}},
		})
	})
	require.NoError(t, c.CheckConnection(context.Background()))

	bad := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"type": "authentication_error", "message": "invalid key"},
		})
	})
	err := bad.CheckConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection check failed")
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(errors.New("plain")))
	assert.True(t, isRetryableError(&retryableError{err: errors.New("x")}))
	assert.True(t, isRetryableError(fmt.Errorf("wrapped: %w", &retryableError{err: errors.New("x")})))
}
