package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ml-career-pulse/backend/internal/skills"
	"github.com/ml-career-pulse/backend/pkg/config"
)

func completionServer(t *testing.T, status int, body string) (*httptest.Server, *[]map[string]any) {
	t.Helper()

	var mu sync.Mutex
	var requests []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(raw, &req))

		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &requests
}

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    "gemini",
		Model:       "gemini-2.5-flash",
		APIKey:      "test-key",
		BaseURL:     baseURL + "/v1",
		Temperature: 0.2,
		MaxTokens:   512,
		TimeoutSec:  5,
	}
}

func TestGenerateSendsSingleUserMessage(t *testing.T) {
	srv, requests := completionServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"tools\": [\"Docker\"]}"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
	}`)

	client := NewClient(testConfig(srv.URL))
	require.True(t, client.Configured())

	out, err := client.Generate(context.Background(), "extract skills")
	require.NoError(t, err)
	assert.Equal(t, `{"tools": ["Docker"]}`, out)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "gemini-2.5-flash", req["model"])
	messages, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "extract skills", messages[0].(map[string]any)["content"])
}

func TestGenerateMapsTooManyRequests(t *testing.T) {
	srv, requests := completionServer(t, http.StatusTooManyRequests,
		`{"error": {"message": "Resource has been exhausted", "type": "rate_limit_error", "code": 429}}`)

	client := NewClient(testConfig(srv.URL))

	_, err := client.Generate(context.Background(), "extract skills")
	require.ErrorIs(t, err, skills.ErrRateLimited)
	assert.Equal(t, skills.KindRateLimited, skills.Classify(err))
	assert.Len(t, *requests, 1)
}

func TestGenerateServerErrorIsTransient(t *testing.T) {
	srv, _ := completionServer(t, http.StatusInternalServerError,
		`{"error": {"message": "internal", "type": "server_error"}}`)

	client := NewClient(testConfig(srv.URL))

	_, err := client.Generate(context.Background(), "extract skills")
	require.Error(t, err)
	assert.Equal(t, skills.KindTransient, skills.Classify(err))
}

func TestGenerateWithoutKeyIsUnconfigured(t *testing.T) {
	client := NewClient(config.LLMConfig{Model: "gemini-2.5-flash"})

	assert.False(t, client.Configured())
	_, err := client.Generate(context.Background(), "extract skills")
	assert.ErrorIs(t, err, skills.ErrUnconfigured)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string]string{}}
}

func (c *mapCache) GetResponse(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) SetResponse(ctx context.Context, key, response string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = response
	c.sets++
	return nil
}

type countingModel struct {
	calls int
	reply string
}

func (m *countingModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	return m.reply, nil
}

func TestCachedModelServesRepeatedPrompts(t *testing.T) {
	next := &countingModel{reply: "```json\n{\"tools\": [\"Docker\"]}\n```"}
	cache := newMapCache()
	model := NewCachedModel(next, cache, "gemini-2.5-flash", time.Hour)

	for i := 0; i < 3; i++ {
		out, err := model.Generate(context.Background(), "same prompt")
		require.NoError(t, err)
		assert.Equal(t, next.reply, out)
	}

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, cache.sets)
	assert.True(t, model.Configured())
}

func TestCachedModelSkipsMalformedResponses(t *testing.T) {
	next := &countingModel{reply: "no json here"}
	cache := newMapCache()
	model := NewCachedModel(next, cache, "gemini-2.5-flash", time.Hour)

	_, _ = model.Generate(context.Background(), "prompt")
	_, _ = model.Generate(context.Background(), "prompt")

	assert.Equal(t, 2, next.calls)
	assert.Zero(t, cache.sets)
}

func TestCachedModelReportsInnerConfiguration(t *testing.T) {
	inner := NewClient(config.LLMConfig{Model: "gemini-2.5-flash"})
	model := NewCachedModel(inner, newMapCache(), inner.Model(), time.Hour)

	assert.False(t, model.Configured())
}

func TestCachedModelLookupDoesNotCallModel(t *testing.T) {
	next := &countingModel{reply: `{"tools": ["Docker"]}`}
	model := NewCachedModel(next, newMapCache(), "gemini-2.5-flash", time.Hour)

	_, hit := model.Lookup(context.Background(), "prompt")
	assert.False(t, hit)
	assert.Zero(t, next.calls)

	_, err := model.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	out, hit := model.Lookup(context.Background(), "prompt")
	assert.True(t, hit)
	assert.Equal(t, next.reply, out)
	assert.Equal(t, 1, next.calls)

	other := NewCachedModel(next, newMapCache(), "gemini-2.0-pro", time.Hour)
	_, hit = other.Lookup(context.Background(), "prompt")
	assert.False(t, hit)
}
