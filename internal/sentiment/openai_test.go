package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/straye-as/success-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newChatServer answers every chat completion with content
func newChatServer(t *testing.T, content string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(&config.SentimentConfig{
		OpenAIKey:   "test-key",
		BaseURL:     baseURL,
		Timeout:     5,
		MaxTextSize: 100,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(&config.SentimentConfig{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestAnalyze_ParsesReply(t *testing.T) {
	var body map[string]interface{}
	srv := newChatServer(t, `{"score": -0.6, "magnitude": 1.2, "label": "negative", "summary": "Frustrated", "language": "de"}`, &body)
	client := newTestClient(t, srv.URL)

	result, err := client.Analyze(context.Background(), "The rollout has been a disaster")
	require.NoError(t, err)

	assert.InDelta(t, -0.6, result.Score, 1e-9)
	require.NotNil(t, result.Magnitude)
	assert.InDelta(t, 1.2, *result.Magnitude, 1e-9)
	assert.Equal(t, "negative", result.Label)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "Frustrated", *result.Summary)
	assert.Equal(t, "de", result.Language)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
}

func TestAnalyze_FencedReplyAndClamp(t *testing.T) {
	srv := newChatServer(t, "```json\n{\"score\": 4}\n```", nil)
	client := newTestClient(t, srv.URL)

	result, err := client.Analyze(context.Background(), "Best vendor ever")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, "", result.Label)
	assert.Equal(t, "en", result.Language)
}

func TestAnalyze_UnparsableReplyFallsBack(t *testing.T) {
	srv := newChatServer(t, "I think the customer is mostly fine.", nil)
	client := newTestClient(t, srv.URL)

	result, err := client.Analyze(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, "neutral", result.Label)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "Unable to parse", *result.Summary)
	assert.Equal(t, "en", result.Language)
}

func TestAnalyze_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Analyze(context.Background(), "hello")
	assert.Error(t, err)
}

func TestDraftFollowUp(t *testing.T) {
	var body map[string]interface{}
	srv := newChatServer(t, "Hi Anna, thanks for the call.", &body)
	client := newTestClient(t, srv.URL)

	text, err := client.DraftFollowUp(context.Background(), map[string]interface{}{"account": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Anna, thanks for the call.", text)

	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]interface{})
	assert.Equal(t, followUpSystemPrompt, system["content"])
	user := messages[1].(map[string]interface{})
	assert.Contains(t, user["content"], `"account":"Acme"`)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Analyze(context.Background(), "x")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	_, err = Unavailable{}.DraftFollowUp(context.Background(), nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"no limit", "hello", 0, "hello"},
		{"ascii cut", "hello world", 5, "hello"},
		{"backs off a split character", "abcæøå", 4, "abc"},
		{"keeps a whole character at the edge", "abcæøå", 5, "abcæ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateText(tt.text, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestAnalyze_TruncatesOnCharacterBoundary(t *testing.T) {
	var body map[string]interface{}
	srv := newChatServer(t, `{"score": 0.1}`, &body)
	client := newTestClient(t, srv.URL)

	text := strings.Repeat("a", 99) + "øøø"
	_, err := client.Analyze(context.Background(), text)
	require.NoError(t, err)

	messages := body["messages"].([]interface{})
	prompt := messages[len(messages)-1].(map[string]interface{})["content"].(string)
	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, strings.Repeat("a", 99)+"\n")
}
