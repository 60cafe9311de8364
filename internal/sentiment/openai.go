// Package sentiment talks to the language model used for text sentiment and
// follow-up drafting.
package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/scoring"
	"go.uber.org/zap"
)

const (
	sentimentSystemPrompt = "You analyze customer success text for sentiment. Return JSON with keys: score (-1..1), magnitude (0..inf), label (negative|neutral|positive), summary, language."
	followUpSystemPrompt  = "You are a Customer Success assistant. Write concise, friendly follow-up emails that are actionable."

	defaultModel       = "gpt-4o-mini"
	defaultLanguage    = "en"
	unparsableSummary  = "Unable to parse"
	defaultTemperature = 0.2
)

// ErrProviderUnavailable is returned when no provider is configured
var ErrProviderUnavailable = errors.New("sentiment provider is not configured")

// Result is the provider's view of a text
type Result struct {
	Score     float64
	Magnitude *float64
	// Label is empty when the provider did not supply one
	Label    string
	Summary  *string
	Language string
}

// Analyzer scores the sentiment of a text
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Result, error)
}

// Drafter writes a follow-up email body from free-form context
type Drafter interface {
	DraftFollowUp(ctx context.Context, details map[string]interface{}) (string, error)
}

// OpenAIClient implements Analyzer and Drafter with chat completions
type OpenAIClient struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	maxTextSize int
	logger      *zap.Logger
}

// NewOpenAIClient builds a client from configuration. BaseURL overrides the
// API endpoint, which also lets tests point at a local server.
func NewOpenAIClient(cfg *config.SentimentConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.OpenAIKey == "" {
		return nil, ErrProviderUnavailable
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		timeout:     cfg.TimeoutDuration(),
		maxTextSize: cfg.MaxTextSize,
		logger:      logger,
	}, nil
}

// Analyze asks the model for a JSON sentiment verdict. A reply that is not
// valid JSON yields a neutral zero score instead of an error.
func (c *OpenAIClient) Analyze(ctx context.Context, text string) (*Result, error) {
	text = truncateText(text, c.maxTextSize)

	content, err := c.complete(ctx, sentimentSystemPrompt, fmt.Sprintf("Text:\n%s\n\nReturn strict JSON.", text))
	if err != nil {
		return nil, err
	}

	result, ok := parseSentiment(content)
	if !ok {
		c.logger.Warn("Unparsable sentiment reply, falling back to neutral",
			zap.Int("reply_length", len(content)))
	}
	return result, nil
}

// DraftFollowUp returns the email body written by the model
func (c *OpenAIClient) DraftFollowUp(ctx context.Context, details map[string]interface{}) (string, error) {
	payload, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("failed to encode follow-up context: %w", err)
	}
	return c.complete(ctx, followUpSystemPrompt, fmt.Sprintf("Context: %s\n\nWrite the email body only.", payload))
}

func (c *OpenAIClient) complete(ctx context.Context, system, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}

	c.logger.Debug("OpenAI completion finished",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

type sentimentReply struct {
	Score     *float64 `json:"score"`
	Magnitude *float64 `json:"magnitude"`
	Label     string   `json:"label"`
	Summary   *string  `json:"summary"`
	Language  string   `json:"language"`
}

// parseSentiment decodes a model reply, tolerating markdown code fences.
// The second return value is false when the fallback result was used.
func parseSentiment(content string) (*Result, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var reply sentimentReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil || reply.Score == nil {
		summary := unparsableSummary
		return &Result{
			Score:    0,
			Label:    "neutral",
			Summary:  &summary,
			Language: defaultLanguage,
		}, false
	}

	language := reply.Language
	if language == "" {
		language = defaultLanguage
	}

	return &Result{
		Score:     scoring.ClampSentiment(*reply.Score),
		Magnitude: reply.Magnitude,
		Label:     reply.Label,
		Summary:   reply.Summary,
		Language:  language,
	}, true
}

// Unavailable is used when no provider is configured. Every call fails with
// ErrProviderUnavailable.
type Unavailable struct{}

func (Unavailable) Analyze(ctx context.Context, text string) (*Result, error) {
	return nil, ErrProviderUnavailable
}

func (Unavailable) DraftFollowUp(ctx context.Context, details map[string]interface{}) (string, error) {
	return "", ErrProviderUnavailable
}

// truncateText cuts text to at most max bytes without splitting a character
func truncateText(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
