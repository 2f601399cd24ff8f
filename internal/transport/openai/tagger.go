package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bitaca/mediadex/internal/domain"
	"github.com/bitaca/mediadex/internal/metrics"
)

const (
	taggingTemperature = 0.3
	taggingMaxTokens   = 500
)

const taggingSystemPrompt = "You are a media cataloging assistant. " +
	"Respond with a single JSON object and nothing else."

// Tagger generates categorized smart tags via a chat completion model.
type Tagger struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// TaggerConfig holds the tagging provider settings.
type TaggerConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewTagger creates an OpenAI-compatible tagging provider.
func NewTagger(cfg *TaggerConfig) *Tagger {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Tagger{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Tag implements domain.Tagger. Any failure is wrapped with
// domain.ErrTaggingDegraded so callers can substitute default tags.
func (t *Tagger) Tag(ctx context.Context, title, description string) (domain.SmartTags, error) {
	req := openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: taggingTemperature,
		MaxTokens:   taggingMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: taggingSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: taggingUserPrompt(title, description)},
		},
	}

	start := time.Now()

	resp, err := t.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.TaggingRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		return domain.SmartTags{}, fmt.Errorf("tagging request: %v: %w", err, domain.ErrTaggingDegraded)
	}
	if len(resp.Choices) == 0 {
		metrics.TaggingRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		return domain.SmartTags{}, fmt.Errorf("empty tagging response: %w", domain.ErrTaggingDegraded)
	}

	tags, err := parseTagResponse(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.TaggingRequestsTotal.WithLabelValues(t.provider, t.model, "degraded").Inc()
		t.logger.Warn("Unparseable tagging response",
			zap.String("title", title),
			zap.Error(err))
		return domain.SmartTags{}, fmt.Errorf("parse tags: %v: %w", err, domain.ErrTaggingDegraded)
	}

	metrics.TaggingRequestsTotal.WithLabelValues(t.provider, t.model, "success").Inc()
	metrics.TaggingRequestDuration.WithLabelValues(t.provider, t.model).Observe(duration.Seconds())

	return tags, nil
}

func taggingUserPrompt(title, description string) string {
	var b strings.Builder
	b.WriteString("Categorize this title for search. Title: ")
	b.WriteString(title)
	if description != "" {
		b.WriteString("\nDescription: ")
		b.WriteString(description)
	}
	b.WriteString("\n\nReturn JSON with keys: genres, themes, mood, target_audience, style. " +
		"Each value is an array of short lowercase strings.")
	return b.String()
}

// parseTagResponse extracts the JSON object from the model output. Models
// sometimes wrap the object in prose or code fences, so we cut to the
// outermost braces before decoding.
func parseTagResponse(content string) (domain.SmartTags, error) {
	open := strings.Index(content, "{")
	close_ := strings.LastIndex(content, "}")
	if open < 0 || close_ <= open {
		return domain.SmartTags{}, fmt.Errorf("no JSON object in response")
	}

	var tags domain.SmartTags
	if err := json.Unmarshal([]byte(content[open:close_+1]), &tags); err != nil {
		return domain.SmartTags{}, fmt.Errorf("decode tags: %w", err)
	}
	if len(tags.Genres) == 0 {
		return domain.SmartTags{}, fmt.Errorf("response carries no genres")
	}
	return tags, nil
}
