// Package llm answers FAQ questions with an OpenAI-compatible chat model.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/config"
	"github.com/relaydesk/live-chat/internal/domain"
)

// NotSure is the reply the model is told to give when the FAQ does not
// cover a question.
const NotSure = "I'm not sure."

// Completer is the part of the OpenAI client the FAQ responder uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// FAQClient prompts a chat model with the FAQ list as context.
type FAQClient struct {
	api         Completer
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// New builds a client against the configured endpoint.
func New(cfg config.LLMConfig, logger *zap.Logger) *FAQClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout()}
	return NewWithCompleter(openai.NewClientWithConfig(clientCfg), cfg, logger)
}

// NewWithCompleter wraps an existing completer.
func NewWithCompleter(api Completer, cfg config.LLMConfig, logger *zap.Logger) *FAQClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 100
	}
	return &FAQClient{
		api:         api,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		logger:      logger.With(zap.String("component", "faq_llm"), zap.String("model", model)),
	}
}

// Reply returns the model's answer to question, trimmed. An empty string
// means the model produced nothing.
func (c *FAQClient) Reply(ctx context.Context, entries []domain.FAQEntry, question string) (string, error) {
	started := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(entries)},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	c.logger.Debug("faq completion",
		zap.Duration("took", time.Since(started)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func systemPrompt(entries []domain.FAQEntry) string {
	var b strings.Builder
	b.WriteString("You are a customer support chatbot. Here are some frequently asked questions:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", e.Question, e.Answer)
	}
	fmt.Fprintf(&b, "Answer only from these FAQs, briefly. If they do not cover the question, reply exactly %q", NotSure)
	return b.String()
}
