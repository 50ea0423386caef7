// Package llm provides the completion gateway used by the analysis pipeline.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/angadjosan/Claimd/internal/config"
)

// Document is a binary attachment embedded in a completion request.
type Document struct {
	Data      []byte
	MediaType string
}

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm            llms.Model
	modelName      string
	requestTimeout time.Duration
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:            model,
		modelName:      cfg.LLMModel,
		requestTimeout: cfg.LLMRequestTimeout,
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Complete sends one request containing zero or more binary documents followed
// by the prompt text, and returns the complete response text. The request is
// bounded by the configured timeout; a timeout surfaces as an ordinary
// (retryable) error.
func (m *Model) Complete(ctx context.Context, prompt string, docs []Document, maxTokens int) (string, error) {
	if m.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.requestTimeout)
		defer cancel()
	}

	parts := make([]llms.ContentPart, 0, len(docs)+1)
	for _, doc := range docs {
		parts = append(parts, llms.BinaryPart(doc.MediaType, doc.Data))
	}
	parts = append(parts, llms.TextPart(prompt))

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages, llms.WithMaxTokens(maxTokens))
	duration := time.Since(start)

	if err != nil {
		slog.Warn("completion failed", "model", m.modelName, "docs", len(docs), "duration_ms", duration.Milliseconds(), "error", err)
		return "", wrapFatalError(fmt.Errorf("generate content: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	slog.Debug("completion complete", "model", m.modelName, "docs", len(docs), "duration_ms", duration.Milliseconds())
	return response.Choices[0].Content, nil
}
