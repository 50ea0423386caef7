package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/angadjosan/Claimd/internal/llm"
)

// CompletionClient is the slice of the LLM gateway the pipeline depends on.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, docs []llm.Document, maxTokens int) (string, error)
}

// Extractor runs the document-extraction stage: all of an application's
// uploaded documents go into a single completion request, and the model
// answers with structured data conforming to the extraction schema.
type Extractor struct {
	client    CompletionClient
	maxTokens int
	retry     RetryPolicy
	logger    *slog.Logger
}

// NewExtractor creates an extraction stage backed by the given client.
func NewExtractor(client CompletionClient, maxTokens int, retry RetryPolicy, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client:    client,
		maxTokens: maxTokens,
		retry:     retry,
		logger:    logger,
	}
}

// Extract sends the documents through the extraction prompt and returns the
// parsed result. A malformed model response counts as a failed attempt and is
// retried under the stage's retry policy.
func (e *Extractor) Extract(ctx context.Context, docs []llm.Document) (map[string]any, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("extract: no documents")
	}

	prompt := buildExtractionPrompt()

	var result map[string]any
	err := e.retry.Do(ctx, "extract", func() error {
		response, err := e.client.Complete(ctx, prompt, docs, e.maxTokens)
		if err != nil {
			return fmt.Errorf("extraction completion: %w", err)
		}

		parsed, err := parseJSONObject(response)
		if err != nil {
			return fmt.Errorf("extraction output: %w", err)
		}
		result = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("extraction complete", "documents", len(docs), "fields", len(result))
	return result, nil
}

func buildExtractionPrompt() string {
	var b strings.Builder
	b.WriteString(ExtractorPrompt)
	b.WriteString("\n\n## extraction_schema.json\n\n```json\n")
	b.WriteString(ExtractionSchema)
	b.WriteString("\n```\n")
	return b.String()
}
