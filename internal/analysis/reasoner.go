package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/angadjosan/Claimd/internal/models"
)

// noDocumentsNote is inserted into the reasoning prompt when the application
// has no uploaded documents, so the model does not invent extracted data.
const noDocumentsNote = "No documents were uploaded for this application. " +
	"Base your analysis on the application data alone and note the absence " +
	"of supporting documentation under missing information."

// ReasoningResult is the parsed output of the reasoning stage. Raw holds the
// full model output after identity backfill, suitable for persisting verbatim.
type ReasoningResult struct {
	ApplicationID         string         `json:"application_id"`
	SubmissionDate        string         `json:"submission_date,omitempty"`
	OverallRecommendation string         `json:"overall_recommendation"`
	ConfidenceScore       float64        `json:"confidence_score"`
	Summary               string         `json:"summary"`
	Phases                map[string]any `json:"phases"`
	MissingInformation    []string       `json:"missing_information,omitempty"`
	SuggestedActions      []string       `json:"suggested_actions,omitempty"`

	Raw map[string]any `json:"-"`
}

// Reasoner runs the eligibility-reasoning stage over the application record
// and the extraction stage's output.
type Reasoner struct {
	client    CompletionClient
	maxTokens int
	retry     RetryPolicy
	logger    *slog.Logger
}

// NewReasoner creates a reasoning stage backed by the given client.
func NewReasoner(client CompletionClient, maxTokens int, retry RetryPolicy, logger *slog.Logger) *Reasoner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reasoner{
		client:    client,
		maxTokens: maxTokens,
		retry:     retry,
		logger:    logger,
	}
}

// Reason evaluates the application against the rules. extracted may be nil
// when the application had no documents. The application id and submission
// date in the result always come from the application record, never from the
// model.
func (r *Reasoner) Reason(ctx context.Context, app *models.Application, extracted map[string]any) (*ReasoningResult, error) {
	prompt, err := buildReasoningPrompt(app, extracted)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	err = r.retry.Do(ctx, "reason", func() error {
		response, err := r.client.Complete(ctx, prompt, nil, r.maxTokens)
		if err != nil {
			return fmt.Errorf("reasoning completion: %w", err)
		}

		parsed, err := parseJSONObject(response)
		if err != nil {
			return fmt.Errorf("reasoning output: %w", err)
		}
		raw = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Identity fields are authoritative from the record, not the model.
	raw["application_id"] = models.RecordIDText(app.ID)
	if app.SubmittedAt != nil {
		raw["submission_date"] = app.SubmittedAt.Format("2006-01-02")
	}

	result, err := decodeReasoningResult(raw)
	if err != nil {
		return nil, err
	}

	r.logger.Info("reasoning complete",
		"application_id", result.ApplicationID,
		"recommendation", result.OverallRecommendation,
		"confidence", result.ConfidenceScore)
	return result, nil
}

func decodeReasoningResult(raw map[string]any) (*ReasoningResult, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode reasoning output: %w", err)
	}

	var result ReasoningResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode reasoning output: %w", err)
	}
	if result.OverallRecommendation == "" {
		return nil, fmt.Errorf("reasoning output missing overall_recommendation")
	}
	result.Raw = raw
	return &result, nil
}

func buildReasoningPrompt(app *models.Application, extracted map[string]any) (string, error) {
	appData, err := json.MarshalIndent(app, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode application: %w", err)
	}

	var b strings.Builder
	b.WriteString(ReasoningPrompt)

	writeSection(&b, "application_schema.json", ApplicationSchema)
	writeSection(&b, "extraction_schema.json", ExtractionSchema)
	writeSection(&b, "reasoning_output_schema.json", ReasoningOutputSchema)
	writeSection(&b, "Application data", string(appData))

	b.WriteString("\n\n## rules.md\n\n")
	b.WriteString(Rules)

	b.WriteString("\n\n## Extracted document data\n\n")
	if extracted == nil {
		b.WriteString(noDocumentsNote)
		b.WriteString("\n")
	} else {
		extractedData, err := json.MarshalIndent(extracted, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode extracted data: %w", err)
		}
		b.WriteString("```json\n")
		b.Write(extractedData)
		b.WriteString("\n```\n")
	}

	return b.String(), nil
}

func writeSection(b *strings.Builder, name, content string) {
	b.WriteString("\n\n## ")
	b.WriteString(name)
	b.WriteString("\n\n```json\n")
	b.WriteString(content)
	b.WriteString("\n```\n")
}
