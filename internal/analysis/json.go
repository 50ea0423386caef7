// Package analysis implements the two-stage AI pipeline: document extraction
// followed by eligibility reasoning.
package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	outputTagRe     = regexp.MustCompile(`(?s)<START_OUTPUT>(.*?)<END_OUTPUT>`)
	leadingFenceRe  = regexp.MustCompile("^```(?:json)?[ \t]*\n?")
	trailingFenceRe = regexp.MustCompile("\n?[ \t]*```$")
)

// ExtractJSON locates the JSON payload inside a model response.
//
// Precedence order:
//  1. an explicit <START_OUTPUT>...<END_OUTPUT> span (fences inside it are
//     stripped),
//  2. a ```json fenced block,
//  3. any fenced block,
//  4. the raw text.
//
// Model output is not deterministic, so every path trims surrounding
// whitespace and the caller is expected to retry on a parse failure.
func ExtractJSON(text string) string {
	if m := outputTagRe.FindStringSubmatch(text); m != nil {
		span := strings.TrimSpace(m[1])
		span = leadingFenceRe.ReplaceAllString(span, "")
		span = trailingFenceRe.ReplaceAllString(span, "")
		return strings.TrimSpace(span)
	}

	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+len("```"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}

	return strings.TrimSpace(text)
}

// parseJSONObject extracts and unmarshals a JSON object from a model response.
func parseJSONObject(text string) (map[string]any, error) {
	payload := ExtractJSON(text)

	var result map[string]any
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	return result, nil
}
