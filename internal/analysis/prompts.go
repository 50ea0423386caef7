package analysis

import _ "embed"

// Prompt and schema assets shipped with the binary. The reasoning prompt
// references the schemas by filename, so the filenames here must stay in
// sync with the prompt text.
var (
	//go:embed prompts/extractor_prompt.md
	ExtractorPrompt string

	//go:embed prompts/reasoning_prompt.md
	ReasoningPrompt string

	//go:embed prompts/rules.md
	Rules string

	//go:embed schemas/application_schema.json
	ApplicationSchema string

	//go:embed schemas/extraction_schema.json
	ExtractionSchema string

	//go:embed schemas/reasoning_output_schema.json
	ReasoningOutputSchema string
)
