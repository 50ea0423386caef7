package analysis

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "json fence",
			text: "Here is the result:\n```json\n{\"a\": 1}\n```\nDone.",
			want: `{"a": 1}`,
		},
		{
			name: "plain fence",
			text: "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "raw json",
			text: "  {\"a\": 1}  ",
			want: `{"a": 1}`,
		},
		{
			name: "output tags",
			text: "preamble <START_OUTPUT>{\"a\": 1}<END_OUTPUT> postamble",
			want: `{"a": 1}`,
		},
		{
			name: "output tags with fence inside",
			text: "<START_OUTPUT>```json\n{\"a\": 1}\n```<END_OUTPUT>",
			want: `{"a": 1}`,
		},
		{
			name: "output tags win over outer fence",
			text: "```json\n{\"wrong\": true}\n```\n<START_OUTPUT>{\"a\": 1}<END_OUTPUT>",
			want: `{"a": 1}`,
		},
		{
			name: "json fence wins over plain fence",
			text: "```\n{\"wrong\": true}\n```\n```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "unterminated fence",
			text: "```json\n{\"a\": 1}",
			want: `{"a": 1}`,
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.text)
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		result, err := parseJSONObject("```json\n{\"recommendation\": \"DENY\"}\n```")
		if err != nil {
			t.Fatalf("parseJSONObject() error = %v", err)
		}
		if result["recommendation"] != "DENY" {
			t.Errorf("recommendation = %v, want DENY", result["recommendation"])
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseJSONObject("not json at all"); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})

	t.Run("array is not an object", func(t *testing.T) {
		if _, err := parseJSONObject("[1, 2, 3]"); err == nil {
			t.Error("expected error for non-object JSON")
		}
	})
}
