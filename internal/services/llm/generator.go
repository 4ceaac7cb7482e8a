package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/killallgit/course-api/internal/services/prompts"
)

// PartialFunc receives raw text chunks while a generation is still running
type PartialFunc func(chunk string)

// Generator is the generation capability: given a prompt and response schema
// it returns a complete JSON value or fails. Partial output is only reported
// through onPartial, never returned.
type Generator interface {
	Generate(ctx context.Context, prompt *prompts.Prompt, onPartial PartialFunc) (json.RawMessage, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt *prompts.Prompt, onPartial PartialFunc) (json.RawMessage, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt *prompts.Prompt, onPartial PartialFunc) (json.RawMessage, error) {
	return f(ctx, prompt, onPartial)
}

// CleanJSONBlock removes markdown code fences from a JSON string if present
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
