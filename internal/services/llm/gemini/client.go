package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/killallgit/course-api/internal/services/llm"
	"github.com/killallgit/course-api/internal/services/prompts"
	apperrors "github.com/killallgit/course-api/pkg/errors"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// Config holds Gemini client settings
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Profiles    map[string]string // intent -> model
}

// contentStreamer is the slice of genai.Models the client uses
type contentStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client implements llm.Generator for Google Gemini
type Client struct {
	models      contentStreamer
	modelName   string
	profiles    map[string]string
	temperature float32

	mu sync.RWMutex
}

var _ llm.Generator = (*Client)(nil)

// NewClient creates a new Gemini client. A missing API key yields a client
// whose Generate always fails, so the server can still start.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	c := &Client{
		modelName:   cfg.Model,
		profiles:    cfg.Profiles,
		temperature: cfg.Temperature,
	}
	if c.modelName == "" {
		c.modelName = defaultModel
	}

	if cfg.APIKey == "" {
		log.Printf("[WARN] Gemini API key not configured, generation is disabled")
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

// resolveModel returns the target model name and configuration for a prompt
func (c *Client) resolveModel(p *prompts.Prompt) (string, *genai.GenerateContentConfig) {
	model := c.modelName
	if profileModel, ok := c.profiles[p.Intent]; ok && profileModel != "" {
		model = profileModel
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   p.Schema,
	}
	if c.temperature > 0 {
		temp := c.temperature
		config.Temperature = &temp
	}
	return model, config
}

// Generate streams a JSON completion for p, reporting each text chunk to
// onPartial, and returns the assembled value once the stream ends
func (c *Client) Generate(ctx context.Context, p *prompts.Prompt, onPartial llm.PartialFunc) (json.RawMessage, error) {
	c.mu.RLock()
	models := c.models
	c.mu.RUnlock()

	if models == nil {
		return nil, apperrors.GenerationError("generation service not configured", nil)
	}

	model, config := c.resolveModel(p)
	log.Printf("[DEBUG] Gemini generate: prompt=%s model=%s chars=%d", p.Name, model, len(p.Text))

	var sb strings.Builder
	for resp, err := range models.GenerateContentStream(ctx, model, genai.Text(p.Text), config) {
		if err != nil {
			return nil, classifyError(ctx, err)
		}
		chunk := responseText(resp)
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if onPartial != nil {
			onPartial(chunk)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned := llm.CleanJSONBlock(sb.String())
	if cleaned == "" {
		return nil, apperrors.GenerationError("model returned an empty response", nil)
	}
	if !json.Valid([]byte(cleaned)) {
		log.Printf("[WARN] Gemini returned malformed JSON for %s (%d bytes)", p.Name, len(cleaned))
		return nil, apperrors.GenerationError("model returned malformed JSON", nil)
	}

	log.Printf("[DEBUG] Gemini generate complete: prompt=%s bytes=%d", p.Name, len(cleaned))
	return json.RawMessage(cleaned), nil
}

// classifyError maps SDK failures onto application errors. Context errors
// pass through untouched so callers can tell cancellation from failure.
func classifyError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return apperrors.UpstreamFetchError("gemini", "rate limited", err)
		case http.StatusBadRequest:
			return apperrors.GenerationError("generation request rejected", err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.GenerationError("generation service unauthorized", err)
		}
		if apiErr.Code >= 500 {
			return apperrors.UpstreamFetchError("gemini", "generation service unavailable", err)
		}
	}
	return apperrors.GenerationError("generation failed", err)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
