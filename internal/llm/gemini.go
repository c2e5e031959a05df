package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/mkarjala/curio/internal/schema"
)

const geminiModel = "gemini-3-flash-preview"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.50 // $0.50 per 1M input tokens (text/image/video)
	geminiOutputPricePerMillion = 3.00 // $3.00 per 1M output tokens (including thinking)
)

// GeminiInvoker executes model invocations against Google's Gemini API.
type GeminiInvoker struct {
	client *genai.Client
}

// NewGeminiInvoker creates a Gemini-backed invoker.
// It uses the GEMINI_API_KEY environment variable for authentication.
func NewGeminiInvoker(ctx context.Context) (*GeminiInvoker, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiInvoker{client: client}, nil
}

// Invoke implements the Invoker interface. With a schema the response is
// validated against the preset's required fields before it is returned;
// without one the raw model text is handed back as-is.
func (g *GeminiInvoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
	}
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	var config *genai.GenerateContentConfig
	if req.Schema != nil {
		config = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema.GenAI(),
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no response from Gemini", ErrEmptyModelOutput)
	}

	text := result.Text()

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens)
	}

	schemaName := "none"
	if req.Schema != nil {
		schemaName = req.Schema.Name
	}
	log.Info().
		Str("model", geminiModel).
		Str("schema", schemaName).
		Int("imageCount", len(req.Images)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("model invocation")

	if req.Schema == nil {
		return &Result{Text: text, Usage: usage}, nil
	}

	structured, err := conformStructured(req.Schema, text)
	if err != nil {
		return nil, err
	}
	return &Result{Structured: structured, Usage: usage}, nil
}

// conformStructured checks a schema-constrained response against the preset's
// required-field contract.
func conformStructured(preset *schema.Preset, text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyModelOutput
	}
	raw := []byte(trimmed)
	if err := preset.Validate(raw); err != nil {
		log.Warn().Str("schema", preset.Name).Str("response", trimmed).Msg("nonconforming structured output")
		return nil, fmt.Errorf("%w: %v", ErrModelOutputInvalid, err)
	}
	return raw, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}
