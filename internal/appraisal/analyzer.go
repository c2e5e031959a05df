package appraisal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mkarjala/curio/internal/llm"
	"github.com/mkarjala/curio/internal/schema"
)

const appraisalPrompt = `You are an expert appraiser of secondhand goods, antiques and collectibles. Analyze the attached photo and produce a structured appraisal of the item it shows.

Be specific: name the item precisely, estimate a realistic resale value range, explain your reasoning, and note any comparable sales you are aware of.`

const appraisalRawTextPrompt = `You are an expert appraiser of secondhand goods, antiques and collectibles. Analyze the attached photo and produce a structured appraisal of the item it shows.

Respond in JSON format with these fields:
%s
Respond ONLY with the JSON object, no markdown or other text.`

// Analyzer orchestrates appraisal and bundling invocations against a model.
type Analyzer struct {
	invoker llm.Invoker
}

// NewAnalyzer creates an analyzer backed by the given invoker.
func NewAnalyzer(invoker llm.Invoker) *Analyzer {
	return &Analyzer{invoker: invoker}
}

// Appraise analyzes one image and returns a fully populated appraisal record.
// The invocation is schema-constrained, so a returned record is guaranteed to
// carry every required field. Single attempt; any failure is terminal.
func (a *Analyzer) Appraise(ctx context.Context, img llm.ImageBlob) (*Record, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("no image provided")
	}

	result, err := a.invoker.Invoke(ctx, llm.Request{
		Prompt: appraisalPrompt,
		Images: []llm.ImageBlob{img},
		Schema: schema.AppraisalRich,
	})
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(result.Structured, &record); err != nil {
		return nil, fmt.Errorf("failed to decode appraisal: %w", err)
	}

	log.Info().
		Str("descriptiveName", record.DescriptiveName).
		Str("low", record.EstimatedValueRange.Low).
		Str("high", record.EstimatedValueRange.High).
		Strs("tags", record.Tags).
		Msg("appraisal complete")

	return &record, nil
}

// AppraiseRawText analyzes one image without a native response schema: the
// model returns free text which is fence-stripped and parsed as JSON. The
// parsed value is accepted as-is, with no required-field validation; a
// missing field surfaces only when a consumer reaches for it.
func (a *Analyzer) AppraiseRawText(ctx context.Context, img llm.ImageBlob) (*Record, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("no image provided")
	}

	result, err := a.invoker.Invoke(ctx, llm.Request{
		Prompt: fmt.Sprintf(appraisalRawTextPrompt, schema.AppraisalRich.Guidance()),
		Images: []llm.ImageBlob{img},
	})
	if err != nil {
		return nil, err
	}

	raw, err := llm.ExtractJSON(result.Text)
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		log.Error().Str("response", result.Text).Err(err).Msg("model JSON does not decode as an appraisal")
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedModelJSON, err)
	}

	return &record, nil
}

// AppraiseSimple analyzes one image with the earlier valuation-label preset.
func (a *Analyzer) AppraiseSimple(ctx context.Context, img llm.ImageBlob) (*SimpleRecord, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("no image provided")
	}

	result, err := a.invoker.Invoke(ctx, llm.Request{
		Prompt: appraisalPrompt,
		Images: []llm.ImageBlob{img},
		Schema: schema.AppraisalSimple,
	})
	if err != nil {
		return nil, err
	}

	var record SimpleRecord
	if err := json.Unmarshal(result.Structured, &record); err != nil {
		return nil, fmt.Errorf("failed to decode appraisal: %w", err)
	}

	return &record, nil
}
