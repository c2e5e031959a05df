package appraisal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mkarjala/curio/internal/llm"
	"github.com/mkarjala/curio/internal/schema"
)

const bundlesPrompt = `You are a master merchandiser and sales strategist for an online marketplace.
You have been given a list of items from a seller's inventory. Your task is to identify and suggest compelling product bundles that are likely to increase the average order value.

Analyze the following inventory. Focus on items that are thematically related, complementary, or could be marketed together to create a more attractive offer than selling them individually.

For each bundle you suggest, provide a catchy name, a description of why the items work well together, and the exact names of the items to include. Only suggest bundles with 2 or more items.

Here is the list of available items:
%s`

// SuggestBundles asks the model to propose cross-item bundles over the given
// appraisal records. With fewer than 2 records an empty list is returned
// without invoking the model; callers may rely on that. Every returned
// suggestion references at least 2 item names.
func (a *Analyzer) SuggestBundles(ctx context.Context, records []Record) ([]Bundle, error) {
	if len(records) < 2 {
		return []Bundle{}, nil
	}

	result, err := a.invoker.Invoke(ctx, llm.Request{
		Prompt: fmt.Sprintf(bundlesPrompt, formatInventory(records)),
		Schema: schema.Bundles,
	})
	if err != nil {
		return nil, err
	}

	var suggestions []Bundle
	if err := json.Unmarshal(result.Structured, &suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode bundle suggestions: %w", err)
	}

	if len(suggestions) == 0 {
		return nil, fmt.Errorf("%w: model returned no bundle suggestions", llm.ErrEmptyModelOutput)
	}

	bundles := suggestions[:0]
	for _, s := range suggestions {
		if len(s.ItemNames) < 2 {
			log.Warn().Str("bundleName", s.BundleName).Strs("itemNames", s.ItemNames).Msg("dropping bundle with fewer than 2 items")
			continue
		}
		bundles = append(bundles, s)
	}
	if len(bundles) == 0 {
		return nil, fmt.Errorf("%w: model returned only bundles with fewer than 2 items", llm.ErrEmptyModelOutput)
	}

	log.Info().Int("itemCount", len(records)).Int("bundleCount", len(bundles)).Msg("bundle suggestions complete")

	return bundles, nil
}

// formatInventory renders every record field the model needs to reason about
// thematic or complementary grouping.
func formatInventory(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "- Item: %s\n", r.DescriptiveName)
		fmt.Fprintf(&b, "  - Estimated value: %s - %s\n", r.EstimatedValueRange.Low, r.EstimatedValueRange.High)
		fmt.Fprintf(&b, "  - Reasoning: %s\n", r.Reasoning)
		fmt.Fprintf(&b, "  - Tags: %s\n", strings.Join(r.Tags, ", "))
	}
	return b.String()
}
