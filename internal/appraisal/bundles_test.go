package appraisal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarjala/curio/internal/llm"
	"github.com/mkarjala/curio/internal/schema"
)

func clockAndMirror() []Record {
	return []Record{
		{
			DescriptiveName:     "Vintage Clock",
			EstimatedValueRange: ValueRange{Low: "$80", High: "$120"},
			Reasoning:           "Working mid-century mantel clock.",
			Tags:                []string{"vintage", "clock", "decor"},
		},
		{
			DescriptiveName:     "Antique Mirror",
			EstimatedValueRange: ValueRange{Low: "$150", High: "$200"},
			Reasoning:           "Gilded frame in good condition.",
			Tags:                []string{"antique", "mirror", "decor"},
		},
	}
}

func TestSuggestBundlesShortCircuitsBelowTwoItems(t *testing.T) {
	invoker := &stubInvoker{}
	analyzer := NewAnalyzer(invoker)

	bundles, err := analyzer.SuggestBundles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, bundles)

	bundles, err = analyzer.SuggestBundles(context.Background(), clockAndMirror()[:1])
	require.NoError(t, err)
	assert.Empty(t, bundles)

	// The model is never invoked for fewer than 2 items.
	assert.Equal(t, 0, invoker.invocations)
}

func TestSuggestBundlesReferencesItemsByName(t *testing.T) {
	invoker := &stubInvoker{result: &llm.Result{Structured: json.RawMessage(`[
		{
			"bundleName": "Timeless Decor Duo",
			"description": "A clock and mirror that dress up any hallway together.",
			"itemNames": ["Vintage Clock", "Antique Mirror"]
		}
	]`)}}
	analyzer := NewAnalyzer(invoker)

	bundles, err := analyzer.SuggestBundles(context.Background(), clockAndMirror())
	require.NoError(t, err)

	require.Len(t, bundles, 1)
	assert.Contains(t, bundles[0].ItemNames, "Vintage Clock")
	assert.Contains(t, bundles[0].ItemNames, "Antique Mirror")

	require.Equal(t, 1, invoker.invocations)
	req := invoker.requests[0]
	assert.Same(t, schema.Bundles, req.Schema)
	assert.Empty(t, req.Images)
}

func TestSuggestBundlesPromptExposesEveryField(t *testing.T) {
	invoker := &stubInvoker{result: &llm.Result{Structured: json.RawMessage(`[
		{"bundleName": "Duo", "description": "Pair.", "itemNames": ["Vintage Clock", "Antique Mirror"]}
	]`)}}
	analyzer := NewAnalyzer(invoker)

	_, err := analyzer.SuggestBundles(context.Background(), clockAndMirror())
	require.NoError(t, err)

	prompt := invoker.requests[0].Prompt
	assert.Contains(t, prompt, "Vintage Clock")
	assert.Contains(t, prompt, "$80 - $120")
	assert.Contains(t, prompt, "Working mid-century mantel clock.")
	assert.Contains(t, prompt, "vintage, clock, decor")
	assert.Contains(t, prompt, "Antique Mirror")
}

func TestSuggestBundlesDropsSingleItemSuggestions(t *testing.T) {
	invoker := &stubInvoker{result: &llm.Result{Structured: json.RawMessage(`[
		{"bundleName": "Just The Clock", "description": "Not really a bundle.", "itemNames": ["Vintage Clock"]},
		{"bundleName": "Decor Duo", "description": "A proper pair.", "itemNames": ["Vintage Clock", "Antique Mirror"]}
	]`)}}
	analyzer := NewAnalyzer(invoker)

	bundles, err := analyzer.SuggestBundles(context.Background(), clockAndMirror())
	require.NoError(t, err)

	require.Len(t, bundles, 1)
	assert.Equal(t, "Decor Duo", bundles[0].BundleName)
	for _, b := range bundles {
		assert.GreaterOrEqual(t, len(b.ItemNames), 2)
	}
}

func TestSuggestBundlesEmptyModelOutput(t *testing.T) {
	invoker := &stubInvoker{result: &llm.Result{Structured: json.RawMessage(`[]`)}}
	analyzer := NewAnalyzer(invoker)

	_, err := analyzer.SuggestBundles(context.Background(), clockAndMirror())
	assert.ErrorIs(t, err, llm.ErrEmptyModelOutput)
}

func TestSuggestBundlesOnlySingleItemSuggestionsIsEmptyOutput(t *testing.T) {
	invoker := &stubInvoker{result: &llm.Result{Structured: json.RawMessage(`[
		{"bundleName": "Just The Clock", "description": "Not a bundle.", "itemNames": ["Vintage Clock"]},
		{"bundleName": "Just The Mirror", "description": "Also not a bundle.", "itemNames": ["Antique Mirror"]}
	]`)}}
	analyzer := NewAnalyzer(invoker)

	// Dropping every suggestion must not look like the short-circuit for
	// too few items: an empty result from a model call is an error.
	bundles, err := analyzer.SuggestBundles(context.Background(), clockAndMirror())
	assert.ErrorIs(t, err, llm.ErrEmptyModelOutput)
	assert.Nil(t, bundles)
}

func TestSuggestBundlesPropagatesInvokerError(t *testing.T) {
	invoker := &stubInvoker{err: llm.ErrEmptyModelOutput}
	analyzer := NewAnalyzer(invoker)

	_, err := analyzer.SuggestBundles(context.Background(), clockAndMirror())
	assert.ErrorIs(t, err, llm.ErrEmptyModelOutput)
	assert.Equal(t, 1, invoker.invocations)
}
