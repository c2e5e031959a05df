package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestAppraisalRichGenAISchema(t *testing.T) {
	s := AppraisalRich.GenAI()

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{
		"descriptiveName",
		"estimatedValueRange",
		"reasoning",
		"comparableSales",
		"tags",
		"otherMetadata",
	}, s.Required)
	assert.Equal(t, s.Required, s.PropertyOrdering)

	valueRange := s.Properties["estimatedValueRange"]
	require.NotNil(t, valueRange)
	assert.Equal(t, genai.TypeObject, valueRange.Type)
	assert.ElementsMatch(t, []string{"low", "high"}, valueRange.Required)

	sales := s.Properties["comparableSales"]
	require.NotNil(t, sales)
	assert.Equal(t, genai.TypeArray, sales.Type)
	assert.ElementsMatch(t, []string{"description", "price"}, sales.Items.Required)
}

func TestBundlesGenAISchemaIsArray(t *testing.T) {
	s := Bundles.GenAI()

	require.Equal(t, genai.TypeArray, s.Type)
	require.NotNil(t, s.Items)
	assert.Equal(t, []string{"bundleName", "description", "itemNames"}, s.Items.Required)
}

func TestGuidanceListsEveryField(t *testing.T) {
	guidance := AppraisalRich.Guidance()

	for _, f := range AppraisalRich.Fields {
		assert.Contains(t, guidance, "- "+f.Name+": "+f.Description)
	}
}

func TestValidateConformingAppraisal(t *testing.T) {
	raw := json.RawMessage(`{
		"descriptiveName": "Vintage Clock",
		"estimatedValueRange": {"low": "$80", "high": "$120"},
		"reasoning": "Mid-century mantel clock in working condition.",
		"comparableSales": [{"description": "Similar clock sold on auction", "price": "$95"}],
		"tags": ["vintage", "clock", "decor"],
		"otherMetadata": [{"key": "Material", "value": "Brass"}]
	}`)

	assert.NoError(t, AppraisalRich.Validate(raw))
}

func TestValidateReportsMissingFields(t *testing.T) {
	raw := json.RawMessage(`{
		"descriptiveName": "Vintage Clock",
		"reasoning": "Looks old.",
		"tags": ["vintage"]
	}`)

	err := AppraisalRich.Validate(raw)
	require.Error(t, err)

	var missing *MissingFieldsError
	require.True(t, errors.As(err, &missing))
	assert.ElementsMatch(t, []string{"estimatedValueRange", "comparableSales", "otherMetadata"}, missing.Fields)
}

func TestValidateRejectsPartialValueRange(t *testing.T) {
	raw := json.RawMessage(`{
		"descriptiveName": "Vintage Clock",
		"estimatedValueRange": {"low": "$80"},
		"reasoning": "Looks old.",
		"comparableSales": [],
		"tags": ["vintage"],
		"otherMetadata": []
	}`)

	err := AppraisalRich.Validate(raw)
	require.Error(t, err)

	var missing *MissingFieldsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"estimatedValueRange"}, missing.Fields)
}

func TestValidateRejectsNullField(t *testing.T) {
	raw := json.RawMessage(`{
		"descriptiveName": "Vintage Clock",
		"estimatedValueRange": {"low": "$80", "high": "$120"},
		"reasoning": null,
		"comparableSales": [],
		"tags": ["vintage"],
		"otherMetadata": []
	}`)

	err := AppraisalRich.Validate(raw)
	require.Error(t, err)

	var missing *MissingFieldsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"reasoning"}, missing.Fields)
}

func TestValidateEmptyComparableSalesAllowed(t *testing.T) {
	raw := json.RawMessage(`{
		"descriptiveName": "Vintage Clock",
		"estimatedValueRange": {"low": "$80", "high": "$120"},
		"reasoning": "Common model.",
		"comparableSales": [],
		"tags": ["vintage", "clock", "decor"],
		"otherMetadata": []
	}`)

	assert.NoError(t, AppraisalRich.Validate(raw))
}

func TestValidateAppraisalSimple(t *testing.T) {
	raw := json.RawMessage(`{
		"descriptiveName": "Old Lamp",
		"valuation": "Low value",
		"reasoning": "Mass produced.",
		"tags": ["lamp", "lighting", "retro"],
		"otherMetadata": {"Material": "Plastic"}
	}`)

	assert.NoError(t, AppraisalSimple.Validate(raw))
}

func TestValidateBundlesArrayElementwise(t *testing.T) {
	valid := json.RawMessage(`[
		{"bundleName": "Retro Corner", "description": "A cozy pair.", "itemNames": ["Vintage Clock", "Antique Mirror"]}
	]`)
	assert.NoError(t, Bundles.Validate(valid))

	invalid := json.RawMessage(`[
		{"bundleName": "Retro Corner", "description": "A cozy pair.", "itemNames": ["Vintage Clock", "Antique Mirror"]},
		{"bundleName": "Broken", "itemNames": ["Vintage Clock"]}
	]`)
	err := Bundles.Validate(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")
}

func TestValidateRejectsNonObject(t *testing.T) {
	assert.Error(t, AppraisalRich.Validate(json.RawMessage(`"just a string"`)))
	assert.Error(t, Bundles.Validate(json.RawMessage(`{"not": "an array"}`)))
}
