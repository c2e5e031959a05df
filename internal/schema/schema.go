package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Kind describes the JSON shape of a single output field.
type Kind int

const (
	KindString Kind = iota
	KindStringArray
	// KindCurrencyRange is an object with required "low" and "high" currency strings.
	KindCurrencyRange
	// KindPairArray is an array of {key, value} string objects.
	KindPairArray
	// KindSaleArray is an array of {description, price} string objects.
	KindSaleArray
	// KindStringMap is an object with arbitrary string keys and string values.
	KindStringMap
)

// Field is one required output field together with the description that is
// passed to the model as output-shape guidance.
type Field struct {
	Name        string
	Kind        Kind
	Description string
}

// Preset is a declarative description of one structured output shape. All
// fields are required: a response missing any of them does not conform.
type Preset struct {
	Name        string
	Description string
	// Array marks the preset as a top-level JSON array; Fields then describe
	// each element.
	Array  bool
	Fields []Field
}

func fieldSchema(f Field) *genai.Schema {
	switch f.Kind {
	case KindString:
		return &genai.Schema{Type: genai.TypeString, Description: f.Description}
	case KindStringArray:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: f.Description,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	case KindCurrencyRange:
		return &genai.Schema{
			Type:        genai.TypeObject,
			Description: f.Description,
			Properties: map[string]*genai.Schema{
				"low":  {Type: genai.TypeString, Description: "The low end of the range, as a formatted currency string (e.g. '$80')."},
				"high": {Type: genai.TypeString, Description: "The high end of the range, as a formatted currency string (e.g. '$120')."},
			},
			Required:         []string{"low", "high"},
			PropertyOrdering: []string{"low", "high"},
		}
	case KindPairArray:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: f.Description,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"key":   {Type: genai.TypeString, Description: "The name of the metadata field (e.g. 'Material', 'Period', 'Condition')."},
					"value": {Type: genai.TypeString, Description: "The value of the metadata field."},
				},
				Required:         []string{"key", "value"},
				PropertyOrdering: []string{"key", "value"},
			},
		}
	case KindSaleArray:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: f.Description,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"description": {Type: genai.TypeString, Description: "A short description of the comparable sale."},
					"price":       {Type: genai.TypeString, Description: "The sale price, as a formatted currency string."},
				},
				Required:         []string{"description", "price"},
				PropertyOrdering: []string{"description", "price"},
			},
		}
	case KindStringMap:
		return &genai.Schema{Type: genai.TypeObject, Description: f.Description}
	}
	panic(fmt.Sprintf("schema: unknown field kind %d", f.Kind))
}

// GenAI builds the genai response schema for the preset, with every field
// required and property ordering fixed to the declaration order.
func (p *Preset) GenAI() *genai.Schema {
	properties := make(map[string]*genai.Schema, len(p.Fields))
	required := make([]string, 0, len(p.Fields))
	ordering := make([]string, 0, len(p.Fields))

	for _, f := range p.Fields {
		properties[f.Name] = fieldSchema(f)
		required = append(required, f.Name)
		ordering = append(ordering, f.Name)
	}

	object := &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       properties,
		Required:         required,
		PropertyOrdering: ordering,
	}

	if p.Array {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: p.Description,
			Items:       object,
		}
	}
	object.Description = p.Description
	return object
}

// Guidance renders the preset as field-by-field prompt guidance for models
// that are not invoked with a native response schema.
func (p *Preset) Guidance() string {
	var b strings.Builder
	for _, f := range p.Fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.Name, f.Description)
	}
	return b.String()
}

// MissingFieldsError reports which required fields a decoded response lacked.
type MissingFieldsError struct {
	Preset string
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("response for %s is missing required fields: %s", e.Preset, strings.Join(e.Fields, ", "))
}

// Validate checks a decoded JSON value against the preset's required-field
// contract. Array presets are validated element-wise. Validation is a
// presence and shape check; it does not inspect string contents.
func (p *Preset) Validate(raw json.RawMessage) error {
	if p.Array {
		var elements []json.RawMessage
		if err := json.Unmarshal(raw, &elements); err != nil {
			return fmt.Errorf("response for %s is not a JSON array: %w", p.Name, err)
		}
		for i, el := range elements {
			if err := p.validateObject(el); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
	return p.validateObject(raw)
}

func (p *Preset) validateObject(raw json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("response for %s is not a JSON object: %w", p.Name, err)
	}

	var missing []string
	for _, f := range p.Fields {
		v, ok := obj[f.Name]
		if !ok || string(v) == "null" {
			missing = append(missing, f.Name)
			continue
		}
		if !conforms(f.Kind, v) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Preset: p.Name, Fields: missing}
	}
	return nil
}

func conforms(kind Kind, raw json.RawMessage) bool {
	switch kind {
	case KindString:
		var s string
		return json.Unmarshal(raw, &s) == nil
	case KindStringArray:
		var s []string
		return json.Unmarshal(raw, &s) == nil
	case KindCurrencyRange:
		var r struct {
			Low  *string `json:"low"`
			High *string `json:"high"`
		}
		return json.Unmarshal(raw, &r) == nil && r.Low != nil && r.High != nil
	case KindPairArray:
		var pairs []struct {
			Key   *string `json:"key"`
			Value *string `json:"value"`
		}
		if json.Unmarshal(raw, &pairs) != nil {
			return false
		}
		for _, p := range pairs {
			if p.Key == nil || p.Value == nil {
				return false
			}
		}
		return true
	case KindSaleArray:
		var sales []struct {
			Description *string `json:"description"`
			Price       *string `json:"price"`
		}
		if json.Unmarshal(raw, &sales) != nil {
			return false
		}
		for _, s := range sales {
			if s.Description == nil || s.Price == nil {
				return false
			}
		}
		return true
	case KindStringMap:
		var m map[string]string
		return json.Unmarshal(raw, &m) == nil
	}
	return false
}
