package appraisal

import (
	"context"

	"github.com/mkarjala/curio/internal/llm"
)

// ValueRange is an estimated resale value range as formatted currency strings.
type ValueRange struct {
	Low  string `json:"low"`
	High string `json:"high"`
}

// ComparableSale is one recent sale of a similar item.
type ComparableSale struct {
	Description string `json:"description"`
	Price       string `json:"price"`
}

// MetadataEntry is one key-value pair of extracted metadata.
type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is the structured result of appraising one photographed item,
// as produced by the rich appraisal preset.
type Record struct {
	DescriptiveName     string           `json:"descriptiveName"`
	EstimatedValueRange ValueRange       `json:"estimatedValueRange"`
	Reasoning           string           `json:"reasoning"`
	ComparableSales     []ComparableSale `json:"comparableSales"`
	Tags                []string         `json:"tags"`
	OtherMetadata       []MetadataEntry  `json:"otherMetadata"`
}

// SimpleRecord is the earlier appraisal shape: a valuation label instead of a
// value range, and free-keyed metadata. Kept as a distinct type since
// consumers of the two shapes key off different fields.
type SimpleRecord struct {
	DescriptiveName string            `json:"descriptiveName"`
	Valuation       string            `json:"valuation"`
	Reasoning       string            `json:"reasoning"`
	Tags            []string          `json:"tags"`
	OtherMetadata   map[string]string `json:"otherMetadata"`
}

// Bundle is a suggested grouping of two or more inventory items. Items are
// referenced by their descriptive name, not by a stable identifier.
type Bundle struct {
	BundleName  string   `json:"bundleName"`
	Description string   `json:"description"`
	ItemNames   []string `json:"itemNames"`
}

// Appraiser can produce an appraisal record for one image.
type Appraiser interface {
	Appraise(ctx context.Context, img llm.ImageBlob) (*Record, error)
}
