package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mkarjala/curio/internal/schema"
)

var (
	// ErrEmptyModelOutput is returned when the model produced no structured
	// value even though one was required.
	ErrEmptyModelOutput = errors.New("llm: empty model output")

	// ErrMalformedModelJSON is returned when raw model text could not be
	// parsed as JSON after fence stripping.
	ErrMalformedModelJSON = errors.New("llm: malformed model JSON")

	// ErrModelOutputInvalid is returned when the schema-constrained path
	// produced a value that does not satisfy the preset's required fields.
	ErrModelOutputInvalid = errors.New("llm: model output does not conform to schema")
)

// ImageBlob is an opaque encoded image payload with its MIME type.
type ImageBlob struct {
	Data     []byte
	MIMEType string
}

// DataURI renders the blob in the self-describing form
// "data:<mimetype>;base64,<payload>" used wherever images cross a boundary.
func (b ImageBlob) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", b.MIMEType, base64.StdEncoding.EncodeToString(b.Data))
}

// ParseDataURI decodes a "data:<mimetype>;base64,<payload>" string.
func ParseDataURI(s string) (ImageBlob, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return ImageBlob{}, fmt.Errorf("not a data URI")
	}
	mimeType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return ImageBlob{}, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageBlob{}, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return ImageBlob{Data: data, MIMEType: mimeType}, nil
}

// Request describes a single model invocation: a fully interpolated prompt,
// zero or more image blobs, and an optional output shape. When Schema is nil
// the model's raw text is returned and the caller owns extraction.
type Request struct {
	Prompt string
	Images []ImageBlob
	Schema *schema.Preset
}

// Usage contains token usage and cost information for one invocation.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Result is the outcome of a single model invocation. Structured is set when
// the request carried a schema; Text otherwise.
type Result struct {
	Structured json.RawMessage
	Text       string
	Usage      Usage
}

// Invoker can execute a single model invocation. Implementations keep no
// state between calls.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

var _ Invoker = (*GeminiInvoker)(nil)
