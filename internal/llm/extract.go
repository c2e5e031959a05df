package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExtractJSON pulls a JSON value out of raw model text. The model frequently
// wraps its answer in a markdown code fence; the fence is stripped before
// parsing. On parse failure the raw text is logged for diagnosis and
// ErrMalformedModelJSON is returned.
func ExtractJSON(text string) (json.RawMessage, error) {
	cleaned := StripFence(text)

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		log.Error().Str("response", text).Err(err).Msg("failed to parse model text as JSON")
		return nil, fmt.Errorf("%w: %v", ErrMalformedModelJSON, err)
	}
	return raw, nil
}

// StripFence removes a markdown code-fence wrapper (```json ... ```) from
// model text, if present.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
