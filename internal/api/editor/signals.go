package editor

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
)

// Signals provides type-safe access to Datastar signal values.
// Datastar sends all signals as a flat JSON object in the request body.
// Signal names are lowercase due to data-bind behavior.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body.
// Use with Huma's RawBody []byte field to capture the body before streaming.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal value, or empty string if not found.
func (s Signals) String(key string) string {
	if v, ok := s[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// Bool returns a bool signal value, or false if not found.
func (s Signals) Bool(key string) bool {
	if v, ok := s[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// SignalsInput is a reusable input struct for handlers that receive Datastar signals.
// Embed this in your handler input struct or use directly.
type SignalsInput struct {
	RawBody []byte
}

// MustParse parses signals or returns a Huma error.
// Useful for returning early from handlers on parse failure.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}
