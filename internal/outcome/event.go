// Package outcome ingests match and interaction outcomes and feeds them into
// the rating engine, either from a Redis queue or from in-process callers.
package outcome

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "beautymatch/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Event is one resolved outcome for a stylist. OpponentRating is the
// baseline the stylist was measured against, usually the initial rating or
// the competing stylist's rating at resolution time.
type Event struct {
	StylistID      string `json:"stylistId"`
	OpponentRating int    `json:"opponentRating"`
	Favorable      bool   `json:"favorable"`
	Requeued       bool   `json:"requeued,omitempty"`
}

var eventSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"stylistId", "opponentRating", "favorable"},
	"properties": map[string]interface{}{
		"stylistId": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"opponentRating": map[string]interface{}{
			"type":    "integer",
			"minimum": 0,
		},
		"favorable": map[string]interface{}{
			"type": "boolean",
		},
		"requeued": map[string]interface{}{
			"type": "boolean",
		},
	},
	"additionalProperties": false,
}

// ParseEvent validates a raw queue payload against the event schema and
// decodes it. Validation failures come back as OUTCOME_INVALID.
func ParseEvent(payload []byte) (Event, error) {
	schemaLoader := gojsonschema.NewGoLoader(eventSchema)
	documentLoader := gojsonschema.NewBytesLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return Event{}, apperrors.NewOutcomeInvalidError(fmt.Sprintf("malformed payload: %v", err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return Event{}, apperrors.NewOutcomeInvalidError(strings.Join(details, "; "))
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, apperrors.NewOutcomeInvalidError(fmt.Sprintf("decode: %v", err))
	}
	return ev, nil
}
