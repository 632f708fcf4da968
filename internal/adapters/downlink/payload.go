// Package downlink publishes events to the ground station.
package downlink

import (
	"encoding/json"
	"fmt"

	"github.com/okian/parakeet/internal/domain/model"
)

// Encode renders an event as its JSON telemetry payload.
func Encode(e model.Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return b, nil
}
