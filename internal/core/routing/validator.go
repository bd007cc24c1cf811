package routing

import (
	"strings"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// ValidateEvent checks a raw event payload against every envelope rule in
// one pass and reports all violations together. Normalization happens only
// when every rule passes: eventType and source are trimmed, all other
// fields pass through unchanged.
func ValidateEvent(raw any) domain.EventValidation {
	payload, ok := raw.(map[string]any)
	if !ok {
		return domain.EventValidation{
			Valid:  false,
			Errors: []string{"event must be a key-value mapping"},
		}
	}

	var errs []string

	eventTypeRaw, hasEventType := payload["eventType"]
	if !hasEventType {
		errs = append(errs, "event must contain 'eventType' field")
	}

	eventType, eventTypeIsString := "", true
	if hasEventType {
		eventType, eventTypeIsString = eventTypeRaw.(string)
		if !eventTypeIsString {
			errs = append(errs, "'eventType' must be a string")
		} else if strings.TrimSpace(eventType) == "" {
			errs = append(errs, "'eventType' must be a non-empty string")
		}
	}

	source := ""
	if sourceRaw, hasSource := payload["source"]; hasSource && sourceRaw != nil {
		s, isString := sourceRaw.(string)
		if !isString {
			errs = append(errs, "'source' field must be a string if present")
		} else {
			source = s
		}
	}

	if len(errs) > 0 {
		return domain.EventValidation{Valid: false, Errors: errs}
	}

	fields := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "eventType" || k == "source" {
			continue
		}
		fields[k] = v
	}

	return domain.EventValidation{
		Valid: true,
		Event: &domain.Event{
			EventType: strings.TrimSpace(eventType),
			Source:    strings.TrimSpace(source),
			Fields:    fields,
		},
	}
}
