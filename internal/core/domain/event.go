package domain

// Event is the normalized envelope every producer-side notification is
// reduced to before routing. EventType is always non-empty and trimmed;
// extra provider fields pass through in Fields untouched.
type Event struct {
	EventType string         `json:"eventType"`
	Source    string         `json:"source,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// EventValidation is the outcome of validating a raw event payload.
// Errors holds every violated rule, not just the first one.
type EventValidation struct {
	Valid  bool
	Errors []string
	Event  *Event
}

// StringField returns a pass-through field as a string, or "" when the
// field is absent or not a string.
func (e *Event) StringField(key string) string {
	if e == nil || e.Fields == nil {
		return ""
	}
	s, _ := e.Fields[key].(string)
	return s
}

// Field returns a raw pass-through field value.
func (e *Event) Field(key string) (any, bool) {
	if e == nil || e.Fields == nil {
		return nil, false
	}
	v, ok := e.Fields[key]
	return v, ok
}
