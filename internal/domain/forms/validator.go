package forms

import (
	"net/url"
	"strings"
)

// FieldError is one per-field validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the ordered list of per-field failures for one payload.
// Ordering follows the schema's field declaration order, not payload order.
type ValidationErrors []FieldError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValueMap holds the sanitized, typed values of one validated submission,
// keyed by field name. Optional fields absent from the payload are present
// with a nil value.
type ValueMap map[string]any

// Validate checks a raw payload against the schema and returns either the
// sanitized value map or the ordered list of per-field errors. Every field is
// checked; a failure never short-circuits the remaining fields. Payload keys
// not declared in the schema are ignored. Validate is a pure function and
// touches no storage.
func (s *FormSchema) Validate(payload url.Values) (ValueMap, ValidationErrors) {
	values := make(ValueMap, len(s.fields))
	var errs ValidationErrors

	for _, field := range s.fields {
		raw := strings.TrimSpace(payload.Get(field.Name))
		if raw == "" {
			if field.Required {
				errs = append(errs, FieldError{Field: field.Name, Message: "required"})
				continue
			}
			values[field.Name] = nil
			continue
		}

		value, err := field.ParseValue(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: field.Name, Message: err.Error()})
			continue
		}
		values[field.Name] = value
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}
