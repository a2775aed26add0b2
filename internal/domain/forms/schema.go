package forms

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/formbox/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// identifierPattern restricts field and table names to safe storage-column
// identifiers (lowercase, no quoting tricks, PostgreSQL's 63-byte limit)
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// System columns every submission relation carries; field names must not
// collide with them
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
)

// FormSchema is a named, ordered set of field definitions bound to one
// storage relation. It is immutable after ParseDefinition and safe for
// concurrent reads.
type FormSchema struct {
	name   string
	fields []FieldDefinition
	index  map[string]int
	hash   string
}

// fieldConfig is the wire shape of one field in a schema definition.
// Unknown keys are ignored.
type fieldConfig struct {
	Type      string       `json:"type"`
	Required  bool         `json:"required"`
	MinLength *int         `json:"minLength"`
	MaxLength *int         `json:"maxLength"`
	Min       *json.Number `json:"min"`
	Max       *json.Number `json:"max"`
	Options   []string     `json:"options"`
}

// schemaError builds a SCHEMA_INVALID domain error
func schemaError(format string, args ...any) error {
	return shared.NewDomainError("SCHEMA_INVALID", fmt.Sprintf(format, args...))
}

// ParseDefinition parses a raw JSON schema definition (mapping field name to
// field config) into a FormSchema bound to the given table name. The JSON
// object's key order is preserved: it determines validation error ordering
// and rendered field order. Any invalid definition is rejected as a whole.
func ParseDefinition(name string, raw []byte) (*FormSchema, error) {
	if !identifierPattern.MatchString(name) {
		return nil, schemaError("table name %q is not a valid identifier", name)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, schemaError("definition is not valid JSON: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, schemaError("definition must be a JSON object")
	}

	schema := &FormSchema{
		name:  name,
		index: make(map[string]int),
	}
	seen := make(map[string]struct{})

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, schemaError("definition is not valid JSON: %v", err)
		}
		fieldName := keyTok.(string)

		var cfg fieldConfig
		if err := dec.Decode(&cfg); err != nil {
			return nil, schemaError("field %q has an invalid config: %v", fieldName, err)
		}

		field, err := buildField(fieldName, cfg)
		if err != nil {
			return nil, err
		}

		// The JSON mapping guarantees exact duplicates never reach us, but
		// case-insensitive collisions would collapse into one column
		lower := strings.ToLower(fieldName)
		if _, dup := seen[lower]; dup {
			return nil, schemaError("duplicate field name %q (names are case-insensitive)", fieldName)
		}
		seen[lower] = struct{}{}

		schema.index[fieldName] = len(schema.fields)
		schema.fields = append(schema.fields, field)
	}

	if _, err := dec.Token(); err != nil {
		return nil, schemaError("definition is not valid JSON: %v", err)
	}
	if len(schema.fields) == 0 {
		return nil, schemaError("schema must define at least one field")
	}

	schema.hash = computeHash(schema.fields)
	return schema, nil
}

// buildField converts one wire config into a validated FieldDefinition
func buildField(name string, cfg fieldConfig) (FieldDefinition, error) {
	if !identifierPattern.MatchString(name) {
		return FieldDefinition{}, schemaError("field name %q is not a valid column identifier", name)
	}
	// "__" separates field from suffix in filter parameters; a field name
	// containing it could never be addressed unambiguously
	if strings.Contains(name, "__") {
		return FieldDefinition{}, schemaError("field name %q must not contain \"__\"", name)
	}
	if name == ColumnID || name == ColumnCreatedAt {
		return FieldDefinition{}, schemaError("field name %q collides with a system column", name)
	}

	kind := FieldKind(cfg.Type)
	if !kind.IsValid() {
		return FieldDefinition{}, schemaError("field %q has unsupported type %q", name, cfg.Type)
	}

	field := FieldDefinition{
		Name:      name,
		Kind:      kind,
		Required:  cfg.Required,
		MinLength: cfg.MinLength,
		MaxLength: cfg.MaxLength,
		Options:   cfg.Options,
	}

	if cfg.Min != nil {
		min, err := decimal.NewFromString(cfg.Min.String())
		if err != nil {
			return FieldDefinition{}, schemaError("field %q has a non-numeric min", name)
		}
		field.Min = &min
	}
	if cfg.Max != nil {
		max, err := decimal.NewFromString(cfg.Max.String())
		if err != nil {
			return FieldDefinition{}, schemaError("field %q has a non-numeric max", name)
		}
		field.Max = &max
	}

	if err := field.validateDefinition(); err != nil {
		return FieldDefinition{}, schemaError("field %q: %v", name, err)
	}
	return field, nil
}

// computeHash derives the definition hash over the ordered field list.
// The (table name, hash) pair is the immutable binding key: a changed
// definition produces a different hash and therefore requires a new table
// name.
func computeHash(fields []FieldDefinition) string {
	h := sha256.New()
	for _, f := range fields {
		fmt.Fprintf(h, "%s|%s|%t", f.Name, f.Kind, f.Required)
		if f.MinLength != nil {
			fmt.Fprintf(h, "|minLength=%d", *f.MinLength)
		}
		if f.MaxLength != nil {
			fmt.Fprintf(h, "|maxLength=%d", *f.MaxLength)
		}
		if f.Min != nil {
			fmt.Fprintf(h, "|min=%s", f.Min)
		}
		if f.Max != nil {
			fmt.Fprintf(h, "|max=%s", f.Max)
		}
		for _, opt := range f.Options {
			fmt.Fprintf(h, "|opt=%s", opt)
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Name returns the storage relation name the schema is bound to
func (s *FormSchema) Name() string {
	return s.name
}

// Hash returns the definition hash
func (s *FormSchema) Hash() string {
	return s.hash
}

// Fields returns the field definitions in declaration order
func (s *FormSchema) Fields() []FieldDefinition {
	out := make([]FieldDefinition, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field definition by its exact name
func (s *FormSchema) Field(name string) (*FieldDefinition, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return &s.fields[i], true
}

// FieldNames returns the field names in declaration order
func (s *FormSchema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// RequiredFields returns the names of all required fields in declaration order
func (s *FormSchema) RequiredFields() []string {
	var names []string
	for _, f := range s.fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}
