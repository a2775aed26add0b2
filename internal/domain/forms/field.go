package forms

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for date field values and filter literals
const DateLayout = "2006-01-02"

// emailPattern requires a local part, an @, and a domain containing a dot
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// FieldDefinition describes one field of a form schema. Constraint fields are
// pointers so that "absent" and "zero" can be told apart; only the subset
// valid for the field's kind may be set.
type FieldDefinition struct {
	Name      string
	Kind      FieldKind
	Required  bool
	MinLength *int
	MaxLength *int
	Min       *decimal.Decimal
	Max       *decimal.Decimal
	Options   []string
}

// kindSpec is the capability record for one field kind. The registry below is
// the single place a new kind has to be added; validation, filtering, and
// storage typing all dispatch through it.
type kindSpec struct {
	operators          []Operator
	validateDefinition func(f *FieldDefinition) error
	parseValue         func(f *FieldDefinition, raw string) (any, error)
}

var kindRegistry = map[FieldKind]kindSpec{
	FieldKindString: {
		operators:          []Operator{OperatorEq, OperatorNe, OperatorContains, OperatorIn},
		validateDefinition: validateStringDefinition,
		parseValue:         parseStringValue,
	},
	FieldKindText: {
		operators:          []Operator{OperatorEq, OperatorNe, OperatorContains, OperatorIn},
		validateDefinition: validateStringDefinition,
		parseValue:         parseStringValue,
	},
	FieldKindEmail: {
		operators:          []Operator{OperatorEq, OperatorNe, OperatorContains},
		validateDefinition: validateStringDefinition,
		parseValue:         parseEmailValue,
	},
	FieldKindPassword: {
		// Passwords are never filterable
		operators:          nil,
		validateDefinition: validateStringDefinition,
		parseValue:         parseStringValue,
	},
	FieldKindNumber: {
		operators: []Operator{
			OperatorEq, OperatorNe, OperatorGt, OperatorGte,
			OperatorLt, OperatorLte, OperatorBetween,
		},
		validateDefinition: validateNumberDefinition,
		parseValue:         parseNumberValue,
	},
	FieldKindDate: {
		operators: []Operator{
			OperatorEq, OperatorNe, OperatorGt, OperatorGte,
			OperatorLt, OperatorLte, OperatorBetween,
		},
		validateDefinition: validateDateDefinition,
		parseValue:         parseDateValue,
	},
	FieldKindDropdown: {
		operators:          []Operator{OperatorEq, OperatorNe, OperatorIn},
		validateDefinition: validateDropdownDefinition,
		parseValue:         parseDropdownValue,
	},
}

// SupportedOperators returns the filter operators allowed for a field kind.
// An unknown kind has no operators.
func SupportedOperators(kind FieldKind) []Operator {
	spec, ok := kindRegistry[kind]
	if !ok {
		return nil
	}
	return slices.Clone(spec.operators)
}

// Filterable reports whether the field accepts any filter operator at all
func (f *FieldDefinition) Filterable() bool {
	return len(kindRegistry[f.Kind].operators) > 0
}

// SupportsOperator reports whether op may be applied to this field
func (f *FieldDefinition) SupportsOperator(op Operator) bool {
	return slices.Contains(kindRegistry[f.Kind].operators, op)
}

// ParseValue validates and converts a raw submission or filter literal into
// the field's typed representation (string, decimal.Decimal, or time.Time).
// The returned error message is user-facing.
func (f *FieldDefinition) ParseValue(raw string) (any, error) {
	spec, ok := kindRegistry[f.Kind]
	if !ok {
		return nil, fmt.Errorf("unsupported field kind %q", f.Kind)
	}
	return spec.parseValue(f, raw)
}

// validateDefinition checks that the constraints set on the definition are
// the subset valid for its kind
func (f *FieldDefinition) validateDefinition() error {
	spec, ok := kindRegistry[f.Kind]
	if !ok {
		return fmt.Errorf("unsupported field kind %q", f.Kind)
	}
	return spec.validateDefinition(f)
}

func validateStringDefinition(f *FieldDefinition) error {
	if f.Min != nil || f.Max != nil {
		return fmt.Errorf("min/max are not valid for %s fields", f.Kind)
	}
	if len(f.Options) > 0 {
		return fmt.Errorf("options are not valid for %s fields", f.Kind)
	}
	if f.MinLength != nil && *f.MinLength < 0 {
		return fmt.Errorf("minLength must not be negative")
	}
	if f.MaxLength != nil && *f.MaxLength < 0 {
		return fmt.Errorf("maxLength must not be negative")
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		return fmt.Errorf("minLength %d exceeds maxLength %d", *f.MinLength, *f.MaxLength)
	}
	return nil
}

func validateNumberDefinition(f *FieldDefinition) error {
	if f.MinLength != nil || f.MaxLength != nil {
		return fmt.Errorf("minLength/maxLength are not valid for number fields")
	}
	if len(f.Options) > 0 {
		return fmt.Errorf("options are not valid for number fields")
	}
	if f.Min != nil && f.Max != nil && f.Min.GreaterThan(*f.Max) {
		return fmt.Errorf("min %s exceeds max %s", f.Min, f.Max)
	}
	return nil
}

func validateDateDefinition(f *FieldDefinition) error {
	if f.MinLength != nil || f.MaxLength != nil || f.Min != nil || f.Max != nil {
		return fmt.Errorf("length and range constraints are not valid for date fields")
	}
	if len(f.Options) > 0 {
		return fmt.Errorf("options are not valid for date fields")
	}
	return nil
}

func validateDropdownDefinition(f *FieldDefinition) error {
	if f.MinLength != nil || f.MaxLength != nil || f.Min != nil || f.Max != nil {
		return fmt.Errorf("length and range constraints are not valid for dropdown fields")
	}
	if len(f.Options) == 0 {
		return fmt.Errorf("dropdown fields must declare at least one option")
	}
	seen := make(map[string]struct{}, len(f.Options))
	for _, opt := range f.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[opt] = struct{}{}
	}
	return nil
}

func parseStringValue(f *FieldDefinition, raw string) (any, error) {
	value := strings.TrimSpace(raw)
	length := len([]rune(value))
	if f.MinLength != nil && length < *f.MinLength {
		return nil, fmt.Errorf("must be at least %d characters", *f.MinLength)
	}
	if f.MaxLength != nil && length > *f.MaxLength {
		return nil, fmt.Errorf("must be at most %d characters", *f.MaxLength)
	}
	return value, nil
}

func parseEmailValue(f *FieldDefinition, raw string) (any, error) {
	value, err := parseStringValue(f, raw)
	if err != nil {
		return nil, err
	}
	if !emailPattern.MatchString(value.(string)) {
		return nil, fmt.Errorf("must be a valid email address")
	}
	return value, nil
}

func parseNumberValue(f *FieldDefinition, raw string) (any, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	// Bounds are inclusive
	if f.Min != nil && value.LessThan(*f.Min) {
		return nil, fmt.Errorf("must be at least %s", f.Min)
	}
	if f.Max != nil && value.GreaterThan(*f.Max) {
		return nil, fmt.Errorf("must be at most %s", f.Max)
	}
	return value, nil
}

func parseDateValue(_ *FieldDefinition, raw string) (any, error) {
	value, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("must be a valid date in YYYY-MM-DD format")
	}
	return value, nil
}

func parseDropdownValue(f *FieldDefinition, raw string) (any, error) {
	value := strings.TrimSpace(raw)
	// Exact, case-sensitive match against the declared options
	if !slices.Contains(f.Options, value) {
		return nil, fmt.Errorf("must be one of: %s", strings.Join(f.Options, ", "))
	}
	return value, nil
}
