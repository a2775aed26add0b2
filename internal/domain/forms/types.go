package forms

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// FieldKind represents the type discriminator of a form field
type FieldKind string

const (
	// FieldKindString is a free-text single-line field
	FieldKindString FieldKind = "string"
	// FieldKindText is a free-text multi-line field
	FieldKindText FieldKind = "text"
	// FieldKindEmail is a string field validated against an email pattern
	FieldKindEmail FieldKind = "email"
	// FieldKindPassword is a masked string field, never filterable
	FieldKindPassword FieldKind = "password"
	// FieldKindNumber is a decimal numeric field
	FieldKindNumber FieldKind = "number"
	// FieldKindDate is a calendar date field (YYYY-MM-DD)
	FieldKindDate FieldKind = "date"
	// FieldKindDropdown is a single-choice field restricted to declared options
	FieldKindDropdown FieldKind = "dropdown"
)

// AllFieldKinds returns all valid field kinds
func AllFieldKinds() []FieldKind {
	return []FieldKind{
		FieldKindString,
		FieldKindText,
		FieldKindEmail,
		FieldKindPassword,
		FieldKindNumber,
		FieldKindDate,
		FieldKindDropdown,
	}
}

// IsValid checks if the field kind is valid
func (k FieldKind) IsValid() bool {
	switch k {
	case FieldKindString, FieldKindText, FieldKindEmail, FieldKindPassword,
		FieldKindNumber, FieldKindDate, FieldKindDropdown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the field kind
func (k FieldKind) String() string {
	return string(k)
}

// Scan implements the sql.Scanner interface
func (k *FieldKind) Scan(value any) error {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("forms: cannot scan type %T into FieldKind", value)
	}
	*k = FieldKind(strings.ToLower(s))
	if !k.IsValid() {
		return fmt.Errorf("forms: invalid field kind: %s", s)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (k FieldKind) Value() (driver.Value, error) {
	return string(k), nil
}

// Operator represents a filter operator applicable to a field
type Operator string

const (
	// OperatorEq matches values equal to the literal
	OperatorEq Operator = "eq"
	// OperatorNe matches values not equal to the literal
	OperatorNe Operator = "ne"
	// OperatorGt matches values strictly greater than the literal
	OperatorGt Operator = "gt"
	// OperatorGte matches values greater than or equal to the literal
	OperatorGte Operator = "gte"
	// OperatorLt matches values strictly less than the literal
	OperatorLt Operator = "lt"
	// OperatorLte matches values less than or equal to the literal
	OperatorLte Operator = "lte"
	// OperatorContains matches values containing the literal as a substring
	OperatorContains Operator = "contains"
	// OperatorIn matches values equal to any of a comma-separated list
	OperatorIn Operator = "in"
	// OperatorBetween matches values within an inclusive from/to range
	OperatorBetween Operator = "between"
)

// AllOperators returns all valid filter operators
func AllOperators() []Operator {
	return []Operator{
		OperatorEq,
		OperatorNe,
		OperatorGt,
		OperatorGte,
		OperatorLt,
		OperatorLte,
		OperatorContains,
		OperatorIn,
		OperatorBetween,
	}
}

// IsValid checks if the operator is valid
func (o Operator) IsValid() bool {
	switch o {
	case OperatorEq, OperatorNe, OperatorGt, OperatorGte, OperatorLt,
		OperatorLte, OperatorContains, OperatorIn, OperatorBetween:
		return true
	default:
		return false
	}
}

// String returns the string representation of the operator
func (o Operator) String() string {
	return string(o)
}
