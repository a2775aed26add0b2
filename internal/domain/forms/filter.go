package forms

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defaults. PageSize requests above the configured maximum are
// clamped, never rejected.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// FilterError codes
const (
	FilterCodeUnknownField        = "UNKNOWN_FIELD"
	FilterCodeUnsupportedOperator = "UNSUPPORTED_OPERATOR"
	FilterCodeInvalidValue        = "INVALID_FILTER_VALUE"
	FilterCodeInvalidSort         = "INVALID_SORT"
)

// FilterError is one rejected filter parameter
type FilterError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e FilterError) Error() string {
	return e.Message
}

// FilterErrors is the list of rejected filter parameters in one request. Any
// non-empty list fails the whole query; the accompanying QuerySpec still
// carries every filter that parsed cleanly so the caller can re-render the
// user's selections.
type FilterErrors []FilterError

// Error implements the error interface
func (e FilterErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid filters: " + strings.Join(parts, "; ")
}

// FilterExpression is one field/operator/value constraint. For OperatorIn the
// literals are in Values; for OperatorBetween the inclusive bounds are in
// Low/High (either may be nil for a half-open range); all other operators use
// Value.
type FilterExpression struct {
	Field    string
	Operator Operator
	Value    any
	Values   []any
	Low      any
	High     any
}

// QuerySpec is the full parsed filter/sort/page request for listing
// submissions. Constructed per request, consumed once, never persisted.
type QuerySpec struct {
	Filters  []FilterExpression
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

// Offset returns the row offset implied by Page/PageSize
func (q *QuerySpec) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Query parameter names reserved for paging and sorting
const (
	paramPage     = "page"
	paramPageSize = "page_size"
	paramSortBy   = "sort_by"
	paramSortDesc = "sort_desc"
)

// fieldParams collects the suffixed parameters seen for one field
type fieldParams struct {
	op    string
	hasOp bool
	value string
	from  string
	to    string
}

// ParseQuery parses raw query parameters using the suffix grammar
// (<field>__op, <field>__value, <field>__from, <field>__to plus page,
// page_size, sort_by, sort_desc) into a QuerySpec validated against the
// schema's filterable fields and their operator sets.
//
// Fields are parsed independently: one malformed parameter never discards the
// filters of other fields. The returned spec is always usable for
// re-rendering; the caller must not execute it when errors are returned.
//
// defaultPageSize is used when page_size is absent and maxPageSize clamps
// explicit requests; zero selects the package defaults.
func (s *FormSchema) ParseQuery(params url.Values, defaultPageSize, maxPageSize int) (*QuerySpec, FilterErrors) {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}

	spec := &QuerySpec{
		SortBy:   ColumnID,
		Page:     1,
		PageSize: defaultPageSize,
	}
	var errs FilterErrors

	grouped := make(map[string]*fieldParams)
	for key, vals := range params {
		if key == paramPage || key == paramPageSize || key == paramSortBy || key == paramSortDesc {
			continue
		}
		if len(vals) == 0 {
			continue
		}
		// Field names never contain "__" (rejected at definition time), so
		// the first occurrence always separates field from suffix
		field, suffix, found := strings.Cut(key, "__")
		if !found {
			suffix = "value"
		}
		group, ok := grouped[field]
		if !ok {
			group = &fieldParams{}
			grouped[field] = group
		}
		switch suffix {
		case "op":
			group.op = strings.TrimSpace(vals[0])
			group.hasOp = true
		case "value":
			group.value = vals[0]
		case "from":
			group.from = vals[0]
		case "to":
			group.to = vals[0]
		}
		// Other suffixes are ignored, matching the lenient unknown-key policy
	}

	// Deterministic processing order regardless of map iteration
	fieldNames := make([]string, 0, len(grouped))
	for name := range grouped {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	for _, name := range fieldNames {
		group := grouped[name]
		field, ok := s.Field(name)
		if !ok {
			errs = append(errs, FilterError{
				Field:   name,
				Code:    FilterCodeUnknownField,
				Message: fmt.Sprintf("unknown filter field %q", name),
			})
			continue
		}

		if expr, ferr := buildValueFilter(field, group); ferr != nil {
			errs = append(errs, *ferr)
		} else if expr != nil {
			spec.Filters = append(spec.Filters, *expr)
		}

		if expr, ferr := buildRangeFilter(field, group); ferr != nil {
			errs = append(errs, *ferr)
		} else if expr != nil {
			spec.Filters = append(spec.Filters, *expr)
		}
	}

	if raw := params.Get(paramPage); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page >= 1 {
			spec.Page = page
		}
	}
	if raw := params.Get(paramPageSize); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size >= 1 {
			spec.PageSize = size
		}
	}
	if spec.PageSize > maxPageSize {
		spec.PageSize = maxPageSize
	}

	if raw := params.Get(paramSortBy); raw != "" {
		if ferr := s.checkSortField(raw); ferr != nil {
			errs = append(errs, *ferr)
		} else {
			spec.SortBy = raw
		}
	}
	if raw := params.Get(paramSortDesc); raw != "" {
		if desc, err := strconv.ParseBool(raw); err == nil {
			spec.SortDesc = desc
		}
	}

	return spec, errs
}

// buildValueFilter emits the single-operator filter for a field, if any.
// A field with an operator but no value is silently skipped.
func buildValueFilter(field *FieldDefinition, group *fieldParams) (*FilterExpression, *FilterError) {
	if strings.TrimSpace(group.value) == "" {
		return nil, nil
	}

	op := OperatorEq
	if group.hasOp && group.op != "" {
		op = Operator(group.op)
	}
	if !op.IsValid() || op == OperatorBetween || !field.SupportsOperator(op) {
		return nil, &FilterError{
			Field:   field.Name,
			Code:    FilterCodeUnsupportedOperator,
			Message: fmt.Sprintf("operator %q is not supported for %s fields", string(op), field.Kind),
		}
	}

	if op == OperatorIn {
		var literals []any
		for _, part := range strings.Split(group.value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			literal, err := parseFilterLiteral(field, part)
			if err != nil {
				return nil, &FilterError{
					Field:   field.Name,
					Code:    FilterCodeInvalidValue,
					Message: err.Error(),
				}
			}
			literals = append(literals, literal)
		}
		if len(literals) == 0 {
			return nil, nil
		}
		return &FilterExpression{Field: field.Name, Operator: OperatorIn, Values: literals}, nil
	}

	literal, err := parseFilterLiteral(field, group.value)
	if err != nil {
		return nil, &FilterError{
			Field:   field.Name,
			Code:    FilterCodeInvalidValue,
			Message: err.Error(),
		}
	}
	return &FilterExpression{Field: field.Name, Operator: op, Value: literal}, nil
}

// buildRangeFilter emits the from/to range filter for a field, if any.
// Ranges need no explicit __op parameter.
func buildRangeFilter(field *FieldDefinition, group *fieldParams) (*FilterExpression, *FilterError) {
	from := strings.TrimSpace(group.from)
	to := strings.TrimSpace(group.to)
	if from == "" && to == "" {
		return nil, nil
	}

	if !field.SupportsOperator(OperatorBetween) {
		return nil, &FilterError{
			Field:   field.Name,
			Code:    FilterCodeUnsupportedOperator,
			Message: fmt.Sprintf("range filters are not supported for %s fields", field.Kind),
		}
	}

	expr := &FilterExpression{Field: field.Name, Operator: OperatorBetween}
	if from != "" {
		low, err := parseFilterLiteral(field, from)
		if err != nil {
			return nil, &FilterError{Field: field.Name, Code: FilterCodeInvalidValue, Message: err.Error()}
		}
		expr.Low = low
	}
	if to != "" {
		high, err := parseFilterLiteral(field, to)
		if err != nil {
			return nil, &FilterError{Field: field.Name, Code: FilterCodeInvalidValue, Message: err.Error()}
		}
		expr.High = high
	}
	return expr, nil
}

// parseFilterLiteral converts a raw filter literal into the field's typed
// representation. Unlike FieldDefinition.ParseValue it applies no
// min/max/options constraints: a filter outside the declared bounds simply
// matches nothing.
func parseFilterLiteral(field *FieldDefinition, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch field.Kind {
	case FieldKindNumber:
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("filter value %q must be a number", raw)
		}
		return value, nil
	case FieldKindDate:
		value, err := time.ParseInLocation(DateLayout, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("filter value %q must be a date in YYYY-MM-DD format", raw)
		}
		return value, nil
	default:
		return raw, nil
	}
}

// checkSortField validates a sort_by parameter: system columns always sort,
// schema fields sort when they are filterable
func (s *FormSchema) checkSortField(name string) *FilterError {
	if name == ColumnID || name == ColumnCreatedAt {
		return nil
	}
	field, ok := s.Field(name)
	if !ok {
		return &FilterError{
			Field:   name,
			Code:    FilterCodeInvalidSort,
			Message: fmt.Sprintf("unknown sort field %q", name),
		}
	}
	if !field.Filterable() {
		return &FilterError{
			Field:   name,
			Code:    FilterCodeInvalidSort,
			Message: fmt.Sprintf("field %q cannot be sorted on", name),
		}
	}
	return nil
}
