package forms

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseQuery(t *testing.T, schema *FormSchema, raw string) (*QuerySpec, FilterErrors) {
	t.Helper()
	params, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return schema.ParseQuery(params, 0, MaxPageSize)
}

func TestFormSchema_ParseQuery(t *testing.T) {
	schema := mustParseContactSchema(t)

	t.Run("defaults with no parameters", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "")
		require.Empty(t, errs)
		assert.Empty(t, spec.Filters)
		assert.Equal(t, ColumnID, spec.SortBy)
		assert.False(t, spec.SortDesc)
		assert.Equal(t, 1, spec.Page)
		assert.Equal(t, DefaultPageSize, spec.PageSize)
		assert.Equal(t, 0, spec.Offset())
	})

	t.Run("explicit operator with value", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "age__op=gte&age__value=18")
		require.Empty(t, errs)
		require.Len(t, spec.Filters, 1)

		f := spec.Filters[0]
		assert.Equal(t, "age", f.Field)
		assert.Equal(t, OperatorGte, f.Operator)
		value, ok := f.Value.(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, value.Equal(decimal.NewFromInt(18)))
	})

	t.Run("bare parameter defaults to eq", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "country=DE")
		require.Empty(t, errs)
		require.Len(t, spec.Filters, 1)
		assert.Equal(t, OperatorEq, spec.Filters[0].Operator)
		assert.Equal(t, "DE", spec.Filters[0].Value)
	})

	t.Run("value suffix without op defaults to eq", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "full_name__value=Ada")
		require.Empty(t, errs)
		require.Len(t, spec.Filters, 1)
		assert.Equal(t, OperatorEq, spec.Filters[0].Operator)
	})

	t.Run("from and to build one between expression", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "age__from=18&age__to=65")
		require.Empty(t, errs)
		require.Len(t, spec.Filters, 1)

		f := spec.Filters[0]
		assert.Equal(t, OperatorBetween, f.Operator)
		low, ok := f.Low.(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, low.Equal(decimal.NewFromInt(18)))
		high, ok := f.High.(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, high.Equal(decimal.NewFromInt(65)))
	})

	t.Run("half-open ranges keep the missing bound nil", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "birthday__from=1990-01-01")
		require.Empty(t, errs)
		require.Len(t, spec.Filters, 1)

		f := spec.Filters[0]
		assert.Equal(t, OperatorBetween, f.Operator)
		assert.Equal(t, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), f.Low)
		assert.Nil(t, f.High)
	})

	t.Run("in splits comma-separated literals", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "country__op=in&country__value=DE,FR,%20NL")
		require.Empty(t, errs)
		require.Len(t, spec.Filters, 1)
		assert.Equal(t, OperatorIn, spec.Filters[0].Operator)
		assert.Equal(t, []any{"DE", "FR", "NL"}, spec.Filters[0].Values)
	})

	t.Run("contains on a string field", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "full_name__op=contains&full_name__value=ada")
		require.Empty(t, errs)
		require.Len(t, spec.Filters, 1)
		assert.Equal(t, OperatorContains, spec.Filters[0].Operator)
	})

	t.Run("unknown field is reported, other filters survive", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "nonexistent__value=x&age__op=gte&age__value=18")
		require.Len(t, errs, 1)
		assert.Equal(t, "nonexistent", errs[0].Field)
		assert.Equal(t, FilterCodeUnknownField, errs[0].Code)

		require.Len(t, spec.Filters, 1)
		assert.Equal(t, "age", spec.Filters[0].Field)
	})

	t.Run("operator unsupported for the kind", func(t *testing.T) {
		_, errs := parseQuery(t, schema, "age__op=contains&age__value=4")
		require.Len(t, errs, 1)
		assert.Equal(t, FilterCodeUnsupportedOperator, errs[0].Code)
	})

	t.Run("password fields reject every operator", func(t *testing.T) {
		_, errs := parseQuery(t, schema, "secret__value=hunter2")
		require.Len(t, errs, 1)
		assert.Equal(t, "secret", errs[0].Field)
		assert.Equal(t, FilterCodeUnsupportedOperator, errs[0].Code)
	})

	t.Run("explicit between via value is rejected", func(t *testing.T) {
		_, errs := parseQuery(t, schema, "age__op=between&age__value=18")
		require.Len(t, errs, 1)
		assert.Equal(t, FilterCodeUnsupportedOperator, errs[0].Code)
	})

	t.Run("range on a field without between support", func(t *testing.T) {
		_, errs := parseQuery(t, schema, "full_name__from=a&full_name__to=z")
		require.Len(t, errs, 1)
		assert.Equal(t, FilterCodeUnsupportedOperator, errs[0].Code)
	})

	t.Run("malformed typed literal", func(t *testing.T) {
		_, errs := parseQuery(t, schema, "age__op=gt&age__value=forty")
		require.Len(t, errs, 1)
		assert.Equal(t, FilterCodeInvalidValue, errs[0].Code)

		_, errs = parseQuery(t, schema, "birthday__from=yesterday")
		require.Len(t, errs, 1)
		assert.Equal(t, FilterCodeInvalidValue, errs[0].Code)
	})

	t.Run("filter literals skip constraint bounds", func(t *testing.T) {
		// age max is 120; an out-of-bounds filter just matches nothing
		spec, errs := parseQuery(t, schema, "age__op=gt&age__value=500")
		require.Empty(t, errs)
		require.Len(t, spec.Filters, 1)
	})

	t.Run("operator without value is skipped", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "age__op=gte")
		require.Empty(t, errs)
		assert.Empty(t, spec.Filters)
	})

	t.Run("unknown suffixes are ignored", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "age__bogus=1")
		require.Empty(t, errs)
		assert.Empty(t, spec.Filters)
	})

	t.Run("errors accumulate across fields", func(t *testing.T) {
		_, errs := parseQuery(t, schema, "nope__value=1&age__op=contains&age__value=2")
		assert.Len(t, errs, 2)
	})
}

func TestFormSchema_ParseQuery_Paging(t *testing.T) {
	schema := mustParseContactSchema(t)

	tests := []struct {
		name     string
		query    string
		page     int
		pageSize int
	}{
		{"explicit page and size", "page=3&page_size=50", 3, 50},
		{"size above max is clamped", "page_size=5000", 1, MaxPageSize},
		{"zero page falls back to default", "page=0", 1, DefaultPageSize},
		{"negative size falls back to default", "page_size=-5", 1, DefaultPageSize},
		{"non-numeric values fall back", "page=first&page_size=lots", 1, DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, errs := parseQuery(t, schema, tt.query)
			require.Empty(t, errs)
			assert.Equal(t, tt.page, spec.Page)
			assert.Equal(t, tt.pageSize, spec.PageSize)
		})
	}

	t.Run("offset follows page and size", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "page=3&page_size=25")
		require.Empty(t, errs)
		assert.Equal(t, 50, spec.Offset())
	})

	t.Run("caller-provided maximum wins", func(t *testing.T) {
		params, err := url.ParseQuery("page_size=40")
		require.NoError(t, err)
		spec, errs := schema.ParseQuery(params, 0, 25)
		require.Empty(t, errs)
		assert.Equal(t, 25, spec.PageSize)
	})

	t.Run("caller-provided default used when page_size absent", func(t *testing.T) {
		spec, errs := schema.ParseQuery(url.Values{}, 50, 100)
		require.Empty(t, errs)
		assert.Equal(t, 50, spec.PageSize)
	})

	t.Run("caller-provided default clamped to the maximum", func(t *testing.T) {
		spec, errs := schema.ParseQuery(url.Values{}, 50, 25)
		require.Empty(t, errs)
		assert.Equal(t, 25, spec.PageSize)
	})

	t.Run("explicit page_size beats the caller default", func(t *testing.T) {
		params, err := url.ParseQuery("page_size=10")
		require.NoError(t, err)
		spec, errs := schema.ParseQuery(params, 50, 100)
		require.Empty(t, errs)
		assert.Equal(t, 10, spec.PageSize)
	})
}

func TestFormSchema_ParseQuery_Sorting(t *testing.T) {
	schema := mustParseContactSchema(t)

	t.Run("sorts on schema fields", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "sort_by=age&sort_desc=true")
		require.Empty(t, errs)
		assert.Equal(t, "age", spec.SortBy)
		assert.True(t, spec.SortDesc)
	})

	t.Run("system columns always sort", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "sort_by=created_at")
		require.Empty(t, errs)
		assert.Equal(t, ColumnCreatedAt, spec.SortBy)
	})

	t.Run("unknown sort field", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "sort_by=nonexistent")
		require.Len(t, errs, 1)
		assert.Equal(t, FilterCodeInvalidSort, errs[0].Code)
		assert.Equal(t, ColumnID, spec.SortBy)
	})

	t.Run("password fields cannot be sorted on", func(t *testing.T) {
		_, errs := parseQuery(t, schema, "sort_by=secret")
		require.Len(t, errs, 1)
		assert.Equal(t, FilterCodeInvalidSort, errs[0].Code)
	})

	t.Run("invalid sort_desc is ignored", func(t *testing.T) {
		spec, errs := parseQuery(t, schema, "sort_desc=maybe")
		require.Empty(t, errs)
		assert.False(t, spec.SortDesc)
	})
}

func TestFilterErrors_Error(t *testing.T) {
	errs := FilterErrors{
		{Field: "age", Code: FilterCodeInvalidValue, Message: `filter value "x" must be a number`},
	}
	assert.Contains(t, errs.Error(), "age:")
}
