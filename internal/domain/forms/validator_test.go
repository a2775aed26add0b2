package forms

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSchema_Validate(t *testing.T) {
	schema := mustParseContactSchema(t)

	t.Run("valid payload yields typed values for every field", func(t *testing.T) {
		payload := url.Values{
			"full_name": {"Ada Lovelace"},
			"email":     {"ada@example.com"},
			"age":       {"36"},
			"country":   {"DE"},
			"birthday":  {"1815-12-10"},
		}

		values, errs := schema.Validate(payload)
		require.Empty(t, errs)
		require.Len(t, values, 7)

		assert.Equal(t, "Ada Lovelace", values["full_name"])
		assert.Equal(t, "ada@example.com", values["email"])
		age, ok := values["age"].(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, age.Equal(decimal.NewFromInt(36)))
		assert.Equal(t, "DE", values["country"])
		assert.Equal(t, time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC), values["birthday"])

		// Absent optional fields are present with nil values
		assert.Nil(t, values["bio"])
		assert.Nil(t, values["secret"])
	})

	t.Run("trims whitespace before validation", func(t *testing.T) {
		payload := url.Values{
			"full_name": {"  Ada  "},
			"email":     {" ada@example.com "},
			"country":   {" DE "},
		}

		values, errs := schema.Validate(payload)
		require.Empty(t, errs)
		assert.Equal(t, "Ada", values["full_name"])
		assert.Equal(t, "ada@example.com", values["email"])
		assert.Equal(t, "DE", values["country"])
	})

	t.Run("whitespace-only required field is missing", func(t *testing.T) {
		payload := url.Values{
			"full_name": {"   "},
			"email":     {"ada@example.com"},
			"country":   {"DE"},
		}

		values, errs := schema.Validate(payload)
		assert.Nil(t, values)
		require.Len(t, errs, 1)
		assert.Equal(t, FieldError{Field: "full_name", Message: "required"}, errs[0])
	})

	t.Run("collects every failure instead of stopping at the first", func(t *testing.T) {
		payload := url.Values{
			"full_name": {"A"},
			"email":     {"not-an-email"},
			"age":       {"-5"},
			"country":   {"es"},
		}

		values, errs := schema.Validate(payload)
		assert.Nil(t, values)
		require.Len(t, errs, 4)

		// Errors follow schema declaration order, not payload order
		assert.Equal(t, "full_name", errs[0].Field)
		assert.Equal(t, "must be at least 2 characters", errs[0].Message)
		assert.Equal(t, "email", errs[1].Field)
		assert.Equal(t, "age", errs[2].Field)
		assert.Equal(t, "country", errs[3].Field)
	})

	t.Run("ignores payload keys not declared in the schema", func(t *testing.T) {
		payload := url.Values{
			"full_name":  {"Ada"},
			"email":      {"ada@example.com"},
			"country":    {"DE"},
			"csrf_token": {"abc123"},
			"submit":     {"Send"},
		}

		values, errs := schema.Validate(payload)
		require.Empty(t, errs)
		assert.NotContains(t, values, "csrf_token")
		assert.NotContains(t, values, "submit")
	})

	t.Run("missing everything reports each required field", func(t *testing.T) {
		values, errs := schema.Validate(url.Values{})
		assert.Nil(t, values)
		require.Len(t, errs, 3)
		assert.Equal(t, "full_name", errs[0].Field)
		assert.Equal(t, "email", errs[1].Field)
		assert.Equal(t, "country", errs[2].Field)
		for _, fe := range errs {
			assert.Equal(t, "required", fe.Message)
		}
	})
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "email", Message: "must be a valid email address"},
		{Field: "age", Message: "must be a number"},
	}
	assert.Equal(t,
		"validation failed: email: must be a valid email address; age: must be a number",
		errs.Error(),
	)
}
