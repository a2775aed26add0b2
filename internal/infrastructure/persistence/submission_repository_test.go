package persistence

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/formbox/backend/internal/domain/forms"
	"github.com/formbox/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newSqliteRepository opens an in-memory database for round-trip tests.
// A single connection keeps every query on the same in-memory instance.
func newSqliteRepository(t *testing.T) *GormSubmissionRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return NewGormSubmissionRepository(&Database{DB: db, Driver: "sqlite"})
}

const surveyDefinition = `{
	"full_name": {"type": "string", "required": true, "minLength": 2},
	"email": {"type": "email", "required": true},
	"age": {"type": "number", "min": 0, "max": 120},
	"country": {"type": "dropdown", "required": true, "options": ["DE", "FR", "NL"]},
	"birthday": {"type": "date"},
	"secret": {"type": "password"}
}`

func surveySchema(t *testing.T) *forms.FormSchema {
	t.Helper()
	schema, err := forms.ParseDefinition("survey_responses", []byte(surveyDefinition))
	require.NoError(t, err)
	return schema
}

// submit validates and inserts one payload
func submit(t *testing.T, repo *GormSubmissionRepository, schema *forms.FormSchema, payload url.Values) *forms.Submission {
	t.Helper()
	values, errs := schema.Validate(payload)
	require.Empty(t, errs)
	sub, err := repo.Insert(context.Background(), schema, values)
	require.NoError(t, err)
	return sub
}

func seedSurvey(t *testing.T, repo *GormSubmissionRepository, schema *forms.FormSchema) {
	t.Helper()
	require.NoError(t, repo.EnsureTable(context.Background(), schema))

	rows := []url.Values{
		{"full_name": {"Ada Lovelace"}, "email": {"ada@example.com"}, "age": {"36"}, "country": {"DE"}, "birthday": {"1815-12-10"}},
		{"full_name": {"Grace Hopper"}, "email": {"grace@example.com"}, "age": {"85"}, "country": {"FR"}, "birthday": {"1906-12-09"}, "secret": {"hunter2"}},
		{"full_name": {"Alan Turing"}, "email": {"alan@example.com"}, "age": {"41"}, "country": {"DE"}},
	}
	for _, payload := range rows {
		submit(t, repo, schema, payload)
	}
}

func TestGormSubmissionRepository_EnsureTable(t *testing.T) {
	t.Run("creates the relation and is idempotent", func(t *testing.T) {
		repo := newSqliteRepository(t)
		schema := surveySchema(t)

		require.NoError(t, repo.EnsureTable(context.Background(), schema))
		require.NoError(t, repo.EnsureTable(context.Background(), schema))
		assert.True(t, repo.db.Migrator().HasTable("survey_responses"))
	})

	t.Run("tolerates extra columns in an existing relation", func(t *testing.T) {
		repo := newSqliteRepository(t)
		schema := surveySchema(t)

		require.NoError(t, repo.EnsureTable(context.Background(), schema))
		require.NoError(t, repo.db.Exec(`ALTER TABLE "survey_responses" ADD COLUMN legacy text`).Error)

		assert.NoError(t, repo.EnsureTable(context.Background(), schema))
	})

	t.Run("missing column in an existing relation conflicts", func(t *testing.T) {
		repo := newSqliteRepository(t)
		require.NoError(t, repo.db.Exec(`CREATE TABLE "survey_responses" (id text PRIMARY KEY, created_at datetime)`).Error)

		err := repo.EnsureTable(context.Background(), surveySchema(t))

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
	})
}

func TestGormSubmissionRepository_InsertAndQuery(t *testing.T) {
	repo := newSqliteRepository(t)
	schema := surveySchema(t)
	seedSurvey(t, repo, schema)
	ctx := context.Background()

	t.Run("round-trips typed values", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{"full_name__value": {"Ada Lovelace"}}, 0, 0)
		require.Empty(t, ferrs)

		subs, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, subs, 1)

		sub := subs[0]
		assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", sub.ID.String())
		assert.False(t, sub.CreatedAt.IsZero())
		assert.Equal(t, "Ada Lovelace", sub.Values["full_name"])
		assert.Equal(t, "ada@example.com", sub.Values["email"])

		age, ok := sub.Values["age"].(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, age.Equal(decimal.NewFromInt(36)))

		birthday, ok := sub.Values["birthday"].(time.Time)
		require.True(t, ok)
		assert.Equal(t, time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC), birthday)

		// Optional fields absent from the payload come back nil
		assert.Nil(t, sub.Values["secret"])
	})

	t.Run("numeric range filter", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{"age__from": {"40"}, "age__to": {"90"}}, 0, 0)
		require.Empty(t, ferrs)

		subs, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, subs, 2)
	})

	t.Run("comparison operator", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{"age__op": {"gte"}, "age__value": {"41"}}, 0, 0)
		require.Empty(t, ferrs)

		_, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("contains matches substrings case-insensitively", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{
			"full_name__op":    {"contains"},
			"full_name__value": {"lovelace"},
		}, 0, 0)
		require.Empty(t, ferrs)

		subs, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, subs, 1)
		assert.Equal(t, "Ada Lovelace", subs[0].Values["full_name"])
	})

	t.Run("contains treats wildcards literally", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{
			"full_name__op":    {"contains"},
			"full_name__value": {"%"},
		}, 0, 0)
		require.Empty(t, ferrs)

		_, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("in filter", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{
			"country__op":    {"in"},
			"country__value": {"DE,NL"},
		}, 0, 0)
		require.Empty(t, ferrs)

		_, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("date range filter", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{"birthday__from": {"1900-01-01"}}, 0, 0)
		require.Empty(t, ferrs)

		subs, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, subs, 1)
		assert.Equal(t, "Grace Hopper", subs[0].Values["full_name"])
	})

	t.Run("multiple filters combine with AND", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{
			"country__value": {"DE"},
			"age__op":        {"lt"},
			"age__value":     {"40"},
		}, 0, 0)
		require.Empty(t, ferrs)

		subs, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, subs, 1)
		assert.Equal(t, "Ada Lovelace", subs[0].Values["full_name"])
	})

	t.Run("sorting and pagination", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(url.Values{
			"sort_by":   {"age"},
			"sort_desc": {"true"},
			"page":      {"1"},
			"page_size": {"2"},
		}, 0, 0)
		require.Empty(t, ferrs)

		subs, total, err := repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, subs, 2)
		assert.Equal(t, "Grace Hopper", subs[0].Values["full_name"])
		assert.Equal(t, "Alan Turing", subs[1].Values["full_name"])

		spec.Page = 2
		subs, _, err = repo.Query(ctx, schema, spec)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "Ada Lovelace", subs[0].Values["full_name"])
	})
}

func TestGormSubmissionRepository_Stats(t *testing.T) {
	repo := newSqliteRepository(t)
	schema := surveySchema(t)
	seedSurvey(t, repo, schema)

	stats, err := repo.Stats(context.Background(), schema)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(3), stats.Filled["full_name"])
	assert.Equal(t, int64(3), stats.Filled["email"])
	assert.Equal(t, int64(2), stats.Filled["birthday"])
	assert.Equal(t, int64(1), stats.Filled["secret"])
}

func TestGormSubmissionRepository_StorageOutage(t *testing.T) {
	repo := newSqliteRepository(t)
	schema := surveySchema(t)
	seedSurvey(t, repo, schema)

	// Simulate an outage by closing the connection under the repository
	sqlDB, err := repo.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	ctx := context.Background()

	t.Run("query reports unavailable", func(t *testing.T) {
		spec, ferrs := schema.ParseQuery(nil, 0, 0)
		require.Empty(t, ferrs)

		_, _, err := repo.Query(ctx, schema, spec)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrUnavailable)
	})

	t.Run("insert reports unavailable", func(t *testing.T) {
		_, err := repo.Insert(ctx, schema, forms.ValueMap{
			"full_name": "Edsger Dijkstra",
			"email":     "edsger@example.com",
			"country":   "NL",
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrUnavailable)
	})

	t.Run("stats reports unavailable", func(t *testing.T) {
		_, err := repo.Stats(ctx, schema)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrUnavailable)
	})

	t.Run("ensure table reports unavailable", func(t *testing.T) {
		err := repo.EnsureTable(ctx, schema)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrUnavailable)
	})
}
