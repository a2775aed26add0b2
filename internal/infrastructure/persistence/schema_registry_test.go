package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/formbox/backend/internal/domain/forms"
	"github.com/formbox/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockSchemaRegistry creates a GormSchemaRegistry with a mocked SQL connection
func newMockSchemaRegistry(t *testing.T) (*GormSchemaRegistry, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormSchemaRegistry(gormDB), mock, mockDB
}

func registryTestSchema(t *testing.T) (*forms.FormSchema, []byte) {
	t.Helper()
	definition := []byte(`{"name": {"type": "string", "required": true}}`)
	schema, err := forms.ParseDefinition("guestbook", definition)
	require.NoError(t, err)
	return schema, definition
}

func TestGormSchemaRegistry_Bind(t *testing.T) {
	t.Run("inserts a new binding", func(t *testing.T) {
		registry, mock, mockDB := newMockSchemaRegistry(t)
		defer mockDB.Close()

		schema, definition := registryTestSchema(t)

		mock.ExpectExec(`INSERT INTO "form_schemas"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := registry.Bind(context.Background(), schema, definition)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same hash already bound is a no-op", func(t *testing.T) {
		registry, mock, mockDB := newMockSchemaRegistry(t)
		defer mockDB.Close()

		schema, definition := registryTestSchema(t)

		mock.ExpectExec(`INSERT INTO "form_schemas"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "form_schemas" WHERE table_name = \$1`).
			WithArgs(schema.Name(), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "table_name", "hash", "definition"}).
				AddRow(uuid.New(), schema.Name(), schema.Hash(), string(definition)))

		err := registry.Bind(context.Background(), schema, definition)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("different hash under the same table name conflicts", func(t *testing.T) {
		registry, mock, mockDB := newMockSchemaRegistry(t)
		defer mockDB.Close()

		schema, definition := registryTestSchema(t)

		mock.ExpectExec(`INSERT INTO "form_schemas"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "form_schemas" WHERE table_name = \$1`).
			WithArgs(schema.Name(), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "table_name", "hash", "definition"}).
				AddRow(uuid.New(), schema.Name(), "different-hash", "{}"))

		err := registry.Bind(context.Background(), schema, definition)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure reports unavailable", func(t *testing.T) {
		registry, mock, mockDB := newMockSchemaRegistry(t)
		defer mockDB.Close()

		schema, definition := registryTestSchema(t)

		mock.ExpectExec(`INSERT INTO "form_schemas"`).
			WillReturnError(errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))

		err := registry.Bind(context.Background(), schema, definition)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSchemaRegistry_Find(t *testing.T) {
	t.Run("returns the stored binding", func(t *testing.T) {
		registry, mock, mockDB := newMockSchemaRegistry(t)
		defer mockDB.Close()

		schema, definition := registryTestSchema(t)

		mock.ExpectQuery(`SELECT \* FROM "form_schemas" WHERE table_name = \$1`).
			WithArgs("guestbook", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "table_name", "hash", "definition"}).
				AddRow(uuid.New(), "guestbook", schema.Hash(), string(definition)))

		record, err := registry.Find(context.Background(), "guestbook")

		require.NoError(t, err)
		assert.Equal(t, "guestbook", record.Table)
		assert.Equal(t, schema.Hash(), record.Hash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown table name maps to ErrNotFound", func(t *testing.T) {
		registry, mock, mockDB := newMockSchemaRegistry(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "form_schemas" WHERE table_name = \$1`).
			WithArgs("missing", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		record, err := registry.Find(context.Background(), "missing")

		assert.Nil(t, record)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
