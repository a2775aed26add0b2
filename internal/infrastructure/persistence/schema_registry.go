package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/formbox/backend/internal/domain/forms"
	"github.com/formbox/backend/internal/domain/shared"
	"github.com/formbox/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSchemaRegistry persists the table-name-to-definition-hash binding in
// the form_schemas table so that every process sees the same binding.
type GormSchemaRegistry struct {
	db *gorm.DB
}

// NewGormSchemaRegistry creates a new GormSchemaRegistry
func NewGormSchemaRegistry(db *gorm.DB) *GormSchemaRegistry {
	return &GormSchemaRegistry{db: db}
}

// Bind records the schema's (table name, hash) pair. Binding the same pair
// again is a no-op; binding an existing table name to a different hash
// returns ErrConflict. Safe under concurrent registration: the unique index
// on table_name makes exactly one insert win.
func (r *GormSchemaRegistry) Bind(ctx context.Context, schema *forms.FormSchema, definition []byte) error {
	model := &models.FormSchemaModel{
		ID:         uuid.New(),
		Table:      schema.Name(),
		Hash:       schema.Hash(),
		Definition: string(definition),
		CreatedAt:  time.Now().UTC(),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "table_name"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return wrapStorageErr(result.Error, "bind schema %s", schema.Name())
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Lost the insert race or the binding already existed; either way the
	// stored hash decides
	var existing models.FormSchemaModel
	if err := r.db.WithContext(ctx).
		Where("table_name = ?", schema.Name()).
		First(&existing).Error; err != nil {
		return wrapStorageErr(err, "load binding for %s", schema.Name())
	}
	if existing.Hash != schema.Hash() {
		return shared.NewDomainError("CONFLICT",
			"table "+schema.Name()+" is already bound to a different schema definition")
	}
	return nil
}

// Find returns the stored binding for a table name
func (r *GormSchemaRegistry) Find(ctx context.Context, tableName string) (*forms.SchemaRecord, error) {
	var model models.FormSchemaModel
	if err := r.db.WithContext(ctx).
		Where("table_name = ?", tableName).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, wrapStorageErr(err, "find schema %s", tableName)
	}
	record := toSchemaRecord(model)
	return &record, nil
}

// List returns all stored bindings ordered by table name
func (r *GormSchemaRegistry) List(ctx context.Context) ([]forms.SchemaRecord, error) {
	var out []models.FormSchemaModel
	if err := r.db.WithContext(ctx).
		Order("table_name ASC").
		Find(&out).Error; err != nil {
		return nil, wrapStorageErr(err, "list schemas")
	}
	records := make([]forms.SchemaRecord, len(out))
	for i, model := range out {
		records[i] = toSchemaRecord(model)
	}
	return records, nil
}

func toSchemaRecord(model models.FormSchemaModel) forms.SchemaRecord {
	return forms.SchemaRecord{
		Table:      model.Table,
		Hash:       model.Hash,
		Definition: model.Definition,
		CreatedAt:  model.CreatedAt,
	}
}

// Ensure GormSchemaRegistry implements SchemaRegistry
var _ forms.SchemaRegistry = (*GormSchemaRegistry)(nil)
