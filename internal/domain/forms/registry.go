package forms

import (
	"context"
	"time"
)

// SchemaRecord is the persisted binding of a table name to a definition hash
type SchemaRecord struct {
	Table      string
	Hash       string
	Definition string
	CreatedAt  time.Time
}

// SchemaRegistry persists table-name-to-definition bindings so that every
// process agrees on which definition owns a relation
type SchemaRegistry interface {
	// Bind records the schema's binding. Re-binding the identical definition
	// is a no-op; a different definition under an existing table name is a
	// conflict.
	Bind(ctx context.Context, schema *FormSchema, definition []byte) error

	// Find returns the stored binding for a table name
	Find(ctx context.Context, tableName string) (*SchemaRecord, error)

	// List returns all stored bindings ordered by table name
	List(ctx context.Context) ([]SchemaRecord, error)
}
