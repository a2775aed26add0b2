package persistence

import (
	"sync"

	"github.com/formbox/backend/internal/domain/forms"
	"github.com/formbox/backend/internal/domain/shared"
)

// SchemaCache holds the parsed schemas of this process, keyed by table name.
// Safe for concurrent use. A table name can only ever map to one definition
// hash; re-loading the identical definition is a no-op.
type SchemaCache struct {
	mu      sync.RWMutex
	schemas map[string]*forms.FormSchema
}

// NewSchemaCache creates an empty SchemaCache
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{schemas: make(map[string]*forms.FormSchema)}
}

// Put stores a schema. Storing the same definition again is idempotent;
// storing a different definition under an existing table name returns
// ErrConflict.
func (c *SchemaCache) Put(schema *forms.FormSchema) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.schemas[schema.Name()]; ok {
		if existing.Hash() == schema.Hash() {
			return nil
		}
		return shared.NewDomainError("CONFLICT",
			"table "+schema.Name()+" is already registered with a different schema definition")
	}
	c.schemas[schema.Name()] = schema
	return nil
}

// Get returns the schema registered for a table name
func (c *SchemaCache) Get(tableName string) (*forms.FormSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[tableName]
	return schema, ok
}

// Names returns the registered table names in unspecified order
func (c *SchemaCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered schemas
func (c *SchemaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.schemas)
}
