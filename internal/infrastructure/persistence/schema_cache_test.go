package persistence

import (
	"sync"
	"testing"

	"github.com/formbox/backend/internal/domain/forms"
	"github.com/formbox/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheTestSchema(t *testing.T, table, definition string) *forms.FormSchema {
	t.Helper()
	schema, err := forms.ParseDefinition(table, []byte(definition))
	require.NoError(t, err)
	return schema
}

func TestSchemaCache_Put(t *testing.T) {
	t.Run("stores and retrieves a schema", func(t *testing.T) {
		cache := NewSchemaCache()
		schema := cacheTestSchema(t, "guestbook", `{"name": {"type": "string"}}`)

		require.NoError(t, cache.Put(schema))

		got, ok := cache.Get("guestbook")
		require.True(t, ok)
		assert.Equal(t, schema.Hash(), got.Hash())
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("re-registering the identical definition is idempotent", func(t *testing.T) {
		cache := NewSchemaCache()
		a := cacheTestSchema(t, "guestbook", `{"name": {"type": "string"}}`)
		b := cacheTestSchema(t, "guestbook", `{"name": {"type": "string"}}`)

		require.NoError(t, cache.Put(a))
		require.NoError(t, cache.Put(b))
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("different definition under the same table name conflicts", func(t *testing.T) {
		cache := NewSchemaCache()
		a := cacheTestSchema(t, "guestbook", `{"name": {"type": "string"}}`)
		b := cacheTestSchema(t, "guestbook", `{"name": {"type": "string", "required": true}}`)

		require.NoError(t, cache.Put(a))

		err := cache.Put(b)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)

		// The original binding survives
		got, ok := cache.Get("guestbook")
		require.True(t, ok)
		assert.Equal(t, a.Hash(), got.Hash())
	})

	t.Run("unknown table name misses", func(t *testing.T) {
		cache := NewSchemaCache()
		_, ok := cache.Get("missing")
		assert.False(t, ok)
	})
}

func TestSchemaCache_ConcurrentPut(t *testing.T) {
	cache := NewSchemaCache()
	schema := cacheTestSchema(t, "guestbook", `{"name": {"type": "string"}}`)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = cache.Put(schema)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, cache.Len())
}
