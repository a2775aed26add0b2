package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/formbox/backend/internal/application/forms/dto"
	"github.com/formbox/backend/internal/domain/forms"
	"github.com/formbox/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SchemaCache is the process-local store of parsed schemas
type SchemaCache interface {
	Put(schema *forms.FormSchema) error
	Get(tableName string) (*forms.FormSchema, bool)
}

// FormService handles schema registration and lookup
type FormService struct {
	registry forms.SchemaRegistry
	cache    SchemaCache
	repo     forms.SubmissionRepository
	logger   *zap.Logger
}

// NewFormService creates a new form service
func NewFormService(
	registry forms.SchemaRegistry,
	cache SchemaCache,
	repo forms.SubmissionRepository,
	logger *zap.Logger,
) *FormService {
	return &FormService{
		registry: registry,
		cache:    cache,
		repo:     repo,
		logger:   logger,
	}
}

// RegisterSchema parses a definition, binds it to its table name, and makes
// sure the storage relation exists. Registering the identical definition
// again is idempotent; a different definition under a registered table name
// is rejected.
func (s *FormService) RegisterSchema(ctx context.Context, tableName string, definition []byte) (*dto.SchemaResponse, error) {
	schema, err := forms.ParseDefinition(tableName, definition)
	if err != nil {
		return nil, err
	}

	// The registry is the cross-process authority on the binding; the local
	// cache only mirrors what it accepted
	if err := s.registry.Bind(ctx, schema, definition); err != nil {
		return nil, err
	}
	if err := s.cache.Put(schema); err != nil {
		return nil, err
	}
	if err := s.repo.EnsureTable(ctx, schema); err != nil {
		return nil, err
	}

	s.logger.Info("schema registered",
		zap.String("table", schema.Name()),
		zap.String("hash", schema.Hash()),
		zap.Int("fields", len(schema.Fields())))

	return dto.ToSchemaResponse(schema), nil
}

// GetSchema returns the parsed schema for a table name. A cache miss falls
// back to the registry so that schemas registered by another instance are
// visible here.
func (s *FormService) GetSchema(ctx context.Context, tableName string) (*forms.FormSchema, error) {
	if schema, ok := s.cache.Get(tableName); ok {
		return schema, nil
	}

	record, err := s.registry.Find(ctx, tableName)
	if err != nil {
		return nil, err
	}
	schema, err := forms.ParseDefinition(record.Table, []byte(record.Definition))
	if err != nil {
		return nil, fmt.Errorf("stored definition for %s no longer parses: %w", tableName, err)
	}
	if err := s.cache.Put(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// DescribeSchema returns the API representation of a registered schema
func (s *FormService) DescribeSchema(ctx context.Context, tableName string) (*dto.SchemaResponse, error) {
	schema, err := s.GetSchema(ctx, tableName)
	if err != nil {
		return nil, err
	}
	return dto.ToSchemaResponse(schema), nil
}

// ListSchemas returns all registered schema bindings
func (s *FormService) ListSchemas(ctx context.Context) (*dto.SchemaListResponse, error) {
	records, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.ToSchemaListResponse(records), nil
}

// LoadSchemaFile registers every definition in a JSON file mapping table
// names to definitions. Used at startup; a missing file is not an error so
// that fresh deployments can start empty.
func (s *FormService) LoadSchemaFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no schema file found, starting empty", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("read schema file %s: %w", path, err)
	}

	var definitions map[string]json.RawMessage
	if err := json.Unmarshal(raw, &definitions); err != nil {
		return shared.NewDomainError("SCHEMA_INVALID",
			fmt.Sprintf("schema file %s is not a JSON object of definitions: %v", path, err))
	}

	for tableName, definition := range definitions {
		if _, err := s.RegisterSchema(ctx, tableName, definition); err != nil {
			return fmt.Errorf("register schema %s: %w", tableName, err)
		}
	}

	s.logger.Info("schema file loaded",
		zap.String("path", path),
		zap.Int("schemas", len(definitions)))
	return nil
}
