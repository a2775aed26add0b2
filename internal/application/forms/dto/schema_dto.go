package dto

import (
	"encoding/json"
	"time"

	"github.com/formbox/backend/internal/domain/forms"
)

// RegisterSchemaRequest registers a schema definition under a table name
type RegisterSchemaRequest struct {
	TableName  string          `json:"table_name" binding:"required"`
	Definition json.RawMessage `json:"definition" binding:"required"`
}

// FieldResponse describes one field of a registered schema
type FieldResponse struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Required  bool     `json:"required"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Min       *string  `json:"min,omitempty"`
	Max       *string  `json:"max,omitempty"`
	Options   []string `json:"options,omitempty"`
	Operators []string `json:"operators"`
}

// SchemaResponse represents a registered schema in API responses
type SchemaResponse struct {
	TableName string          `json:"table_name"`
	Hash      string          `json:"hash"`
	Fields    []FieldResponse `json:"fields"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

// ToSchemaResponse converts a parsed FormSchema to SchemaResponse
func ToSchemaResponse(schema *forms.FormSchema) *SchemaResponse {
	fields := schema.Fields()
	out := make([]FieldResponse, len(fields))
	for i, f := range fields {
		fr := FieldResponse{
			Name:      f.Name,
			Type:      f.Kind.String(),
			Required:  f.Required,
			MinLength: f.MinLength,
			MaxLength: f.MaxLength,
			Options:   f.Options,
		}
		if f.Min != nil {
			s := f.Min.String()
			fr.Min = &s
		}
		if f.Max != nil {
			s := f.Max.String()
			fr.Max = &s
		}
		ops := forms.SupportedOperators(f.Kind)
		fr.Operators = make([]string, len(ops))
		for j, op := range ops {
			fr.Operators[j] = op.String()
		}
		out[i] = fr
	}
	return &SchemaResponse{
		TableName: schema.Name(),
		Hash:      schema.Hash(),
		Fields:    out,
	}
}

// SchemaListResponse lists all registered schemas
type SchemaListResponse struct {
	Schemas []SchemaSummary `json:"schemas"`
	Total   int             `json:"total"`
}

// SchemaSummary is one row in the schema list
type SchemaSummary struct {
	TableName string    `json:"table_name"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSchemaListResponse converts registry records to a SchemaListResponse
func ToSchemaListResponse(records []forms.SchemaRecord) *SchemaListResponse {
	summaries := make([]SchemaSummary, len(records))
	for i, r := range records {
		summaries[i] = SchemaSummary{
			TableName: r.Table,
			Hash:      r.Hash,
			CreatedAt: r.CreatedAt,
		}
	}
	return &SchemaListResponse{Schemas: summaries, Total: len(summaries)}
}
