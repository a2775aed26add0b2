package forms

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Submission is one accepted, persisted record of a schema. Submissions are
// append-only and never mutated after creation.
type Submission struct {
	ID        uuid.UUID `json:"id"`
	Values    ValueMap  `json:"values"`
	CreatedAt time.Time `json:"created_at"`
}

// FieldStats holds per-field aggregate counts for a schema's relation
type FieldStats struct {
	Total  int64
	Filled map[string]int64
}

// SubmissionRepository binds a FormSchema to its storage relation
type SubmissionRepository interface {
	// EnsureTable creates the schema's relation if it does not exist and
	// verifies an existing relation is compatible. Safe for concurrent
	// first-use across processes.
	EnsureTable(ctx context.Context, schema *FormSchema) error

	// Insert stores one validated value map and returns the stored record
	// with its generated id and timestamp
	Insert(ctx context.Context, schema *FormSchema, values ValueMap) (*Submission, error)

	// Query executes a parsed QuerySpec against the schema's relation and
	// returns the requested page plus the total filtered row count
	Query(ctx context.Context, schema *FormSchema, spec *QuerySpec) ([]Submission, int64, error)

	// Stats returns the total row count and per-field non-null counts
	Stats(ctx context.Context, schema *FormSchema) (*FieldStats, error)
}
