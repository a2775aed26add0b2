package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/formbox/backend/internal/domain/forms"
	"github.com/formbox/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// dialect abstracts the differences between the supported backends: column
// type names, case-insensitive matching, and how typed values travel over
// the wire.
type dialect interface {
	columnType(kind forms.FieldKind) string
	idColumnType() string
	timestampColumnType() string
	containsOperator() string
	encode(kind forms.FieldKind, value any) any
}

type postgresDialect struct{}

func (postgresDialect) columnType(kind forms.FieldKind) string {
	switch kind {
	case forms.FieldKindNumber:
		return "numeric"
	case forms.FieldKindDate:
		return "date"
	default:
		return "text"
	}
}

func (postgresDialect) idColumnType() string        { return "uuid" }
func (postgresDialect) timestampColumnType() string { return "timestamptz" }
func (postgresDialect) containsOperator() string    { return "ILIKE" }

func (postgresDialect) encode(_ forms.FieldKind, value any) any {
	return value
}

type sqliteDialect struct{}

func (sqliteDialect) columnType(kind forms.FieldKind) string {
	switch kind {
	case forms.FieldKindNumber:
		return "numeric"
	default:
		// Dates are stored as YYYY-MM-DD text; lexicographic order matches
		// chronological order
		return "text"
	}
}

func (sqliteDialect) idColumnType() string        { return "text" }
func (sqliteDialect) timestampColumnType() string { return "datetime" }
func (sqliteDialect) containsOperator() string    { return "LIKE" }

func (sqliteDialect) encode(kind forms.FieldKind, value any) any {
	if kind == forms.FieldKindDate {
		if t, ok := value.(time.Time); ok {
			return t.Format(forms.DateLayout)
		}
	}
	return value
}

// GormSubmissionRepository implements forms.SubmissionRepository against a
// per-schema relation created at registration time
type GormSubmissionRepository struct {
	db      *gorm.DB
	dialect dialect
}

// NewGormSubmissionRepository creates a repository for the database's driver
func NewGormSubmissionRepository(database *Database) *GormSubmissionRepository {
	var d dialect = postgresDialect{}
	if database.Driver == "sqlite" {
		d = sqliteDialect{}
	}
	return &GormSubmissionRepository{db: database.DB, dialect: d}
}

// quoteIdent double-quotes an identifier. Identifiers reaching this layer
// have already passed the schema's identifier pattern, quoting guards the
// reserved words among them.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// EnsureTable creates the schema's relation if it does not exist and verifies
// that an existing relation carries every schema column. CREATE TABLE IF NOT
// EXISTS keeps concurrent first submissions across processes safe: every
// racer converges on the same relation. Extra columns in an existing relation
// are tolerated; missing columns are a conflict.
func (r *GormSubmissionRepository) EnsureTable(ctx context.Context, schema *forms.FormSchema) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", quoteIdent(schema.Name()))
	fmt.Fprintf(&b, "%s %s PRIMARY KEY, ", quoteIdent(forms.ColumnID), r.dialect.idColumnType())
	fmt.Fprintf(&b, "%s %s NOT NULL", quoteIdent(forms.ColumnCreatedAt), r.dialect.timestampColumnType())
	for _, field := range schema.Fields() {
		fmt.Fprintf(&b, ", %s %s", quoteIdent(field.Name), r.dialect.columnType(field.Kind))
		if field.Required {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")

	if err := r.db.WithContext(ctx).Exec(b.String()).Error; err != nil {
		return wrapStorageErr(err, "create table %s", schema.Name())
	}
	return r.verifyColumns(ctx, schema)
}

// verifyColumns checks that the live relation carries every column the
// schema expects
func (r *GormSubmissionRepository) verifyColumns(ctx context.Context, schema *forms.FormSchema) error {
	columns, err := r.db.WithContext(ctx).Migrator().ColumnTypes(schema.Name())
	if err != nil {
		return wrapStorageErr(err, "inspect table %s", schema.Name())
	}

	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[strings.ToLower(col.Name())] = struct{}{}
	}

	expected := append([]string{forms.ColumnID, forms.ColumnCreatedAt}, schema.FieldNames()...)
	for _, name := range expected {
		if _, ok := present[name]; !ok {
			return shared.NewDomainError("CONFLICT",
				fmt.Sprintf("table %s exists but is missing column %s", schema.Name(), name))
		}
	}
	return nil
}

// Insert stores one validated value map and returns the stored record
func (r *GormSubmissionRepository) Insert(ctx context.Context, schema *forms.FormSchema, values forms.ValueMap) (*forms.Submission, error) {
	id := uuid.New()
	now := time.Now().UTC()

	row := map[string]any{
		forms.ColumnID:        id,
		forms.ColumnCreatedAt: now,
	}
	for _, field := range schema.Fields() {
		value := values[field.Name]
		if value == nil {
			row[field.Name] = nil
			continue
		}
		row[field.Name] = r.dialect.encode(field.Kind, value)
	}

	if err := r.db.WithContext(ctx).Table(schema.Name()).Create(row).Error; err != nil {
		return nil, wrapStorageErr(err, "insert into %s", schema.Name())
	}

	return &forms.Submission{ID: id, Values: values, CreatedAt: now}, nil
}

// Query executes a parsed QuerySpec against the schema's relation and returns
// the requested page plus the total filtered row count
func (r *GormSubmissionRepository) Query(ctx context.Context, schema *forms.FormSchema, spec *forms.QuerySpec) ([]forms.Submission, int64, error) {
	base := r.applyFilters(r.db.WithContext(ctx).Table(schema.Name()), spec.Filters)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, wrapStorageErr(err, "count %s", schema.Name())
	}

	direction := "ASC"
	if spec.SortDesc {
		direction = "DESC"
	}
	order := quoteIdent(spec.SortBy) + " " + direction
	if spec.SortBy != forms.ColumnID {
		// Stable paging across equal sort keys
		order += ", " + quoteIdent(forms.ColumnID) + " ASC"
	}

	var rows []map[string]any
	if err := base.Session(&gorm.Session{}).
		Order(order).
		Limit(spec.PageSize).
		Offset(spec.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, wrapStorageErr(err, "query %s", schema.Name())
	}

	submissions := make([]forms.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := decodeRow(schema, row)
		if err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, *sub)
	}
	return submissions, total, nil
}

// applyFilters translates FilterExpressions into parameterized WHERE clauses.
// Field names were validated against the schema at parse time and literals
// are always bound, never interpolated.
func (r *GormSubmissionRepository) applyFilters(query *gorm.DB, filters []forms.FilterExpression) *gorm.DB {
	for _, f := range filters {
		col := quoteIdent(f.Field)
		switch f.Operator {
		case forms.OperatorEq:
			query = query.Where(col+" = ?", f.Value)
		case forms.OperatorNe:
			query = query.Where(col+" <> ?", f.Value)
		case forms.OperatorGt:
			query = query.Where(col+" > ?", f.Value)
		case forms.OperatorGte:
			query = query.Where(col+" >= ?", f.Value)
		case forms.OperatorLt:
			query = query.Where(col+" < ?", f.Value)
		case forms.OperatorLte:
			query = query.Where(col+" <= ?", f.Value)
		case forms.OperatorContains:
			pattern := "%" + escapeLike(fmt.Sprint(f.Value)) + "%"
			query = query.Where(col+" "+r.dialect.containsOperator()+" ? ESCAPE '\\'", pattern)
		case forms.OperatorIn:
			query = query.Where(col+" IN ?", f.Values)
		case forms.OperatorBetween:
			if f.Low != nil {
				query = query.Where(col+" >= ?", r.encodeLiteral(f.Low))
			}
			if f.High != nil {
				query = query.Where(col+" <= ?", r.encodeLiteral(f.High))
			}
		}
	}
	return query
}

// encodeLiteral routes typed filter literals through the dialect's value
// encoding so that date bounds compare correctly on every backend
func (r *GormSubmissionRepository) encodeLiteral(value any) any {
	if t, ok := value.(time.Time); ok {
		return r.dialect.encode(forms.FieldKindDate, t)
	}
	return value
}

// escapeLike escapes LIKE wildcards in a user-supplied substring
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// Stats returns the total row count and per-field non-null counts in a
// single aggregate query
func (r *GormSubmissionRepository) Stats(ctx context.Context, schema *forms.FormSchema) (*forms.FieldStats, error) {
	selects := []string{"COUNT(*) AS total"}
	for _, name := range schema.FieldNames() {
		selects = append(selects, fmt.Sprintf("COUNT(%s) AS %s", quoteIdent(name), quoteIdent("f_"+name)))
	}

	row := map[string]any{}
	if err := r.db.WithContext(ctx).
		Table(schema.Name()).
		Select(strings.Join(selects, ", ")).
		Take(&row).Error; err != nil {
		return nil, wrapStorageErr(err, "stats for %s", schema.Name())
	}

	stats := &forms.FieldStats{
		Total:  toInt64(row["total"]),
		Filled: make(map[string]int64, len(schema.FieldNames())),
	}
	for _, name := range schema.FieldNames() {
		stats.Filled[name] = toInt64(row["f_"+name])
	}
	return stats, nil
}

// decodeRow converts one scanned row back into a typed Submission
func decodeRow(schema *forms.FormSchema, row map[string]any) (*forms.Submission, error) {
	id, err := decodeID(row[forms.ColumnID])
	if err != nil {
		return nil, fmt.Errorf("row in %s: %w", schema.Name(), err)
	}
	createdAt, err := decodeTimestamp(row[forms.ColumnCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("row %s in %s: %w", id, schema.Name(), err)
	}

	values := make(forms.ValueMap, len(schema.Fields()))
	for _, field := range schema.Fields() {
		value, err := decodeValue(field.Kind, row[field.Name])
		if err != nil {
			return nil, fmt.Errorf("row %s in %s, field %s: %w", id, schema.Name(), field.Name, err)
		}
		values[field.Name] = value
	}

	return &forms.Submission{ID: id, Values: values, CreatedAt: createdAt}, nil
}

func decodeID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		return uuid.ParseBytes(v)
	default:
		return uuid.Nil, fmt.Errorf("unexpected id type %T", raw)
	}
}

func decodeTimestamp(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return time.Parse(time.RFC3339Nano, v)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", raw)
	}
}

func decodeValue(kind forms.FieldKind, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch kind {
	case forms.FieldKindNumber:
		switch v := raw.(type) {
		case string:
			return decimal.NewFromString(v)
		case []byte:
			return decimal.NewFromString(string(v))
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		default:
			return nil, fmt.Errorf("unexpected number type %T", raw)
		}
	case forms.FieldKindDate:
		switch v := raw.(type) {
		case time.Time:
			return v.UTC().Truncate(24 * time.Hour), nil
		case string:
			if len(v) > len(forms.DateLayout) {
				v = v[:len(forms.DateLayout)]
			}
			return time.ParseInLocation(forms.DateLayout, v, time.UTC)
		case []byte:
			return decodeValue(kind, string(v))
		default:
			return nil, fmt.Errorf("unexpected date type %T", raw)
		}
	default:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		default:
			return fmt.Sprint(v), nil
		}
	}
}

func toInt64(raw any) int64 {
	switch v := raw.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case []byte:
		var n int64
		fmt.Sscan(string(v), &n)
		return n
	default:
		return 0
	}
}

// Ensure GormSubmissionRepository implements SubmissionRepository
var _ forms.SubmissionRepository = (*GormSubmissionRepository)(nil)
