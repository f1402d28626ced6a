package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-sync/pkg/database"
)

// Kind describes one append-only catalogue table: the columns forming its
// natural key and the extra columns written only on first insert.
type Kind struct {
	Name        string
	Table       string
	KeyColumns  []string
	AttrColumns []string
}

// NaturalKey holds the key values of a Kind, aligned with KeyColumns.
type NaturalKey []interface{}

// Attributes holds the insert-only values of a Kind, aligned with AttrColumns.
type Attributes []interface{}

// Catalogue kinds.
var (
	KindPeriod     = Kind{Name: "period", Table: "schedule_periods", KeyColumns: []string{"year_start", "year_end", "semester"}}
	KindInstitute  = Kind{Name: "institute", Table: "institutes", KeyColumns: []string{"name"}, AttrColumns: []string{"short_name"}}
	KindDegree     = Kind{Name: "degree", Table: "degrees", KeyColumns: []string{"name"}, AttrColumns: []string{"rank"}}
	KindDiscipline = Kind{Name: "discipline", Table: "disciplines", KeyColumns: []string{"name"}}
	KindCampus     = Kind{Name: "campus", Table: "campuses", KeyColumns: []string{"short_name"}, AttrColumns: []string{"name"}}
	KindLessonType = Kind{Name: "lesson_type", Table: "lesson_types", KeyColumns: []string{"name"}}
	KindRoom       = Kind{Name: "room", Table: "rooms", KeyColumns: []string{"name"}, AttrColumns: []string{"campus_id"}}
	KindTeacher    = Kind{Name: "teacher", Table: "teachers", KeyColumns: []string{"name"}}
	KindGroup      = Kind{Name: "group", Table: "study_groups", KeyColumns: []string{"name", "period_id"}, AttrColumns: []string{"degree_id", "institute_id"}}
	KindCall       = Kind{Name: "call", Table: "lesson_calls", KeyColumns: []string{"num", "time_start", "time_end"}}
)

// String renders the key for logs and memo lookups.
func (k NaturalKey) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "|")
}

// CatalogueRepository resolves catalogue entities by natural key.
type CatalogueRepository struct {
	db *sqlx.DB
}

// NewCatalogueRepository constructs the repository.
func NewCatalogueRepository(db *sqlx.DB) *CatalogueRepository {
	return &CatalogueRepository{db: db}
}

func (r *CatalogueRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Resolve returns the id of the entity with the given natural key, inserting
// it with attrs when absent. Existing rows are never updated. A concurrent
// insert of the same key is resolved by re-reading the winner's id.
func (r *CatalogueRepository) Resolve(ctx context.Context, exec sqlx.ExtContext, kind Kind, key NaturalKey, attrs Attributes) (string, error) {
	if len(key) != len(kind.KeyColumns) {
		return "", fmt.Errorf("resolve %s: got %d key values, want %d", kind.Name, len(key), len(kind.KeyColumns))
	}
	if len(attrs) != len(kind.AttrColumns) {
		return "", fmt.Errorf("resolve %s: got %d attributes, want %d", kind.Name, len(attrs), len(kind.AttrColumns))
	}
	target := r.exec(exec)

	id, err := r.lookup(ctx, target, kind, key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id, err = r.insert(ctx, target, kind, key, attrs)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, sql.ErrNoRows), database.IsUniqueViolation(err):
		id, err = r.lookup(ctx, target, kind, key)
		if err != nil {
			return "", fmt.Errorf("re-read %s %s after conflict: %w", kind.Name, key, err)
		}
		return id, nil
	default:
		return "", fmt.Errorf("insert %s %s: %w", kind.Name, key, err)
	}
}

func (r *CatalogueRepository) lookup(ctx context.Context, exec sqlx.ExtContext, kind Kind, key NaturalKey) (string, error) {
	conds := make([]string, len(kind.KeyColumns))
	for i, col := range kind.KeyColumns {
		conds[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s LIMIT 1", kind.Table, strings.Join(conds, " AND "))

	var id string
	if err := sqlx.GetContext(ctx, exec, &id, query, key...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("lookup %s %s: %w", kind.Name, key, err)
	}
	return id, nil
}

func (r *CatalogueRepository) insert(ctx context.Context, exec sqlx.ExtContext, kind Kind, key NaturalKey, attrs Attributes) (string, error) {
	columns := append([]string{"id"}, kind.KeyColumns...)
	columns = append(columns, kind.AttrColumns...)
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING RETURNING id",
		kind.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	args := make([]interface{}, 0, len(columns))
	args = append(args, uuid.NewString())
	args = append(args, key...)
	args = append(args, attrs...)

	var id string
	if err := sqlx.GetContext(ctx, exec, &id, query, args...); err != nil {
		return "", err
	}
	return id, nil
}
