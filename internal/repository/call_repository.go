package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
)

// CallRepository reads lesson calls.
type CallRepository struct {
	db *sqlx.DB
}

// NewCallRepository constructs the repository.
func NewCallRepository(db *sqlx.DB) *CallRepository {
	return &CallRepository{db: db}
}

// ListContaining returns every call whose [time_start, time_end) range holds at.
func (r *CallRepository) ListContaining(ctx context.Context, at academic.Clock) ([]models.LessonCall, error) {
	const query = `SELECT id, num, time_start, time_end FROM lesson_calls WHERE time_start <= $1 AND $1 < time_end ORDER BY num ASC`
	calls := make([]models.LessonCall, 0)
	if err := r.db.SelectContext(ctx, &calls, query, at); err != nil {
		return nil, fmt.Errorf("list calls containing %s: %w", at, err)
	}
	return calls, nil
}
