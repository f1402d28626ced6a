package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-sync/internal/models"
)

// SettingsRepository persists the single-row schedule settings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored settings or sql.ErrNoRows.
func (r *SettingsRepository) Get(ctx context.Context) (*models.ScheduleSettings, error) {
	const query = `SELECT max_week, updated_at FROM schedule_settings WHERE id = 1`
	var settings models.ScheduleSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SetMaxWeek stores the calendar length.
func (r *SettingsRepository) SetMaxWeek(ctx context.Context, maxWeek int) (*models.ScheduleSettings, error) {
	settings := models.ScheduleSettings{MaxWeek: maxWeek, UpdatedAt: time.Now().UTC()}
	const query = `
INSERT INTO schedule_settings (id, max_week, updated_at) VALUES (1, :max_week, :updated_at)
ON CONFLICT (id) DO UPDATE SET max_week = EXCLUDED.max_week, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return nil, fmt.Errorf("update schedule settings: %w", err)
	}
	return &settings, nil
}
