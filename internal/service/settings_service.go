package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/dto"
	"github.com/noah-isme/timetable-sync/internal/models"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

type settingsRepository interface {
	Get(ctx context.Context) (*models.ScheduleSettings, error)
	SetMaxWeek(ctx context.Context, maxWeek int) (*models.ScheduleSettings, error)
}

// SettingsService exposes tenant-wide calendar settings.
type SettingsService struct {
	repo      settingsRepository
	fallback  int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs the service. fallback is used when nothing is stored.
func NewSettingsService(repo settingsRepository, fallback int, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if fallback <= 0 {
		fallback = academic.DefaultMaxWeek
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, fallback: fallback, validator: validate, logger: logger}
}

// Get returns the stored settings, or the configured defaults when none are stored.
func (s *SettingsService) Get(ctx context.Context) (*models.ScheduleSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ScheduleSettings{MaxWeek: s.fallback}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule settings")
	}
	if settings.MaxWeek <= 0 {
		settings.MaxWeek = s.fallback
	}
	return settings, nil
}

// MaxWeek returns the calendar length, falling back to the default on any error.
func (s *SettingsService) MaxWeek(ctx context.Context) int {
	settings, err := s.Get(ctx)
	if err != nil {
		s.logger.Warn("using default max week", zap.Int("max_week", s.fallback), zap.Error(err))
		return s.fallback
	}
	return settings.MaxWeek
}

// UpdateMaxWeek validates and stores a new calendar length.
func (s *SettingsService) UpdateMaxWeek(ctx context.Context, req dto.UpdateMaxWeekRequest) (*models.ScheduleSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid max week")
	}
	settings, err := s.repo.SetMaxWeek(ctx, req.MaxWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule settings")
	}
	s.logger.Info("max week updated", zap.Int("max_week", settings.MaxWeek))
	return settings, nil
}
