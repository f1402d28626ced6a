package service

import (
	"context"
	"database/sql"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

type lessonWriter interface {
	DeleteByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) (int64, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, lesson *models.RecurringLesson) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type maxWeekProvider interface {
	MaxWeek(ctx context.Context) int
}

// ReconcileResult describes one group replacement.
type ReconcileResult struct {
	GroupID    string `json:"groupId"`
	Group      string `json:"group"`
	Deleted    int64  `json:"deleted"`
	Stored     int    `json:"stored"`
	Skipped    int    `json:"skipped"`
	Cancelled  int    `json:"cancelled"`
	Duplicates int    `json:"duplicates"`
}

type reconcileOptions struct {
	memo CatalogueMemo
}

// ReconcileOption tunes a single ReconcileGroup call.
type ReconcileOption func(*reconcileOptions)

// WithCatalogueMemo shares resolved catalogue ids across calls of one cycle.
func WithCatalogueMemo(memo CatalogueMemo) ReconcileOption {
	return func(o *reconcileOptions) {
		o.memo = memo
	}
}

// ReconcileService replaces the stored lessons of one group with a fresh parse.
type ReconcileService struct {
	tx        txProvider
	catalogue *CatalogueService
	lessons   lessonWriter
	maxWeek   maxWeekProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReconcileService wires reconciler dependencies.
func NewReconcileService(tx txProvider, catalogue *CatalogueService, lessons lessonWriter, maxWeek maxWeekProvider, validate *validator.Validate, logger *zap.Logger) *ReconcileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{
		tx:        tx,
		catalogue: catalogue,
		lessons:   lessons,
		maxWeek:   maxWeek,
		validator: validate,
		logger:    logger,
	}
}

// ReconcileGroup deletes every stored lesson of the group and recreates them
// from schedule inside one transaction. Catalogue entries are resolved
// outside the transaction and survive a rollback. Invalid lessons are logged
// and skipped; cancelled lessons need no action since nothing old survives.
func (s *ReconcileService) ReconcileGroup(ctx context.Context, schedule models.GroupSchedule, opts ...ReconcileOption) (result *ReconcileResult, err error) {
	options := reconcileOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	memo := options.memo
	if memo == nil {
		memo = NewCatalogueMemo()
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	log := s.logger.With(zap.String("group", schedule.Group))

	groupID, err := s.resolveGroup(ctx, memo, schedule)
	if err != nil {
		return nil, err
	}

	maxWeek := academic.DefaultMaxWeek
	if s.maxWeek != nil {
		maxWeek = s.maxWeek.MaxWeek(ctx)
	}

	result = &ReconcileResult{GroupID: groupID, Group: schedule.Group}
	prepared := make([]*models.RecurringLesson, 0, len(schedule.Lessons))
	seen := make(map[string]struct{}, len(schedule.Lessons))

	for i, parsed := range schedule.Lessons {
		if !parsed.Scheduled() {
			result.Cancelled++
			continue
		}
		if reason := s.rejectReason(parsed, maxWeek); reason != "" {
			result.Skipped++
			log.Warn("skipping invalid lesson",
				zap.Int("index", i),
				zap.String("reason", reason),
				zap.String("discipline", parsed.Discipline),
				zap.Int("weekday", parsed.Weekday),
				zap.Ints("weeks", parsed.Weeks),
			)
			continue
		}

		lesson, resolveErr := s.buildLesson(ctx, memo, groupID, parsed)
		if resolveErr != nil {
			return nil, appErrors.WrapAs(appErrors.ErrReconcileFailed, resolveErr, "failed to resolve lesson references")
		}
		key := lesson.NaturalKey()
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		prepared = append(prepared, lesson)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrReconcileFailed, err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if result.Deleted, err = s.lessons.DeleteByGroup(ctx, tx, groupID); err != nil {
		err = appErrors.WrapAs(appErrors.ErrReconcileFailed, err, "failed to clear group lessons")
		return nil, err
	}
	for _, lesson := range prepared {
		if err = s.lessons.Insert(ctx, tx, lesson); err != nil {
			err = appErrors.WrapAs(appErrors.ErrReconcileFailed, err, "failed to store lesson")
			return nil, err
		}
		result.Stored++
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.WrapAs(appErrors.ErrReconcileFailed, err, "failed to commit group lessons")
		return nil, err
	}

	log.Debug("group reconciled",
		zap.Int64("deleted", result.Deleted),
		zap.Int("stored", result.Stored),
		zap.Int("skipped", result.Skipped),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

func (s *ReconcileService) resolveGroup(ctx context.Context, memo CatalogueMemo, schedule models.GroupSchedule) (string, error) {
	instituteID, err := s.catalogue.ResolveInstitute(ctx, memo, schedule.Institute)
	if err != nil {
		return "", err
	}
	degreeID, err := s.catalogue.ResolveDegree(ctx, memo, schedule.Degree)
	if err != nil {
		return "", err
	}
	periodID, err := s.catalogue.ResolvePeriod(ctx, memo, schedule.Period)
	if err != nil {
		return "", err
	}
	return s.catalogue.ResolveGroup(ctx, memo, schedule.Group, periodID, degreeID, instituteID)
}

func (s *ReconcileService) rejectReason(parsed models.ParsedLesson, maxWeek int) string {
	if !models.ValidWeeks(parsed.Weeks, maxWeek) {
		return "invalid week set"
	}
	if normalizeName(parsed.Discipline) == "" {
		return "discipline is required"
	}
	if err := s.validator.Struct(parsed); err != nil {
		return err.Error()
	}
	return ""
}

func (s *ReconcileService) buildLesson(ctx context.Context, memo CatalogueMemo, groupID string, parsed models.ParsedLesson) (*models.RecurringLesson, error) {
	disciplineID, err := s.catalogue.ResolveDiscipline(ctx, memo, parsed.Discipline)
	if err != nil {
		return nil, err
	}
	lessonTypeID, err := s.catalogue.ResolveLessonType(ctx, memo, parsed.Type)
	if err != nil {
		return nil, err
	}
	roomID, err := s.catalogue.ResolveRoom(ctx, memo, parsed.Room)
	if err != nil {
		return nil, err
	}
	callID, err := s.catalogue.ResolveCall(ctx, memo, parsed.Call)
	if err != nil {
		return nil, err
	}
	teacherIDs, err := s.catalogue.ResolveTeachers(ctx, memo, parsed.Teachers)
	if err != nil {
		return nil, err
	}
	sort.Strings(teacherIDs)

	return &models.RecurringLesson{
		GroupID:      groupID,
		CallID:       callID,
		DisciplineID: disciplineID,
		Weekday:      parsed.Weekday,
		RoomID:       roomID,
		LessonTypeID: lessonTypeID,
		Subgroup:     parsed.Subgroup,
		Weeks:        models.WeekArray(parsed.Weeks),
		TeacherIDs:   teacherIDs,
	}, nil
}
