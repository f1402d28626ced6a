package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/dto"
	"github.com/noah-isme/timetable-sync/internal/models"
	"github.com/noah-isme/timetable-sync/internal/repository"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
	"github.com/noah-isme/timetable-sync/pkg/export"
)

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Search(ctx context.Context, fragment string, limit int) ([]models.Room, error)
	List(ctx context.Context, q models.OccupancyQuery) ([]models.Room, error)
}

type callReader interface {
	ListContaining(ctx context.Context, at academic.Clock) ([]models.LessonCall, error)
}

type occupancyLessonReader interface {
	ListStoredByRoom(ctx context.Context, roomID string) ([]models.StoredLesson, error)
	ListStoredByRoomOn(ctx context.Context, roomID string, period academic.Period, weekday, week int) ([]models.StoredLesson, error)
	BusyRoomIDs(ctx context.Context, roomIDs, callIDs []string, period academic.Period, weekday, week int) ([]string, error)
	CountOccupiedSlots(ctx context.Context, roomID string, maxWeek int) (int, error)
	CountOccupiedSlotsByCampus(ctx context.Context, campusID string, maxWeek int) ([]repository.RoomSlotCount, error)
}

type reportRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ReportFile is a rendered report ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// OccupancyConfig tunes read-side behaviour.
type OccupancyConfig struct {
	Location *time.Location
	CacheTTL time.Duration
}

// OccupancyService answers point-in-time occupancy and utilization questions.
type OccupancyService struct {
	rooms     roomReader
	calls     callReader
	lessons   occupancyLessonReader
	settings  maxWeekProvider
	cache     *CacheService
	renderers map[string]reportRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       OccupancyConfig
}

// NewOccupancyService wires occupancy dependencies. cache may be nil.
func NewOccupancyService(rooms roomReader, calls callReader, lessons occupancyLessonReader, settings maxWeekProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg OccupancyConfig) *OccupancyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &OccupancyService{
		rooms:    rooms,
		calls:    calls,
		lessons:  lessons,
		settings: settings,
		cache:    cache,
		renderers: map[string]reportRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

type instantSlot struct {
	period  academic.Period
	week    int
	weekday int
	clock   academic.Clock
}

func (s *OccupancyService) project(instant time.Time) instantSlot {
	local := instant.In(s.cfg.Location)
	period := academic.PeriodOf(local)
	return instantSlot{
		period:  period,
		week:    academic.WeekOf(local, period),
		weekday: academic.WeekdayOf(local),
		clock:   academic.ClockOf(local),
	}
}

// StatusAt reports whether the room holds a lesson at the instant. An instant
// outside every lesson call is free.
func (s *OccupancyService) StatusAt(ctx context.Context, roomID string, instant time.Time) (models.RoomStatus, error) {
	if _, err := s.findRoom(ctx, roomID); err != nil {
		return "", err
	}
	statuses, err := s.statuses(ctx, []string{roomID}, instant)
	if err != nil {
		return "", err
	}
	return statuses[roomID], nil
}

// OccupancySummary is the batched form of StatusAt over the selected rooms.
func (s *OccupancyService) OccupancySummary(ctx context.Context, q models.OccupancyQuery, instant time.Time) ([]models.RoomOccupancy, error) {
	rooms, err := s.rooms.List(ctx, q)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}
	statuses, err := s.statuses(ctx, ids, instant)
	if err != nil {
		return nil, err
	}

	summary := make([]models.RoomOccupancy, 0, len(rooms))
	for _, room := range rooms {
		summary = append(summary, models.RoomOccupancy{RoomID: room.ID, RoomName: room.Name, Status: statuses[room.ID]})
	}
	return summary, nil
}

func (s *OccupancyService) statuses(ctx context.Context, roomIDs []string, instant time.Time) (map[string]models.RoomStatus, error) {
	out := make(map[string]models.RoomStatus, len(roomIDs))
	for _, id := range roomIDs {
		out[id] = models.RoomStatusFree
	}
	if len(roomIDs) == 0 {
		return out, nil
	}

	slot := s.project(instant)
	calls, err := s.calls.ListContaining(ctx, slot.clock)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson calls")
	}
	if len(calls) == 0 {
		return out, nil
	}
	callIDs := make([]string, len(calls))
	for i, call := range calls {
		callIDs[i] = call.ID
	}

	busy, err := s.lessons.BusyRoomIDs(ctx, roomIDs, callIDs, slot.period, slot.weekday, slot.week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query occupancy")
	}
	for _, id := range busy {
		out[id] = models.RoomStatusBusy
	}
	return out, nil
}

// Workload returns the percentage of weekday x call x week capacity the room
// is occupied, rounded to two decimals.
func (s *OccupancyService) Workload(ctx context.Context, roomID string) (float64, error) {
	if _, err := s.findRoom(ctx, roomID); err != nil {
		return 0, err
	}
	maxWeek := s.maxWeek(ctx)
	key := fmt.Sprintf("schedule:workload:%s:%d", roomID, maxWeek)

	var cached float64
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	slots, err := s.lessons.CountOccupiedSlots(ctx, roomID, maxWeek)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute workload")
	}
	workload := WorkloadPercent(slots, maxWeek)
	_ = s.cache.Set(ctx, key, workload, s.cfg.CacheTTL)
	return workload, nil
}

// WorkloadPercent converts an occupied slot count into a rounded percentage.
func WorkloadPercent(slots, maxWeek int) float64 {
	if maxWeek <= 0 {
		return 0
	}
	capacity := float64(academic.WeekdaysPerWeek * academic.CallsPerDay * maxWeek)
	return math.Round(float64(slots)/capacity*100*100) / 100
}

// RoomInfo aggregates the room, its lessons, workload and dominant purpose.
func (s *OccupancyService) RoomInfo(ctx context.Context, roomID string) (*models.RoomInfo, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListStoredByRoom(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room lessons")
	}
	workload, err := s.Workload(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &models.RoomInfo{Room: *room, Lessons: lessons, Workload: workload, Purpose: RoomPurpose(lessons)}, nil
}

// RoomPurpose maps the most frequent lesson type of the lessons to a purpose.
func RoomPurpose(lessons []models.StoredLesson) string {
	counts := make(map[string]int)
	for _, lesson := range lessons {
		if lesson.LessonTypeName == nil {
			continue
		}
		counts[strings.ToLower(normalizeName(*lesson.LessonTypeName))]++
	}
	if len(counts) == 0 {
		return models.RoomPurposeUnknown
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	dominant := names[0]
	switch {
	case strings.HasPrefix(dominant, "лек"):
		return models.RoomPurposeLecture
	case strings.HasPrefix(dominant, "пр"):
		return models.RoomPurposePractice
	case strings.HasPrefix(dominant, "лаб"):
		return models.RoomPurposeLaboratory
	default:
		return models.RoomPurposeUnknown
	}
}

// LessonsOn returns the room's lessons on a calendar date.
func (s *OccupancyService) LessonsOn(ctx context.Context, roomID string, date time.Time) ([]models.StoredLesson, error) {
	if _, err := s.findRoom(ctx, roomID); err != nil {
		return nil, err
	}
	period := academic.PeriodOf(date)
	lessons, err := s.lessons.ListStoredByRoomOn(ctx, roomID, period, academic.WeekdayOf(date), academic.WeekOf(date, period))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room lessons")
	}
	if lessons == nil {
		lessons = []models.StoredLesson{}
	}
	return lessons, nil
}

// SearchRooms finds rooms by case-insensitive name fragment.
func (s *OccupancyService) SearchRooms(ctx context.Context, q dto.RoomSearchQuery) ([]models.Room, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room search")
	}
	rooms, err := s.rooms.Search(ctx, q.Name, q.Limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search rooms")
	}
	return rooms, nil
}

// WorkloadReport renders the workload of every room of the campus.
func (s *OccupancyService) WorkloadReport(ctx context.Context, campusID string, format string) (*ReportFile, error) {
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	maxWeek := s.maxWeek(ctx)
	counts, err := s.lessons.CountOccupiedSlotsByCampus(ctx, campusID, maxWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute campus workload")
	}
	if len(counts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "campus has no rooms")
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Room workload, %d weeks", maxWeek),
		Headers: []string{"Room", "Occupied slots", "Workload, %"},
		Rows:    make([][]string, 0, len(counts)),
	}
	for _, c := range counts {
		data.Rows = append(data.Rows, []string{c.RoomName, fmt.Sprintf("%d", c.Slots), fmt.Sprintf("%.2f", WorkloadPercent(c.Slots, maxWeek))})
	}

	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render workload report")
	}
	return &ReportFile{
		Filename:    fmt.Sprintf("workload-%s.%s", campusID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *OccupancyService) findRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

func (s *OccupancyService) maxWeek(ctx context.Context) int {
	if s.settings == nil {
		return academic.DefaultMaxWeek
	}
	return s.settings.MaxWeek(ctx)
}
