package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
)

// LessonRepository persists recurring lessons and their teacher links.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

func (r *LessonRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const storedLessonSelect = `
SELECT rl.id, rl.group_id, g.name AS group_name, rl.call_id, c.num AS call_num, c.time_start, c.time_end,
       rl.weekday, d.name AS discipline_name, rl.room_id, r.name AS room_name, lt.name AS lesson_type_name,
       rl.subgroup, rl.weeks,
       COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.id IS NOT NULL), '{}') AS teacher_names
FROM recurring_lessons rl
JOIN study_groups g ON g.id = rl.group_id
JOIN lesson_calls c ON c.id = rl.call_id
JOIN disciplines d ON d.id = rl.discipline_id
LEFT JOIN rooms r ON r.id = rl.room_id
LEFT JOIN lesson_types lt ON lt.id = rl.lesson_type_id
LEFT JOIN lesson_teachers ltc ON ltc.lesson_id = rl.id
LEFT JOIN teachers t ON t.id = ltc.teacher_id`

const storedLessonGroupBy = `
GROUP BY rl.id, g.name, c.num, c.time_start, c.time_end, d.name, r.name, lt.name
ORDER BY rl.weekday ASC, c.num ASC, d.name ASC`

// DeleteByGroup removes every lesson of the group and its teacher links.
func (r *LessonRepository) DeleteByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) (int64, error) {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM lesson_teachers WHERE lesson_id IN (SELECT id FROM recurring_lessons WHERE group_id = $1)`, groupID); err != nil {
		return 0, fmt.Errorf("delete lesson teachers: %w", err)
	}
	res, err := target.ExecContext(ctx, `DELETE FROM recurring_lessons WHERE group_id = $1`, groupID)
	if err != nil {
		return 0, fmt.Errorf("delete recurring lessons: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// Insert stores a lesson and links its teachers.
func (r *LessonRepository) Insert(ctx context.Context, exec sqlx.ExtContext, lesson *models.RecurringLesson) error {
	target := r.exec(exec)
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO recurring_lessons (id, group_id, call_id, discipline_id, weekday, room_id, lesson_type_id, subgroup, weeks, created_at)
VALUES (:id, :group_id, :call_id, :discipline_id, :weekday, :room_id, :lesson_type_id, :subgroup, :weeks, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, lesson); err != nil {
		return fmt.Errorf("insert recurring lesson: %w", err)
	}

	for _, teacherID := range lesson.TeacherIDs {
		if _, err := target.ExecContext(ctx, `INSERT INTO lesson_teachers (lesson_id, teacher_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, lesson.ID, teacherID); err != nil {
			return fmt.Errorf("link lesson teacher: %w", err)
		}
	}
	return nil
}

// ListStoredForGroup returns the stored lessons of a group in a period
// without creating the group when it is unknown.
func (r *LessonRepository) ListStoredForGroup(ctx context.Context, groupName string, period academic.Period) ([]models.StoredLesson, error) {
	query := storedLessonSelect + `
JOIN schedule_periods p ON p.id = g.period_id
WHERE g.name = $1 AND p.year_start = $2 AND p.year_end = $3 AND p.semester = $4` + storedLessonGroupBy
	var lessons []models.StoredLesson
	if err := r.db.SelectContext(ctx, &lessons, query, groupName, period.YearStart, period.YearEnd, period.Semester); err != nil {
		return nil, fmt.Errorf("list stored lessons for group: %w", err)
	}
	return lessons, nil
}

// ListStoredByRoom returns every stored lesson held in the room.
func (r *LessonRepository) ListStoredByRoom(ctx context.Context, roomID string) ([]models.StoredLesson, error) {
	query := storedLessonSelect + `
WHERE rl.room_id = $1` + storedLessonGroupBy
	var lessons []models.StoredLesson
	if err := r.db.SelectContext(ctx, &lessons, query, roomID); err != nil {
		return nil, fmt.Errorf("list stored lessons for room: %w", err)
	}
	return lessons, nil
}

// ListStoredByRoomOn returns the room's lessons of the period on one weekday of one week.
func (r *LessonRepository) ListStoredByRoomOn(ctx context.Context, roomID string, period academic.Period, weekday, week int) ([]models.StoredLesson, error) {
	query := storedLessonSelect + `
JOIN schedule_periods p ON p.id = g.period_id
WHERE rl.room_id = $1 AND rl.weekday = $2 AND $3 = ANY(rl.weeks)
  AND p.year_start = $4 AND p.year_end = $5 AND p.semester = $6` + storedLessonGroupBy
	var lessons []models.StoredLesson
	if err := r.db.SelectContext(ctx, &lessons, query, roomID, weekday, week, period.YearStart, period.YearEnd, period.Semester); err != nil {
		return nil, fmt.Errorf("list stored lessons for room day: %w", err)
	}
	return lessons, nil
}

// BusyRoomIDs returns which of the rooms hold a lesson of the period in one
// of the calls on the given weekday and week.
func (r *LessonRepository) BusyRoomIDs(ctx context.Context, roomIDs, callIDs []string, period academic.Period, weekday, week int) ([]string, error) {
	if len(roomIDs) == 0 || len(callIDs) == 0 {
		return []string{}, nil
	}
	const query = `SELECT DISTINCT rl.room_id FROM recurring_lessons rl
JOIN study_groups g ON g.id = rl.group_id
JOIN schedule_periods p ON p.id = g.period_id
WHERE rl.room_id = ANY($1) AND rl.call_id = ANY($2) AND rl.weekday = $3 AND $4 = ANY(rl.weeks)
  AND p.year_start = $5 AND p.year_end = $6 AND p.semester = $7`
	busy := make([]string, 0)
	if err := r.db.SelectContext(ctx, &busy, query, pq.Array(roomIDs), pq.Array(callIDs), weekday, week,
		period.YearStart, period.YearEnd, period.Semester); err != nil {
		return nil, fmt.Errorf("query busy rooms: %w", err)
	}
	return busy, nil
}

// CountOccupiedSlots counts distinct (weekday, call, week) triples of the
// room with week in [1, maxWeek].
func (r *LessonRepository) CountOccupiedSlots(ctx context.Context, roomID string, maxWeek int) (int, error) {
	const query = `SELECT COUNT(*) FROM (
    SELECT DISTINCT rl.weekday, rl.call_id, w.week
    FROM recurring_lessons rl
    CROSS JOIN LATERAL unnest(rl.weeks) AS w(week)
    WHERE rl.room_id = $1 AND w.week BETWEEN 1 AND $2
) slots`
	var count int
	if err := r.db.GetContext(ctx, &count, query, roomID, maxWeek); err != nil {
		return 0, fmt.Errorf("count occupied slots: %w", err)
	}
	return count, nil
}

// RoomSlotCount is the occupied slot count of one room.
type RoomSlotCount struct {
	RoomID   string `db:"room_id"`
	RoomName string `db:"room_name"`
	Slots    int    `db:"slots"`
}

// CountOccupiedSlotsByCampus counts occupied slots for every room of the campus,
// including rooms without lessons.
func (r *LessonRepository) CountOccupiedSlotsByCampus(ctx context.Context, campusID string, maxWeek int) ([]RoomSlotCount, error) {
	const query = `SELECT r.id AS room_id, r.name AS room_name,
       COUNT(DISTINCT (rl.weekday, rl.call_id, w.week)) FILTER (WHERE w.week IS NOT NULL) AS slots
FROM rooms r
LEFT JOIN recurring_lessons rl ON rl.room_id = r.id
LEFT JOIN LATERAL unnest(rl.weeks) AS w(week) ON w.week BETWEEN 1 AND $2
WHERE r.campus_id = $1
GROUP BY r.id, r.name
ORDER BY r.name ASC`
	var counts []RoomSlotCount
	if err := r.db.SelectContext(ctx, &counts, query, campusID, maxWeek); err != nil {
		return nil, fmt.Errorf("count occupied slots by campus: %w", err)
	}
	return counts, nil
}
