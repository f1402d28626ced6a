package models

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/timetable-sync/internal/academic"
)

// RecurringLesson occupies one room (or none) for a weekday/call pair on the
// listed weeks of its group's period.
type RecurringLesson struct {
	ID           string        `db:"id" json:"id"`
	GroupID      string        `db:"group_id" json:"group_id"`
	CallID       string        `db:"call_id" json:"call_id"`
	DisciplineID string        `db:"discipline_id" json:"discipline_id"`
	Weekday      int           `db:"weekday" json:"weekday"`
	RoomID       *string       `db:"room_id" json:"room_id,omitempty"`
	LessonTypeID *string       `db:"lesson_type_id" json:"lesson_type_id,omitempty"`
	Subgroup     *int          `db:"subgroup" json:"subgroup,omitempty"`
	Weeks        pq.Int64Array `db:"weeks" json:"weeks"`
	TeacherIDs   []string      `db:"-" json:"teacher_ids"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// NaturalKey identifies a lesson by content: every field must match,
// including the full week set and teacher set.
func (l RecurringLesson) NaturalKey() string {
	weeks := make([]int, 0, len(l.Weeks))
	for _, w := range l.Weeks {
		weeks = append(weeks, int(w))
	}
	teachers := append([]string(nil), l.TeacherIDs...)
	sort.Strings(teachers)

	parts := []string{
		l.GroupID,
		l.CallID,
		l.DisciplineID,
		strconv.Itoa(l.Weekday),
		optString(l.LessonTypeID),
		optString(l.RoomID),
		optInt(l.Subgroup),
		joinInts(NormalizeWeeks(weeks)),
		strings.Join(uniqueStrings(teachers), ","),
	}
	return strings.Join(parts, "|")
}

// StoredLesson is a recurring lesson joined with the names of what it references.
type StoredLesson struct {
	ID             string         `db:"id" json:"id"`
	GroupID        string         `db:"group_id" json:"group_id"`
	GroupName      string         `db:"group_name" json:"group_name"`
	CallID         string         `db:"call_id" json:"call_id"`
	CallNum        int            `db:"call_num" json:"call_num"`
	TimeStart      academic.Clock `db:"time_start" json:"time_start"`
	TimeEnd        academic.Clock `db:"time_end" json:"time_end"`
	Weekday        int            `db:"weekday" json:"weekday"`
	DisciplineName string         `db:"discipline_name" json:"discipline"`
	RoomID         *string        `db:"room_id" json:"room_id,omitempty"`
	RoomName       *string        `db:"room_name" json:"room,omitempty"`
	LessonTypeName *string        `db:"lesson_type_name" json:"lesson_type,omitempty"`
	Subgroup       *int           `db:"subgroup" json:"subgroup,omitempty"`
	Weeks          pq.Int64Array  `db:"weeks" json:"weeks"`
	TeacherNames   pq.StringArray `db:"teacher_names" json:"teachers"`
}

// HasWeek reports whether the lesson takes place on the given week.
func (l StoredLesson) HasWeek(week int) bool {
	for _, w := range l.Weeks {
		if int(w) == week {
			return true
		}
	}
	return false
}

// LessonKind tags a parsed lesson.
type LessonKind int

const (
	// LessonKindScheduled is a real lesson to be stored.
	LessonKindScheduled LessonKind = iota + 1
	// LessonKindCancelled marks a slot explicitly no longer scheduled.
	LessonKindCancelled
)

func (k LessonKind) String() string {
	switch k {
	case LessonKindScheduled:
		return "scheduled"
	case LessonKindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParsedCampus is the campus hint attached to a parsed room.
type ParsedCampus struct {
	Name      string `json:"name" yaml:"name"`
	ShortName string `json:"short_name" yaml:"short_name"`
}

// ParsedRoom is the room of a parsed lesson.
type ParsedRoom struct {
	Name   string        `json:"name" validate:"required"`
	Campus *ParsedCampus `json:"campus,omitempty"`
}

// ParsedCall is the slot a parsed lesson occupies.
type ParsedCall struct {
	Num   int            `json:"num" validate:"min=1"`
	Start academic.Clock `json:"start"`
	End   academic.Clock `json:"end" validate:"gtfield=Start"`
}

// ParsedLesson is one extracted lesson item. Cancelled lessons only carry
// their matching key (call and weekday).
type ParsedLesson struct {
	Kind       LessonKind  `json:"kind" validate:"oneof=1 2"`
	Discipline string      `json:"discipline" validate:"required_if=Kind 1"`
	Type       string      `json:"type,omitempty"`
	Teachers   []string    `json:"teachers,omitempty"`
	Room       *ParsedRoom `json:"room,omitempty" validate:"omitempty"`
	Call       ParsedCall  `json:"call"`
	Weekday    int         `json:"weekday" validate:"min=1,max=7"`
	Subgroup   *int        `json:"subgroup,omitempty"`
	Weeks      []int       `json:"weeks,omitempty"`
}

// Scheduled reports whether the lesson should be stored.
func (l ParsedLesson) Scheduled() bool {
	return l.Kind == LessonKindScheduled
}

// RoomName returns the room name or empty when the lesson has no room.
func (l ParsedLesson) RoomName() string {
	if l.Room == nil {
		return ""
	}
	return l.Room.Name
}

// ParsedInstitute identifies the publishing institute of a document.
type ParsedInstitute struct {
	Name      string `json:"name" validate:"required"`
	ShortName string `json:"short_name"`
}

// ParsedDegree identifies the study level of a document.
type ParsedDegree struct {
	Name string `json:"name" validate:"required"`
	Rank int    `json:"rank"`
}

// GroupSchedule is the batch of parsed lessons for one group found in a document.
type GroupSchedule struct {
	Group     string          `json:"group" validate:"required"`
	Period    academic.Period `json:"period"`
	Institute ParsedInstitute `json:"institute"`
	Degree    ParsedDegree    `json:"degree"`
	Lessons   []ParsedLesson  `json:"lessons" validate:"dive"`
}

// ValidWeeks reports whether weeks is non-empty with every entry in [1, maxWeek].
func ValidWeeks(weeks []int, maxWeek int) bool {
	if len(weeks) == 0 {
		return false
	}
	for _, w := range weeks {
		if w < 1 || (maxWeek > 0 && w > maxWeek) {
			return false
		}
	}
	return true
}

// NormalizeWeeks returns the sorted, de-duplicated week set.
func NormalizeWeeks(weeks []int) []int {
	seen := make(map[int]struct{}, len(weeks))
	out := make([]int, 0, len(weeks))
	for _, w := range weeks {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}

// WeekArray converts a week set into its Postgres array form.
func WeekArray(weeks []int) pq.Int64Array {
	arr := make(pq.Int64Array, 0, len(weeks))
	for _, w := range NormalizeWeeks(weeks) {
		arr = append(arr, int64(w))
	}
	return arr
}

func optString(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func uniqueStrings(values []string) []string {
	out := values[:0]
	var prev string
	for i, v := range values {
		if i > 0 && v == prev {
			continue
		}
		out = append(out, v)
		prev = v
	}
	return out
}
