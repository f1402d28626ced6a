package models

import "github.com/noah-isme/timetable-sync/internal/academic"

// Institute is a faculty publishing its own timetables.
type Institute struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	ShortName string `db:"short_name" json:"short_name"`
}

// Degree is the study level of a group. Rank orders reconciliation priority.
type Degree struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Rank int    `db:"rank" json:"rank"`
}

// Degree ranks; higher is reconciled first.
const (
	DegreeRankCollege    = 0
	DegreeRankBachelor   = 1
	DegreeRankSpecialist = 2
	DegreeRankMaster     = 3
	DegreeRankPhD        = 4
)

// Discipline is a taught subject.
type Discipline struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Campus groups rooms by site. Natural key: short_name.
type Campus struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	ShortName string `db:"short_name" json:"short_name"`
}

// LessonType is lecture, practice, laboratory and so on.
type LessonType struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Room is a lecture hall. Campus is a lookup reference only.
type Room struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	CampusID *string `db:"campus_id" json:"campus_id,omitempty"`
}

// Group is a student cohort within one period. Natural key: (name, period_id).
type Group struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	PeriodID    string `db:"period_id" json:"period_id"`
	DegreeID    string `db:"degree_id" json:"degree_id"`
	InstituteID string `db:"institute_id" json:"institute_id"`
}

// LessonCall is a numbered slot of the daily timetable, independent of day and week.
type LessonCall struct {
	ID        string         `db:"id" json:"id"`
	Num       int            `db:"num" json:"num"`
	TimeStart academic.Clock `db:"time_start" json:"time_start"`
	TimeEnd   academic.Clock `db:"time_end" json:"time_end"`
}

// Contains reports whether the clock falls inside the call's half-open range.
func (c LessonCall) Contains(at academic.Clock) bool {
	return at.Within(c.TimeStart, c.TimeEnd)
}
