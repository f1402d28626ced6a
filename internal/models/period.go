package models

import "github.com/noah-isme/timetable-sync/internal/academic"

// Period is a persisted academic half-year. Natural key: (year_start, year_end, semester).
type Period struct {
	ID        string `db:"id" json:"id"`
	YearStart int    `db:"year_start" json:"year_start"`
	YearEnd   int    `db:"year_end" json:"year_end"`
	Semester  int    `db:"semester" json:"semester"`
}

// Academic converts the row into its calendar projection form.
func (p Period) Academic() academic.Period {
	return academic.Period{YearStart: p.YearStart, YearEnd: p.YearEnd, Semester: p.Semester}
}

// PeriodFromAcademic builds an unsaved period row.
func PeriodFromAcademic(p academic.Period) Period {
	return Period{YearStart: p.YearStart, YearEnd: p.YearEnd, Semester: p.Semester}
}
