// Package academic projects calendar dates onto the teaching calendar:
// academic periods, 1-based teaching weeks and Monday-based weekdays.
package academic

import "time"

const (
	// WeekdaysPerWeek is the number of teaching days counted by workload.
	WeekdaysPerWeek = 6
	// CallsPerDay is the number of lesson calls counted by workload.
	CallsPerDay = 6
	// DefaultMaxWeek is used when no tenant setting is stored.
	DefaultMaxWeek = 17
	// WeekLimit bounds any week number accepted from a document or setting.
	WeekLimit = 53

	springStartMonth = time.February
	springStartDay   = 9
)

// Period identifies an academic half-year.
type Period struct {
	YearStart int `json:"yearStart" yaml:"year_start"`
	YearEnd   int `json:"yearEnd" yaml:"year_end"`
	Semester  int `json:"semester" yaml:"semester"`
}

// PeriodOf returns the academic period a date belongs to. September through
// January belong to the autumn semester, February through August to spring.
func PeriodOf(date time.Time) Period {
	year, month := date.Year(), date.Month()
	switch {
	case month >= time.September:
		return Period{YearStart: year, YearEnd: year + 1, Semester: 1}
	case month == time.January:
		return Period{YearStart: year - 1, YearEnd: year, Semester: 1}
	default:
		return Period{YearStart: year - 1, YearEnd: year, Semester: 2}
	}
}

// PeriodStart returns the first teaching day of the period.
func PeriodStart(p Period) time.Time {
	if p.Semester == 2 {
		return time.Date(p.YearEnd, springStartMonth, springStartDay, 0, 0, 0, 0, time.UTC)
	}
	first := time.Date(p.YearStart, time.September, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset)
}

// WeekOf returns the 1-based teaching week of date within the period.
// Dates before the period start clamp to week 1.
func WeekOf(date time.Time, p Period) int {
	day := dateOnly(date)
	start := PeriodStart(p)
	if day.Before(start) {
		return 1
	}
	anchor := start.AddDate(0, 0, -(WeekdayOf(start) - 1))
	days := int(day.Sub(anchor).Hours() / 24)
	return days/7 + 1
}

// WeekdayOf returns the weekday of date, Monday=1 through Sunday=7.
func WeekdayOf(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateOf inverts WeekOf/WeekdayOf: it returns the calendar date of the given
// week and weekday within the period.
func DateOf(p Period, week, weekday int) time.Time {
	start := PeriodStart(p)
	anchor := start.AddDate(0, 0, -(WeekdayOf(start) - 1))
	return anchor.AddDate(0, 0, (week-1)*7+(weekday-1))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
