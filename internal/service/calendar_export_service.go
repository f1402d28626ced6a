package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

const icalUTCFormat = "20060102T150405Z"

// CalendarExportConfig tunes calendar rendering.
type CalendarExportConfig struct {
	Location *time.Location
}

// CalendarExportService renders a group's recurring lessons as iCalendar.
type CalendarExportService struct {
	lessons  storedLessonReader
	settings maxWeekProvider
	logger   *zap.Logger
	cfg      CalendarExportConfig
	now      func() time.Time
}

// NewCalendarExportService constructs the exporter.
func NewCalendarExportService(lessons storedLessonReader, settings maxWeekProvider, logger *zap.Logger, cfg CalendarExportConfig) *CalendarExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &CalendarExportService{lessons: lessons, settings: settings, logger: logger, cfg: cfg, now: time.Now}
}

// GroupCalendar renders every lesson of the group in the period as one weekly
// recurring event, with the weeks the lesson skips listed as exception dates.
// A nil period selects the current one.
func (s *CalendarExportService) GroupCalendar(ctx context.Context, group string, period *academic.Period) (*ReportFile, error) {
	group = normalizeName(group)
	if group == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group is required")
	}
	p := academic.PeriodOf(s.now().In(s.cfg.Location))
	if period != nil {
		p = *period
	}

	lessons, err := s.lessons.ListStoredForGroup(ctx, group, p)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group lessons")
	}
	if len(lessons) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group has no lessons in this period")
	}

	maxWeek := academic.DefaultMaxWeek
	if s.settings != nil {
		maxWeek = s.settings.MaxWeek(ctx)
	}

	cal := ics.NewCalendarFor("timetable-sync")
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(group)
	cal.SetXWRTimezone(s.cfg.Location.String())

	stamp := s.now().UTC()
	for _, lesson := range lessons {
		set, err := LessonRecurrence(lesson, p, maxWeek, s.cfg.Location)
		if err != nil {
			s.logger.Warn("skipping lesson without recurrence", zap.String("group", group), zap.String("lesson_id", lesson.ID), zap.Error(err))
			continue
		}
		rule := set.GetRRule()
		start := rule.GetDTStart()

		event := cal.AddEvent(lesson.ID + "@timetable-sync")
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(time.Duration(lesson.TimeEnd-lesson.TimeStart) * time.Second))
		event.SetSummary(lessonSummary(lesson))
		if lesson.RoomName != nil {
			event.SetLocation(*lesson.RoomName)
		}
		if len(lesson.TeacherNames) > 0 {
			event.SetDescription(strings.Join(lesson.TeacherNames, ", "))
		}
		event.AddRrule(rule.OrigOptions.RRuleString())
		for _, ex := range set.GetExDate() {
			event.AddExdate(ex.UTC().Format(icalUTCFormat))
		}
	}

	return &ReportFile{
		Filename:    fmt.Sprintf("%s.ics", group),
		ContentType: "text/calendar; charset=utf-8",
		Body:        []byte(cal.Serialize()),
	}, nil
}

// LessonRecurrence builds the weekly recurrence of a lesson from its first to
// its last scheduled week, excluding the weeks in between it skips. Weeks
// beyond maxWeek are ignored.
func LessonRecurrence(lesson models.StoredLesson, period academic.Period, maxWeek int, loc *time.Location) (*rrule.Set, error) {
	weeks := make([]int, 0, len(lesson.Weeks))
	for _, w := range lesson.Weeks {
		if w >= 1 && (maxWeek <= 0 || int(w) <= maxWeek) {
			weeks = append(weeks, int(w))
		}
	}
	weeks = models.NormalizeWeeks(weeks)
	if len(weeks) == 0 {
		return nil, fmt.Errorf("lesson %s has no weeks within %d", lesson.ID, maxWeek)
	}

	occurrence := func(week int) time.Time {
		day := academic.DateOf(period, week, lesson.Weekday)
		c := int(lesson.TimeStart)
		return time.Date(day.Year(), day.Month(), day.Day(), c/3600, (c%3600)/60, c%60, 0, loc).UTC()
	}

	first, last := weeks[0], weeks[len(weeks)-1]
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: occurrence(first),
		Until:   occurrence(last),
	})
	if err != nil {
		return nil, err
	}

	set := &rrule.Set{}
	set.RRule(rule)
	scheduled := make(map[int]struct{}, len(weeks))
	for _, w := range weeks {
		scheduled[w] = struct{}{}
	}
	for w := first; w <= last; w++ {
		if _, ok := scheduled[w]; !ok {
			set.ExDate(occurrence(w))
		}
	}
	return set, nil
}

func lessonSummary(lesson models.StoredLesson) string {
	summary := lesson.DisciplineName
	if lesson.LessonTypeName != nil && *lesson.LessonTypeName != "" {
		summary = fmt.Sprintf("%s (%s)", summary, *lesson.LessonTypeName)
	}
	if lesson.Subgroup != nil {
		summary = fmt.Sprintf("%s, subgroup %d", summary, *lesson.Subgroup)
	}
	return summary
}
