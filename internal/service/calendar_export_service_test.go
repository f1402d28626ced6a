package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

func exportLesson(weeks ...int64) models.StoredLesson {
	return models.StoredLesson{
		ID:             "lesson-1",
		GroupName:      "ИВТ-101",
		CallNum:        1,
		TimeStart:      academic.MustClock("09:00"),
		TimeEnd:        academic.MustClock("10:30"),
		Weekday:        1,
		DisciplineName: "Математика",
		RoomName:       strPtr("A101"),
		LessonTypeName: strPtr("лек"),
		Weeks:          pq.Int64Array(weeks),
		TeacherNames:   pq.StringArray{"Иванов И.И."},
	}
}

func TestLessonRecurrenceSkipsMissingWeeks(t *testing.T) {
	set, err := LessonRecurrence(exportLesson(1, 3, 4, 18), testPeriod, 17, time.UTC)
	require.NoError(t, err)

	occurrences := set.All()
	require.Len(t, occurrences, 3)
	assert.Equal(t, time.Date(2024, time.September, 2, 9, 0, 0, 0, time.UTC), occurrences[0])
	assert.Equal(t, time.Date(2024, time.September, 16, 9, 0, 0, 0, time.UTC), occurrences[1])
	assert.Equal(t, time.Date(2024, time.September, 23, 9, 0, 0, 0, time.UTC), occurrences[2])
	assert.Len(t, set.GetExDate(), 1)

	for _, occ := range occurrences {
		assert.Equal(t, 1, academic.WeekdayOf(occ))
	}
}

func TestLessonRecurrenceRequiresWeeks(t *testing.T) {
	_, err := LessonRecurrence(exportLesson(20), testPeriod, 17, time.UTC)
	require.Error(t, err)
}

func TestGroupCalendarRendersEvents(t *testing.T) {
	stored := storedReaderStub{"ИВТ-101": {exportLesson(1, 3)}}
	svc := NewCalendarExportService(stored, fixedMaxWeek(17), nil, CalendarExportConfig{Location: time.UTC})
	period := testPeriod

	file, err := svc.GroupCalendar(context.Background(), " ИВТ-101 ", &period)
	require.NoError(t, err)
	assert.Equal(t, "ИВТ-101.ics", file.Filename)
	assert.True(t, strings.HasPrefix(file.ContentType, "text/calendar"))

	cal, err := ics.ParseCalendar(bytes.NewReader(file.Body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "Математика (лек)", event.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "A101", event.GetProperty(ics.ComponentPropertyLocation).Value)
	assert.Equal(t, "20240902T090000Z", event.GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240902T103000Z", event.GetProperty(ics.ComponentPropertyDtEnd).Value)
	assert.Contains(t, event.GetProperty(ics.ComponentPropertyRrule).Value, "FREQ=WEEKLY")
	assert.Equal(t, "20240909T090000Z", event.GetProperty(ics.ComponentPropertyExdate).Value)
}

func TestGroupCalendarUnknownGroup(t *testing.T) {
	svc := NewCalendarExportService(storedReaderStub{}, nil, nil, CalendarExportConfig{})

	_, err := svc.GroupCalendar(context.Background(), "nope", nil)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.GroupCalendar(context.Background(), "  ", nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
