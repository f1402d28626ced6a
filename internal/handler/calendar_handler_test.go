package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/service"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

type calendarExporterMock struct {
	group  string
	period *academic.Period
	err    error
}

func (m *calendarExporterMock) GroupCalendar(ctx context.Context, group string, period *academic.Period) (*service.ReportFile, error) {
	m.group, m.period = group, period
	if m.err != nil {
		return nil, m.err
	}
	return &service.ReportFile{Filename: group + ".ics", ContentType: "text/calendar; charset=utf-8", Body: []byte("BEGIN:VCALENDAR\r\n")}, nil
}

func TestCalendarGroupICSCurrentPeriod(t *testing.T) {
	mock := &calendarExporterMock{}
	handler := &CalendarHandler{service: mock}
	c, w := newTestContext(http.MethodGet, "/groups/IVT-21/calendar.ics")
	c.Params = append(c.Params, ginParam("name", "IVT-21"))

	handler.GroupICS(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IVT-21", mock.group)
	assert.Nil(t, mock.period)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "IVT-21.ics")
}

func TestCalendarGroupICSExplicitPeriod(t *testing.T) {
	mock := &calendarExporterMock{}
	handler := &CalendarHandler{service: mock}
	c, w := newTestContext(http.MethodGet, "/groups/IVT-21/calendar.ics?yearStart=2024&semester=2")
	c.Params = append(c.Params, ginParam("name", "IVT-21"))

	handler.GroupICS(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.period)
	assert.Equal(t, academic.Period{YearStart: 2024, YearEnd: 2025, Semester: 2}, *mock.period)
}

func TestCalendarGroupICSRejectsSemester(t *testing.T) {
	handler := &CalendarHandler{service: &calendarExporterMock{}}
	c, w := newTestContext(http.MethodGet, "/groups/IVT-21/calendar.ics?yearStart=2024&semester=3")
	c.Params = append(c.Params, ginParam("name", "IVT-21"))

	handler.GroupICS(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarGroupICSUnknownGroup(t *testing.T) {
	handler := &CalendarHandler{service: &calendarExporterMock{err: appErrors.Clone(appErrors.ErrNotFound, "group has no lessons")}}
	c, w := newTestContext(http.MethodGet, "/groups/none/calendar.ics")
	c.Params = append(c.Params, ginParam("name", "none"))

	handler.GroupICS(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
