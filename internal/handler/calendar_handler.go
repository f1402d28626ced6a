package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/service"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
	"github.com/noah-isme/timetable-sync/pkg/response"
)

type groupCalendarExporter interface {
	GroupCalendar(ctx context.Context, group string, period *academic.Period) (*service.ReportFile, error)
}

// CalendarHandler serves group timetables as iCalendar feeds.
type CalendarHandler struct {
	service groupCalendarExporter
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(svc *service.CalendarExportService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// GroupICS godoc
// @Summary Group timetable as iCalendar
// @Tags Calendar
// @Produce text/calendar
// @Param name path string true "Group name"
// @Param yearStart query int false "First year of the academic year"
// @Param semester query int false "1 (autumn) or 2 (spring)"
// @Success 200 {file} file
// @Router /groups/{name}/calendar.ics [get]
func (h *CalendarHandler) GroupICS(c *gin.Context) {
	period, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.GroupCalendar(c.Request.Context(), c.Param("name"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func periodFromQuery(c *gin.Context) (*academic.Period, error) {
	rawYear, rawSemester := c.Query("yearStart"), c.Query("semester")
	if rawYear == "" && rawSemester == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil || year < 2000 {
		return nil, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "yearStart must be a year")
	}
	semester, err := strconv.Atoi(rawSemester)
	if err != nil || (semester != 1 && semester != 2) {
		return nil, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "semester must be 1 or 2")
	}
	return &academic.Period{YearStart: year, YearEnd: year + 1, Semester: semester}, nil
}
