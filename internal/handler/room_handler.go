package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/timetable-sync/internal/dto"
	"github.com/noah-isme/timetable-sync/internal/models"
	"github.com/noah-isme/timetable-sync/internal/service"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
	"github.com/noah-isme/timetable-sync/pkg/response"
)

type occupancyReader interface {
	StatusAt(ctx context.Context, roomID string, instant time.Time) (models.RoomStatus, error)
	OccupancySummary(ctx context.Context, q models.OccupancyQuery, instant time.Time) ([]models.RoomOccupancy, error)
	Workload(ctx context.Context, roomID string) (float64, error)
	RoomInfo(ctx context.Context, roomID string) (*models.RoomInfo, error)
	LessonsOn(ctx context.Context, roomID string, date time.Time) ([]models.StoredLesson, error)
	SearchRooms(ctx context.Context, q dto.RoomSearchQuery) ([]models.Room, error)
	WorkloadReport(ctx context.Context, campusID string, format string) (*service.ReportFile, error)
}

// RoomHandler exposes room occupancy and workload endpoints.
type RoomHandler struct {
	service   occupancyReader
	validator *validator.Validate
	now       func() time.Time
}

// NewRoomHandler constructs the handler.
func NewRoomHandler(svc *service.OccupancyService) *RoomHandler {
	return &RoomHandler{service: svc, validator: validator.New(), now: time.Now}
}

// Search godoc
// @Summary Search rooms by name
// @Tags Rooms
// @Produce json
// @Param name query string true "Case-insensitive name fragment"
// @Param limit query int false "Maximum results"
// @Success 200 {object} response.Envelope
// @Router /rooms/search [get]
func (h *RoomHandler) Search(c *gin.Context) {
	var q dto.RoomSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search query"))
		return
	}
	rooms, err := h.service.SearchRooms(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rooms, map[string]interface{}{"count": len(rooms)})
}

// Status godoc
// @Summary Room status at an instant
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Param at query string false "RFC3339 instant, defaults to now"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/status [get]
func (h *RoomHandler) Status(c *gin.Context) {
	instant, err := h.instant(c.Query("at"))
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.service.StatusAt(c.Request.Context(), c.Param("id"), instant)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RoomStatusResponse{RoomID: c.Param("id"), At: instant, Status: status})
}

// Workload godoc
// @Summary Room workload percentage
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/workload [get]
func (h *RoomHandler) Workload(c *gin.Context) {
	workload, err := h.service.Workload(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"roomId": c.Param("id"), "workload": workload})
}

// Info godoc
// @Summary Room details with lessons, workload and purpose
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/info [get]
func (h *RoomHandler) Info(c *gin.Context) {
	info, err := h.service.RoomInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, info)
}

// Lessons godoc
// @Summary Lessons held in a room on a date
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/lessons [get]
func (h *RoomHandler) Lessons(c *gin.Context) {
	var q dto.RoomLessonsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lessons query"))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	date, _ := time.Parse("2006-01-02", q.Date)
	lessons, err := h.service.LessonsOn(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lessons, map[string]interface{}{"count": len(lessons)})
}

// Occupancy godoc
// @Summary Batched occupancy of selected rooms
// @Tags Rooms
// @Produce json
// @Param campusId query string false "Campus ID"
// @Param roomId query []string false "Room IDs" collectionFormat(multi)
// @Param room query []string false "Room name fragments" collectionFormat(multi)
// @Param at query string false "RFC3339 instant, defaults to now"
// @Success 200 {object} response.Envelope
// @Router /occupancy [get]
func (h *RoomHandler) Occupancy(c *gin.Context) {
	var q dto.OccupancySummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid occupancy query"))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid occupancy query"))
		return
	}
	instant, err := h.instant(q.At)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.service.OccupancySummary(c.Request.Context(), models.OccupancyQuery{
		CampusID:  q.CampusID,
		RoomIDs:   q.RoomIDs,
		RoomNames: q.RoomNames,
	}, instant)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary, map[string]interface{}{"at": instant, "count": len(summary)})
}

// WorkloadReport godoc
// @Summary Download the workload report of a campus
// @Tags Rooms
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Campus ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /campuses/{id}/workload-report [get]
func (h *RoomHandler) WorkloadReport(c *gin.Context) {
	var q dto.WorkloadReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report query"))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	file, err := h.service.WorkloadReport(c.Request.Context(), c.Param("id"), q.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func (h *RoomHandler) instant(raw string) (time.Time, error) {
	if raw == "" {
		return h.now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "at must be an RFC3339 timestamp")
	}
	return t, nil
}
