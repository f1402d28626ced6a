package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-sync/internal/dto"
	"github.com/noah-isme/timetable-sync/internal/models"
	"github.com/noah-isme/timetable-sync/internal/service"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
	"github.com/noah-isme/timetable-sync/pkg/response"
)

type settingsManager interface {
	Get(ctx context.Context) (*models.ScheduleSettings, error)
	UpdateMaxWeek(ctx context.Context, req dto.UpdateMaxWeekRequest) (*models.ScheduleSettings, error)
}

// SettingsHandler exposes schedule settings.
type SettingsHandler struct {
	service settingsManager
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// GetMaxWeek godoc
// @Summary Current calendar length in weeks
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/max-week [get]
func (h *SettingsHandler) GetMaxWeek(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}

// UpdateMaxWeek godoc
// @Summary Change the calendar length
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdateMaxWeekRequest true "New max week"
// @Success 200 {object} response.Envelope
// @Router /settings/max-week [put]
func (h *SettingsHandler) UpdateMaxWeek(c *gin.Context) {
	var req dto.UpdateMaxWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	settings, err := h.service.UpdateMaxWeek(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}
