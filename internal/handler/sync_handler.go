package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-sync/internal/dto"
	"github.com/noah-isme/timetable-sync/internal/service"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
	"github.com/noah-isme/timetable-sync/pkg/response"
)

type syncRunner interface {
	RunCycle(ctx context.Context) (*dto.CycleReport, error)
	LastReport() (*dto.CycleReport, bool)
}

// SyncHandler exposes manual synchronisation triggers.
type SyncHandler struct {
	service syncRunner
}

// NewSyncHandler constructs the handler.
func NewSyncHandler(svc *service.SyncService) *SyncHandler {
	return &SyncHandler{service: svc}
}

// Trigger godoc
// @Summary Run a synchronisation cycle
// @Description Discovers, extracts and reconciles every timetable document. Returns 409 while another cycle runs.
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sync [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	report, err := h.service.RunCycle(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, map[string]interface{}{
		"durationMs": report.Duration().Milliseconds(),
	})
}

// Last godoc
// @Summary Report of the last finished cycle
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sync/last [get]
func (h *SyncHandler) Last(c *gin.Context) {
	report, ok := h.service.LastReport()
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no sync cycle has finished yet"))
		return
	}
	response.OK(c, report)
}
