package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sync/internal/dto"
	"github.com/noah-isme/timetable-sync/internal/models"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

type settingsManagerMock struct {
	maxWeek  int
	captured dto.UpdateMaxWeekRequest
	err      error
}

func (m *settingsManagerMock) Get(ctx context.Context) (*models.ScheduleSettings, error) {
	return &models.ScheduleSettings{MaxWeek: m.maxWeek}, nil
}

func (m *settingsManagerMock) UpdateMaxWeek(ctx context.Context, req dto.UpdateMaxWeekRequest) (*models.ScheduleSettings, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.ScheduleSettings{MaxWeek: req.MaxWeek}, nil
}

func TestSettingsGetMaxWeek(t *testing.T) {
	handler := &SettingsHandler{service: &settingsManagerMock{maxWeek: 17}}
	c, w := newTestContext(http.MethodGet, "/settings/max-week")

	handler.GetMaxWeek(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"max_week":17`)
}

func TestSettingsUpdateMaxWeek(t *testing.T) {
	mock := &settingsManagerMock{}
	handler := &SettingsHandler{service: mock}
	c, w := newTestContext(http.MethodPut, "/settings/max-week")
	c.Request, _ = http.NewRequest(http.MethodPut, "/settings/max-week", bytes.NewBufferString(`{"maxWeek":18}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateMaxWeek(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 18, mock.captured.MaxWeek)
}

func TestSettingsUpdateMaxWeekMalformedBody(t *testing.T) {
	handler := &SettingsHandler{service: &settingsManagerMock{}}
	c, w := newTestContext(http.MethodPut, "/settings/max-week")
	c.Request, _ = http.NewRequest(http.MethodPut, "/settings/max-week", bytes.NewBufferString(`{"maxWeek":`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateMaxWeek(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsUpdateMaxWeekValidation(t *testing.T) {
	handler := &SettingsHandler{service: &settingsManagerMock{err: appErrors.Clone(appErrors.ErrValidation, "maxWeek must be between 1 and 53")}}
	c, w := newTestContext(http.MethodPut, "/settings/max-week")
	c.Request, _ = http.NewRequest(http.MethodPut, "/settings/max-week", bytes.NewBufferString(`{"maxWeek":99}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateMaxWeek(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}
