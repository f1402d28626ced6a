package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sync/internal/dto"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

type syncRunnerMock struct {
	report *dto.CycleReport
	err    error
	last   *dto.CycleReport
}

func (m *syncRunnerMock) RunCycle(ctx context.Context) (*dto.CycleReport, error) {
	return m.report, m.err
}

func (m *syncRunnerMock) LastReport() (*dto.CycleReport, bool) {
	return m.last, m.last != nil
}

func TestSyncTriggerReturnsReport(t *testing.T) {
	started := time.Date(2024, 9, 2, 3, 0, 0, 0, time.UTC)
	report := &dto.CycleReport{
		CycleID:          "cycle-1",
		StartedAt:        started,
		FinishedAt:       started.Add(1500 * time.Millisecond),
		Documents:        4,
		GroupsReconciled: 12,
		GroupsChanged:    []string{"IVT-21"},
	}
	handler := &SyncHandler{service: &syncRunnerMock{report: report}}
	c, w := newTestContext(http.MethodPost, "/sync")

	handler.Trigger(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data dto.CycleReport    `json:"data"`
		Meta map[string]float64 `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cycle-1", body.Data.CycleID)
	assert.Equal(t, []string{"IVT-21"}, body.Data.GroupsChanged)
	assert.Equal(t, float64(1500), body.Meta["durationMs"])
}

func TestSyncTriggerConflictWhileRunning(t *testing.T) {
	handler := &SyncHandler{service: &syncRunnerMock{err: appErrors.ErrCycleRunning}}
	c, w := newTestContext(http.MethodPost, "/sync")

	handler.Trigger(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SYNC_IN_PROGRESS")
}

func TestSyncLastBeforeFirstCycle(t *testing.T) {
	handler := &SyncHandler{service: &syncRunnerMock{}}
	c, w := newTestContext(http.MethodGet, "/sync/last")

	handler.Last(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncLastReturnsStoredReport(t *testing.T) {
	handler := &SyncHandler{service: &syncRunnerMock{last: &dto.CycleReport{CycleID: "cycle-9"}}}
	c, w := newTestContext(http.MethodGet, "/sync/last")

	handler.Last(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cycle-9")
}
