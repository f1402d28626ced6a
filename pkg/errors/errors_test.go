package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrConflict, "group busy"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrConflict.Code, appErr.Code)
	assert.Equal(t, "group busy", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesByCode(t *testing.T) {
	err := WrapAs(ErrCycleRunning, errors.New("locked"), "")
	assert.True(t, errors.Is(err, ErrCycleRunning))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, ErrCycleRunning.Message, err.Message)
}
