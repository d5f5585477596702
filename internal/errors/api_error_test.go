package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalCause_Unwraps(t *testing.T) {
	cause := stderrors.New("disk full")
	err := InternalCause(cause, "failed to save")

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "internal_error", err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal_error: failed to save: disk full", err.Error())
}

func TestWithDetails_DoesNotMutate(t *testing.T) {
	base := NotFound("task_not_found", "task not found")
	detailed := base.WithDetails(map[string]string{"id": "t1"})

	assert.Nil(t, base.Details)
	assert.Equal(t, map[string]string{"id": "t1"}, detailed.Details)
	assert.Equal(t, "task_not_found: task not found", base.Error())
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "unauthorized", Unauthorized("").Message)
	assert.Equal(t, "internal server error", Internal("").Message)
	assert.Equal(t, http.StatusConflict, Conflict("state_conflict", "changed", nil).Status)
}
