package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"iam/domain/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{shared.NewNotFoundError("role", "r1"), http.StatusNotFound},
		{shared.NewValidationError("role", "name", "empty"), http.StatusBadRequest},
		{shared.NewInvalidStateTransitionError("role", "DELETED", "ACTIVE"), http.StatusUnprocessableEntity},
		{shared.NewConcurrencyError("r1", 1, 2), http.StatusConflict},
		{shared.NewForbiddenError("role", "no"), http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", shared.NewForbiddenError("role", "no")), http.StatusForbidden},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func handle(err error) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Set(RequestIDKey, "req-1")
	HandleAppError(c, err)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHandleAppErrorDomainError(t *testing.T) {
	w, resp := handle(shared.NewConcurrencyError("r1", 1, 2))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "CONCURRENT_MODIFICATION", resp.Error)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Contains(t, resp.Message, "reload and retry")
}

func TestHandleAppErrorHidesInternalMessage(t *testing.T) {
	w, resp := handle(errors.New("dial tcp 10.0.0.3:3306: refused"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error)
	assert.Equal(t, "internal server error", resp.Message)
}
