package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	r := gin.New()
	r.Use(ErrorHandler(logger.Nop()))
	r.GET("/", func(c *gin.Context) { _ = c.Error(err) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr, body
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apierr.NotFound("recipe"), http.StatusNotFound, apierr.CodeNotFound},
		{"conflict", apierr.Conflict("already there"), http.StatusBadRequest, apierr.CodeConflict},
		{"not related", apierr.NotRelated("not there"), http.StatusBadRequest, apierr.CodeNotRelated},
		{"forbidden", apierr.Forbidden("nope"), http.StatusForbidden, apierr.CodeForbidden},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, apierr.CodeNotFound},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := serveError(t, tt.err)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestErrorHandlerHidesInternalDetails(t *testing.T) {
	_, body := serveError(t, errors.New("pq: password authentication failed"))
	assert.Equal(t, "Internal Server Error", body.Error)
}

func TestErrorHandlerRendersFields(t *testing.T) {
	fields := apierr.FieldErrors{}
	fields.Add("tags", "must contain at least one tag")
	fields.Add("cooking_time", "must be between 1 and 1440 minutes")

	rr, body := serveError(t, apierr.Validation(fields))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeValidation, body.Code)
	assert.Equal(t, []string{"must contain at least one tag"}, body.Fields["tags"])
	assert.Len(t, body.Fields, 2)
}

func TestErrorHandlerLeavesWrittenResponses(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.Nop()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusAccepted, "partial")
		_ = c.Error(errors.New("late failure"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "partial", rr.Body.String())
}
