package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string             `json:"error"`
	Code   string             `json:"code,omitempty"`
	Fields apierr.FieldErrors `json:"fields,omitempty"`
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Errors other than *apierr.Error are logged and hidden behind a 500.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
		}
		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, body)
	}
}

func render(err error) (int, ErrorResponse) {
	var apiErr *apierr.Error
	switch {
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{Error: apiErr.Error(), Code: apiErr.Code, Fields: apiErr.Fields}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found", Code: apierr.CodeNotFound}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error", Code: "internal"}
	}
}
