package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SahilBhatkande/portfolio/pkg/apperror"
	"github.com/SahilBhatkande/portfolio/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error pushed with c.Error as a JSON envelope.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Err != nil {
				log.Warn("request failed", "path", c.FullPath(), "status", appErr.Code, "error", appErr.Err, "request_id", c.GetString("RequestID"))
			}
			response.Error(c, appErr.Code, appErr.Message, nil)
			return
		}

		// Never expose internal error details to clients.
		log.Error("internal server error", "path", c.FullPath(), "error", err, "request_id", c.GetString("RequestID"))
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}
