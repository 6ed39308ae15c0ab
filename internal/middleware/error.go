package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "finwise/internal/errors"
	"finwise/internal/logger"
)

// ErrorHandler renders the last error attached with c.Error, when the handler
// has not already written a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError writes err as {"error":{"code","message"}}. AppErrors keep their
// status, code and message, and their internal cause is logged. Any other
// error is logged and reported as a generic internal error so that details
// never reach the client.
func WriteError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Get().Errorw("unexpected error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"request_id", c.GetString(requestIDKey),
		)
		appErr = apperrors.ErrInternalServer
	} else if appErr.Internal != nil {
		logger.Get().Errorw("app error",
			"code", appErr.Code,
			"internal", appErr.Internal.Error(),
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
		)
	}

	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
