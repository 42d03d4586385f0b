package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salesledger/internal/core/apperror"
	"salesledger/pkg/logger"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		writeError(c)
	}
}

// writeError renders the last gin error unless a response was already written.
func writeError(c *gin.Context) {
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	status, body := errorResponse(c, c.Errors.Last().Err)
	finishIdempotency(c, status, body)
	c.JSON(status, body)
}

func errorResponse(c *gin.Context, err error) (int, ErrorResponse) {
	ctx := c.Request.Context()

	if appErr, ok := apperror.AsAppError(err); ok && appErr.Code != apperror.CodeInternal {
		switch {
		case appErr.HTTPStatus >= http.StatusInternalServerError:
			logger.Error(ctx, "request failed", "code", appErr.Code, "details", appErr.Details, "cause", appErr.Err)
		case appErr.Err != nil:
			logger.Warn(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		}
		return appErr.HTTPStatus, ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}

	logger.Error(ctx, "unhandled error",
		"error", err,
		"method", c.Request.Method,
		"path", c.FullPath(),
	)

	return http.StatusInternalServerError, ErrorResponse{
		Code:    apperror.CodeInternal,
		Message: "Internal server error",
		Details: map[string]any{"request_id": c.GetString("request_id")},
	}
}
