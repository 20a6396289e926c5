package response

import (
	"errors"

	"github.com/gin-gonic/gin"
	apperrors "github.com/payflow/server/internal/shared/errors"
)

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error sends an error response with the given status code.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// ErrorWithCode sends an error response with an error code.
func ErrorWithCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// FromError maps an application error to an HTTP error response.
func FromError(c *gin.Context, err error) {
	status := apperrors.GetStatusCode(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, ErrorResponse{Error: appErr.Message, Code: appErr.Code})
		return
	}

	c.JSON(status, ErrorResponse{Error: err.Error()})
}
