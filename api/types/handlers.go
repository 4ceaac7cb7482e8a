package types

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/killallgit/course-api/pkg/errors"
)

// Handler utility functions to reduce duplication across handlers

// ParseLimitQuery reads the "limit" query parameter, falling back to def
// when it is missing or not a positive integer
func ParseLimitQuery(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

// SendError maps err to an HTTP status and writes an ErrorResponse.
// AppErrors keep their code and details; anything else becomes a 500
// without leaking the underlying message.
func SendError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		SendInternalError(c, "Internal server error")
		return
	}

	resp := ErrorResponse{
		Status: StatusError,
		Error:  appErr.Message,
		Code:   string(appErr.Code),
	}
	if len(appErr.Details) > 0 {
		resp.Details = appErr.Details
	}
	c.JSON(appErr.GetHTTPCode(), resp)
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Status: StatusError, Error: message})
}

// SendNotFound sends a standardized not found response
func SendNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Status: StatusError, Error: message})
}

// SendInternalError sends a standardized internal server error response
func SendInternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Status: StatusError,
		Error:  message,
		Code:   string(apperrors.ErrCodeInternal),
	})
}

// SendServiceUnavailable reports a dependency that was not configured
func SendServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Status: StatusError, Error: message})
}
