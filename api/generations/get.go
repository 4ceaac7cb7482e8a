package generations

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
	"github.com/killallgit/course-api/internal/services/sessions"
)

// List returns the most recent generation sessions
// @Summary List generation sessions
// @Description Returns the session log, newest first. Each entry carries the final status, the last
// @Description progress milestone reached and, for completed sessions, the generated result.
// @Tags generations
// @Produce json
// @Param limit query int false "Number of sessions to return (1-100)" default(20) minimum(1) maximum(100)
// @Success 200 {object} types.SessionsResponse
// @Failure 500 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse "Session log not configured"
// @Router /api/v1/generations [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil || deps.Sessions == nil {
			types.SendServiceUnavailable(c, "Session log not available")
			return
		}

		limit := types.ParseLimitQuery(c, sessions.DefaultListLimit)
		if limit > sessions.MaxListLimit {
			limit = sessions.MaxListLimit
		}

		list, err := deps.Sessions.List(c.Request.Context(), limit)
		if err != nil {
			types.SendError(c, err)
			return
		}

		c.JSON(http.StatusOK, types.SessionsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Sessions:     list,
			Count:        len(list),
			Limit:        limit,
		})
	}
}

// Get returns a single generation session
// @Summary Get a generation session
// @Description Looks up a session by the messageId announced in its start event.
// @Tags generations
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} types.SessionResponse
// @Failure 404 {object} types.ErrorResponse "Session not found"
// @Failure 503 {object} types.ErrorResponse "Session log not configured"
// @Router /api/v1/generations/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil || deps.Sessions == nil {
			types.SendServiceUnavailable(c, "Session log not available")
			return
		}

		session, err := deps.Sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}

		c.JSON(http.StatusOK, types.SessionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Session:      session,
		})
	}
}
