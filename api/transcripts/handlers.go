package transcripts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
	"github.com/killallgit/course-api/internal/services/contentid"
)

// Get returns the transcript of a video, from the cache when fresh
// @Summary Get a video transcript
// @Description Serves the transcript through the same TTL cache generation sessions use.
// @Description A miss fetches from the configured transcript source and populates the cache.
// @Tags transcripts
// @Produce json
// @Param id path string true "Video identifier"
// @Success 200 {object} types.TranscriptResponse
// @Failure 400 {object} types.ErrorResponse "Not a video identifier"
// @Failure 502 {object} types.ErrorResponse "Transcript source failed"
// @Router /api/v1/transcripts/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil || deps.Transcripts == nil {
			types.SendServiceUnavailable(c, "Transcript service not available")
			return
		}

		id := c.Param("id")
		entry, hit, err := deps.Transcripts.Transcript(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}

		c.JSON(http.StatusOK, types.TranscriptResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			ContentID:    entry.Key,
			Cached:       hit,
			CachedAt:     entry.CachedAt,
			Segments:     types.NewTranscriptSegments(entry.Segments),
			Text:         entry.Text,
		})
	}
}

// Delete drops a cached transcript so the next use refetches it
// @Summary Invalidate a cached transcript
// @Tags transcripts
// @Param id path string true "Video identifier"
// @Success 204 "Invalidated"
// @Router /api/v1/transcripts/{id} [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil || deps.Transcripts == nil {
			types.SendServiceUnavailable(c, "Transcript service not available")
			return
		}

		id := c.Param("id")
		if contentid.Normalize(id) == "" {
			types.SendBadRequest(c, "Invalid content identifier")
			return
		}

		deps.Transcripts.InvalidateTranscript(id)
		c.Status(http.StatusNoContent)
	}
}
