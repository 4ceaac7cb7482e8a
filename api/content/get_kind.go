package content

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
	"github.com/killallgit/course-api/internal/services/contentid"
)

// GetKind classifies a content identifier
// @Summary Classify a content identifier
// @Description Reports whether the identifier names a video, a playlist or nothing recognisable,
// @Description together with the normalized form used as the transcript cache key.
// @Tags content
// @Produce json
// @Param id path string true "Content identifier"
// @Success 200 {object} types.ContentKindResponse
// @Router /api/v1/content/{id}/kind [get]
func GetKind(deps *types.Dependencies) gin.HandlerFunc {
	var classifier contentid.Classifier = contentid.NewPatternClassifier()
	if deps != nil && deps.Classifier != nil {
		classifier = deps.Classifier
	}

	return func(c *gin.Context) {
		id := c.Param("id")

		c.JSON(http.StatusOK, types.ContentKindResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			ContentID:    id,
			Normalized:   contentid.Normalize(id),
			Kind:         string(classifier.Classify(id)),
		})
	}
}
