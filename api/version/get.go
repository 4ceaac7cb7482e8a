package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
)

// Get handles version requests
// @Summary Service version
// @Tags version
// @Produce json
// @Success 200 {object} types.VersionResponse
// @Router /version [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	build := types.BuildInfo{Version: "dev"}
	if deps != nil && deps.Build.Version != "" {
		build = deps.Build
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, types.VersionResponse{
			Name:        "Course Generation API",
			Version:     build.Version,
			GitCommit:   build.GitCommit,
			BuildTime:   build.BuildTime,
			Description: "Streams AI-generated courses and learning segments over server-sent events",
			Status:      "running",
		})
	}
}
