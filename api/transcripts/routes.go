package transcripts

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
)

// RegisterRoutes registers transcript cache routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/transcripts/:id", Get(deps))
	router.DELETE("/transcripts/:id", Delete(deps))
}
