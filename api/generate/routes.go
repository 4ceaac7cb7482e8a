package generate

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
)

// RegisterRoutes registers the streaming generation route
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("/generate", Post(deps))
}
