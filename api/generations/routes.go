package generations

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
)

// RegisterRoutes registers session log routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/generations", List(deps))
	router.GET("/generations/:id", Get(deps))
}
