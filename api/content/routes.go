package content

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
)

// RegisterRoutes registers content identification routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/content/:id/kind", GetKind(deps))
}
