package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/course-api/api/content"
	"github.com/killallgit/course-api/api/generate"
	"github.com/killallgit/course-api/api/generations"
	"github.com/killallgit/course-api/api/health"
	"github.com/killallgit/course-api/api/transcripts"
	"github.com/killallgit/course-api/api/types"
	"github.com/killallgit/course-api/api/version"
	"github.com/killallgit/course-api/pkg/config"
)

const (
	generateBurst = 3
	defaultBurst  = 20
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, limits config.RateLimitConfig, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// API v1 routes
	v1 := engine.Group("/api/v1")

	limit := func(name string, burst int) gin.HandlerFunc {
		perMinute := 0
		if limits.Enabled {
			perMinute = endpointLimit(limits, name)
		}
		return PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, name, perMinute, burst)
	}

	// Generation is the expensive path and gets its own budget
	generateGroup := v1.Group("")
	generateGroup.Use(limit("generate", generateBurst))
	generate.RegisterRoutes(generateGroup, deps)

	general := v1.Group("")
	general.Use(limit("default", defaultBurst))
	generations.RegisterRoutes(general, deps)
	transcripts.RegisterRoutes(general, deps)
	content.RegisterRoutes(general, deps)

	return nil
}

// endpointLimit returns the per-minute limit for name, falling back to "default"
func endpointLimit(limits config.RateLimitConfig, name string) int {
	if perMinute, ok := limits.Endpoints[name]; ok {
		return perMinute
	}
	return limits.Endpoints["default"]
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
