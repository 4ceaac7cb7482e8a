package api

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
	"github.com/killallgit/course-api/pkg/config"
	apperrors "github.com/killallgit/course-api/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	defaultMaxBodyBytes = 1024 * 1024
	limiterIdleTimeout  = 10 * time.Minute
	limiterCleanupEvery = 5 * time.Minute
)

// clientLimiter holds a rate limiter and its last accessed time (unix nanos)
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// CORS allows any origin with the default method and header set
func CORS() gin.HandlerFunc {
	return CORSWithConfig(config.SecurityConfig{})
}

// CORSWithConfig applies the configured origin, method and header lists.
// Empty lists fall back to permissive defaults.
func CORSWithConfig(cfg config.SecurityConfig) gin.HandlerFunc {
	methods := "GET, POST, DELETE, OPTIONS"
	if len(cfg.CORSMethods) > 0 {
		methods = strings.Join(cfg.CORSMethods, ", ")
	}
	headers := "Content-Type, Authorization, Last-Event-ID"
	if len(cfg.CORSHeaders) > 0 {
		headers = strings.Join(cfg.CORSHeaders, ", ")
	}

	allowAll := len(cfg.CORSOrigins) == 0
	allowed := make(map[string]bool, len(cfg.CORSOrigins))
	for _, origin := range cfg.CORSOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin := c.GetHeader("Origin"); allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func RequestSizeLimit() gin.HandlerFunc {
	return RequestSizeLimitWithSize(defaultMaxBodyBytes)
}

func RequestSizeLimitWithSize(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost ||
			c.Request.Method == http.MethodPut ||
			c.Request.Method == http.MethodPatch {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
					Status: types.StatusError,
					Error:  "Request body too large",
				})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// PerClientRateLimit allows each client IP perMinute requests per minute on
// the named route group, with the given burst. Limiters are shared through
// rateLimiters and evicted after a period of inactivity.
func PerClientRateLimit(rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once, name string, perMinute int, burst int) gin.HandlerFunc {
	cleanupInitialized.Do(func() {
		go cleanupOldRateLimiters(rateLimiters, cleanupStop)
	})

	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(perMinute)

	return func(c *gin.Context) {
		key := name + "|" + c.ClientIP()

		fresh := &clientLimiter{limiter: rate.NewLimiter(rate.Every(every), burst)}
		limiterInterface, _ := rateLimiters.LoadOrStore(key, fresh)

		cl := limiterInterface.(*clientLimiter)
		cl.lastSeen.Store(time.Now().UnixNano())

		if !cl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Status: types.StatusError,
				Error:  "Rate limit exceeded. Please slow down your requests.",
				Code:   string(apperrors.ErrCodeAPIRateLimit),
			})
			return
		}
		c.Next()
	}
}

func cleanupOldRateLimiters(rateLimiters *sync.Map, cleanupStop chan struct{}) {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			evictIdleLimiters(rateLimiters, time.Now())
		case <-cleanupStop:
			return
		}
	}
}

func evictIdleLimiters(rateLimiters *sync.Map, now time.Time) {
	rateLimiters.Range(func(key, value interface{}) bool {
		cl, ok := value.(*clientLimiter)
		if !ok || now.Sub(time.Unix(0, cl.lastSeen.Load())) > limiterIdleTimeout {
			rateLimiters.Delete(key)
		}
		return true
	})
}
