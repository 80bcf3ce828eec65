package http_middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/dinevote/internal/delivery/http/common"
)

// CORS allows the configured origins; "*" allows any origin without credentials.
func CORS(origins []string) gin.HandlerFunc {
	allowCredentials := true
	for _, o := range origins {
		if o == "*" {
			allowCredentials = false
			break
		}
	}
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if allowCredentials {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}

type Limiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
}

// RateLimit counts requests per client IP. A limiter failure lets the request through.
func RateLimit(limiter Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ok, err := limiter.Allow(ctx.Request.Context(), ctx.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
			ctx.Next()
			return
		}
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, http_common.ErrorResponse{Message: "too many requests"})
			return
		}
		ctx.Next()
	}
}
