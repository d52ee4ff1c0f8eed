package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{redis: redisClient, limit: int64(limit), window: window}
}

// ScanRateLimit caps scans per client per window. Door tablets sit behind a
// shared IP, so the cap is generous; the point is stopping token brute force,
// not throttling staff. Redis being down fails open.
func (r *RateLimiter) ScanRateLimit() echo.MiddlewareFunc {
	return r.fixedWindow("scan")
}

// RegisterRateLimit protects the public registration endpoint.
func (r *RateLimiter) RegisterRateLimit() echo.MiddlewareFunc {
	return r.fixedWindow("register")
}

func (r *RateLimiter) fixedWindow(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("ratelimit:%s:%s", scope, c.RealIP())

			count, err := r.redis.Incr(c.Request().Context(), key).Result()
			if err == nil {
				if count == 1 {
					r.redis.Expire(c.Request().Context(), key, r.window)
				}
				if count > r.limit {
					return c.JSON(429, map[string]string{
						"error": "Too many requests",
					})
				}
			}

			return next(c)
		}
	}
}

// AntiBotMiddleware rejects obvious scraper user agents on public routes.
func (r *RateLimiter) AntiBotMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userAgent := c.Request().Header.Get("User-Agent")
			if isSuspiciousUserAgent(userAgent) {
				return c.JSON(403, map[string]string{
					"error": "Access denied",
				})
			}
			return next(c)
		}
	}
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
