// SPDX-License-Identifier: GPL-3.0-only

package middlewares

import (
	"net/http"
	"strconv"
	"time"
	"vulnmgr-server/commons"
	"vulnmgr-server/ratelimit"

	"github.com/labstack/echo/v4"
)

// RateLimit throttles requests per client IP under the given scope key.
// A limit <= 0 falls back to RATE_LIMIT_PER_MINUTE. Rejections are
// decided entirely in memory and never touch the store.
func RateLimit(limiter *ratelimit.Limiter, scope string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if commons.GetEnv("RATE_LIMIT_ENABLED", "true") != "true" {
				return next(c)
			}

			effectiveLimit := limit
			if effectiveLimit <= 0 {
				effectiveLimit = 60
				if v := commons.GetEnv("RATE_LIMIT_PER_MINUTE"); v != "" {
					if i, err := strconv.Atoi(v); err == nil && i > 0 {
						effectiveLimit = i
					}
				}
			}

			identifier := scope + ":" + c.RealIP()
			if !limiter.Check(identifier, effectiveLimit, window) {
				c.Logger().Warnf("Rate limit exceeded for %s", identifier)
				return &echo.HTTPError{
					Code:    http.StatusTooManyRequests,
					Message: "Too many requests. Please try again later.",
				}
			}
			return next(c)
		}
	}
}
