package echoapi

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/services/metrics"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// rateLimitMiddleware limits requests per caller. A failing limiter lets the request through.
func rateLimitMiddleware(scope string, limiter core.RateLimiter, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			allowed, retryAfter, err := limiter.Allow(ctx.Request().Context(), scope+":"+claims.Subject)
			if err != nil {
				logger.Warn("api: rate limiter unavailable", err, claims.Caller())
				return next(ctx)
			}
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

var recordHTTPRequest = metrics.RecordHTTPRequest // mockable

// metricsMiddleware observes request durations by route pattern, not raw path.
// Errors are handed to the HTTPErrorHandler here, so the recorded status is the one the client got.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}

			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			recordHTTPRequest(ctx.Request().Method, path, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}
