package middleware

import (
	"context"
	"strconv"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/tasks/rate"
	"marketplace/internal/utils"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	xrate "golang.org/x/time/rate"
)

const (
	MsgTooManyRequests     = "Too many requests, please try again later"
	MsgTooManyAuthAttempts = "Too many authentication attempts, please try again later"
)

// Allower counts one hit of an identifier against a window.
type Allower interface {
	Allow(ctx context.Context, identifier string) (rate.Result, error)
}

// RateLimit throttles requests per client IP over a shared window. When the
// counter store is unavailable the request is let through.
func RateLimit(limiter Allower, message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := limiter.Allow(c.Request().Context(), utils.ClientKey(c.Request()))
			if err != nil {
				log.Warn("Rate limiter unavailable: %v", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			reset := int(time.Until(res.ResetAt).Seconds())
			if reset < 0 {
				reset = 0
			}
			h.Set("RateLimit-Reset", strconv.Itoa(reset))

			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(reset))
				return apperr.New(apperr.TooManyRequests, message)
			}
			return next(c)
		}
	}
}

// BurstLimit smooths short spikes per client IP with an in-process token bucket.
func BurstLimit(perSecond float64, burst int) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      xrate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return utils.ClientKey(c.Request()), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperr.NewForbidden("Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apperr.New(apperr.TooManyRequests, MsgTooManyRequests)
		},
	})
}
