package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/user"
)

var (
	errForbidden       = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errTooManyRequests = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
	errInvalidBody     = core.NewValidationError(errors.New("invalid request body"))
)

// authorize lets through the authenticated users having one of roles.
func authorize(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errForbidden
		}
	}
}

// rateLimiter limits requests per client IP. A nil store disables it.
func rateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	if store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return errForbidden
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return errTooManyRequests
		},
	})
}

func requestLogger(logger core.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"method":    v.Method,
				"uri":       v.URI,
				"status":    v.Status,
				"latency":   v.Latency.String(),
				"remoteIp":  v.RemoteIP,
				"requestId": v.RequestID,
			}
			if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
				fields["userId"] = usr.ID
			}
			logger.Info("request", fields)
			return nil
		},
	})
}

type cleaner interface {
	Clean()
}

const contextBodyKey = "body"

// validateBody binds the JSON request body into a T, cleans it then validates it.
// Handlers read it back with getBody.
func validateBody[T any](validate *validator.Validate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			body := new(T)
			if err := (&echo.DefaultBinder{}).BindBody(ctx, body); err != nil {
				return errInvalidBody
			}
			if c, ok := any(body).(cleaner); ok {
				c.Clean()
			}
			if err := validate.Struct(body); err != nil {
				return err
			}
			ctx.Set(contextBodyKey, *body)
			return next(ctx)
		}
	}
}

func getBody[T any](ctx echo.Context) T {
	body, _ := ctx.Get(contextBodyKey).(T)
	return body
}

// pathID returns the UUID path param name. Malformed ids cannot match any row: notFound is returned.
func pathID(ctx echo.Context, name string, notFound error) (string, error) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return "", notFound
	}
	return id.String(), nil
}
