package guardware

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	bridge "github.com/goliatone/go-auth-bridge"
)

// DefaultContextKey is the fiber Locals key holding the *bridge.Resolution.
const DefaultContextKey = "authbridge"

// Resolver resolves the user behind a request. *bridge.Guard implements it.
type Resolver interface {
	ResolveUser(ctx context.Context, req bridge.Request) (*bridge.Resolution, error)
}

// ErrorHandler renders a failure.
type ErrorHandler func(c *fiber.Ctx, err error) error

type Config struct {
	// Guard is required.
	Guard Resolver

	// Required rejects anonymous requests with 401. When false anonymous
	// requests pass through without a resolution.
	Required bool

	// Filter skips the middleware when it returns true.
	Filter func(*fiber.Ctx) bool

	// ContextKey defaults to DefaultContextKey.
	ContextKey string

	// ErrorHandler defaults to DefaultErrorHandler.
	ErrorHandler ErrorHandler

	Logger bridge.Logger
}

// New returns a fiber middleware that resolves the request user and stores
// the resolution in the user context and in Locals.
func New(config ...Config) fiber.Handler {
	cfg := getDefaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		res, err := cfg.Guard.ResolveUser(c.UserContext(), NewRequest(c))
		if err != nil {
			cfg.Logger.Debug("request %s %s rejected: %s", c.Method(), c.Path(), err)
			return cfg.ErrorHandler(c, err)
		}

		if res == nil {
			if cfg.Required {
				return cfg.ErrorHandler(c, bridge.ErrUnauthenticated.Clone())
			}
			return c.Next()
		}

		c.SetUserContext(bridge.WithResolution(c.UserContext(), res))
		c.Locals(cfg.ContextKey, res)

		return c.Next()
	}
}

// RequirePermission rejects requests whose payload lacks permission in the
// resolved account/app scope.
func RequirePermission(name string, handler ...ErrorHandler) fiber.Handler {
	return requireCheck(handler, func(a bridge.Accessor) bool {
		return a.HasPermission(name)
	})
}

// RequireRole rejects requests whose payload lacks role in the resolved
// account/app scope.
func RequireRole(name string, handler ...ErrorHandler) fiber.Handler {
	return requireCheck(handler, func(a bridge.Accessor) bool {
		return a.HasRole(name)
	})
}

func requireCheck(handlers []ErrorHandler, check func(bridge.Accessor) bool) fiber.Handler {
	onError := DefaultErrorHandler
	if len(handlers) > 0 && handlers[0] != nil {
		onError = handlers[0]
	}

	return func(c *fiber.Ctx) error {
		accessor := AccessorFrom(c)
		if accessor.CurrentPayload() == nil {
			return onError(c, bridge.ErrUnauthenticated.Clone())
		}
		if !check(accessor) {
			return onError(c, bridge.ErrForbidden.Clone())
		}
		return c.Next()
	}
}

// AccessorFrom returns the accessor for the resolution stored on c.
func AccessorFrom(c *fiber.Ctx) bridge.Accessor {
	return bridge.AccessorFromContext(c.UserContext())
}

// DefaultErrorHandler maps errors to 401, 403 or 500 with a generic body.
// Failure details never reach the client.
func DefaultErrorHandler(c *fiber.Ctx, err error) error {
	status := bridge.StatusCode(err)
	if status == http.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}

	return c.Status(status).JSON(fiber.Map{
		"error": http.StatusText(status),
	})
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Guard == nil {
		panic("AUTHBRIDGE: guard middleware configuration: Guard is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.Logger == nil {
		cfg.Logger = bridge.NopLogger()
	}

	return cfg
}
