package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core/user"
)

// ctxUserMiddleware loads the user of the JWT subject into the context. Deactivated accounts are rejected.
func ctxUserMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}

// adminMiddleware must run after ctxUserMiddleware. The stored flag wins over the token claim.
func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if mustContextUser(ctx).IsAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
