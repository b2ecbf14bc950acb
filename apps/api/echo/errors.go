package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errUnsupportedMedia     = echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported media type")
)

// errorBody is the JSON body of a failed request: {"error": "..."} or {"<field>": "<error>", ...}.
type errorBody interface{}

// classify maps err to its HTTP status and body. ok is false for unexpected errors, which are reported as 500.
func classify(err error) (code int, body errorBody, ok bool) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		// a missing token is an authentication failure, not a malformed request
		if cause == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, cause.Message, true
		}
		if inner, isHTTP := cause.Internal.(*echo.HTTPError); isHTTP {
			cause = inner
		}
		return cause.Code, cause.Message, true

	case validator.ValidationErrors:
		fields := make(map[string]string, len(cause))
		for _, fe := range cause {
			fields[fe.Field()] = fe.Translate(core.Translator)
		}
		return http.StatusBadRequest, fields, true

	case *core.ValidationError:
		if len(cause.Fields) == 0 {
			return http.StatusBadRequest, cause.Error(), true
		}
		fields := make(map[string]string, len(cause.Fields))
		for _, fe := range cause.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields, true

	case *core.NotFoundError:
		return http.StatusNotFound, cause.Error(), true

	case *core.ForbiddenError:
		return http.StatusForbidden, cause.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler of the API.
// Unexpected errors are logged with the requesting user; signalShutdown is called when one of them is a
// core shutdown error.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := classify(err)
		if !ok {
			logger.Error("unexpected error", errors.WithStack(err), requestUser(ctx),
				map[string]interface{}{"method": ctx.Request().Method, "path": ctx.Path()})
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		switch {
		case ctx.Echo().Debug:
			body = err.Error()
		case body == nil:
			body = http.StatusText(code)
		}
		if msg, isStr := body.(string); isStr {
			body = echo.Map{"error": msg}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// requestUser identifies the caller from the token claims, without hitting the database.
func requestUser(ctx echo.Context) user.User {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr
	}
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.FullName = claims.FullName
		usr.Email = claims.Email
	}
	return usr
}
