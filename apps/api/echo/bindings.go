package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
)

// queryOrdering reads the `ordering` query param, e.g. "?ordering=-created_at,title".
func queryOrdering(ctx echo.Context) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParam("ordering"))
}

// queryBool parses an optional boolean query param. Unparsable values count as absent.
func queryBool(ctx echo.Context, name string) *bool {
	v, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &v
}

// payload is implemented by the request bodies.
type payload interface {
	Validate() error
}

// bindAndValidate binds the request body into data, then validates it.
func bindAndValidate(ctx echo.Context, data payload) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	return data.Validate()
}

type SuccessResponse struct {
	Success string `json:"success"`
}
