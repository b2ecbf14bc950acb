package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core/progress"
)

func registerAdminAPI(admin *echo.Group, svc progress.Service) {
	admin.GET("/stats", func(ctx echo.Context) error {
		totals, err := svc.AdminStats(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "computing stats")
		}
		return ctx.JSON(http.StatusOK, totals)
	})
}
