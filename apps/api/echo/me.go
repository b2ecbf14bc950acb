package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/progress"
)

type meApi struct {
	bmiSvc      bmi.Service
	progressSvc progress.Service
}

func registerMeAPI(authed *echo.Group, bmiSvc bmi.Service, progressSvc progress.Service) {
	api := meApi{bmiSvc: bmiSvc, progressSvc: progressSvc}

	mg := authed.Group("/me")
	mg.POST("/bmi", api.recordBMI)
	mg.GET("/bmi", api.bmiHistory)
	mg.GET("/progress", api.overview)
	mg.GET("/dashboard", api.dashboard)
}

func (api *meApi) recordBMI(ctx echo.Context) error {
	var data bmi.NewMeasurement
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	rec, err := api.bmiSvc.Record(ctx.Request().Context(), mustContextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "recording bmi")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// bmiHistory accepts an optional `limit`; the whole history is returned otherwise.
func (api *meApi) bmiHistory(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	recs, err := api.bmiSvc.History(ctx.Request().Context(), mustContextUser(ctx).ID, limit)
	if err != nil {
		return errors.Wrap(err, "querying bmi history")
	}
	if recs == nil {
		recs = []bmi.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *meApi) overview(ctx echo.Context) error {
	ov, err := api.progressSvc.Overview(ctx.Request().Context(), mustContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "building progress overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *meApi) dashboard(ctx echo.Context) error {
	d, err := api.progressSvc.Dashboard(ctx.Request().Context(), mustContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}
