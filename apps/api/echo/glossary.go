package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core/glossary"
)

type glossaryApi struct {
	svc glossary.Service
}

func registerGlossaryAPI(authed, admin *echo.Group, svc glossary.Service) {
	api := glossaryApi{svc: svc}

	authed.GET("/glossary", api.grouped)

	ag := admin.Group("/glossary")
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *glossaryApi) grouped(ctx echo.Context) error {
	groups, err := api.svc.Grouped(ctx.Request().Context(), ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "grouping glossary")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *glossaryApi) query(ctx echo.Context) error {
	terms, err := api.svc.List(ctx.Request().Context(), ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "listing glossary")
	}
	if terms == nil {
		terms = []glossary.Term{}
	}
	return ctx.JSON(http.StatusOK, terms)
}

func (api *glossaryApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *glossaryApi) create(ctx echo.Context) error {
	var data glossary.NewTerm
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating term")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *glossaryApi) update(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	var data glossary.NewTerm
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	t, err = api.svc.Update(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating term")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *glossaryApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting term")
	}
	return ctx.NoContent(http.StatusNoContent)
}
