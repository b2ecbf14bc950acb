package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core/module"
)

type moduleApi struct {
	svc module.Service
}

func registerModuleAPI(authed, admin *echo.Group, svc module.Service) {
	api := moduleApi{svc: svc}

	mg := authed.Group("/modules")
	mg.GET("", api.listPublished)
	mg.GET("/:id", api.detail)
	mg.POST("/:id/content/:contentId/complete", api.completeContent)

	ag := admin.Group("/modules")
	ag.GET("", api.query)
	ag.POST("", api.create)

	dg := ag.Group("/:id", moduleMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/publish", api.togglePublished)
	dg.GET("/content", api.contents)
	dg.POST("/content", api.createContent)
	dg.PUT("/content/:contentId", api.updateContent)
	dg.DELETE("/content/:contentId", api.destroyContent)
}

func (api *moduleApi) listPublished(ctx echo.Context) error {
	summaries, err := api.svc.ListPublished(ctx.Request().Context(), mustContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing modules")
	}
	if summaries == nil {
		summaries = []module.Summary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *moduleApi) detail(ctx echo.Context) error {
	d, err := api.svc.Detail(ctx.Request().Context(), mustContextUser(ctx).ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building module detail")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *moduleApi) completeContent(ctx echo.Context) error {
	var data module.CompleteContent
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	p, err := api.svc.CompleteContent(ctx.Request().Context(), mustContextUser(ctx).ID, ctx.Param("id"), ctx.Param("contentId"), data)
	if err != nil {
		return errors.Wrap(err, "completing content")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Admin

// moduleMiddleware loads the module of the `id` path param as "object".
func moduleMiddleware(svc module.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			m, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set("object", m)
			return next(ctx)
		}
	}
}

func ctxModule(ctx echo.Context) module.Module {
	m, _ := ctx.Get("object").(module.Module)
	return m
}

func (api *moduleApi) query(ctx echo.Context) error {
	modules, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if modules == nil {
		modules = []module.Module{}
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *moduleApi) create(ctx echo.Context) error {
	var data module.NewModule
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *moduleApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctxModule(ctx))
}

func (api *moduleApi) update(ctx echo.Context) error {
	var data module.NewModule
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	m, err := api.svc.Update(ctx.Request().Context(), ctxModule(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *moduleApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctxModule(ctx).ID); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *moduleApi) togglePublished(ctx echo.Context) error {
	m, err := api.svc.TogglePublished(ctx.Request().Context(), ctxModule(ctx))
	if err != nil {
		return errors.Wrap(err, "toggling module")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *moduleApi) contents(ctx echo.Context) error {
	items, err := api.svc.Contents(ctx.Request().Context(), ctxModule(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying content")
	}
	if items == nil {
		items = []module.ContentItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *moduleApi) createContent(ctx echo.Context) error {
	var data module.NewContent
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	c, err := api.svc.CreateContent(ctx.Request().Context(), ctxModule(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating content")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *moduleApi) updateContent(ctx echo.Context) error {
	c, err := api.svc.GetContent(ctx.Request().Context(), ctxModule(ctx).ID, ctx.Param("contentId"))
	if err != nil {
		return err
	}
	var data module.NewContent
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	c, err = api.svc.UpdateContent(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating content")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *moduleApi) destroyContent(ctx echo.Context) error {
	c, err := api.svc.GetContent(ctx.Request().Context(), ctxModule(ctx).ID, ctx.Param("contentId"))
	if err != nil {
		return err
	}
	if err := api.svc.DeleteContent(ctx.Request().Context(), c); err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return ctx.NoContent(http.StatusNoContent)
}
