package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/video"
)

type videoApi struct {
	svc video.Service
}

func registerVideoAPI(authed, admin *echo.Group, svc video.Service) {
	api := videoApi{svc: svc}

	vg := authed.Group("/videos")
	vg.GET("", api.listPublished)
	vg.GET("/resolve", api.resolve)
	vg.GET("/:id", api.retrievePublished)
	vg.POST("/:id/complete", api.complete)

	ag := admin.Group("/videos")
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *videoApi) listPublished(ctx echo.Context) error {
	videos, err := api.svc.ListPublished(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing videos")
	}
	if videos == nil {
		videos = []video.Video{}
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *videoApi) retrievePublished(ctx echo.Context) error {
	v, err := api.svc.GetPublished(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

// resolve previews what a YouTube reference resolves to.
func (api *videoApi) resolve(ctx echo.Context) error {
	data := video.ResolveRequest{URL: ctx.QueryParam("url"), Quality: ctx.QueryParam("quality")}
	if err := data.Validate(); err != nil {
		return err
	}
	q, _ := video.ParseQuality(data.Quality)
	ref, ok := video.Resolve(data.URL, q)
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "url", Error: "invalid YouTube reference"})
	}
	return ctx.JSON(http.StatusOK, ref)
}

func (api *videoApi) complete(ctx echo.Context) error {
	p, err := api.svc.MarkComplete(ctx.Request().Context(), mustContextUser(ctx).ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing video")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Admin

func (api *videoApi) query(ctx echo.Context) error {
	filter := video.QueryFilter{Search: ctx.QueryParam("search"), Category: ctx.QueryParam("category")}
	filter.Clean()

	videos, err := api.svc.Query(ctx.Request().Context(), filter, queryOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}
	if videos == nil {
		videos = []video.Video{}
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *videoApi) retrieve(ctx echo.Context) error {
	v, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *videoApi) create(ctx echo.Context) error {
	var data video.NewVideo
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	v, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating video")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *videoApi) update(ctx echo.Context) error {
	v, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	var data video.NewVideo
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	v, err = api.svc.Update(ctx.Request().Context(), v, data)
	if err != nil {
		return errors.Wrap(err, "updating video")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *videoApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return ctx.NoContent(http.StatusNoContent)
}
