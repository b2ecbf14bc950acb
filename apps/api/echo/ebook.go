package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/ebook"
)

type ebookApi struct {
	svc ebook.Service
}

func registerEbookAPI(authed, admin *echo.Group, svc ebook.Service) {
	api := ebookApi{svc: svc}

	eg := authed.Group("/ebooks")
	eg.GET("", api.listPublished)
	eg.GET("/:id", api.retrievePublished)
	eg.POST("/:id/complete", api.complete)
	eg.GET("/:id/progress", api.progress)
	eg.PUT("/:id/progress", api.saveProgress)

	ag := admin.Group("/ebooks")
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *ebookApi) listPublished(ctx echo.Context) error {
	ebooks, err := api.svc.ListPublished(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing ebooks")
	}
	if ebooks == nil {
		ebooks = []ebook.Ebook{}
	}
	return ctx.JSON(http.StatusOK, ebooks)
}

func (api *ebookApi) retrievePublished(ctx echo.Context) error {
	eb, err := api.svc.GetPublished(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, eb)
}

func (api *ebookApi) complete(ctx echo.Context) error {
	p, err := api.svc.MarkComplete(ctx.Request().Context(), mustContextUser(ctx).ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing ebook")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *ebookApi) progress(ctx echo.Context) error {
	p, err := api.svc.GetProgress(ctx.Request().Context(), mustContextUser(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *ebookApi) saveProgress(ctx echo.Context) error {
	var data ebook.SaveProgress
	if err := bindAndValidate(ctx, &data); err != nil {
		return err
	}

	p, err := api.svc.SaveProgress(ctx.Request().Context(), mustContextUser(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "saving ebook progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Admin

func (api *ebookApi) query(ctx echo.Context) error {
	filter := ebook.QueryFilter{Search: ctx.QueryParam("search"), Category: ctx.QueryParam("category")}
	filter.Clean()

	ebooks, err := api.svc.Query(ctx.Request().Context(), filter, queryOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying ebooks")
	}
	if ebooks == nil {
		ebooks = []ebook.Ebook{}
	}
	return ctx.JSON(http.StatusOK, ebooks)
}

func (api *ebookApi) retrieve(ctx echo.Context) error {
	eb, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, eb)
}

func (api *ebookApi) create(ctx echo.Context) error {
	data, files, closeFiles, err := bindEbook(ctx)
	if err != nil {
		return err
	}
	defer closeFiles()

	eb, err := api.svc.Create(ctx.Request().Context(), data, files)
	if err != nil {
		return errors.Wrap(err, "creating ebook")
	}
	return ctx.JSON(http.StatusCreated, eb)
}

func (api *ebookApi) update(ctx echo.Context) error {
	eb, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	data, files, closeFiles, err := bindEbook(ctx)
	if err != nil {
		return err
	}
	defer closeFiles()

	eb, err = api.svc.Update(ctx.Request().Context(), eb, data, files)
	if err != nil {
		return errors.Wrap(err, "updating ebook")
	}
	return ctx.JSON(http.StatusOK, eb)
}

func (api *ebookApi) destroy(ctx echo.Context) error {
	eb, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), eb); err != nil {
		return errors.Wrap(err, "deleting ebook")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// bindEbook reads a NewEbook from a JSON body, or from a multipart form carrying the optional
// `document` and `thumbnail` files. The returned func closes the opened files.
func bindEbook(ctx echo.Context) (ebook.NewEbook, ebook.Files, func(), error) {
	var (
		data   ebook.NewEbook
		files  ebook.Files
		closer []io.Closer
	)
	closeFiles := func() {
		for _, c := range closer {
			_ = c.Close()
		}
	}

	ct := ctx.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ct, echo.MIMEMultipartForm):
		var err error
		if data, err = ebookFromForm(ctx); err != nil {
			return data, files, closeFiles, err
		}
		for field, dest := range map[string]**ebook.Upload{"document": &files.Document, "thumbnail": &files.Thumbnail} {
			fh, err := ctx.FormFile(field)
			if err == http.ErrMissingFile {
				continue
			}
			if err != nil {
				return data, files, closeFiles, errors.Wrapf(err, "reading %s", field)
			}
			f, err := fh.Open()
			if err != nil {
				return data, files, closeFiles, errors.Wrapf(err, "opening %s", field)
			}
			closer = append(closer, f)
			*dest = upload(fh, f)
		}
	case strings.HasPrefix(ct, echo.MIMEApplicationJSON):
		if err := ctx.Bind(&data); err != nil {
			return data, files, closeFiles, errors.Wrap(err, "binding to NewEbook")
		}
	default:
		return data, files, closeFiles, errUnsupportedMedia
	}

	if err := data.Validate(files); err != nil {
		return data, files, closeFiles, err
	}
	return data, files, closeFiles, nil
}

func upload(fh *multipart.FileHeader, f multipart.File) *ebook.Upload {
	return &ebook.Upload{Filename: fh.Filename, Body: f}
}

func ebookFromForm(ctx echo.Context) (ebook.NewEbook, error) {
	data := ebook.NewEbook{
		Title:        ctx.FormValue("title"),
		Description:  ctx.FormValue("description"),
		Author:       ctx.FormValue("author"),
		DocumentURL:  ctx.FormValue("document_url"),
		ThumbnailURL: ctx.FormValue("thumbnail_url"),
		Category:     ctx.FormValue("category"),
	}
	if v := ctx.FormValue("is_published"); v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			return data, core.NewValidationError(nil, core.FieldError{Field: "is_published", Error: "must be a boolean"})
		}
		data.IsPublished = published
	}
	if v := ctx.FormValue("estimated_read_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return data, core.NewValidationError(nil, core.FieldError{Field: "estimated_read_minutes", Error: "must be an integer"})
		}
		data.EstimatedReadMinutes = &minutes
	}
	return data, nil
}
