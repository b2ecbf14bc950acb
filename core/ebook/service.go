package ebook

import (
	"context"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/genzugar/backend/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("ebook")
	ErrProgressNotFound = core.NewNotFoundError("ebook progress")
)

// storage folders
const (
	DocumentsFolder  = "documents"
	ThumbnailsFolder = "thumbnails"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

type (
	Repository interface {
		CreateEbook(ctx context.Context, eb Ebook) (Ebook, error)
		UpdateEbook(ctx context.Context, eb Ebook) (Ebook, error)
		DeleteEbook(ctx context.Context, id string) error
		GetEbookByID(ctx context.Context, id string) (Ebook, error)
		// QueryEbooks returns e-books newest first unless ordering says otherwise.
		QueryEbooks(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Ebook, error)
		CountEbooks(ctx context.Context, publishedOnly bool) (int, error)
		// UpsertEbookProgress inserts or updates the progress of (UserID, EbookID).
		UpsertEbookProgress(ctx context.Context, p Progress) (Progress, error)
		GetEbookProgress(ctx context.Context, userID, ebookID string) (Progress, error)
		QueryEbookProgress(ctx context.Context, userID string) ([]Progress, error)
	}

	Service interface {
		Create(ctx context.Context, ne NewEbook, files Files) (Ebook, error)
		Update(ctx context.Context, eb Ebook, ne NewEbook, files Files) (Ebook, error)
		// Delete deletes an e-book, then the files it had uploaded.
		Delete(ctx context.Context, eb Ebook) error
		GetByID(ctx context.Context, id string) (Ebook, error)
		GetPublished(ctx context.Context, id string) (Ebook, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Ebook, error)
		// ListPublished returns the published library, newest first.
		ListPublished(ctx context.Context) ([]Ebook, error)
		Count(ctx context.Context) (int, error)

		MarkComplete(ctx context.Context, userID, ebookID string) (Progress, error)
		// SaveProgress records the last page read. A completed e-book stays completed.
		SaveProgress(ctx context.Context, userID, ebookID string, sp SaveProgress) (Progress, error)
		GetProgress(ctx context.Context, userID, ebookID string) (Progress, error)
		Progress(ctx context.Context, userID string) ([]Progress, error)
	}

	service struct {
		repo    Repository
		storage core.ObjectStorage
		catalog core.Catalog
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

var nowFunc = time.Now // mockable

func NewService(repo Repository, storage core.ObjectStorage, catalog core.Catalog, logger core.Logger) Service {
	core.MustHaveDeps(
		core.NotNil(repo, "repo"),
		core.NotNil(storage, "storage"),
		core.NotNil(catalog, "catalog"),
		core.NotNil(logger, "logger"),
	)
	return &service{repo: repo, storage: storage, catalog: catalog, logger: logger}
}

// ObjectKey names an uploaded file: `<folder>/<unix millis>-<filename with whitespace replaced by "_">`.
func ObjectKey(folder, filename string, now time.Time) string {
	name := whitespaceRegex.ReplaceAllString(path.Base(filename), "_")
	return folder + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + name
}

// upload stores the uploaded files and points ne at them.
func (svc *service) upload(ctx context.Context, ne *NewEbook, files Files) error {
	now := nowFunc()
	if files.Document != nil {
		url, err := svc.storage.Upload(ctx, ObjectKey(DocumentsFolder, files.Document.Filename, now), files.Document.Body)
		if err != nil {
			return errors.Wrap(err, "uploading document")
		}
		ne.DocumentURL = url
	}
	if files.Thumbnail != nil {
		url, err := svc.storage.Upload(ctx, ObjectKey(ThumbnailsFolder, files.Thumbnail.Filename, now), files.Thumbnail.Body)
		if err != nil {
			return errors.Wrap(err, "uploading thumbnail")
		}
		ne.ThumbnailURL = url
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ne NewEbook, files Files) (Ebook, error) {
	if err := svc.upload(ctx, &ne, files); err != nil {
		return Ebook{}, err
	}

	now := nowFunc().UTC()
	eb := Ebook{CreatedAt: now, UpdatedAt: now}
	ne.apply(&eb)

	eb, err := svc.repo.CreateEbook(ctx, eb)
	if err != nil {
		return Ebook{}, errors.Wrap(err, "creating ebook")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogEbooks, core.ActionCreated, eb.ID))
	return eb, nil
}

// Update replaces the e-book. Uploaded files it no longer points to are removed once the update is stored.
func (svc *service) Update(ctx context.Context, eb Ebook, ne NewEbook, files Files) (Ebook, error) {
	if err := svc.upload(ctx, &ne, files); err != nil {
		return Ebook{}, err
	}
	prevDoc, prevThumb := eb.DocumentURL, eb.ThumbnailURL.String
	ne.apply(&eb)
	eb.UpdatedAt = nowFunc().UTC()

	eb, err := svc.repo.UpdateEbook(ctx, eb)
	if err != nil {
		return Ebook{}, errors.Wrap(err, "updating ebook")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogEbooks, core.ActionUpdated, eb.ID))

	var replaced []string
	if prevDoc != eb.DocumentURL {
		replaced = append(replaced, prevDoc)
	}
	if prevThumb != eb.ThumbnailURL.String {
		replaced = append(replaced, prevThumb)
	}
	svc.removeFiles(ctx, replaced...)
	return eb, nil
}

func (svc *service) Delete(ctx context.Context, eb Ebook) error {
	if err := svc.repo.DeleteEbook(ctx, eb.ID); err != nil {
		return errors.Wrap(err, "deleting ebook")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogEbooks, core.ActionDeleted, eb.ID))
	svc.removeFiles(ctx, eb.DocumentURL, eb.ThumbnailURL.String)
	return nil
}

// removeFiles deletes the objects behind urls. URLs outside of our storage are left alone, and failures
// are only logged: the e-book no longer references them.
func (svc *service) removeFiles(ctx context.Context, urls ...string) {
	for _, url := range urls {
		key, ok := svc.objectKey(url)
		if !ok {
			continue
		}
		if err := svc.storage.Delete(ctx, key); err != nil {
			svc.logger.Warn("deleting ebook file", errors.Wrap(err, "deleting "+key))
		}
	}
}

func (svc *service) objectKey(url string) (string, bool) {
	if url == "" {
		return "", false
	}
	prefix := svc.storage.PublicURL("")
	if prefix == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (svc *service) GetByID(ctx context.Context, id string) (Ebook, error) {
	return svc.repo.GetEbookByID(ctx, id)
}

func (svc *service) GetPublished(ctx context.Context, id string) (Ebook, error) {
	eb, err := svc.repo.GetEbookByID(ctx, id)
	if err != nil {
		return Ebook{}, err
	}
	if !eb.IsPublished {
		return Ebook{}, ErrNotFound
	}
	return eb, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Ebook, error) {
	return svc.repo.QueryEbooks(ctx, filter, ordering)
}

func (svc *service) ListPublished(ctx context.Context) ([]Ebook, error) {
	var ebooks []Ebook
	err := svc.catalog.Load(ctx, core.CatalogEbooks, &ebooks, func() (err error) {
		ebooks, err = svc.repo.QueryEbooks(ctx, QueryFilter{PublishedOnly: true}, nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading published ebooks")
	}
	return ebooks, nil
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountEbooks(ctx, true)
}

func (svc *service) MarkComplete(ctx context.Context, userID, ebookID string) (Progress, error) {
	p, err := svc.currentProgress(ctx, userID, ebookID)
	if err != nil {
		return Progress{}, err
	}
	return svc.saveProgress(ctx, p, p.LastPage, true)
}

func (svc *service) SaveProgress(ctx context.Context, userID, ebookID string, sp SaveProgress) (Progress, error) {
	p, err := svc.currentProgress(ctx, userID, ebookID)
	if err != nil {
		return Progress{}, err
	}
	return svc.saveProgress(ctx, p, sp.LastPage, p.Completed || sp.Completed)
}

// currentProgress returns the stored progress, or a blank one, of a published e-book.
func (svc *service) currentProgress(ctx context.Context, userID, ebookID string) (Progress, error) {
	if _, err := svc.GetPublished(ctx, ebookID); err != nil {
		return Progress{}, err
	}
	p, err := svc.repo.GetEbookProgress(ctx, userID, ebookID)
	if err != nil {
		if errors.Cause(err) != ErrProgressNotFound {
			return Progress{}, errors.Wrap(err, "finding ebook progress")
		}
		p = Progress{UserID: userID, EbookID: ebookID}
	}
	return p, nil
}

func (svc *service) saveProgress(ctx context.Context, p Progress, lastPage int, completed bool) (Progress, error) {
	now := nowFunc().UTC()
	p.LastPage = lastPage
	if completed && !p.CompletedAt.Valid {
		p.CompletedAt = null.TimeFrom(now)
	}
	p.Completed = completed
	p.UpdatedAt = now

	p, err := svc.repo.UpsertEbookProgress(ctx, p)
	if err != nil {
		return Progress{}, errors.Wrap(err, "saving ebook progress")
	}
	return p, nil
}

func (svc *service) GetProgress(ctx context.Context, userID, ebookID string) (Progress, error) {
	return svc.repo.GetEbookProgress(ctx, userID, ebookID)
}

func (svc *service) Progress(ctx context.Context, userID string) ([]Progress, error) {
	return svc.repo.QueryEbookProgress(ctx, userID)
}
