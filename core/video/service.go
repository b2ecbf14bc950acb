package video

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/genzugar/backend/core"
)

var ErrNotFound = core.NewNotFoundError("video")

type (
	Repository interface {
		CreateVideo(ctx context.Context, v Video) (Video, error)
		UpdateVideo(ctx context.Context, v Video) (Video, error)
		DeleteVideo(ctx context.Context, id string) error
		GetVideoByID(ctx context.Context, id string) (Video, error)
		// QueryVideos returns videos newest first unless ordering says otherwise.
		QueryVideos(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Video, error)
		CountVideos(ctx context.Context, publishedOnly bool) (int, error)
		// UpsertVideoProgress inserts or updates the progress of (UserID, VideoID).
		UpsertVideoProgress(ctx context.Context, p Progress) (Progress, error)
		QueryVideoProgress(ctx context.Context, userID string) ([]Progress, error)
	}

	Service interface {
		Create(ctx context.Context, nv NewVideo) (Video, error)
		Update(ctx context.Context, v Video, nv NewVideo) (Video, error)
		Delete(ctx context.Context, id string) error
		GetByID(ctx context.Context, id string) (Video, error)
		// GetPublished returns a video only if it is published.
		GetPublished(ctx context.Context, id string) (Video, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Video, error)
		// ListPublished returns the published catalog, newest first.
		ListPublished(ctx context.Context) ([]Video, error)
		Count(ctx context.Context) (int, error)
		MarkComplete(ctx context.Context, userID, videoID string) (Progress, error)
		Progress(ctx context.Context, userID string) ([]Progress, error)
	}

	service struct {
		repo    Repository
		catalog core.Catalog
	}
)

var _ Service = (*service)(nil)

var nowFunc = time.Now // mockable

func NewService(repo Repository, catalog core.Catalog) Service {
	core.MustHaveDeps(core.NotNil(repo, "repo"), core.NotNil(catalog, "catalog"))
	return &service{repo: repo, catalog: catalog}
}

func (svc *service) Create(ctx context.Context, nv NewVideo) (Video, error) {
	now := nowFunc().UTC()
	v := Video{CreatedAt: now, UpdatedAt: now}
	nv.apply(&v)

	v, err := svc.repo.CreateVideo(ctx, v)
	if err != nil {
		return Video{}, errors.Wrap(err, "creating video")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogVideos, core.ActionCreated, v.ID))
	return v, nil
}

func (svc *service) Update(ctx context.Context, v Video, nv NewVideo) (Video, error) {
	nv.apply(&v)
	v.UpdatedAt = nowFunc().UTC()

	v, err := svc.repo.UpdateVideo(ctx, v)
	if err != nil {
		return Video{}, errors.Wrap(err, "updating video")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogVideos, core.ActionUpdated, v.ID))
	return v, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteVideo(ctx, id); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogVideos, core.ActionDeleted, id))
	return nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Video, error) {
	return svc.repo.GetVideoByID(ctx, id)
}

func (svc *service) GetPublished(ctx context.Context, id string) (Video, error) {
	v, err := svc.repo.GetVideoByID(ctx, id)
	if err != nil {
		return Video{}, err
	}
	if !v.IsPublished {
		return Video{}, ErrNotFound
	}
	return v, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Video, error) {
	return svc.repo.QueryVideos(ctx, filter, ordering)
}

func (svc *service) ListPublished(ctx context.Context) ([]Video, error) {
	var videos []Video
	err := svc.catalog.Load(ctx, core.CatalogVideos, &videos, func() (err error) {
		videos, err = svc.repo.QueryVideos(ctx, QueryFilter{PublishedOnly: true}, nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading published videos")
	}
	return videos, nil
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountVideos(ctx, true)
}

func (svc *service) MarkComplete(ctx context.Context, userID, videoID string) (Progress, error) {
	if _, err := svc.GetPublished(ctx, videoID); err != nil {
		return Progress{}, err
	}
	now := nowFunc().UTC()
	return svc.repo.UpsertVideoProgress(ctx, Progress{
		UserID:      userID,
		VideoID:     videoID,
		Completed:   true,
		CompletedAt: null.TimeFrom(now),
		UpdatedAt:   now,
	})
}

func (svc *service) Progress(ctx context.Context, userID string) ([]Progress, error) {
	return svc.repo.QueryVideoProgress(ctx, userID)
}
