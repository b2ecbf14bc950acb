package module

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/genzugar/backend/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("module")
	ErrContentNotFound = core.NewNotFoundError("content")
	ErrContentLocked   = core.NewForbiddenError("content locked")
)

type (
	Repository interface {
		CreateModule(ctx context.Context, m Module) (Module, error)
		UpdateModule(ctx context.Context, m Module) (Module, error)
		// DeleteModule deletes a module together with its content and the related progress.
		DeleteModule(ctx context.Context, id string) error
		GetModuleByID(ctx context.Context, id string) (Module, error)
		// QueryModules returns modules ordered by module_order, then created_at.
		QueryModules(ctx context.Context, publishedOnly bool) ([]Module, error)
		CountModules(ctx context.Context, publishedOnly bool) (int, error)

		CreateContent(ctx context.Context, c ContentItem) (ContentItem, error)
		UpdateContent(ctx context.Context, c ContentItem) (ContentItem, error)
		DeleteContent(ctx context.Context, id string) error
		GetContentByID(ctx context.Context, id string) (ContentItem, error)
		// QueryContent returns the content of a module ordered by content_order, then created_at.
		QueryContent(ctx context.Context, moduleID string) ([]ContentItem, error)
		// CountContentByModule returns {module ID: number of content items}.
		CountContentByModule(ctx context.Context) (map[string]int, error)

		// UpsertProgress inserts or updates the progress of (UserID, ContentID).
		UpsertProgress(ctx context.Context, p Progress) (Progress, error)
		// QueryProgress returns the progress of a user, on all modules if moduleID is empty.
		QueryProgress(ctx context.Context, userID, moduleID string) ([]Progress, error)
	}

	Service interface {
		Create(ctx context.Context, nm NewModule) (Module, error)
		Update(ctx context.Context, m Module, nm NewModule) (Module, error)
		Delete(ctx context.Context, id string) error
		GetByID(ctx context.Context, id string) (Module, error)
		// TogglePublished flips the published flag of a module.
		TogglePublished(ctx context.Context, m Module) (Module, error)
		// Query returns every module, published or not.
		Query(ctx context.Context) ([]Module, error)
		Count(ctx context.Context) (int, error)

		Contents(ctx context.Context, moduleID string) ([]ContentItem, error)
		GetContent(ctx context.Context, moduleID, contentID string) (ContentItem, error)
		CreateContent(ctx context.Context, m Module, nc NewContent) (ContentItem, error)
		UpdateContent(ctx context.Context, c ContentItem, nc NewContent) (ContentItem, error)
		DeleteContent(ctx context.Context, c ContentItem) error

		// ListPublished returns the published modules with the completion counts of userID.
		ListPublished(ctx context.Context, userID string) ([]Summary, error)
		// Detail returns a published module with its content annotated for userID.
		Detail(ctx context.Context, userID, moduleID string) (Detail, error)
		// CompleteContent marks a content item as completed by userID. Locked items are rejected with ErrContentLocked.
		CompleteContent(ctx context.Context, userID, moduleID, contentID string, cc CompleteContent) (Progress, error)
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

func (svc *service) changed(ctx context.Context, action, id string) {
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogModules, action, id))
}

func (svc *service) Create(ctx context.Context, nm NewModule) (Module, error) {
	now := nowFunc().UTC()
	m := Module{CreatedAt: now, UpdatedAt: now}
	nm.apply(&m)

	m, err := svc.repo.CreateModule(ctx, m)
	if err != nil {
		return Module{}, errors.Wrap(err, "creating module")
	}
	svc.changed(ctx, core.ActionCreated, m.ID)
	return m, nil
}

func (svc *service) Update(ctx context.Context, m Module, nm NewModule) (Module, error) {
	nm.apply(&m)
	return svc.save(ctx, m)
}

func (svc *service) TogglePublished(ctx context.Context, m Module) (Module, error) {
	m.IsPublished = !m.IsPublished
	return svc.save(ctx, m)
}

func (svc *service) save(ctx context.Context, m Module) (Module, error) {
	m.UpdatedAt = nowFunc().UTC()
	m, err := svc.repo.UpdateModule(ctx, m)
	if err != nil {
		return Module{}, errors.Wrap(err, "updating module")
	}
	svc.changed(ctx, core.ActionUpdated, m.ID)
	return m, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteModule(ctx, id); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	svc.changed(ctx, core.ActionDeleted, id)
	return nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModuleByID(ctx, id)
}

func (svc *service) Query(ctx context.Context) ([]Module, error) {
	return svc.repo.QueryModules(ctx, false)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountModules(ctx, true)
}

func (svc *service) Contents(ctx context.Context, moduleID string) ([]ContentItem, error) {
	return svc.repo.QueryContent(ctx, moduleID)
}

func (svc *service) GetContent(ctx context.Context, moduleID, contentID string) (ContentItem, error) {
	c, err := svc.repo.GetContentByID(ctx, contentID)
	if err != nil {
		return ContentItem{}, err
	}
	if c.ModuleID != moduleID {
		return ContentItem{}, ErrContentNotFound
	}
	return c, nil
}

func (svc *service) CreateContent(ctx context.Context, m Module, nc NewContent) (ContentItem, error) {
	now := nowFunc().UTC()
	c := ContentItem{ModuleID: m.ID, CreatedAt: now, UpdatedAt: now}
	nc.apply(&c)

	c, err := svc.repo.CreateContent(ctx, c)
	if err != nil {
		return ContentItem{}, errors.Wrap(err, "creating content")
	}
	svc.changed(ctx, core.ActionUpdated, m.ID)
	return c, nil
}

func (svc *service) UpdateContent(ctx context.Context, c ContentItem, nc NewContent) (ContentItem, error) {
	nc.apply(&c)
	c.UpdatedAt = nowFunc().UTC()

	c, err := svc.repo.UpdateContent(ctx, c)
	if err != nil {
		return ContentItem{}, errors.Wrap(err, "updating content")
	}
	svc.changed(ctx, core.ActionUpdated, c.ModuleID)
	return c, nil
}

func (svc *service) DeleteContent(ctx context.Context, c ContentItem) error {
	if err := svc.repo.DeleteContent(ctx, c.ID); err != nil {
		return errors.Wrap(err, "deleting content")
	}
	svc.changed(ctx, core.ActionUpdated, c.ModuleID)
	return nil
}

func (svc *service) published(ctx context.Context) ([]Module, error) {
	var modules []Module
	err := svc.catalog.Load(ctx, core.CatalogModules, &modules, func() (err error) {
		modules, err = svc.repo.QueryModules(ctx, true)
		return err
	})
	return modules, errors.Wrap(err, "loading published modules")
}

func (svc *service) ListPublished(ctx context.Context, userID string) ([]Summary, error) {
	modules, err := svc.published(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := svc.repo.CountContentByModule(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting module content")
	}
	progress, err := svc.repo.QueryProgress(ctx, userID, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	completed := make(map[string]int)
	for _, p := range progress {
		if p.Completed {
			completed[p.ModuleID]++
		}
	}

	summaries := make([]Summary, 0, len(modules))
	for _, m := range modules {
		summaries = append(summaries, Summary{Module: m, ContentCount: counts[m.ID], CompletedCount: completed[m.ID]})
	}
	return summaries, nil
}

// publishedModule returns the module only if it is published.
func (svc *service) publishedModule(ctx context.Context, id string) (Module, error) {
	m, err := svc.repo.GetModuleByID(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if !m.IsPublished {
		return Module{}, ErrNotFound
	}
	return m, nil
}

// annotate loads the content of a module and the learner's completion state.
func (svc *service) annotate(ctx context.Context, userID, moduleID string) ([]ContentView, int, error) {
	items, err := svc.repo.QueryContent(ctx, moduleID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying content")
	}
	progress, err := svc.repo.QueryProgress(ctx, userID, moduleID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying progress")
	}

	completed := CompletedSet(progress)
	accessible := ComputeAccessibility(items, completed)

	views := make([]ContentView, 0, len(items))
	var nCompleted int
	for _, item := range items {
		if completed[item.ID] {
			nCompleted++
		}
		views = append(views, ContentView{ContentItem: item, Completed: completed[item.ID], Accessible: accessible[item.ID]})
	}
	return views, nCompleted, nil
}

func (svc *service) Detail(ctx context.Context, userID, moduleID string) (Detail, error) {
	m, err := svc.publishedModule(ctx, moduleID)
	if err != nil {
		return Detail{}, err
	}
	views, nCompleted, err := svc.annotate(ctx, userID, moduleID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Module: m, Contents: views, CompletedCount: nCompleted}, nil
}

func (svc *service) CompleteContent(
	ctx context.Context,
	userID, moduleID, contentID string,
	cc CompleteContent,
) (Progress, error) {
	if _, err := svc.publishedModule(ctx, moduleID); err != nil {
		return Progress{}, err
	}
	views, _, err := svc.annotate(ctx, userID, moduleID)
	if err != nil {
		return Progress{}, err
	}

	var target *ContentView
	for i := range views {
		if views[i].ID == contentID {
			target = &views[i]
			break
		}
	}
	if target == nil {
		return Progress{}, ErrContentNotFound
	}
	if !target.Accessible {
		return Progress{}, ErrContentLocked
	}

	now := nowFunc().UTC()
	p, err := svc.repo.UpsertProgress(ctx, Progress{
		UserID:      userID,
		ModuleID:    moduleID,
		ContentID:   contentID,
		Completed:   true,
		Score:       null.IntFromPtr(cc.Score),
		CompletedAt: null.TimeFrom(now),
		UpdatedAt:   now,
	})
	if err != nil {
		return Progress{}, errors.Wrap(err, "saving progress")
	}
	return p, nil
}

func (svc *service) Progress(ctx context.Context, userID string) ([]Progress, error) {
	return svc.repo.QueryProgress(ctx, userID, "")
}
