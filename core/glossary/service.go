package glossary

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
)

var ErrNotFound = core.NewNotFoundError("glossary term")

type (
	Repository interface {
		CreateTerm(ctx context.Context, t Term) (Term, error)
		UpdateTerm(ctx context.Context, t Term) (Term, error)
		DeleteTerm(ctx context.Context, id string) error
		GetTermByID(ctx context.Context, id string) (Term, error)
		// QueryTerms returns every term ordered by term.
		QueryTerms(ctx context.Context) ([]Term, error)
		CountTerms(ctx context.Context) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nt NewTerm) (Term, error)
		Update(ctx context.Context, t Term, nt NewTerm) (Term, error)
		Delete(ctx context.Context, id string) error
		GetByID(ctx context.Context, id string) (Term, error)
		// List returns the terms matching q (see Search).
		List(ctx context.Context, q string) ([]Term, error)
		// Grouped returns the terms matching q grouped by letter.
		Grouped(ctx context.Context, q string) ([]Group, error)
		Count(ctx context.Context) (int, error)
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

func (svc *service) Create(ctx context.Context, nt NewTerm) (Term, error) {
	now := nowFunc().UTC()
	t := Term{CreatedAt: now, UpdatedAt: now}
	nt.apply(&t)

	t, err := svc.repo.CreateTerm(ctx, t)
	if err != nil {
		return Term{}, errors.Wrap(err, "creating term")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogGlossary, core.ActionCreated, t.ID))
	return t, nil
}

func (svc *service) Update(ctx context.Context, t Term, nt NewTerm) (Term, error) {
	nt.apply(&t)
	t.UpdatedAt = nowFunc().UTC()

	t, err := svc.repo.UpdateTerm(ctx, t)
	if err != nil {
		return Term{}, errors.Wrap(err, "updating term")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogGlossary, core.ActionUpdated, t.ID))
	return t, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteTerm(ctx, id); err != nil {
		return errors.Wrap(err, "deleting term")
	}
	svc.catalog.Changed(ctx, core.NewCatalogEvent(core.CatalogGlossary, core.ActionDeleted, id))
	return nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Term, error) {
	return svc.repo.GetTermByID(ctx, id)
}

func (svc *service) List(ctx context.Context, q string) ([]Term, error) {
	var terms []Term
	err := svc.catalog.Load(ctx, core.CatalogGlossary, &terms, func() (err error) {
		terms, err = svc.repo.QueryTerms(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading glossary")
	}
	return Search(terms, q), nil
}

func (svc *service) Grouped(ctx context.Context, q string) ([]Group, error) {
	terms, err := svc.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return GroupByLetter(terms), nil
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountTerms(ctx)
}
