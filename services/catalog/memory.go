package catalogsvc

import (
	"context"

	"github.com/genzugar/backend/core"
)

// memoryCatalog does not cache: every Load fetches. Events only reach subscribers of this process.
type memoryCatalog struct {
	hub *hub
}

var _ core.Catalog = (*memoryCatalog)(nil)

func NewMemoryCatalog() core.Catalog {
	return &memoryCatalog{hub: newHub()}
}

func (c *memoryCatalog) Load(_ context.Context, _ core.CatalogKind, _ interface{}, fetch func() error) error {
	return fetch()
}

func (c *memoryCatalog) Changed(_ context.Context, evt core.CatalogEvent) {
	c.hub.broadcast(evt)
}

func (c *memoryCatalog) Subscribe(ctx context.Context) (<-chan core.CatalogEvent, error) {
	return c.hub.subscribe(ctx), nil
}
