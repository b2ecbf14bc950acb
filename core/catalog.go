package core

import (
	"context"
	"time"
)

// CatalogKind names one of the published lists learners browse.
type CatalogKind string

const (
	CatalogEbooks   CatalogKind = "ebooks"
	CatalogVideos   CatalogKind = "videos"
	CatalogGlossary CatalogKind = "glossary"
	CatalogModules  CatalogKind = "modules"
)

// Catalog actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// CatalogEvent is published whenever an admin changes a catalog.
type CatalogEvent struct {
	Kind   CatalogKind `json:"kind"`
	Action string      `json:"action"`
	ID     string      `json:"id,omitempty"`
	At     time.Time   `json:"at"`
}

func NewCatalogEvent(kind CatalogKind, action, id string) CatalogEvent {
	return CatalogEvent{Kind: kind, Action: action, ID: id, At: time.Now().UTC()}
}

// Catalog caches the published lists and fans out change events.
type Catalog interface {
	// Load fills dest from the cache, or calls fetch (which must fill dest) and caches the result.
	Load(ctx context.Context, kind CatalogKind, dest interface{}, fetch func() error) error
	// Changed invalidates the cached list of evt.Kind and notifies subscribers.
	Changed(ctx context.Context, evt CatalogEvent)
	// Subscribe streams change events until ctx is done.
	Subscribe(ctx context.Context) (<-chan CatalogEvent, error)
}
