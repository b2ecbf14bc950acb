package inmemdb

import (
	"cmp"
	"context"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/progress"
	"github.com/genzugar/backend/core/video"
)

var (
	moduleOrdering    = []core.DBOrdering{{Field: "module_order", Ascending: true}, {Field: "created_at", Ascending: true}}
	moduleComparators = comparators[module.Module]{
		"module_order": func(a, b module.Module) int { return cmp.Compare(a.ModuleOrder, b.ModuleOrder) },
		"created_at":   func(a, b module.Module) int { return a.CreatedAt.Compare(b.CreatedAt) },
	}

	contentOrdering    = []core.DBOrdering{{Field: "content_order", Ascending: true}, {Field: "created_at", Ascending: true}}
	contentComparators = comparators[module.ContentItem]{
		"content_order": func(a, b module.ContentItem) int { return cmp.Compare(a.ContentOrder, b.ContentOrder) },
		"created_at":    func(a, b module.ContentItem) int { return a.CreatedAt.Compare(b.CreatedAt) },
	}
)

type moduleRepository struct {
	db *DB
}

var _ module.Repository = (*moduleRepository)(nil) // interface compliance check

func NewModuleRepository(db *DB) module.Repository {
	return &moduleRepository{db: db}
}

func (repo *moduleRepository) CreateModule(_ context.Context, m module.Module) (module.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = newID()
	repo.db.modules.insert(repo.db, m.ID, m)
	return m, nil
}

func (repo *moduleRepository) UpdateModule(_ context.Context, m module.Module) (module.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.modules.set(m.ID, m) {
		return module.Module{}, module.ErrNotFound
	}
	return m, nil
}

func (repo *moduleRepository) DeleteModule(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.modules.delete(id) {
		return module.ErrNotFound
	}
	repo.db.contents.deleteWhere(func(c module.ContentItem) bool { return c.ModuleID == id })
	repo.db.progress.deleteWhere(func(p module.Progress) bool { return p.ModuleID == id })
	return nil
}

func (repo *moduleRepository) GetModuleByID(_ context.Context, id string) (module.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.modules.get(id); ok {
		return m, nil
	}
	return module.Module{}, module.ErrNotFound
}

func (repo *moduleRepository) QueryModules(_ context.Context, publishedOnly bool) ([]module.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	modules := repo.db.modules.list(func(m module.Module) bool { return !publishedOnly || m.IsPublished })
	sortBy(modules, moduleComparators, nil, moduleOrdering...)
	return modules, nil
}

func (repo *moduleRepository) CountModules(_ context.Context, publishedOnly bool) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.modules.count(func(m module.Module) bool { return !publishedOnly || m.IsPublished }), nil
}

func (repo *moduleRepository) CreateContent(_ context.Context, c module.ContentItem) (module.ContentItem, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.modules.get(c.ModuleID); !ok {
		return module.ContentItem{}, module.ErrNotFound
	}
	c.ID = newID()
	repo.db.contents.insert(repo.db, c.ID, c)
	return c, nil
}

func (repo *moduleRepository) UpdateContent(_ context.Context, c module.ContentItem) (module.ContentItem, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.contents.set(c.ID, c) {
		return module.ContentItem{}, module.ErrContentNotFound
	}
	return c, nil
}

func (repo *moduleRepository) DeleteContent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.contents.delete(id) {
		return module.ErrContentNotFound
	}
	repo.db.progress.deleteWhere(func(p module.Progress) bool { return p.ContentID == id })
	return nil
}

func (repo *moduleRepository) GetContentByID(_ context.Context, id string) (module.ContentItem, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.contents.get(id); ok {
		return c, nil
	}
	return module.ContentItem{}, module.ErrContentNotFound
}

func (repo *moduleRepository) QueryContent(_ context.Context, moduleID string) ([]module.ContentItem, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := repo.db.contents.list(func(c module.ContentItem) bool { return c.ModuleID == moduleID })
	sortBy(items, contentComparators, nil, contentOrdering...)
	return items, nil
}

func (repo *moduleRepository) CountContentByModule(context.Context) (map[string]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[string]int)
	for _, c := range repo.db.contents.list(nil) {
		counts[c.ModuleID]++
	}
	return counts, nil
}

func (repo *moduleRepository) UpsertProgress(_ context.Context, p module.Progress) (module.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.contents.get(p.ContentID); !ok {
		return module.Progress{}, module.ErrContentNotFound
	}
	existing := repo.db.progress.list(func(mp module.Progress) bool {
		return mp.UserID == p.UserID && mp.ContentID == p.ContentID
	})
	if len(existing) > 0 {
		p.ID = existing[0].ID
		repo.db.progress.set(p.ID, p)
		return p, nil
	}
	p.ID = newID()
	repo.db.progress.insert(repo.db, p.ID, p)
	return p, nil
}

func (repo *moduleRepository) QueryProgress(_ context.Context, userID, moduleID string) ([]module.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.db.progress.list(func(p module.Progress) bool {
		return p.UserID == userID && (moduleID == "" || p.ModuleID == moduleID)
	}), nil
}

// statistics

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CountCompletedModules(_ context.Context, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	modules := make(map[string]struct{})
	for _, p := range repo.db.progress.list(func(p module.Progress) bool { return p.UserID == userID && p.Completed }) {
		modules[p.ModuleID] = struct{}{}
	}
	return len(modules), nil
}

func (repo *progressRepository) QueryTimeline(_ context.Context, userID string, lim int) ([]progress.TimelineEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	completed := reverse(repo.db.progress.list(func(p module.Progress) bool {
		return p.UserID == userID && p.Completed && p.CompletedAt.Valid
	}))
	entries := make([]progress.TimelineEntry, 0, len(completed))
	for _, p := range completed {
		c, ok := repo.db.contents.get(p.ContentID)
		if !ok {
			continue
		}
		m, ok := repo.db.modules.get(p.ModuleID)
		if !ok {
			continue
		}
		entries = append(entries, progress.TimelineEntry{
			ModuleID:     m.ID,
			ModuleTitle:  m.Title,
			ContentID:    c.ID,
			ContentTitle: c.Title,
			ContentType:  c.ContentType,
			CompletedAt:  p.CompletedAt.Time,
		})
	}
	sortBy(entries, comparators[progress.TimelineEntry]{
		"completed_at": func(a, b progress.TimelineEntry) int { return a.CompletedAt.Compare(b.CompletedAt) },
	}, nil, core.DBOrdering{Field: "completed_at"})
	return limit(entries, lim), nil
}

func (repo *progressRepository) CountTotals(_ context.Context, publishedOnly bool) (progress.Totals, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	published := func(isPublished bool) bool { return !publishedOnly || isPublished }
	return progress.Totals{
		Users:    repo.db.users.count(nil),
		Ebooks:   repo.db.ebooks.count(func(eb ebook.Ebook) bool { return published(eb.IsPublished) }),
		Videos:   repo.db.videos.count(func(v video.Video) bool { return published(v.IsPublished) }),
		Glossary: repo.db.glossary.count(nil),
		Modules:  repo.db.modules.count(func(m module.Module) bool { return published(m.IsPublished) }),
	}, nil
}
