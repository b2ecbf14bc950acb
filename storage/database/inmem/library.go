package inmemdb

import (
	"cmp"
	"context"
	"strings"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/video"
)

var (
	newestFirst    = core.DBOrdering{Field: "created_at"}
	bmiNewestFirst = core.DBOrdering{Field: "measured_at"}

	ebookComparators = comparators[ebook.Ebook]{
		"created_at": func(a, b ebook.Ebook) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"title":      func(a, b ebook.Ebook) int { return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) },
	}
	videoComparators = comparators[video.Video]{
		"created_at": func(a, b video.Video) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"title":      func(a, b video.Video) int { return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) },
	}
	termComparators = comparators[glossary.Term]{
		"term": func(a, b glossary.Term) int {
			if c := cmp.Compare(strings.ToLower(a.Term), strings.ToLower(b.Term)); c != 0 {
				return c
			}
			return cmp.Compare(a.Term, b.Term)
		},
	}
)

// ebooks

type ebookRepository struct {
	db *DB
}

var _ ebook.Repository = (*ebookRepository)(nil) // interface compliance check

func NewEbookRepository(db *DB) ebook.Repository {
	return &ebookRepository{db: db}
}

func (repo *ebookRepository) CreateEbook(_ context.Context, eb ebook.Ebook) (ebook.Ebook, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	eb.ID = newID()
	repo.db.ebooks.insert(repo.db, eb.ID, eb)
	return eb, nil
}

func (repo *ebookRepository) UpdateEbook(_ context.Context, eb ebook.Ebook) (ebook.Ebook, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.ebooks.set(eb.ID, eb) {
		return ebook.Ebook{}, ebook.ErrNotFound
	}
	return eb, nil
}

func (repo *ebookRepository) DeleteEbook(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.ebooks.delete(id) {
		return ebook.ErrNotFound
	}
	repo.db.ebookProgress.deleteWhere(func(p ebook.Progress) bool { return p.EbookID == id })
	return nil
}

func (repo *ebookRepository) GetEbookByID(_ context.Context, id string) (ebook.Ebook, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if eb, ok := repo.db.ebooks.get(id); ok {
		return eb, nil
	}
	return ebook.Ebook{}, ebook.ErrNotFound
}

func (repo *ebookRepository) QueryEbooks(_ context.Context, filter ebook.QueryFilter, ordering []core.DBOrdering) ([]ebook.Ebook, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q := strings.ToLower(filter.Search)
	ebooks := reverse(repo.db.ebooks.list(func(eb ebook.Ebook) bool {
		if filter.PublishedOnly && !eb.IsPublished {
			return false
		}
		if filter.Category != "" && !strings.EqualFold(eb.Category.String, filter.Category) {
			return false
		}
		return q == "" || contains(q, eb.Title, eb.Description, eb.Author.String)
	}))
	sortBy(ebooks, ebookComparators, ordering, newestFirst)
	return ebooks, nil
}

func (repo *ebookRepository) CountEbooks(_ context.Context, publishedOnly bool) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.ebooks.count(func(eb ebook.Ebook) bool { return !publishedOnly || eb.IsPublished }), nil
}

func (repo *ebookRepository) UpsertEbookProgress(_ context.Context, p ebook.Progress) (ebook.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.ebooks.get(p.EbookID); !ok {
		return ebook.Progress{}, ebook.ErrNotFound
	}
	existing := repo.db.ebookProgress.list(func(ep ebook.Progress) bool {
		return ep.UserID == p.UserID && ep.EbookID == p.EbookID
	})
	if len(existing) > 0 {
		p.ID = existing[0].ID
		repo.db.ebookProgress.set(p.ID, p)
		return p, nil
	}
	p.ID = newID()
	repo.db.ebookProgress.insert(repo.db, p.ID, p)
	return p, nil
}

func (repo *ebookRepository) GetEbookProgress(_ context.Context, userID, ebookID string) (ebook.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	found := repo.db.ebookProgress.list(func(p ebook.Progress) bool { return p.UserID == userID && p.EbookID == ebookID })
	if len(found) == 0 {
		return ebook.Progress{}, ebook.ErrProgressNotFound
	}
	return found[0], nil
}

func (repo *ebookRepository) QueryEbookProgress(_ context.Context, userID string) ([]ebook.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progress := reverse(repo.db.ebookProgress.list(func(p ebook.Progress) bool { return p.UserID == userID }))
	sortBy(progress, comparators[ebook.Progress]{
		"updated_at": func(a, b ebook.Progress) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	}, nil, core.DBOrdering{Field: "updated_at"})
	return progress, nil
}

// videos

type videoRepository struct {
	db *DB
}

var _ video.Repository = (*videoRepository)(nil) // interface compliance check

func NewVideoRepository(db *DB) video.Repository {
	return &videoRepository{db: db}
}

func (repo *videoRepository) CreateVideo(_ context.Context, v video.Video) (video.Video, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	v.ID = newID()
	repo.db.videos.insert(repo.db, v.ID, v)
	return v, nil
}

func (repo *videoRepository) UpdateVideo(_ context.Context, v video.Video) (video.Video, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.videos.set(v.ID, v) {
		return video.Video{}, video.ErrNotFound
	}
	return v, nil
}

func (repo *videoRepository) DeleteVideo(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.videos.delete(id) {
		return video.ErrNotFound
	}
	repo.db.videoProgress.deleteWhere(func(p video.Progress) bool { return p.VideoID == id })
	return nil
}

func (repo *videoRepository) GetVideoByID(_ context.Context, id string) (video.Video, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.videos.get(id); ok {
		return v, nil
	}
	return video.Video{}, video.ErrNotFound
}

func (repo *videoRepository) QueryVideos(_ context.Context, filter video.QueryFilter, ordering []core.DBOrdering) ([]video.Video, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q := strings.ToLower(filter.Search)
	videos := reverse(repo.db.videos.list(func(v video.Video) bool {
		if filter.PublishedOnly && !v.IsPublished {
			return false
		}
		if filter.Category != "" && !strings.EqualFold(v.Category.String, filter.Category) {
			return false
		}
		return q == "" || contains(q, v.Title, v.Description)
	}))
	sortBy(videos, videoComparators, ordering, newestFirst)
	return videos, nil
}

func (repo *videoRepository) CountVideos(_ context.Context, publishedOnly bool) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.videos.count(func(v video.Video) bool { return !publishedOnly || v.IsPublished }), nil
}

func (repo *videoRepository) UpsertVideoProgress(_ context.Context, p video.Progress) (video.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.videos.get(p.VideoID); !ok {
		return video.Progress{}, video.ErrNotFound
	}
	existing := repo.db.videoProgress.list(func(vp video.Progress) bool {
		return vp.UserID == p.UserID && vp.VideoID == p.VideoID
	})
	if len(existing) > 0 {
		p.ID = existing[0].ID
		repo.db.videoProgress.set(p.ID, p)
		return p, nil
	}
	p.ID = newID()
	repo.db.videoProgress.insert(repo.db, p.ID, p)
	return p, nil
}

func (repo *videoRepository) QueryVideoProgress(_ context.Context, userID string) ([]video.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progress := reverse(repo.db.videoProgress.list(func(p video.Progress) bool { return p.UserID == userID }))
	sortBy(progress, comparators[video.Progress]{
		"updated_at": func(a, b video.Progress) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	}, nil, core.DBOrdering{Field: "updated_at"})
	return progress, nil
}

// glossary

type glossaryRepository struct {
	db *DB
}

var _ glossary.Repository = (*glossaryRepository)(nil) // interface compliance check

func NewGlossaryRepository(db *DB) glossary.Repository {
	return &glossaryRepository{db: db}
}

func (repo *glossaryRepository) CreateTerm(_ context.Context, t glossary.Term) (glossary.Term, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = newID()
	repo.db.glossary.insert(repo.db, t.ID, t)
	return t, nil
}

func (repo *glossaryRepository) UpdateTerm(_ context.Context, t glossary.Term) (glossary.Term, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.glossary.set(t.ID, t) {
		return glossary.Term{}, glossary.ErrNotFound
	}
	return t, nil
}

func (repo *glossaryRepository) DeleteTerm(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.glossary.delete(id) {
		return glossary.ErrNotFound
	}
	return nil
}

func (repo *glossaryRepository) GetTermByID(_ context.Context, id string) (glossary.Term, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.glossary.get(id); ok {
		return t, nil
	}
	return glossary.Term{}, glossary.ErrNotFound
}

func (repo *glossaryRepository) QueryTerms(context.Context) ([]glossary.Term, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	terms := repo.db.glossary.list(nil)
	sortBy(terms, termComparators, nil, core.DBOrdering{Field: "term", Ascending: true})
	return terms, nil
}

func (repo *glossaryRepository) CountTerms(context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.glossary.count(nil), nil
}
