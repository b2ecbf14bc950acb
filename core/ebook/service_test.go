package ebook_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/ebook"
	catalogsvc "github.com/genzugar/backend/services/catalog"
	storagesvc "github.com/genzugar/backend/services/storage"
	inmemdb "github.com/genzugar/backend/storage/database/inmem"
)

var ctx = context.Background()

func newService(t *testing.T) (ebook.Service, *storagesvc.MemoryStorage) {
	t.Helper()
	store := storagesvc.NewMemoryStorage("https://cdn.test")
	svc := ebook.NewService(inmemdb.NewEbookRepository(inmemdb.Open()), store, catalogsvc.NewMemoryCatalog(), core.NopLogger{})
	return svc, store
}

func TestService_CreateWithUploads(t *testing.T) {
	svc, store := newService(t)

	eb, err := svc.Create(ctx, ebook.NewEbook{Title: "Diabetes 101", IsPublished: true}, ebook.Files{
		Document:  &ebook.Upload{Filename: "diabetes 101.pdf", Body: strings.NewReader("%PDF")},
		Thumbnail: &ebook.Upload{Filename: "cover.png", Body: strings.NewReader("png")},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(eb.DocumentURL, "https://cdn.test/documents/"))
	assert.True(t, strings.HasSuffix(eb.DocumentURL, "-diabetes_101.pdf"))
	assert.True(t, strings.HasPrefix(eb.ThumbnailURL.String, "https://cdn.test/thumbnails/"))
	assert.Len(t, store.Keys(), 2)

	require.NoError(t, svc.Delete(ctx, eb))
	assert.Empty(t, store.Keys())

	_, err = svc.GetByID(ctx, eb.ID)
	assert.Equal(t, ebook.ErrNotFound, err)
}

func TestService_DeleteKeepsForeignFiles(t *testing.T) {
	svc, store := newService(t)
	_, err := store.Upload(ctx, "documents/other.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	eb, err := svc.Create(ctx, ebook.NewEbook{Title: "Linked", DocumentURL: "https://example.com/a.pdf"}, ebook.Files{})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, eb))
	assert.Equal(t, []string{"documents/other.pdf"}, store.Keys())
}

func TestService_UpdateRemovesReplacedFiles(t *testing.T) {
	svc, store := newService(t)
	eb, err := svc.Create(ctx, ebook.NewEbook{Title: "Diabetes 101"}, ebook.Files{
		Document:  &ebook.Upload{Filename: "edisi-1.pdf", Body: strings.NewReader("v1")},
		Thumbnail: &ebook.Upload{Filename: "cover.png", Body: strings.NewReader("png")},
	})
	require.NoError(t, err)
	keyOf := func(url string) string { return strings.TrimPrefix(url, "https://cdn.test/") }
	cover := keyOf(eb.ThumbnailURL.String)

	// new document, same thumbnail
	eb, err = svc.Update(ctx, eb, ebook.NewEbook{Title: "Diabetes 101", ThumbnailURL: eb.ThumbnailURL.String}, ebook.Files{
		Document: &ebook.Upload{Filename: "edisi-2.pdf", Body: strings.NewReader("v2")},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(eb.DocumentURL, "-edisi-2.pdf"))
	assert.ElementsMatch(t, []string{keyOf(eb.DocumentURL), cover}, store.Keys())

	// the document now lives elsewhere and the thumbnail is dropped
	eb, err = svc.Update(ctx, eb, ebook.NewEbook{Title: "Diabetes 101", DocumentURL: "https://example.com/d.pdf"}, ebook.Files{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/d.pdf", eb.DocumentURL)
	assert.Empty(t, store.Keys())
}

func TestService_Published(t *testing.T) {
	svc, _ := newService(t)
	pub, err := svc.Create(ctx, ebook.NewEbook{Title: "Published", DocumentURL: "https://example.com/a.pdf", IsPublished: true}, ebook.Files{})
	require.NoError(t, err)
	draft, err := svc.Create(ctx, ebook.NewEbook{Title: "Draft", DocumentURL: "https://example.com/b.pdf"}, ebook.Files{})
	require.NoError(t, err)

	list, err := svc.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pub.ID, list[0].ID)

	_, err = svc.GetPublished(ctx, draft.ID)
	assert.Equal(t, ebook.ErrNotFound, err)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.MarkComplete(ctx, "u1", draft.ID)
	assert.Equal(t, ebook.ErrNotFound, err)
}

func TestService_Progress(t *testing.T) {
	svc, _ := newService(t)
	eb, err := svc.Create(ctx, ebook.NewEbook{Title: "Gizi", DocumentURL: "https://example.com/a.pdf", IsPublished: true}, ebook.Files{})
	require.NoError(t, err)

	_, err = svc.GetProgress(ctx, "u1", eb.ID)
	assert.Equal(t, ebook.ErrProgressNotFound, err)

	p, err := svc.SaveProgress(ctx, "u1", eb.ID, ebook.SaveProgress{LastPage: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, p.LastPage)
	assert.False(t, p.Completed)

	p, err = svc.MarkComplete(ctx, "u1", eb.ID)
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.Equal(t, 4, p.LastPage)
	completedAt := p.CompletedAt

	p, err = svc.SaveProgress(ctx, "u1", eb.ID, ebook.SaveProgress{LastPage: 2})
	require.NoError(t, err)
	assert.True(t, p.Completed, "a completed ebook stays completed")
	assert.Equal(t, completedAt, p.CompletedAt)
	assert.Equal(t, 2, p.LastPage)

	all, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
