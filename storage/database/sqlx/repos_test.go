package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/progress"
	"github.com/genzugar/backend/core/user"
	"github.com/genzugar/backend/core/video"
	"github.com/genzugar/backend/storage/database"
)

var (
	testDB *sqlx.DB // nil when postgres is unavailable
	t0     = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
)

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(run(m))
}

func run(m *testing.M) int {
	if testing.Short() {
		return m.Run()
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("genzugar_test"),
		postgres.WithUsername("genzugar"),
		postgres.WithPassword("genzugar"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres container unavailable, skipping repository tests: %v\n", err)
		return m.Run()
	}
	defer func() { _ = testcontainers.TerminateContainer(ctr) }()

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable", "timezone=utc")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(db); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	testDB = NewDB(db)
	return m.Run()
}

func requireDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres is not available")
	}
	_, err := testDB.Exec(`TRUNCATE users, ebooks, educational_videos, glossary, learning_modules CASCADE`)
	require.NoError(t, err)
	return testDB
}

func createUser(t *testing.T, repo user.Repository, name, email string, createdAt time.Time) user.User {
	t.Helper()
	usr := user.User{FullName: name, Email: email, IsActive: true, CreatedAt: createdAt, UpdatedAt: createdAt}
	require.NoError(t, usr.SetPassword("rahasia123"))
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{"default", nil, " ORDER BY created_at DESC"},
		{"allowed", []core.DBOrdering{{Field: "title", Ascending: true}}, " ORDER BY title ASC"},
		{"unknown fields dropped", []core.DBOrdering{{Field: "id; DROP TABLE users"}}, " ORDER BY created_at DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering, catalogOrderings, newestFirst))
		})
	}
	assert.Equal(t, `%50\%\_off%`, like("50%_off"))
}

func TestUserRepository(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	ani := createUser(t, repo, "Ani Lestari", "ani@mail.com", t0)
	budi := createUser(t, repo, "Budi", "budi@mail.com", t0.Add(time.Hour))

	_, err := repo.CreateUser(ctx, user.User{ID: "x", FullName: "Ani", Email: "ani@mail.com", PasswordHash: []byte("x")})
	assert.Equal(t, user.ErrEmailExists, err)

	exists, err := repo.EmailExists(ctx, "ANI@mail.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.EmailExists(ctx, "ani@mail.com", ani.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	users, err := repo.QueryUsers(ctx, &user.QueryFilter{Search: "lestari"}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, ani.ID, users[0].ID)

	users, err = repo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, budi.ID, users[0].ID)

	require.NoError(t, repo.UpdateMeasurements(ctx, ani.ID, 160, 55))
	got, err := repo.GetUserByEmail(ctx, "Ani@Mail.com")
	require.NoError(t, err)
	assert.Equal(t, null.Float64From(160), got.HeightCm)

	got.IsAdmin = true
	_, err = repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	got, err = repo.GetUserByID(ctx, ani.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	_, err = repo.GetUserByID(ctx, "not-a-uuid")
	assert.Equal(t, user.ErrNotFound, err)

	n, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBMIRepository(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	usr := createUser(t, NewUserRepository(db), "Ani", "ani@mail.com", t0)
	repo := NewBMIRepository(db)

	for i, w := range []float64{50, 55, 60} {
		res, err := bmi.Compute(160, w)
		require.NoError(t, err)
		_, err = repo.AppendRecord(ctx, bmi.Record{
			UserID: usr.ID, HeightCm: 160, WeightKg: w, Value: res.Value, Category: res.Category,
			MeasuredAt: t0.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	recs, err := repo.QueryRecords(ctx, usr.ID, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 60.0, recs[0].WeightKg)
	assert.Equal(t, 23.4, recs[0].Value)
	assert.Equal(t, bmi.Normal, recs[0].Category)

	n, err := repo.CountRecords(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	t.Run("largest accepted measurement fits the column", func(t *testing.T) {
		nm := bmi.NewMeasurement{HeightCm: 30, WeightKg: 500}
		require.NoError(t, nm.Validate())
		res, err := bmi.Compute(nm.HeightCm, nm.WeightKg)
		require.NoError(t, err)

		_, err = repo.AppendRecord(ctx, bmi.Record{
			UserID: usr.ID, HeightCm: nm.HeightCm, WeightKg: nm.WeightKg, Value: res.Value, Category: res.Category,
			MeasuredAt: t0.Add(24 * time.Hour),
		})
		require.NoError(t, err)

		recs, err := repo.QueryRecords(ctx, usr.ID, 1)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, 5555.6, recs[0].Value)
		assert.Equal(t, bmi.Obese, recs[0].Category)
	})
}

func TestLibraryRepositories(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	usr := createUser(t, NewUserRepository(db), "Ani", "ani@mail.com", t0)

	ebooks := NewEbookRepository(db)
	eb, err := ebooks.CreateEbook(ctx, ebook.Ebook{
		Title: "Mengenal Diabetes", DocumentURL: "https://cdn.test/doc.pdf", IsPublished: true,
		Category: null.StringFrom("Dasar"), CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)
	_, err = ebooks.CreateEbook(ctx, ebook.Ebook{Title: "Draft", DocumentURL: "https://cdn.test/d.pdf", CreatedAt: t0, UpdatedAt: t0})
	require.NoError(t, err)

	found, err := ebooks.QueryEbooks(ctx, ebook.QueryFilter{PublishedOnly: true, Category: "dasar", Search: "diabetes"}, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	n, err := ebooks.CountEbooks(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := ebooks.UpsertEbookProgress(ctx, ebook.Progress{UserID: usr.ID, EbookID: eb.ID, LastPage: 3, UpdatedAt: t0})
	require.NoError(t, err)
	again, err := ebooks.UpsertEbookProgress(ctx, ebook.Progress{
		UserID: usr.ID, EbookID: eb.ID, LastPage: 9, Completed: true, CompletedAt: null.TimeFrom(t0), UpdatedAt: t0,
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, 9, again.LastPage)

	_, err = ebooks.GetEbookProgress(ctx, usr.ID, eb.ID)
	require.NoError(t, err)
	require.NoError(t, ebooks.DeleteEbook(ctx, eb.ID))
	_, err = ebooks.GetEbookProgress(ctx, usr.ID, eb.ID)
	assert.Equal(t, ebook.ErrProgressNotFound, err)
	assert.Equal(t, ebook.ErrNotFound, ebooks.DeleteEbook(ctx, eb.ID))

	videos := NewVideoRepository(db)
	v, err := videos.CreateVideo(ctx, video.Video{
		Title: "Senam", YouTubeURL: "https://youtu.be/dQw4w9WgXcQ", IsPublished: true, CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)
	vp, err := videos.UpsertVideoProgress(ctx, video.Progress{
		UserID: usr.ID, VideoID: v.ID, Completed: true, CompletedAt: null.TimeFrom(t0), UpdatedAt: t0,
	})
	require.NoError(t, err)
	all, err := videos.QueryVideoProgress(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, vp.ID, all[0].ID)

	terms := NewGlossaryRepository(db)
	for _, term := range []string{"insulin", "Glukosa", "HbA1c"} {
		_, err := terms.CreateTerm(ctx, glossary.Term{Term: term, Definition: "-", CreatedAt: t0, UpdatedAt: t0})
		require.NoError(t, err)
	}
	list, err := terms.QueryTerms(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestModuleRepositories(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	usr := createUser(t, NewUserRepository(db), "Ani", "ani@mail.com", t0)
	repo := NewModuleRepository(db)
	stats := NewProgressRepository(db)

	m, err := repo.CreateModule(ctx, module.Module{
		Title: "Dasar", ModuleOrder: 1, LearningObjectives: types.StringArray{"a", "b"},
		IsPublished: true, CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)
	_, err = repo.CreateModule(ctx, module.Module{Title: "Draft", ModuleOrder: 0, LearningObjectives: types.StringArray{}, CreatedAt: t0, UpdatedAt: t0})
	require.NoError(t, err)

	published, err := repo.QueryModules(ctx, true)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, types.StringArray{"a", "b"}, published[0].LearningObjectives)

	quiz := json.RawMessage(`{"questions":[{"question":"?","options":["a","b"],"answer_index":0}]}`)
	c, err := repo.CreateContent(ctx, module.ContentItem{
		ModuleID: m.ID, Title: "Kuis", ContentType: module.ContentQuiz, ContentOrder: 1,
		ContentData: types.JSON(quiz), CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)

	got, err := repo.GetContentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, module.ContentQuiz, got.ContentType)
	assert.JSONEq(t, string(quiz), string(got.ContentData))

	counts, err := repo.CountContentByModule(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{m.ID: 1}, counts)

	score := null.IntFrom(80)
	_, err = repo.UpsertProgress(ctx, module.Progress{
		UserID: usr.ID, ModuleID: m.ID, ContentID: c.ID, Completed: true, Score: score,
		CompletedAt: null.TimeFrom(t0), UpdatedAt: t0,
	})
	require.NoError(t, err)

	n, err := stats.CountCompletedModules(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	timeline, err := stats.QueryTimeline(ctx, usr.ID, 10)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, "Kuis", timeline[0].ContentTitle)
	assert.Equal(t, "Dasar", timeline[0].ModuleTitle)

	totals, err := stats.CountTotals(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, progress.Totals{Users: 1, Modules: 1}, totals)
	totals, err = stats.CountTotals(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Modules)

	require.NoError(t, repo.DeleteModule(ctx, m.ID))
	prog, err := repo.QueryProgress(ctx, usr.ID, "")
	require.NoError(t, err)
	assert.Empty(t, prog)
}
