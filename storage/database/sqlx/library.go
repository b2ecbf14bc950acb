package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/video"
)

var (
	newestFirst      = core.DBOrdering{Field: "created_at"}
	catalogOrderings = []string{"created_at", "title"}
)

// ebooks

const ebookColumns = `id, title, description, author, document_url, thumbnail_url, category,
	estimated_read_minutes, is_published, created_at, updated_at`

type ebookRepository struct {
	db *sqlx.DB
}

var _ ebook.Repository = (*ebookRepository)(nil) // interface compliance check

func NewEbookRepository(db *sqlx.DB) ebook.Repository {
	return &ebookRepository{db: db}
}

func (repo *ebookRepository) CreateEbook(ctx context.Context, eb ebook.Ebook) (ebook.Ebook, error) {
	eb.ID = uuid.New().String()
	q := `INSERT INTO ebooks (` + ebookColumns + `) VALUES (:id, :title, :description, :author, :document_url,
		:thumbnail_url, :category, :estimated_read_minutes, :is_published, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, eb); err != nil {
		return ebook.Ebook{}, errors.Wrap(err, "inserting ebook")
	}
	return eb, nil
}

func (repo *ebookRepository) UpdateEbook(ctx context.Context, eb ebook.Ebook) (ebook.Ebook, error) {
	q := `UPDATE ebooks SET title = :title, description = :description, author = :author, document_url = :document_url,
		thumbnail_url = :thumbnail_url, category = :category, estimated_read_minutes = :estimated_read_minutes,
		is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, eb)
	if err != nil {
		return ebook.Ebook{}, errors.Wrap(err, "updating ebook")
	}
	if err := affected(res, ebook.ErrNotFound, "updating ebook"); err != nil {
		return ebook.Ebook{}, err
	}
	return eb, nil
}

func (repo *ebookRepository) DeleteEbook(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM ebooks WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting ebook")
	}
	return affected(res, ebook.ErrNotFound, "deleting ebook")
}

func (repo *ebookRepository) GetEbookByID(ctx context.Context, id string) (ebook.Ebook, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ebook.Ebook{}, ebook.ErrNotFound
	}
	var eb ebook.Ebook
	q := `SELECT ` + ebookColumns + ` FROM ebooks WHERE id = ?`
	if err := repo.db.GetContext(ctx, &eb, repo.db.Rebind(q), id); err != nil {
		return ebook.Ebook{}, trapNoRowsErr(err, ebook.ErrNotFound, "finding ebook by ID")
	}
	return eb, nil
}

func (repo *ebookRepository) QueryEbooks(ctx context.Context, filter ebook.QueryFilter, ordering []core.DBOrdering) ([]ebook.Ebook, error) {
	var conds []string
	var args []interface{}
	if filter.PublishedOnly {
		conds = append(conds, `is_published`)
	}
	if filter.Category != "" {
		conds = append(conds, `lower(category) = lower(?)`)
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		conds = append(conds, `(title ILIKE ? OR description ILIKE ? OR author ILIKE ?)`)
		args = append(args, like(filter.Search), like(filter.Search), like(filter.Search))
	}

	q := `SELECT ` + ebookColumns + ` FROM ebooks` + where(conds) + orderBy(ordering, catalogOrderings, newestFirst)
	ebooks := make([]ebook.Ebook, 0)
	if err := repo.db.SelectContext(ctx, &ebooks, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying ebooks")
	}
	return ebooks, nil
}

func (repo *ebookRepository) CountEbooks(ctx context.Context, publishedOnly bool) (int, error) {
	var n int
	q := `SELECT count(*) FROM ebooks WHERE is_published OR NOT ?`
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), publishedOnly); err != nil {
		return 0, errors.Wrap(err, "counting ebooks")
	}
	return n, nil
}

const ebookProgressColumns = `id, user_id, ebook_id, completed, last_page, completed_at, updated_at`

func (repo *ebookRepository) UpsertEbookProgress(ctx context.Context, p ebook.Progress) (ebook.Progress, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	q := `INSERT INTO ebook_progress (` + ebookProgressColumns + `)
		VALUES (:id, :user_id, :ebook_id, :completed, :last_page, :completed_at, :updated_at)
		ON CONFLICT (user_id, ebook_id) DO UPDATE SET
			completed = EXCLUDED.completed, last_page = EXCLUDED.last_page,
			completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at
		RETURNING ` + ebookProgressColumns
	if err := namedGet(ctx, repo.db, &p, q, p); err != nil {
		return ebook.Progress{}, errors.Wrap(err, "upserting ebook progress")
	}
	return p, nil
}

func (repo *ebookRepository) GetEbookProgress(ctx context.Context, userID, ebookID string) (ebook.Progress, error) {
	var p ebook.Progress
	q := `SELECT ` + ebookProgressColumns + ` FROM ebook_progress WHERE user_id = ? AND ebook_id = ?`
	if err := repo.db.GetContext(ctx, &p, repo.db.Rebind(q), userID, ebookID); err != nil {
		return ebook.Progress{}, trapNoRowsErr(err, ebook.ErrProgressNotFound, "finding ebook progress")
	}
	return p, nil
}

func (repo *ebookRepository) QueryEbookProgress(ctx context.Context, userID string) ([]ebook.Progress, error) {
	q := `SELECT ` + ebookProgressColumns + ` FROM ebook_progress WHERE user_id = ? ORDER BY updated_at DESC`
	progress := make([]ebook.Progress, 0)
	if err := repo.db.SelectContext(ctx, &progress, repo.db.Rebind(q), userID); err != nil {
		return nil, errors.Wrap(err, "querying ebook progress")
	}
	return progress, nil
}

// videos

const videoColumns = `id, title, description, youtube_url, thumbnail_url, duration_minutes, category,
	is_published, created_at, updated_at`

type videoRepository struct {
	db *sqlx.DB
}

var _ video.Repository = (*videoRepository)(nil) // interface compliance check

func NewVideoRepository(db *sqlx.DB) video.Repository {
	return &videoRepository{db: db}
}

func (repo *videoRepository) CreateVideo(ctx context.Context, v video.Video) (video.Video, error) {
	v.ID = uuid.New().String()
	q := `INSERT INTO educational_videos (` + videoColumns + `) VALUES (:id, :title, :description, :youtube_url,
		:thumbnail_url, :duration_minutes, :category, :is_published, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, v); err != nil {
		return video.Video{}, errors.Wrap(err, "inserting video")
	}
	return v, nil
}

func (repo *videoRepository) UpdateVideo(ctx context.Context, v video.Video) (video.Video, error) {
	q := `UPDATE educational_videos SET title = :title, description = :description, youtube_url = :youtube_url,
		thumbnail_url = :thumbnail_url, duration_minutes = :duration_minutes, category = :category,
		is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, v)
	if err != nil {
		return video.Video{}, errors.Wrap(err, "updating video")
	}
	if err := affected(res, video.ErrNotFound, "updating video"); err != nil {
		return video.Video{}, err
	}
	return v, nil
}

func (repo *videoRepository) DeleteVideo(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM educational_videos WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return affected(res, video.ErrNotFound, "deleting video")
}

func (repo *videoRepository) GetVideoByID(ctx context.Context, id string) (video.Video, error) {
	if _, err := uuid.Parse(id); err != nil {
		return video.Video{}, video.ErrNotFound
	}
	var v video.Video
	q := `SELECT ` + videoColumns + ` FROM educational_videos WHERE id = ?`
	if err := repo.db.GetContext(ctx, &v, repo.db.Rebind(q), id); err != nil {
		return video.Video{}, trapNoRowsErr(err, video.ErrNotFound, "finding video by ID")
	}
	return v, nil
}

func (repo *videoRepository) QueryVideos(ctx context.Context, filter video.QueryFilter, ordering []core.DBOrdering) ([]video.Video, error) {
	var conds []string
	var args []interface{}
	if filter.PublishedOnly {
		conds = append(conds, `is_published`)
	}
	if filter.Category != "" {
		conds = append(conds, `lower(category) = lower(?)`)
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		conds = append(conds, `(title ILIKE ? OR description ILIKE ?)`)
		args = append(args, like(filter.Search), like(filter.Search))
	}

	q := `SELECT ` + videoColumns + ` FROM educational_videos` + where(conds) + orderBy(ordering, catalogOrderings, newestFirst)
	videos := make([]video.Video, 0)
	if err := repo.db.SelectContext(ctx, &videos, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	return videos, nil
}

func (repo *videoRepository) CountVideos(ctx context.Context, publishedOnly bool) (int, error) {
	var n int
	q := `SELECT count(*) FROM educational_videos WHERE is_published OR NOT ?`
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), publishedOnly); err != nil {
		return 0, errors.Wrap(err, "counting videos")
	}
	return n, nil
}

const videoProgressColumns = `id, user_id, video_id, completed, completed_at, updated_at`

func (repo *videoRepository) UpsertVideoProgress(ctx context.Context, p video.Progress) (video.Progress, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	q := `INSERT INTO video_progress (` + videoProgressColumns + `)
		VALUES (:id, :user_id, :video_id, :completed, :completed_at, :updated_at)
		ON CONFLICT (user_id, video_id) DO UPDATE SET
			completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at
		RETURNING ` + videoProgressColumns
	if err := namedGet(ctx, repo.db, &p, q, p); err != nil {
		return video.Progress{}, errors.Wrap(err, "upserting video progress")
	}
	return p, nil
}

func (repo *videoRepository) QueryVideoProgress(ctx context.Context, userID string) ([]video.Progress, error) {
	q := `SELECT ` + videoProgressColumns + ` FROM video_progress WHERE user_id = ? ORDER BY updated_at DESC`
	progress := make([]video.Progress, 0)
	if err := repo.db.SelectContext(ctx, &progress, repo.db.Rebind(q), userID); err != nil {
		return nil, errors.Wrap(err, "querying video progress")
	}
	return progress, nil
}

// glossary

const termColumns = `id, term, definition, category, example, created_at, updated_at`

type glossaryRepository struct {
	db *sqlx.DB
}

var _ glossary.Repository = (*glossaryRepository)(nil) // interface compliance check

func NewGlossaryRepository(db *sqlx.DB) glossary.Repository {
	return &glossaryRepository{db: db}
}

func (repo *glossaryRepository) CreateTerm(ctx context.Context, t glossary.Term) (glossary.Term, error) {
	t.ID = uuid.New().String()
	q := `INSERT INTO glossary (` + termColumns + `)
		VALUES (:id, :term, :definition, :category, :example, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, t); err != nil {
		return glossary.Term{}, errors.Wrap(err, "inserting term")
	}
	return t, nil
}

func (repo *glossaryRepository) UpdateTerm(ctx context.Context, t glossary.Term) (glossary.Term, error) {
	q := `UPDATE glossary SET term = :term, definition = :definition, category = :category, example = :example,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, t)
	if err != nil {
		return glossary.Term{}, errors.Wrap(err, "updating term")
	}
	if err := affected(res, glossary.ErrNotFound, "updating term"); err != nil {
		return glossary.Term{}, err
	}
	return t, nil
}

func (repo *glossaryRepository) DeleteTerm(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM glossary WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting term")
	}
	return affected(res, glossary.ErrNotFound, "deleting term")
}

func (repo *glossaryRepository) GetTermByID(ctx context.Context, id string) (glossary.Term, error) {
	if _, err := uuid.Parse(id); err != nil {
		return glossary.Term{}, glossary.ErrNotFound
	}
	var t glossary.Term
	q := `SELECT ` + termColumns + ` FROM glossary WHERE id = ?`
	if err := repo.db.GetContext(ctx, &t, repo.db.Rebind(q), id); err != nil {
		return glossary.Term{}, trapNoRowsErr(err, glossary.ErrNotFound, "finding term by ID")
	}
	return t, nil
}

func (repo *glossaryRepository) QueryTerms(ctx context.Context) ([]glossary.Term, error) {
	terms := make([]glossary.Term, 0)
	if err := repo.db.SelectContext(ctx, &terms, `SELECT `+termColumns+` FROM glossary ORDER BY term`); err != nil {
		return nil, errors.Wrap(err, "querying terms")
	}
	return terms, nil
}

func (repo *glossaryRepository) CountTerms(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT count(*) FROM glossary`); err != nil {
		return 0, errors.Wrap(err, "counting terms")
	}
	return n, nil
}
