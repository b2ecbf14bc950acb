package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core/module"
)

const (
	moduleColumns = `id, title, description, module_order, learning_objectives, estimated_duration_minutes,
	is_published, created_at, updated_at`
	contentColumns  = `id, module_id, title, content_type, content_order, content_data, created_at, updated_at`
	progressColumns = `id, user_id, module_id, content_id, completed, score, completed_at, updated_at`
)

type moduleRepository struct {
	db *sqlx.DB
}

var _ module.Repository = (*moduleRepository)(nil) // interface compliance check

func NewModuleRepository(db *sqlx.DB) module.Repository {
	return &moduleRepository{db: db}
}

func (repo *moduleRepository) CreateModule(ctx context.Context, m module.Module) (module.Module, error) {
	m.ID = uuid.New().String()
	q := `INSERT INTO learning_modules (` + moduleColumns + `) VALUES (:id, :title, :description, :module_order,
		:learning_objectives, :estimated_duration_minutes, :is_published, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, m); err != nil {
		return module.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo *moduleRepository) UpdateModule(ctx context.Context, m module.Module) (module.Module, error) {
	q := `UPDATE learning_modules SET title = :title, description = :description, module_order = :module_order,
		learning_objectives = :learning_objectives, estimated_duration_minutes = :estimated_duration_minutes,
		is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, m)
	if err != nil {
		return module.Module{}, errors.Wrap(err, "updating module")
	}
	if err := affected(res, module.ErrNotFound, "updating module"); err != nil {
		return module.Module{}, err
	}
	return m, nil
}

// DeleteModule relies on ON DELETE CASCADE to remove the content and progress.
func (repo *moduleRepository) DeleteModule(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM learning_modules WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return affected(res, module.ErrNotFound, "deleting module")
}

func (repo *moduleRepository) GetModuleByID(ctx context.Context, id string) (module.Module, error) {
	if _, err := uuid.Parse(id); err != nil {
		return module.Module{}, module.ErrNotFound
	}
	var m module.Module
	q := `SELECT ` + moduleColumns + ` FROM learning_modules WHERE id = ?`
	if err := repo.db.GetContext(ctx, &m, repo.db.Rebind(q), id); err != nil {
		return module.Module{}, trapNoRowsErr(err, module.ErrNotFound, "finding module by ID")
	}
	return m, nil
}

func (repo *moduleRepository) QueryModules(ctx context.Context, publishedOnly bool) ([]module.Module, error) {
	q := `SELECT ` + moduleColumns + ` FROM learning_modules WHERE is_published OR NOT ?
		ORDER BY module_order, created_at`
	modules := make([]module.Module, 0)
	if err := repo.db.SelectContext(ctx, &modules, repo.db.Rebind(q), publishedOnly); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	return modules, nil
}

func (repo *moduleRepository) CountModules(ctx context.Context, publishedOnly bool) (int, error) {
	var n int
	q := `SELECT count(*) FROM learning_modules WHERE is_published OR NOT ?`
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), publishedOnly); err != nil {
		return 0, errors.Wrap(err, "counting modules")
	}
	return n, nil
}

func (repo *moduleRepository) CreateContent(ctx context.Context, c module.ContentItem) (module.ContentItem, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO module_content (` + contentColumns + `) VALUES (:id, :module_id, :title, :content_type,
		:content_order, :content_data, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, c); err != nil {
		return module.ContentItem{}, errors.Wrap(err, "inserting content")
	}
	return c, nil
}

func (repo *moduleRepository) UpdateContent(ctx context.Context, c module.ContentItem) (module.ContentItem, error) {
	q := `UPDATE module_content SET title = :title, content_type = :content_type, content_order = :content_order,
		content_data = :content_data, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return module.ContentItem{}, errors.Wrap(err, "updating content")
	}
	if err := affected(res, module.ErrContentNotFound, "updating content"); err != nil {
		return module.ContentItem{}, err
	}
	return c, nil
}

func (repo *moduleRepository) DeleteContent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM module_content WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return affected(res, module.ErrContentNotFound, "deleting content")
}

func (repo *moduleRepository) GetContentByID(ctx context.Context, id string) (module.ContentItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return module.ContentItem{}, module.ErrContentNotFound
	}
	var c module.ContentItem
	q := `SELECT ` + contentColumns + ` FROM module_content WHERE id = ?`
	if err := repo.db.GetContext(ctx, &c, repo.db.Rebind(q), id); err != nil {
		return module.ContentItem{}, trapNoRowsErr(err, module.ErrContentNotFound, "finding content by ID")
	}
	return c, nil
}

func (repo *moduleRepository) QueryContent(ctx context.Context, moduleID string) ([]module.ContentItem, error) {
	q := `SELECT ` + contentColumns + ` FROM module_content WHERE module_id = ? ORDER BY content_order, created_at`
	items := make([]module.ContentItem, 0)
	if err := repo.db.SelectContext(ctx, &items, repo.db.Rebind(q), moduleID); err != nil {
		return nil, errors.Wrap(err, "querying content")
	}
	return items, nil
}

func (repo *moduleRepository) CountContentByModule(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		ModuleID string `db:"module_id"`
		Count    int    `db:"count"`
	}
	q := `SELECT module_id, count(*) AS count FROM module_content GROUP BY module_id`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "counting content")
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.ModuleID] = r.Count
	}
	return counts, nil
}

func (repo *moduleRepository) UpsertProgress(ctx context.Context, p module.Progress) (module.Progress, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	q := `INSERT INTO user_progress (` + progressColumns + `)
		VALUES (:id, :user_id, :module_id, :content_id, :completed, :score, :completed_at, :updated_at)
		ON CONFLICT (user_id, content_id) DO UPDATE SET
			completed = EXCLUDED.completed, score = EXCLUDED.score,
			completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at
		RETURNING ` + progressColumns
	if err := namedGet(ctx, repo.db, &p, q, p); err != nil {
		return module.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return p, nil
}

func (repo *moduleRepository) QueryProgress(ctx context.Context, userID, moduleID string) ([]module.Progress, error) {
	q := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = ?`
	args := []interface{}{userID}
	if moduleID != "" {
		q += ` AND module_id = ?`
		args = append(args, moduleID)
	}
	q += ` ORDER BY updated_at`

	progress := make([]module.Progress, 0)
	if err := repo.db.SelectContext(ctx, &progress, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	return progress, nil
}
