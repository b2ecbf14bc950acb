package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/genzugar/backend/core/progress"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CountCompletedModules(ctx context.Context, userID string) (int, error) {
	var n int
	q := `SELECT count(DISTINCT module_id) FROM user_progress WHERE user_id = ? AND completed`
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), userID); err != nil {
		return 0, errors.Wrap(err, "counting completed modules")
	}
	return n, nil
}

func (repo *progressRepository) QueryTimeline(ctx context.Context, userID string, limit int) ([]progress.TimelineEntry, error) {
	q := `SELECT m.id AS module_id, m.title AS module_title, c.id AS content_id, c.title AS content_title,
			c.content_type, p.completed_at
		FROM user_progress p
		JOIN module_content c ON c.id = p.content_id
		JOIN learning_modules m ON m.id = p.module_id
		WHERE p.user_id = ? AND p.completed AND p.completed_at IS NOT NULL
		ORDER BY p.completed_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	entries := make([]progress.TimelineEntry, 0)
	if err := repo.db.SelectContext(ctx, &entries, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying timeline")
	}
	return entries, nil
}

// CountTotals is bound with sqlboiler: the boil tags of progress.Totals name the columns.
func (repo *progressRepository) CountTotals(ctx context.Context, publishedOnly bool) (progress.Totals, error) {
	var totals progress.Totals
	err := queries.Raw(`SELECT
		(SELECT count(*) FROM users) AS users,
		(SELECT count(*) FROM ebooks WHERE is_published OR NOT $1) AS ebooks,
		(SELECT count(*) FROM educational_videos WHERE is_published OR NOT $1) AS videos,
		(SELECT count(*) FROM glossary) AS glossary,
		(SELECT count(*) FROM learning_modules WHERE is_published OR NOT $1) AS modules`,
		publishedOnly,
	).Bind(ctx, repo.db, &totals)
	if err != nil {
		return progress.Totals{}, errors.Wrap(err, "counting totals")
	}
	return totals, nil
}
