package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core/bmi"
)

type bmiRepository struct {
	db *sqlx.DB
}

var _ bmi.Repository = (*bmiRepository)(nil) // interface compliance check

func NewBMIRepository(db *sqlx.DB) bmi.Repository {
	return &bmiRepository{db: db}
}

func (repo *bmiRepository) AppendRecord(ctx context.Context, rec bmi.Record) (bmi.Record, error) {
	rec.ID = uuid.New().String()
	q := `INSERT INTO bmi_history (id, user_id, height_cm, weight_kg, bmi_value, category, measured_at)
		VALUES (:id, :user_id, :height_cm, :weight_kg, :bmi_value, :category, :measured_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, rec); err != nil {
		return bmi.Record{}, errors.Wrap(err, "inserting bmi record")
	}
	return rec, nil
}

func (repo *bmiRepository) QueryRecords(ctx context.Context, userID string, limit int) ([]bmi.Record, error) {
	q := `SELECT id, user_id, height_cm, weight_kg, bmi_value, category, measured_at
		FROM bmi_history WHERE user_id = ? ORDER BY measured_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	recs := make([]bmi.Record, 0)
	if err := repo.db.SelectContext(ctx, &recs, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying bmi records")
	}
	return recs, nil
}

func (repo *bmiRepository) CountRecords(ctx context.Context, userID string) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(`SELECT count(*) FROM bmi_history WHERE user_id = ?`), userID); err != nil {
		return 0, errors.Wrap(err, "counting bmi records")
	}
	return n, nil
}
