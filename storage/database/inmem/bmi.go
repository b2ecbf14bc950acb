package inmemdb

import (
	"context"

	"github.com/genzugar/backend/core/bmi"
)

type bmiRepository struct {
	db *DB
}

var _ bmi.Repository = (*bmiRepository)(nil) // interface compliance check

func NewBMIRepository(db *DB) bmi.Repository {
	return &bmiRepository{db: db}
}

func (repo *bmiRepository) AppendRecord(_ context.Context, rec bmi.Record) (bmi.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec.ID = newID()
	repo.db.bmiHistory.insert(repo.db, rec.ID, rec)
	return rec, nil
}

func (repo *bmiRepository) QueryRecords(_ context.Context, userID string, lim int) ([]bmi.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := reverse(repo.db.bmiHistory.list(func(r bmi.Record) bool { return r.UserID == userID }))
	sortBy(recs, comparators[bmi.Record]{
		"measured_at": func(a, b bmi.Record) int { return a.MeasuredAt.Compare(b.MeasuredAt) },
	}, nil, bmiNewestFirst)
	return limit(recs, lim), nil
}

func (repo *bmiRepository) CountRecords(_ context.Context, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.bmiHistory.count(func(r bmi.Record) bool { return r.UserID == userID }), nil
}
