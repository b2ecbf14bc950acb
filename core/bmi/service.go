package bmi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
)

// Record is one BMI measurement. Records are never updated nor deleted.
type Record struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	HeightCm   float64   `json:"height_cm" db:"height_cm"`
	WeightKg   float64   `json:"weight_kg" db:"weight_kg"`
	Value      float64   `json:"bmi_value" db:"bmi_value"`
	Category   Category  `json:"category" db:"category"`
	MeasuredAt time.Time `json:"measured_at" db:"measured_at"` // UTC
}

func (r Record) MarshalJSON() ([]byte, error) {
	type record Record
	return json.Marshal(struct {
		record
		Label string `json:"category_label"`
	}{record(r), r.Category.Label()})
}

// NewMeasurement is what a user submits to the BMI calculator.
// The bounds keep every BMI under 5,600, inside the bmi_value column (NUMERIC(5,1)).
type NewMeasurement struct {
	HeightCm float64 `json:"height_cm" validate:"required,gte=30,lte=300"`
	WeightKg float64 `json:"weight_kg" validate:"required,gte=1,lte=500"`
}

func (nm NewMeasurement) Validate() error { return core.Validate.Struct(nm) }

type (
	Repository interface {
		// AppendRecord stores a new history record and returns it with its ID set.
		AppendRecord(ctx context.Context, rec Record) (Record, error)
		// QueryRecords returns the records of a user, newest first. limit <= 0 means no limit.
		QueryRecords(ctx context.Context, userID string, limit int) ([]Record, error)
		CountRecords(ctx context.Context, userID string) (int, error)
	}

	// ProfileUpdater overwrites the current height and weight shown on a user's profile.
	ProfileUpdater interface {
		UpdateMeasurements(ctx context.Context, userID string, heightCm, weightKg float64) error
	}

	Service interface {
		// Record computes the BMI, appends it to the history and then updates the profile.
		// The two writes are not atomic: if the profile update fails, the history record stands.
		Record(ctx context.Context, userID string, nm NewMeasurement) (Record, error)
		History(ctx context.Context, userID string, limit int) ([]Record, error)
		Count(ctx context.Context, userID string) (int, error)
	}

	service struct {
		repo     Repository
		profiles ProfileUpdater
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

var nowFunc = time.Now // mockable

func NewService(repo Repository, profiles ProfileUpdater, logger core.Logger) Service {
	core.MustHaveDeps(
		core.NotNil(repo, "repo"),
		core.NotNil(profiles, "profiles"),
		core.NotNil(logger, "logger"),
	)
	return &service{repo: repo, profiles: profiles, logger: logger}
}

func (svc *service) Record(ctx context.Context, userID string, nm NewMeasurement) (Record, error) {
	if err := nm.Validate(); err != nil {
		return Record{}, err
	}
	res, err := Compute(nm.HeightCm, nm.WeightKg)
	if err != nil {
		return Record{}, core.NewValidationError(err)
	}

	rec, err := svc.repo.AppendRecord(ctx, Record{
		UserID:     userID,
		HeightCm:   nm.HeightCm,
		WeightKg:   nm.WeightKg,
		Value:      res.Value,
		Category:   res.Category,
		MeasuredAt: nowFunc().UTC(),
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "appending bmi record")
	}

	if err := svc.profiles.UpdateMeasurements(ctx, userID, nm.HeightCm, nm.WeightKg); err != nil {
		svc.logger.Error("updating profile measurements", errors.Wrap(err, "updating profile measurements"),
			map[string]interface{}{"user_id": userID, "bmi_record_id": rec.ID})
	}
	return rec, nil
}

func (svc *service) History(ctx context.Context, userID string, limit int) ([]Record, error) {
	recs, err := svc.repo.QueryRecords(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying bmi records")
	}
	return recs, nil
}

func (svc *service) Count(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountRecords(ctx, userID)
}
