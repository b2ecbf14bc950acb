package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/user"
)

const userColumns = `id, full_name, email, date_of_birth, gender, height_cm, weight_kg,
	is_admin, is_active, password_hash, created_at, updated_at, last_login`

var userOrderFields = []string{"created_at", "full_name", "email", "last_login"}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) EmailExists(ctx context.Context, email string, excludedIDs ...string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower(?)`
	args := []interface{}{email}
	if len(excludedIDs) > 0 {
		q += ` AND NOT (id = ANY(?))`
		args = append(args, pq.Array(excludedIDs))
	}
	q += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), args...); err != nil {
		return false, errors.Wrap(err, "checking email uniqueness")
	}
	return exists, nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `) VALUES (:id, :full_name, :email, :date_of_birth, :gender,
		:height_cm, :weight_kg, :is_admin, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, usr); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(full_name ILIKE ? OR email ILIKE ?)`)
			args = append(args, like(filter.Search), like(filter.Search))
		}
		if filter.IsAdmin != nil {
			conds = append(conds, `is_admin = ?`)
			args = append(args, *filter.IsAdmin)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
	}

	q := `SELECT ` + userColumns + ` FROM users` + where(conds) +
		orderBy(ordering, userOrderFields, core.DBOrdering{Field: "created_at"})
	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var usr user.User
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	if err := repo.db.GetContext(ctx, &usr, repo.db.Rebind(q), id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower(?)`
	if err := repo.db.GetContext(ctx, &usr, repo.db.Rebind(q), email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by email")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET full_name = :full_name, email = :email, date_of_birth = :date_of_birth, gender = :gender,
		height_cm = :height_cm, weight_kg = :weight_kg, is_admin = :is_admin, is_active = :is_active,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, usr)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err := affected(res, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) UpdateMeasurements(ctx context.Context, id string, heightCm, weightKg float64) error {
	q := `UPDATE users SET height_cm = ?, weight_kg = ?, updated_at = now() WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), heightCm, weightKg, id)
	if err != nil {
		return errors.Wrap(err, "updating measurements")
	}
	return affected(res, user.ErrNotFound, "updating measurements")
}

func (repo *userRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT count(*) FROM users`); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505"
}
