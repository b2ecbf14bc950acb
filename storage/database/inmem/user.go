package inmemdb

import (
	"cmp"
	"context"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/user"
)

var userComparators = comparators[user.User]{
	"created_at": func(a, b user.User) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"full_name":  func(a, b user.User) int { return cmp.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName)) },
	"email":      func(a, b user.User) int { return cmp.Compare(a.Email, b.Email) },
	"last_login": func(a, b user.User) int { return a.LastLogin.Time.Compare(b.LastLogin.Time) },
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) EmailExists(_ context.Context, email string, excludedIDs ...string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.emailTaken(email, excludedIDs...), nil
}

func (repo *userRepository) emailTaken(email string, excludedIDs ...string) bool {
	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}
	return repo.db.users.count(func(u user.User) bool {
		_, skip := excluded[u.ID]
		return !skip && strings.EqualFold(u.Email, email)
	}) > 0
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(usr.Email) {
		return user.User{}, user.ErrEmailExists
	}
	usr.ID = newID()
	repo.db.users.insert(repo.db, usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var keep func(user.User) bool
	if filter != nil && !filter.IsEmpty() {
		q := strings.ToLower(filter.Search)
		keep = func(u user.User) bool {
			if q != "" && !contains(q, u.FullName, u.Email) {
				return false
			}
			if filter.IsAdmin != nil && u.IsAdmin != *filter.IsAdmin {
				return false
			}
			if filter.IsActive != nil && u.IsActive != *filter.IsActive {
				return false
			}
			return true
		}
	}

	users := reverse(repo.db.users.list(keep))
	sortBy(users, userComparators, ordering, core.DBOrdering{Field: "created_at"})
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users.get(id); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	found := repo.db.users.list(func(u user.User) bool { return strings.EqualFold(u.Email, email) })
	if len(found) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return found[0], nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailExists
	}
	if !repo.db.users.set(usr.ID, usr) {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) UpdateMeasurements(_ context.Context, id string, heightCm, weightKg float64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users.get(id)
	if !ok {
		return user.ErrNotFound
	}
	usr.HeightCm = null.Float64From(heightCm)
	usr.WeightKg = null.Float64From(weightKg)
	repo.db.users.set(id, usr)
	return nil
}

func (repo *userRepository) CountUsers(context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.users.count(nil), nil
}
