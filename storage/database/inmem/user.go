package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

var userColumns = map[string]comparator[user.User]{
	"name":       func(a, b user.User) int { return cmpStrings(a.Name, b.Name) },
	"email":      func(a, b user.User) int { return cmpStrings(a.Email, b.Email) },
	"role":       func(a, b user.User) int { return cmpStrings(a.Role, b.Role) },
	"is_active":  func(a, b user.User) int { return cmpBools(a.IsActive, b.IsActive) },
	"created_at": func(a, b user.User) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"last_login": func(a, b user.User) int { return a.LastLogin.Compare(b.LastLogin) },
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.checkEmail(email, excludedIDs...)
}

// checkEmail expects the lock to be held.
func (repo *userRepository) checkEmail(email string, excludedIDs ...string) error {
	for _, usr := range repo.db.users {
		if usr.Email == email && !isExcluded(usr.ID, excludedIDs) {
			return core.NewDuplicateError("user", "email", email)
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkEmail(usr.Email); err != nil {
		return user.User{}, err
	}

	usr.ID = newID()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]user.User, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil {
			if filter.Search != "" && !(contains(usr.Name, filter.Search) || contains(usr.Email, filter.Search)) {
				continue
			}
			if filter.Role != "" && usr.Role != filter.Role {
				continue
			}
			if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
				continue
			}
		}
		users = append(users, *usr)
	}
	sortRows(users, ordering, userColumns, core.DBOrdering{Field: "name", Ascending: true})
	return core.Paginate(users, page), len(users), nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.users {
			if usr.Email == filter.Email {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkEmail(usr.Email, usr.ID); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.users[id]; ok {
			delete(repo.db.users, id)
			n++
		}
	}
	return n, nil
}
