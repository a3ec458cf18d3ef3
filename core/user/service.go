package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("user")
	ErrInvalidPassword  = core.NewValidationError(nil, core.FieldError{Field: "oldPassword", Error: "password is incorrect"})
	errCannotDeleteSelf = errors.New("a user cannot delete themselves")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns a *core.DuplicateError if a user other than excludedIDs already uses email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]User, int, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.repo.CheckEmailUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]User, int, error) {
	return svc.repo.QueryUsers(ctx, filter, core.CleanOrdering(ordering, OrderingFields), page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// Update applies an already validated UpdateUser to the user with ID id.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if uu.Email != usr.Email {
		if err = svc.repo.CheckEmailUniqueness(ctx, uu.Email, usr.ID); err != nil {
			return User{}, err
		}
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete deletes the users with the given IDs. ctxUserID cannot delete themselves.
func (svc *Service) Delete(ctx context.Context, ctxUserID string, ids ...string) (int, error) {
	for _, id := range ids {
		if id == ctxUserID {
			return 0, core.NewValidationError(errCannotDeleteSelf)
		}
	}
	return svc.repo.DeleteUsersByID(ctx, ids)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// ChangePassword sets a new (already validated) password after checking the current one.
func (svc *Service) ChangePassword(ctx context.Context, id, oldPwd, newPwd string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(oldPwd); err != nil {
		return User{}, ErrInvalidPassword
	}
	return svc.SetPassword(ctx, usr, newPwd)
}

// SetPassword sets pwd as usr's new password without further checks.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
