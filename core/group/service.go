package group

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("group")
	ErrHasRecords = core.NewValidationError(errors.New("cannot delete a group that has absence records"))
)

type (
	Repository interface {
		// CreateGroup returns a *core.DuplicateError if the name is taken.
		CreateGroup(ctx context.Context, grp Group) (Group, error)
		QueryGroups(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Group, int, error)
		// GetGroup matches Name exactly (case-sensitive) when ID is empty.
		GetGroup(ctx context.Context, filter GetFilter) (Group, error)
		// UpdateGroup also renames the denormalized group name of its trainees.
		UpdateGroup(ctx context.Context, grp Group) (Group, error)
		// DeleteGroup returns ErrHasRecords while absence records reference the group.
		DeleteGroup(ctx context.Context, id string) error
		// CountMembers returns the number of trainees referencing the group.
		CountMembers(ctx context.Context, id string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	now := time.Now().UTC()
	return svc.repo.CreateGroup(ctx, Group{
		Name:      ng.Name,
		Filiere:   ng.Filiere,
		Annee:     ng.Annee,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Group, int, error) {
	return svc.repo.QueryGroups(ctx, filter, core.CleanOrdering(ordering, OrderingFields), page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroup(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByName(ctx context.Context, name string) (Group, error) {
	return svc.repo.GetGroup(ctx, GetFilter{Name: CleanName(name)})
}

// Resolve finds a group by ID, then by name.
func (svc *Service) Resolve(ctx context.Context, idOrName string) (Group, error) {
	grp, err := svc.GetByID(ctx, idOrName)
	if err == nil || !core.IsNotFound(err) {
		return grp, err
	}
	return svc.GetByName(ctx, idOrName)
}

// GetOrCreate returns the group named name, creating it if it does not exist yet.
func (svc *Service) GetOrCreate(ctx context.Context, name string) (Group, bool, error) {
	name = CleanName(name)
	if name == "" {
		return Group{}, false, core.NewValidationError(nil, core.FieldError{Field: "group", Error: "this field is required"})
	}

	grp, err := svc.GetByName(ctx, name)
	if err == nil {
		return grp, false, nil
	}
	if !core.IsNotFound(err) {
		return Group{}, false, errors.Wrap(err, "finding group by name")
	}

	grp, err = svc.Create(ctx, NewGroup{Name: name})
	if core.IsDuplicate(err) {
		// created concurrently
		grp, err = svc.GetByName(ctx, name)
		return grp, false, err
	}
	return grp, err == nil, err
}

func (svc *Service) Update(ctx context.Context, id string, ug UpdateGroup) (Group, error) {
	grp, err := svc.GetByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if ug.Name != nil {
		grp.Name = *ug.Name
	}
	if ug.Filiere != nil {
		grp.Filiere = *ug.Filiere
	}
	if ug.Annee != nil {
		grp.Annee = *ug.Annee
	}
	grp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGroup(ctx, grp)
}

// Delete deletes a group that no trainee references anymore.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := svc.repo.CountMembers(ctx, id)
	if err != nil {
		return errors.Wrap(err, "counting group members")
	}
	if n > 0 {
		return core.NewValidationError(fmt.Errorf("cannot delete a group that still has %d trainee(s)", n))
	}
	return svc.repo.DeleteGroup(ctx, id)
}
