package trainee

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/group"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("trainee")
)

type (
	Repository interface {
		// CreateTrainee returns a *core.DuplicateError if the CEF is taken.
		CreateTrainee(ctx context.Context, trn Trainee) (Trainee, error)
		// QueryTrainees applies AND operation on available QueryFilter fields.
		// QueryFilter.GroupID matches the group reference or, for legacy rows, the denormalized QueryFilter.GroupName.
		QueryTrainees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Trainee, int, error)
		GetTrainee(ctx context.Context, filter GetFilter) (Trainee, error)
		UpdateTrainee(ctx context.Context, trn Trainee) (Trainee, error)
		// DeleteTrainee deletes the trainee and its absence entries.
		DeleteTrainee(ctx context.Context, id string) error
		// DeleteAllTrainees deletes every trainee and every absence entry. Absence records are kept.
		DeleteAllTrainees(ctx context.Context) (int, error)
	}

	Service struct {
		repo   Repository
		groups *group.Service
	}
)

func NewService(repo Repository, groups *group.Service) *Service {
	return &Service{repo: repo, groups: groups}
}

// Create creates a trainee in the group nt.Group refers to (ID or name). The group must exist.
func (svc *Service) Create(ctx context.Context, nt NewTrainee) (Trainee, error) {
	grp, err := svc.groups.Resolve(ctx, nt.Group)
	if err != nil {
		if core.IsNotFound(err) {
			return Trainee{}, core.NewValidationError(nil, core.FieldError{Field: "group", Error: "group not found"})
		}
		return Trainee{}, errors.Wrap(err, "resolving group")
	}

	now := time.Now().UTC()
	return svc.repo.CreateTrainee(ctx, Trainee{
		CEF:       nt.CEF,
		Name:      nt.Name,
		FirstName: nt.FirstName,
		GroupName: grp.Name,
		GroupID:   grp.ID,
		Phone:     nt.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Query lists trainees. An unknown filter.Group yields an empty page.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Trainee, int, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if filter.Group != "" {
		grp, err := svc.groups.Resolve(ctx, filter.Group)
		switch {
		case err == nil:
			filter.GroupID, filter.GroupName = grp.ID, grp.Name
		case core.IsNotFound(err):
			// legacy rows may carry a group name without a matching group
			filter.GroupID, filter.GroupName = "", filter.Group
		default:
			return nil, 0, errors.Wrap(err, "resolving group")
		}
	}
	return svc.repo.QueryTrainees(ctx, filter, core.CleanOrdering(ordering, OrderingFields), page)
}

// ByGroup returns every trainee of the group, ordered by name.
func (svc *Service) ByGroup(ctx context.Context, grp group.Group) ([]Trainee, error) {
	trns, _, err := svc.repo.QueryTrainees(
		ctx,
		&QueryFilter{GroupID: grp.ID, GroupName: grp.Name},
		[]core.DBOrdering{{Field: "name", Ascending: true}, {Field: "first_name", Ascending: true}},
		core.Pagination{},
	)
	return trns, err
}

func (svc *Service) GetByID(ctx context.Context, id string) (Trainee, error) {
	return svc.repo.GetTrainee(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByCEF(ctx context.Context, cef string) (Trainee, error) {
	return svc.repo.GetTrainee(ctx, GetFilter{CEF: CleanCEF(cef)})
}

func (svc *Service) Update(ctx context.Context, cef string, ut UpdateTrainee) (Trainee, error) {
	trn, err := svc.GetByCEF(ctx, cef)
	if err != nil {
		return Trainee{}, err
	}
	if ut.Group != nil {
		grp, err := svc.groups.Resolve(ctx, *ut.Group)
		if err != nil {
			if core.IsNotFound(err) {
				return Trainee{}, core.NewValidationError(nil, core.FieldError{Field: "group", Error: "group not found"})
			}
			return Trainee{}, errors.Wrap(err, "resolving group")
		}
		trn.GroupID, trn.GroupName = grp.ID, grp.Name
	}
	if ut.Name != nil {
		trn.Name = *ut.Name
	}
	if ut.FirstName != nil {
		trn.FirstName = *ut.FirstName
	}
	if ut.Phone != nil {
		trn.Phone = *ut.Phone
	}
	trn.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTrainee(ctx, trn)
}

// Delete deletes the trainee and its absence entries.
func (svc *Service) Delete(ctx context.Context, cef string) error {
	trn, err := svc.GetByCEF(ctx, cef)
	if err != nil {
		return err
	}
	return svc.repo.DeleteTrainee(ctx, trn.ID)
}

// DeleteAll deletes every trainee and every absence entry.
func (svc *Service) DeleteAll(ctx context.Context) (int, error) {
	return svc.repo.DeleteAllTrainees(ctx)
}

type (
	ImportOptions struct {
		UpdateExisting bool `query:"updateExisting" form:"updateExisting"`
	}

	ImportError struct {
		Row     int    `json:"row"`
		CEF     string `json:"cef,omitempty"`
		Message string `json:"message"`
	}

	ImportReport struct {
		Created       int           `json:"created"`
		Updated       int           `json:"updated"`
		Skipped       int           `json:"skipped"`
		GroupsCreated []string      `json:"groupsCreated"`
		Errors        []ImportError `json:"errors"`
	}
)

// Import creates (or updates, see ImportOptions) trainees from parsed rows.
// Groups are fetched or created by name as rows reference them. Invalid rows are reported and skipped.
func (svc *Service) Import(ctx context.Context, validate *validator.Validate, rows []Row, opts ImportOptions) (ImportReport, error) {
	report := ImportReport{GroupsCreated: []string{}, Errors: []ImportError{}}
	groups := make(map[string]group.Group)

	for _, row := range rows {
		nt := NewTrainee{CEF: row.CEF, Name: row.Name, FirstName: row.FirstName, Group: row.Group, Phone: row.Phone}
		if err := nt.Validate(validate); err != nil {
			report.Errors = append(report.Errors, ImportError{Row: row.Line, CEF: nt.CEF, Message: importErrorMessage(err)})
			continue
		}

		key := group.CleanName(nt.Group)
		grp, ok := groups[key]
		if !ok {
			var created bool
			var err error
			if grp, created, err = svc.groups.GetOrCreate(ctx, key); err != nil {
				return report, errors.Wrapf(err, "row %d: getting or creating group %q", row.Line, key)
			}
			if created {
				report.GroupsCreated = append(report.GroupsCreated, grp.Name)
			}
			groups[key] = grp
		}

		existing, err := svc.GetByCEF(ctx, nt.CEF)
		switch {
		case err == nil:
			if !opts.UpdateExisting {
				report.Skipped++
				continue
			}
			existing.Name = nt.Name
			if nt.FirstName != "" {
				existing.FirstName = nt.FirstName
			}
			if nt.Phone != "" {
				existing.Phone = nt.Phone
			}
			existing.GroupID, existing.GroupName = grp.ID, grp.Name
			existing.UpdatedAt = time.Now().UTC()
			if _, err = svc.repo.UpdateTrainee(ctx, existing); err != nil {
				return report, errors.Wrapf(err, "row %d: updating trainee", row.Line)
			}
			report.Updated++
		case core.IsNotFound(err):
			now := time.Now().UTC()
			_, err = svc.repo.CreateTrainee(ctx, Trainee{
				CEF:       nt.CEF,
				Name:      nt.Name,
				FirstName: nt.FirstName,
				GroupName: grp.Name,
				GroupID:   grp.ID,
				Phone:     nt.Phone,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				if core.IsDuplicate(err) {
					report.Skipped++
					continue
				}
				return report, errors.Wrapf(err, "row %d: creating trainee", row.Line)
			}
			report.Created++
		default:
			return report, errors.Wrapf(err, "row %d: finding trainee", row.Line)
		}
	}
	return report, nil
}

func importErrorMessage(err error) string {
	if vErrs, ok := err.(validator.ValidationErrors); ok && len(vErrs) > 0 {
		fe := vErrs[0]
		return fmt.Sprintf("%s: failed on %q", fe.Field(), fe.Tag())
	}
	return err.Error()
}
