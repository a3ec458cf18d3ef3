package teacher

import (
	"context"
	"io"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/group"
)

const tempPasswordLen = 12

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("teacher")
	ErrInvalidPassword = core.NewValidationError(nil, core.FieldError{Field: "oldPassword", Error: "password is incorrect"})
)

type (
	Repository interface {
		// CheckUniqueness returns a *core.DuplicateError naming the first of name, email or matricule
		// already used by a teacher other than excludedIDs.
		CheckUniqueness(ctx context.Context, name, email, matricule string, excludedIDs ...string) error
		CreateTeacher(ctx context.Context, tchr Teacher) (Teacher, error)
		// QueryTeachers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Teacher.Name, Teacher.Email or Teacher.Matricule.
		QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Teacher, int, error)
		GetTeacher(ctx context.Context, filter GetFilter) (Teacher, error)
		UpdateTeacher(ctx context.Context, tchr Teacher) (Teacher, error)
		// DeleteTeacher also deletes the teacher's schedules. Absence records keep no teacher.
		DeleteTeacher(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		groups  *group.Service
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, groups *group.Service, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, groups: groups, mailSvc: mailSvc}
}

// Create creates a teacher. Without a password, a temporary one is generated, mailed to the teacher
// and must be changed at first login.
func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	if err := svc.repo.CheckUniqueness(ctx, nt.Name, nt.Email, nt.Matricule); err != nil {
		return Teacher{}, err
	}
	groupIDs, err := svc.checkGroups(ctx, nt.GroupIDs)
	if err != nil {
		return Teacher{}, err
	}

	now := time.Now().UTC()
	tchr := Teacher{
		Name:      nt.Name,
		Email:     nt.Email,
		Matricule: nt.Matricule,
		IsActive:  true,
		GroupIDs:  groupIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}

	pwd := nt.Password
	if pwd == "" {
		if pwd, err = core.GeneratePassword(tempPasswordLen); err != nil {
			return Teacher{}, errors.Wrap(err, "generating password")
		}
		tchr.MustChangePassword = true
	}
	if err = tchr.SetPassword(pwd); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}

	if tchr, err = svc.repo.CreateTeacher(ctx, tchr); err != nil {
		return Teacher{}, err
	}
	if tchr.MustChangePassword {
		svc.sendCredentials(tchr, pwd, "Welcome", "teacher_welcome")
	}
	return tchr, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Teacher, int, error) {
	return svc.repo.QueryTeachers(ctx, filter, core.CleanOrdering(ordering, OrderingFields), page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Update(ctx context.Context, id string, ut UpdateTeacher) (Teacher, error) {
	tchr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}

	name, email, matricule := tchr.Name, tchr.Email, tchr.Matricule
	if ut.Name != nil {
		name = *ut.Name
	}
	if ut.Email != nil {
		email = *ut.Email
	}
	if ut.Matricule != nil {
		matricule = *ut.Matricule
	}
	if err = svc.repo.CheckUniqueness(ctx, name, email, matricule, tchr.ID); err != nil {
		return Teacher{}, err
	}

	tchr.Name, tchr.Email, tchr.Matricule = name, email, matricule
	if ut.IsActive != nil {
		tchr.IsActive = *ut.IsActive
	}
	tchr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, tchr)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteTeacher(ctx, id)
}

// AssignGroups replaces the teacher's groups. Every group must exist.
func (svc *Service) AssignGroups(ctx context.Context, id string, groupIDs []string) (Teacher, error) {
	tchr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if tchr.GroupIDs, err = svc.checkGroups(ctx, groupIDs); err != nil {
		return Teacher{}, err
	}
	tchr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, tchr)
}

// SetScheduleFile records the path of the teacher's uploaded schedule and returns the previous one.
func (svc *Service) SetScheduleFile(ctx context.Context, id, path string) (Teacher, string, error) {
	tchr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Teacher{}, "", err
	}
	prev := tchr.ScheduleFile
	tchr.ScheduleFile = path
	tchr.UpdatedAt = time.Now().UTC()
	tchr, err = svc.repo.UpdateTeacher(ctx, tchr)
	return tchr, prev, err
}

func (svc *Service) SetLastLogin(ctx context.Context, tchr Teacher) (Teacher, error) {
	tchr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, tchr)
}

// ChangePassword sets a new (already validated) password after checking the current one
// and lifts the must-change-password flag.
func (svc *Service) ChangePassword(ctx context.Context, id, oldPwd, newPwd string) (Teacher, error) {
	tchr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if err = tchr.CheckPassword(oldPwd); err != nil {
		return Teacher{}, ErrInvalidPassword
	}
	return svc.SetPassword(ctx, tchr, newPwd, false)
}

// SetPassword sets pwd as tchr's new password without further checks.
func (svc *Service) SetPassword(ctx context.Context, tchr Teacher, pwd string, mustChange bool) (Teacher, error) {
	if err := tchr.SetPassword(pwd); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}
	tchr.MustChangePassword = mustChange
	tchr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, tchr)
}

// ResetPassword replaces the teacher's password by a mailed temporary one.
func (svc *Service) ResetPassword(ctx context.Context, id string) (Teacher, error) {
	tchr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	pwd, err := core.GeneratePassword(tempPasswordLen)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "generating password")
	}
	if tchr, err = svc.SetPassword(ctx, tchr, pwd, true); err != nil {
		return Teacher{}, err
	}
	svc.sendCredentials(tchr, pwd, "Password reset", "password_reset")
	return tchr, nil
}

// MailScheduleFile sends the teacher their schedule file as an attachment.
func (svc *Service) MailScheduleFile(tchr Teacher, r io.Reader, filename string) error {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: tchr.Name, Address: tchr.Email}},
		Subject:      "Your schedule",
		TemplateName: "schedule_updated",
		TemplateData: map[string]string{"Name": tchr.Name},
	}
	if err := msg.Attach(r, filename); err != nil {
		return errors.Wrap(err, "attaching schedule file")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *Service) checkGroups(ctx context.Context, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	groupIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		id = core.CleanString(id)
		if id == "" || seen[id] {
			continue
		}
		if _, err := svc.groups.GetByID(ctx, id); err != nil {
			if core.IsNotFound(err) {
				return nil, core.NewValidationError(nil, core.FieldError{Field: "groupIds", Error: "group " + id + " not found"})
			}
			return nil, errors.Wrap(err, "finding group")
		}
		seen[id] = true
		groupIDs = append(groupIDs, id)
	}
	return groupIDs, nil
}

func (svc *Service) sendCredentials(tchr Teacher, pwd, subject, tmpl string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: tchr.Name, Address: tchr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: map[string]string{
			"Name":     tchr.Name,
			"Email":    tchr.Email,
			"Password": pwd,
		},
	})
}
