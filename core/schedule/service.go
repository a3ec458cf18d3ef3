package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/teacher"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("schedule")
)

type (
	Repository interface {
		SlotFinder
		CreateSchedule(ctx context.Context, sch Schedule) (Schedule, error)
		// QuerySchedules applies AND operation on available QueryFilter fields.
		// QueryFilter.GroupID matches schedules holding at least one session of the group.
		QuerySchedules(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Schedule, int, error)
		GetSchedule(ctx context.Context, id string) (Schedule, error)
		UpdateSchedule(ctx context.Context, sch Schedule) (Schedule, error)
		DeleteSchedule(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		checker  *Checker
		teachers *teacher.Service
		groups   *group.Service

		// serializes check-then-write of schedules within the process
		writeMu sync.Mutex
		now     func() time.Time
	}
)

func NewService(repo Repository, teachers *teacher.Service, groups *group.Service) *Service {
	return &Service{
		repo:     repo,
		checker:  NewChecker(repo),
		teachers: teachers,
		groups:   groups,
		now:      time.Now,
	}
}

// Create persists a schedule if none of its sessions conflicts with an active schedule.
// Otherwise nothing is written and a *ConflictError lists every conflict.
func (svc *Service) Create(ctx context.Context, ns NewSchedule) (Schedule, error) {
	if err := svc.checkRefs(ctx, ns.TeacherID, ns.Sessions); err != nil {
		return Schedule{}, err
	}

	svc.writeMu.Lock()
	defer svc.writeMu.Unlock()

	if err := svc.checkAll(ctx, ns.TeacherID, ns.Sessions, ""); err != nil {
		return Schedule{}, err
	}

	now := svc.now().UTC()
	year := ns.AcademicYear
	if year == "" {
		year = AcademicYear(now)
	}
	return svc.repo.CreateSchedule(ctx, Schedule{
		TeacherID:    ns.TeacherID,
		Sessions:     ns.Sessions,
		WeekNumber:   ns.WeekNumber,
		AcademicYear: year,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Update applies us to a schedule. Sessions of an active schedule are checked like on Create,
// ignoring the schedule itself.
func (svc *Service) Update(ctx context.Context, id string, us UpdateSchedule) (Schedule, error) {
	svc.writeMu.Lock()
	defer svc.writeMu.Unlock()

	sch, err := svc.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if us.Sessions != nil {
		if err = svc.checkRefs(ctx, sch.TeacherID, us.Sessions); err != nil {
			return Schedule{}, err
		}
		sch.Sessions = us.Sessions
	}
	if us.WeekNumber != nil {
		sch.WeekNumber = *us.WeekNumber
	}
	if us.AcademicYear != nil && *us.AcademicYear != "" {
		sch.AcademicYear = *us.AcademicYear
	}
	if us.IsActive != nil {
		sch.IsActive = *us.IsActive
	}

	// reactivating or changing sessions may create conflicts
	if sch.IsActive && (us.Sessions != nil || us.IsActive != nil) {
		if err = svc.checkAll(ctx, sch.TeacherID, sch.Sessions, sch.ID); err != nil {
			return Schedule{}, err
		}
	}
	sch.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateSchedule(ctx, sch)
}

// Deactivate takes a schedule out of conflict checks.
func (svc *Service) Deactivate(ctx context.Context, id string) (Schedule, error) {
	svc.writeMu.Lock()
	defer svc.writeMu.Unlock()

	sch, err := svc.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	sch.IsActive = false
	sch.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateSchedule(ctx, sch)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteSchedule(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Schedule, int, error) {
	return svc.repo.QuerySchedules(ctx, filter, core.CleanOrdering(ordering, OrderingFields), page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

// ForTeacher returns the active schedules of a teacher, latest week first.
func (svc *Service) ForTeacher(ctx context.Context, teacherID string) ([]Schedule, error) {
	active := true
	schs, _, err := svc.repo.QuerySchedules(
		ctx,
		&QueryFilter{TeacherID: teacherID, IsActive: &active},
		[]core.DBOrdering{{Field: "academic_year"}, {Field: "week_number"}},
		core.Pagination{},
	)
	return schs, err
}

// CheckConflicts reports the conflicts cr would cause, without writing anything.
func (svc *Service) CheckConflicts(ctx context.Context, cr CheckRequest) (Result, error) {
	res := Result{Conflicts: []Conflict{}}
	for _, s := range cr.Sessions {
		r, err := svc.checker.Check(ctx, proposal(cr.TeacherID, s), cr.ExcludeScheduleID)
		if err != nil {
			return Result{}, err
		}
		res.merge(r)
	}
	return res, nil
}

// checkAll runs the checker on every session; all-or-nothing.
func (svc *Service) checkAll(ctx context.Context, teacherID string, sessions []Session, excludedID string) error {
	res, err := svc.CheckConflicts(ctx, CheckRequest{TeacherID: teacherID, Sessions: sessions, ExcludeScheduleID: excludedID})
	if err != nil {
		return err
	}
	if res.HasConflicts {
		return &ConflictError{Result: res}
	}
	return nil
}

// checkRefs makes sure the teacher and the groups of sessions exist.
func (svc *Service) checkRefs(ctx context.Context, teacherID string, sessions []Session) error {
	if _, err := svc.teachers.GetByID(ctx, teacherID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: "teacher not found"})
		}
		return errors.Wrap(err, "finding teacher")
	}

	seen := make(map[string]bool)
	for _, s := range sessions {
		if seen[s.GroupID] {
			continue
		}
		if _, err := svc.groups.GetByID(ctx, s.GroupID); err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(nil, core.FieldError{Field: "sessions", Error: "group " + s.GroupID + " not found"})
			}
			return errors.Wrap(err, "finding group")
		}
		seen[s.GroupID] = true
	}
	return nil
}

func proposal(teacherID string, s Session) Proposal {
	return Proposal{TeacherID: teacherID, Day: s.Day, TimeSlot: s.TimeSlot, Room: s.Room, GroupID: s.GroupID}
}
