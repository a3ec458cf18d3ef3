package inmemdb

import (
	"context"
	"slices"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

var scheduleColumns = map[string]comparator[schedule.Schedule]{
	"week_number":   func(a, b schedule.Schedule) int { return cmpInts(a.WeekNumber, b.WeekNumber) },
	"academic_year": func(a, b schedule.Schedule) int { return cmpStrings(a.AcademicYear, b.AcademicYear) },
	"created_at":    func(a, b schedule.Schedule) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at":    func(a, b schedule.Schedule) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func (repo *scheduleRepository) ActiveSchedulesAt(_ context.Context, day, timeSlot, excludedID string) ([]schedule.Schedule, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schs := make([]schedule.Schedule, 0)
	for _, s := range repo.db.schedules {
		if !s.IsActive || s.ID == excludedID {
			continue
		}
		if slices.ContainsFunc(s.Sessions, func(ss schedule.Session) bool { return ss.Day == day && ss.TimeSlot == timeSlot }) {
			schs = append(schs, copySchedule(s))
		}
	}
	sortRows(schs, nil, scheduleColumns, core.DBOrdering{Field: "created_at", Ascending: true})
	return schs, nil
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch.ID = newID()
	sch.Sessions = slices.Clone(sch.Sessions)
	repo.db.schedules[sch.ID] = &sch
	return copySchedule(&sch), nil
}

func (repo *scheduleRepository) QuerySchedules(_ context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]schedule.Schedule, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schs := make([]schedule.Schedule, 0, len(repo.db.schedules))
	for _, s := range repo.db.schedules {
		if filter != nil {
			if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
				continue
			}
			if filter.GroupID != "" && !slices.ContainsFunc(s.Sessions, func(ss schedule.Session) bool { return ss.GroupID == filter.GroupID }) {
				continue
			}
			if filter.AcademicYear != "" && s.AcademicYear != filter.AcademicYear {
				continue
			}
			if filter.WeekNumber != nil && s.WeekNumber != *filter.WeekNumber {
				continue
			}
			if filter.IsActive != nil && s.IsActive != *filter.IsActive {
				continue
			}
		}
		schs = append(schs, copySchedule(s))
	}
	sortRows(schs, ordering, scheduleColumns, core.DBOrdering{Field: "created_at"})
	return core.Paginate(schs, page), len(schs), nil
}

func (repo *scheduleRepository) GetSchedule(_ context.Context, id string) (schedule.Schedule, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.schedules[id]; ok {
		return copySchedule(s), nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) UpdateSchedule(_ context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.schedules[sch.ID]; !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	sch.Sessions = slices.Clone(sch.Sessions)
	repo.db.schedules[sch.ID] = &sch
	return copySchedule(&sch), nil
}

func (repo *scheduleRepository) DeleteSchedule(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.schedules[id]; !ok {
		return schedule.ErrNotFound
	}
	delete(repo.db.schedules, id)
	return nil
}

func copySchedule(s *schedule.Schedule) schedule.Schedule {
	c := *s
	c.Sessions = slices.Clone(s.Sessions)
	return c
}
