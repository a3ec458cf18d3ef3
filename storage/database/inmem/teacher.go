package inmemdb

import (
	"context"
	"slices"
	"strings"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db}
}

var teacherColumns = map[string]comparator[teacher.Teacher]{
	"name":       func(a, b teacher.Teacher) int { return cmpStrings(a.Name, b.Name) },
	"email":      func(a, b teacher.Teacher) int { return cmpStrings(a.Email, b.Email) },
	"matricule":  func(a, b teacher.Teacher) int { return cmpStrings(a.Matricule, b.Matricule) },
	"is_active":  func(a, b teacher.Teacher) int { return cmpBools(a.IsActive, b.IsActive) },
	"created_at": func(a, b teacher.Teacher) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"last_login": func(a, b teacher.Teacher) int { return a.LastLogin.Compare(b.LastLogin) },
}

func (repo *teacherRepository) CheckUniqueness(_ context.Context, name, email, matricule string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.checkUniqueness(name, email, matricule, excludedIDs...)
}

// checkUniqueness expects the lock to be held.
func (repo *teacherRepository) checkUniqueness(name, email, matricule string, excludedIDs ...string) error {
	for _, t := range repo.db.teachers {
		if isExcluded(t.ID, excludedIDs) {
			continue
		}
		switch {
		case strings.EqualFold(t.Name, name):
			return core.NewDuplicateError("teacher", "name", name)
		case t.Email == email:
			return core.NewDuplicateError("teacher", "email", email)
		case t.Matricule == matricule:
			return core.NewDuplicateError("teacher", "matricule", matricule)
		}
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(_ context.Context, tchr teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkUniqueness(tchr.Name, tchr.Email, tchr.Matricule); err != nil {
		return teacher.Teacher{}, err
	}
	tchr.ID = newID()
	tchr.GroupIDs = cloneIDs(tchr.GroupIDs)
	repo.db.teachers[tchr.ID] = &tchr
	return copyTeacher(&tchr), nil
}

func (repo *teacherRepository) QueryTeachers(_ context.Context, filter *teacher.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]teacher.Teacher, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tchrs := make([]teacher.Teacher, 0, len(repo.db.teachers))
	for _, t := range repo.db.teachers {
		if filter != nil {
			if filter.Search != "" && !(contains(t.Name, filter.Search) || contains(t.Email, filter.Search) || contains(t.Matricule, filter.Search)) {
				continue
			}
			if filter.GroupID != "" && !t.Teaches(filter.GroupID) {
				continue
			}
			if filter.IsActive != nil && t.IsActive != *filter.IsActive {
				continue
			}
		}
		tchrs = append(tchrs, copyTeacher(t))
	}
	sortRows(tchrs, ordering, teacherColumns, core.DBOrdering{Field: "name", Ascending: true})
	return core.Paginate(tchrs, page), len(tchrs), nil
}

func (repo *teacherRepository) GetTeacher(_ context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if t, ok := repo.db.teachers[filter.ID]; ok {
			return copyTeacher(t), nil
		}
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if filter.Email != "" {
		for _, t := range repo.db.teachers {
			if t.Email == filter.Email {
				return copyTeacher(t), nil
			}
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) UpdateTeacher(_ context.Context, tchr teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.teachers[tchr.ID]; !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if err := repo.checkUniqueness(tchr.Name, tchr.Email, tchr.Matricule, tchr.ID); err != nil {
		return teacher.Teacher{}, err
	}
	tchr.GroupIDs = cloneIDs(tchr.GroupIDs)
	repo.db.teachers[tchr.ID] = &tchr
	return copyTeacher(&tchr), nil
}

func (repo *teacherRepository) DeleteTeacher(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.teachers[id]; !ok {
		return teacher.ErrNotFound
	}
	for sid, s := range repo.db.schedules {
		if s.TeacherID == id {
			delete(repo.db.schedules, sid)
		}
	}
	for _, r := range repo.db.records {
		if r.TeacherID == id {
			r.TeacherID = ""
		}
	}
	delete(repo.db.teachers, id)
	return nil
}

func copyTeacher(t *teacher.Teacher) teacher.Teacher {
	c := *t
	c.GroupIDs = cloneIDs(t.GroupIDs)
	return c
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}
