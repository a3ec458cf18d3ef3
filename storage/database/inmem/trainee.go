package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/trainee"
)

type traineeRepository struct {
	db *DB
}

var _ trainee.Repository = (*traineeRepository)(nil)

func NewTraineeRepository(db *DB) trainee.Repository {
	return &traineeRepository{db: db}
}

var traineeColumns = map[string]comparator[trainee.Trainee]{
	"cef":        func(a, b trainee.Trainee) int { return cmpStrings(a.CEF, b.CEF) },
	"name":       func(a, b trainee.Trainee) int { return cmpStrings(a.Name, b.Name) },
	"first_name": func(a, b trainee.Trainee) int { return cmpStrings(a.FirstName, b.FirstName) },
	"group_name": func(a, b trainee.Trainee) int { return cmpStrings(a.GroupName, b.GroupName) },
	"created_at": func(a, b trainee.Trainee) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *traineeRepository) CreateTrainee(_ context.Context, trn trainee.Trainee) (trainee.Trainee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, t := range repo.db.trainees {
		if t.CEF == trn.CEF {
			return trainee.Trainee{}, core.NewDuplicateError("trainee", "cef", trn.CEF)
		}
	}
	trn.ID = newID()
	repo.db.trainees[trn.ID] = &trn
	return trn, nil
}

func (repo *traineeRepository) QueryTrainees(_ context.Context, filter *trainee.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]trainee.Trainee, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	trns := make([]trainee.Trainee, 0, len(repo.db.trainees))
	for _, t := range repo.db.trainees {
		if filter != nil {
			if filter.Search != "" && !(contains(t.CEF, filter.Search) || contains(t.Name, filter.Search) || contains(t.FirstName, filter.Search)) {
				continue
			}
			if filter.GroupID != "" || filter.GroupName != "" {
				inGroup := (filter.GroupID != "" && t.GroupID == filter.GroupID) ||
					(filter.GroupName != "" && t.GroupName == filter.GroupName && (t.GroupID == "" || filter.GroupID == ""))
				if !inGroup {
					continue
				}
			}
		}
		trns = append(trns, *t)
	}
	sortRows(trns, ordering, traineeColumns, core.DBOrdering{Field: "name", Ascending: true}, core.DBOrdering{Field: "first_name", Ascending: true})
	return core.Paginate(trns, page), len(trns), nil
}

func (repo *traineeRepository) GetTrainee(_ context.Context, filter trainee.GetFilter) (trainee.Trainee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if t, ok := repo.db.trainees[filter.ID]; ok {
			return *t, nil
		}
		return trainee.Trainee{}, trainee.ErrNotFound
	}
	if filter.CEF != "" {
		for _, t := range repo.db.trainees {
			if t.CEF == filter.CEF {
				return *t, nil
			}
		}
	}
	return trainee.Trainee{}, trainee.ErrNotFound
}

func (repo *traineeRepository) UpdateTrainee(_ context.Context, trn trainee.Trainee) (trainee.Trainee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.trainees[trn.ID]; !ok {
		return trainee.Trainee{}, trainee.ErrNotFound
	}
	for _, t := range repo.db.trainees {
		if t.CEF == trn.CEF && t.ID != trn.ID {
			return trainee.Trainee{}, core.NewDuplicateError("trainee", "cef", trn.CEF)
		}
	}
	repo.db.trainees[trn.ID] = &trn
	return trn, nil
}

func (repo *traineeRepository) DeleteTrainee(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.trainees[id]; !ok {
		return trainee.ErrNotFound
	}
	for eid, e := range repo.db.entries {
		if e.TraineeID == id {
			delete(repo.db.entries, eid)
		}
	}
	delete(repo.db.trainees, id)
	return nil
}

func (repo *traineeRepository) DeleteAllTrainees(_ context.Context) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n := len(repo.db.trainees)
	clear(repo.db.trainees)
	clear(repo.db.entries)
	return n, nil
}
