package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/presence/core/absence"
)

type absenceRepository struct {
	db *DB
}

var _ absence.Repository = (*absenceRepository)(nil)

func NewAbsenceRepository(db *DB) absence.Repository {
	return &absenceRepository{db: db}
}

func (repo *absenceRepository) CreateRecord(_ context.Context, rec absence.Record, entries []absence.Entry) (absence.Record, []absence.Entry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rec.ID = newID()
	repo.db.records[rec.ID] = &rec

	created := make([]absence.Entry, 0, len(entries))
	for _, e := range entries {
		e := e
		e.ID = newID()
		e.RecordID = rec.ID
		repo.db.entries[e.ID] = &e
		created = append(created, e)
	}
	return rec, created, nil
}

func (repo *absenceRepository) GetRecord(_ context.Context, id string) (absence.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.records[id]; ok {
		return *rec, nil
	}
	return absence.Record{}, absence.ErrRecordNotFound
}

func (repo *absenceRepository) QueryRecords(_ context.Context, filter absence.RecordFilter) ([]absence.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := stringSet(filter.IDs)
	recs := make([]absence.Record, 0)
	for _, r := range repo.db.records {
		switch {
		case ids != nil && !ids[r.ID],
			filter.GroupID != "" && r.GroupID != filter.GroupID,
			filter.TeacherID != "" && r.TeacherID != filter.TeacherID,
			!filter.From.IsZero() && r.Date.Before(filter.From),
			!filter.To.IsZero() && r.Date.After(filter.To),
			filter.IsValidated != nil && r.IsValidated != *filter.IsValidated:
			continue
		}
		recs = append(recs, *r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.After(recs[j].Date)
		}
		if recs[i].StartTime != recs[j].StartTime {
			return recs[i].StartTime > recs[j].StartTime
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

func (repo *absenceRepository) UpdateRecord(_ context.Context, rec absence.Record) (absence.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.records[rec.ID]; !ok {
		return absence.Record{}, absence.ErrRecordNotFound
	}
	repo.db.records[rec.ID] = &rec
	return rec, nil
}

func (repo *absenceRepository) DeleteRecord(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.records[id]; !ok {
		return absence.ErrRecordNotFound
	}
	for eid, e := range repo.db.entries {
		if e.RecordID == id {
			delete(repo.db.entries, eid)
		}
	}
	delete(repo.db.records, id)
	return nil
}

func (repo *absenceRepository) GetEntry(_ context.Context, id string) (absence.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.entries[id]; ok {
		return *e, nil
	}
	return absence.Entry{}, absence.ErrEntryNotFound
}

func (repo *absenceRepository) QueryEntries(_ context.Context, filter absence.EntryFilter) ([]absence.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := stringSet(filter.IDs)
	trainees := stringSet(filter.TraineeIDs)
	records := stringSet(filter.RecordIDs)
	entries := make([]absence.Entry, 0)
	for _, e := range repo.db.entries {
		switch {
		case ids != nil && !ids[e.ID],
			trainees != nil && !trainees[e.TraineeID],
			records != nil && !records[e.RecordID],
			filter.Status != "" && e.Status != filter.Status,
			filter.IsJustified != nil && e.IsJustified != *filter.IsJustified,
			filter.IsValidated != nil && e.IsValidated != *filter.IsValidated:
			continue
		}
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

// UpdateEntries replaces every given entry, or none if one of them is unknown.
func (repo *absenceRepository) UpdateEntries(_ context.Context, entries ...absence.Entry) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, e := range entries {
		if _, ok := repo.db.entries[e.ID]; !ok {
			return absence.ErrEntryNotFound
		}
	}
	for _, e := range entries {
		e := e
		repo.db.entries[e.ID] = &e
	}
	return nil
}
