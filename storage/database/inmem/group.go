package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

var groupColumns = map[string]comparator[group.Group]{
	"name":       func(a, b group.Group) int { return cmpStrings(a.Name, b.Name) },
	"filiere":    func(a, b group.Group) int { return cmpStrings(a.Filiere, b.Filiere) },
	"annee":      func(a, b group.Group) int { return cmpStrings(a.Annee, b.Annee) },
	"created_at": func(a, b group.Group) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// checkName expects the lock to be held.
func (repo *groupRepository) checkName(name string, excludedIDs ...string) error {
	for _, g := range repo.db.groups {
		if g.Name == name && !isExcluded(g.ID, excludedIDs) {
			return core.NewDuplicateError("group", "name", name)
		}
	}
	return nil
}

func (repo *groupRepository) CreateGroup(_ context.Context, grp group.Group) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkName(grp.Name); err != nil {
		return group.Group{}, err
	}
	grp.ID = newID()
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) QueryGroups(_ context.Context, filter *group.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]group.Group, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	grps := make([]group.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		if filter != nil {
			if filter.Search != "" && !(contains(g.Name, filter.Search) || contains(g.Filiere, filter.Search)) {
				continue
			}
			if filter.Filiere != "" && g.Filiere != filter.Filiere {
				continue
			}
			if filter.Annee != "" && g.Annee != filter.Annee {
				continue
			}
		}
		grps = append(grps, *g)
	}
	sortRows(grps, ordering, groupColumns, core.DBOrdering{Field: "name", Ascending: true})
	return core.Paginate(grps, page), len(grps), nil
}

func (repo *groupRepository) GetGroup(_ context.Context, filter group.GetFilter) (group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if g, ok := repo.db.groups[filter.ID]; ok {
			return *g, nil
		}
		return group.Group{}, group.ErrNotFound
	}
	if filter.Name != "" {
		for _, g := range repo.db.groups {
			if g.Name == filter.Name {
				return *g, nil
			}
		}
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(_ context.Context, grp group.Group) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.groups[grp.ID]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	if err := repo.checkName(grp.Name, grp.ID); err != nil {
		return group.Group{}, err
	}
	if orig.Name != grp.Name {
		for _, t := range repo.db.trainees {
			if t.GroupID == grp.ID || (t.GroupID == "" && t.GroupName == orig.Name) {
				t.GroupID = grp.ID
				t.GroupName = grp.Name
			}
		}
	}
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) DeleteGroup(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return group.ErrNotFound
	}
	for _, r := range repo.db.records {
		if r.GroupID == id {
			return group.ErrHasRecords
		}
	}
	delete(repo.db.groups, id)
	return nil
}

func (repo *groupRepository) CountMembers(_ context.Context, id string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	g, ok := repo.db.groups[id]
	if !ok {
		return 0, group.ErrNotFound
	}
	var n int
	for _, t := range repo.db.trainees {
		if t.GroupID == id || (t.GroupID == "" && t.GroupName == g.Name) {
			n++
		}
	}
	return n, nil
}
