package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/group"
)

const groupTable = `"group"`

type groupRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Filiere   null.String `db:"filiere"`
	Annee     null.String `db:"annee"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toGroupRow(g group.Group) groupRow {
	return groupRow{
		ID:        g.ID,
		Name:      g.Name,
		Filiere:   null.NewString(g.Filiere, g.Filiere != ""),
		Annee:     null.NewString(g.Annee, g.Annee != ""),
		CreatedAt: g.CreatedAt.UTC(),
		UpdatedAt: g.UpdatedAt.UTC(),
	}
}

func (r groupRow) group() group.Group {
	return group.Group{
		ID:        r.ID,
		Name:      r.Name,
		Filiere:   r.Filiere.String,
		Annee:     r.Annee.String,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) trapErr(err error, g group.Group, msg string) error {
	if err == sql.ErrNoRows {
		return group.ErrNotFound
	}
	if _, ok := uniqueViolation(err); ok {
		return core.NewDuplicateError("group", "name", g.Name)
	}
	return errors.Wrap(err, msg)
}

func (repo *groupRepository) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	g.ID = uuid.New().String()
	q := `INSERT INTO "group" (id, name, filiere, annee, created_at, updated_at)
		VALUES (:id, :name, :filiere, :annee, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toGroupRow(g)); err != nil {
		return group.Group{}, repo.trapErr(err, g, "inserting group")
	}
	return g, nil
}

func (repo *groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]group.Group, int, error) {
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "name", "filiere")
		if filter.Filiere != "" {
			w.add("filiere = ?", filter.Filiere)
		}
		if filter.Annee != "" {
			w.add("annee = ?", filter.Annee)
		}
	}

	var rows []groupRow
	total, err := queryPage(ctx, repo.db, &rows, groupTable, w, orderBy(ordering, "name ASC"), page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying groups")
	}
	grps := make([]group.Group, 0, len(rows))
	for _, r := range rows {
		grps = append(grps, r.group())
	}
	return grps, total, nil
}

func (repo *groupRepository) GetGroup(ctx context.Context, filter group.GetFilter) (group.Group, error) {
	var (
		row groupRow
		err error
	)
	switch {
	case filter.ID != "":
		if !validUUID(filter.ID) {
			return group.Group{}, group.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM "group" WHERE id = $1`, filter.ID)
	case filter.Name != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM "group" WHERE name = $1`, filter.Name)
	default:
		return group.Group{}, group.ErrNotFound
	}
	if err != nil {
		return group.Group{}, repo.trapErr(err, group.Group{}, "finding group")
	}
	return row.group(), nil
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	if !validUUID(g.ID) {
		return group.Group{}, group.ErrNotFound
	}
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var oldName string
		if err := tx.GetContext(ctx, &oldName, `SELECT name FROM "group" WHERE id = $1 FOR UPDATE`, g.ID); err != nil {
			return repo.trapErr(err, g, "locking group")
		}
		q := `UPDATE "group" SET name = :name, filiere = :filiere, annee = :annee, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, q, toGroupRow(g)); err != nil {
			return repo.trapErr(err, g, "updating group")
		}
		if oldName != g.Name {
			_, err := tx.ExecContext(ctx,
				`UPDATE trainee SET group_id = $1, group_name = $2 WHERE group_id = $1 OR (group_id IS NULL AND group_name = $3)`,
				g.ID, g.Name, oldName)
			if err != nil {
				return errors.Wrap(err, "renaming trainees group")
			}
		}
		return nil
	})
	if err != nil {
		return group.Group{}, err
	}
	return g, nil
}

func (repo *groupRepository) DeleteGroup(ctx context.Context, id string) error {
	if !validUUID(id) {
		return group.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "group" WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) {
			return group.ErrHasRecords
		}
		return errors.Wrap(err, "deleting group")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return group.ErrNotFound
	}
	return nil
}

func (repo *groupRepository) CountMembers(ctx context.Context, id string) (int, error) {
	if !validUUID(id) {
		return 0, group.ErrNotFound
	}
	var n int
	q := `SELECT COUNT(*) FROM trainee t JOIN "group" g ON g.id = $1
		WHERE t.group_id = g.id OR (t.group_id IS NULL AND t.group_name = g.name)`
	if err := repo.db.GetContext(ctx, &n, q, id); err != nil {
		return 0, errors.Wrap(err, "counting group members")
	}
	return n, nil
}
