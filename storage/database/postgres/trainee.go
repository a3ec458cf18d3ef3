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
	"github.com/trezcool/presence/core/trainee"
)

type traineeRow struct {
	ID        string      `db:"id"`
	CEF       string      `db:"cef"`
	Name      string      `db:"name"`
	FirstName null.String `db:"first_name"`
	GroupName string      `db:"group_name"`
	GroupID   null.String `db:"group_id"`
	Phone     null.String `db:"phone"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toTraineeRow(t trainee.Trainee) traineeRow {
	return traineeRow{
		ID:        t.ID,
		CEF:       t.CEF,
		Name:      t.Name,
		FirstName: null.NewString(t.FirstName, t.FirstName != ""),
		GroupName: t.GroupName,
		GroupID:   null.NewString(t.GroupID, t.GroupID != ""),
		Phone:     null.NewString(t.Phone, t.Phone != ""),
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (r traineeRow) trainee() trainee.Trainee {
	return trainee.Trainee{
		ID:        r.ID,
		CEF:       r.CEF,
		Name:      r.Name,
		FirstName: r.FirstName.String,
		GroupName: r.GroupName,
		GroupID:   r.GroupID.String,
		Phone:     r.Phone.String,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type traineeRepository struct {
	db *sqlx.DB
}

var _ trainee.Repository = (*traineeRepository)(nil) // interface compliance check

func NewTraineeRepository(db *sqlx.DB) trainee.Repository {
	return &traineeRepository{db: db}
}

func (repo *traineeRepository) trapErr(err error, t trainee.Trainee, msg string) error {
	if err == sql.ErrNoRows {
		return trainee.ErrNotFound
	}
	if _, ok := uniqueViolation(err); ok {
		return core.NewDuplicateError("trainee", "cef", t.CEF)
	}
	return errors.Wrap(err, msg)
}

func (repo *traineeRepository) CreateTrainee(ctx context.Context, t trainee.Trainee) (trainee.Trainee, error) {
	t.ID = uuid.New().String()
	q := `INSERT INTO trainee (id, cef, name, first_name, group_name, group_id, phone, created_at, updated_at)
		VALUES (:id, :cef, :name, :first_name, :group_name, :group_id, :phone, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toTraineeRow(t)); err != nil {
		return trainee.Trainee{}, repo.trapErr(err, t, "inserting trainee")
	}
	return t, nil
}

func (repo *traineeRepository) QueryTrainees(ctx context.Context, filter *trainee.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]trainee.Trainee, int, error) {
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "cef", "name", "first_name")
		switch {
		case filter.GroupID != "" && validUUID(filter.GroupID):
			w.add("(group_id = ? OR (group_id IS NULL AND group_name = ?))", filter.GroupID, filter.GroupName)
		case filter.GroupName != "":
			w.add("group_name = ?", filter.GroupName)
		case filter.GroupID != "":
			w.add("false")
		}
	}

	var rows []traineeRow
	total, err := queryPage(ctx, repo.db, &rows, "trainee", w, orderBy(ordering, "name ASC, first_name ASC"), page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying trainees")
	}
	trns := make([]trainee.Trainee, 0, len(rows))
	for _, r := range rows {
		trns = append(trns, r.trainee())
	}
	return trns, total, nil
}

func (repo *traineeRepository) GetTrainee(ctx context.Context, filter trainee.GetFilter) (trainee.Trainee, error) {
	var (
		row traineeRow
		err error
	)
	switch {
	case filter.ID != "":
		if !validUUID(filter.ID) {
			return trainee.Trainee{}, trainee.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM trainee WHERE id = $1", filter.ID)
	case filter.CEF != "":
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM trainee WHERE cef = $1", filter.CEF)
	default:
		return trainee.Trainee{}, trainee.ErrNotFound
	}
	if err != nil {
		return trainee.Trainee{}, repo.trapErr(err, trainee.Trainee{}, "finding trainee")
	}
	return row.trainee(), nil
}

func (repo *traineeRepository) UpdateTrainee(ctx context.Context, t trainee.Trainee) (trainee.Trainee, error) {
	q := `UPDATE trainee SET cef = :cef, name = :name, first_name = :first_name, group_name = :group_name,
			group_id = :group_id, phone = :phone, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toTraineeRow(t))
	if err != nil {
		return trainee.Trainee{}, repo.trapErr(err, t, "updating trainee")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return trainee.Trainee{}, trainee.ErrNotFound
	}
	return t, nil
}

// DeleteTrainee relies on the schema to cascade the trainee's absences.
func (repo *traineeRepository) DeleteTrainee(ctx context.Context, id string) error {
	if !validUUID(id) {
		return trainee.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM trainee WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting trainee")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return trainee.ErrNotFound
	}
	return nil
}

func (repo *traineeRepository) DeleteAllTrainees(ctx context.Context) (int, error) {
	var n int64
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM trainee_absence"); err != nil {
			return errors.Wrap(err, "deleting absences")
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM trainee")
		if err != nil {
			return errors.Wrap(err, "deleting trainees")
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return int(n), err
}
