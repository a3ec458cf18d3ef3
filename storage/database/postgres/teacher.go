package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/teacher"
)

type teacherRow struct {
	ID                 string         `db:"id"`
	Name               string         `db:"name"`
	Email              string         `db:"email"`
	Matricule          string         `db:"matricule"`
	PasswordHash       []byte         `db:"password_hash"`
	MustChangePassword bool           `db:"must_change_password"`
	IsActive           bool           `db:"is_active"`
	GroupIDs           pq.StringArray `db:"group_ids"`
	ScheduleFile       null.String    `db:"schedule_file"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
	LastLogin          null.Time      `db:"last_login"`
}

func toTeacherRow(t teacher.Teacher) teacherRow {
	ids := t.GroupIDs
	if ids == nil {
		ids = []string{}
	}
	return teacherRow{
		ID:                 t.ID,
		Name:               t.Name,
		Email:              t.Email,
		Matricule:          t.Matricule,
		PasswordHash:       t.PasswordHash,
		MustChangePassword: t.MustChangePassword,
		IsActive:           t.IsActive,
		GroupIDs:           ids,
		ScheduleFile:       null.NewString(t.ScheduleFile, t.ScheduleFile != ""),
		CreatedAt:          t.CreatedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
		LastLogin:          null.NewTime(t.LastLogin.UTC(), !t.LastLogin.IsZero()),
	}
}

func (r teacherRow) teacher() teacher.Teacher {
	ids := []string(r.GroupIDs)
	if ids == nil {
		ids = []string{}
	}
	return teacher.Teacher{
		ID:                 r.ID,
		Name:               r.Name,
		Email:              r.Email,
		Matricule:          r.Matricule,
		PasswordHash:       r.PasswordHash,
		MustChangePassword: r.MustChangePassword,
		IsActive:           r.IsActive,
		GroupIDs:           ids,
		ScheduleFile:       r.ScheduleFile.String,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
		LastLogin:          r.LastLogin.Time.UTC(),
	}
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) teacher.Repository {
	return &teacherRepository{db: db}
}

var teacherConstraints = map[string]string{
	"teacher_name_key":      "name",
	"teacher_email_key":     "email",
	"teacher_matricule_key": "matricule",
}

func (repo *teacherRepository) trapErr(err error, t teacher.Teacher, msg string) error {
	if err == sql.ErrNoRows {
		return teacher.ErrNotFound
	}
	if constraint, ok := uniqueViolation(err); ok {
		switch teacherConstraints[constraint] {
		case "name":
			return core.NewDuplicateError("teacher", "name", t.Name)
		case "matricule":
			return core.NewDuplicateError("teacher", "matricule", t.Matricule)
		default:
			return core.NewDuplicateError("teacher", "email", t.Email)
		}
	}
	return errors.Wrap(err, msg)
}

func (repo *teacherRepository) CheckUniqueness(ctx context.Context, name, email, matricule string, excludedIDs ...string) error {
	w := new(where)
	w.add("(lower(name) = lower(?) OR email = ? OR matricule = ?)", name, email, matricule)
	w.excluding(excludedIDs)

	var rows []teacherRow
	q := repo.db.Rebind("SELECT * FROM teacher" + w.String() + " LIMIT 1")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return errors.Wrap(err, "checking teacher uniqueness")
	}
	if len(rows) == 0 {
		return nil
	}
	switch t := rows[0]; {
	case t.Email == email:
		return core.NewDuplicateError("teacher", "email", email)
	case t.Matricule == matricule:
		return core.NewDuplicateError("teacher", "matricule", matricule)
	default:
		return core.NewDuplicateError("teacher", "name", name)
	}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = uuid.New().String()
	q := `INSERT INTO teacher (id, name, email, matricule, password_hash, must_change_password, is_active,
			group_ids, schedule_file, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :matricule, :password_hash, :must_change_password, :is_active,
			:group_ids, :schedule_file, :created_at, :updated_at, :last_login)`
	row := toTeacherRow(t)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return teacher.Teacher{}, repo.trapErr(err, t, "inserting teacher")
	}
	return row.teacher(), nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]teacher.Teacher, int, error) {
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "name", "email", "matricule")
		if filter.GroupID != "" {
			w.add("? = ANY(group_ids)", filter.GroupID)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []teacherRow
	total, err := queryPage(ctx, repo.db, &rows, "teacher", w, orderBy(ordering, "name ASC"), page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying teachers")
	}
	tchrs := make([]teacher.Teacher, 0, len(rows))
	for _, r := range rows {
		tchrs = append(tchrs, r.teacher())
	}
	return tchrs, total, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	var (
		row teacherRow
		err error
	)
	switch {
	case filter.ID != "":
		if !validUUID(filter.ID) {
			return teacher.Teacher{}, teacher.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM teacher WHERE id = $1", filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, "SELECT * FROM teacher WHERE email = $1", filter.Email)
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if err != nil {
		return teacher.Teacher{}, repo.trapErr(err, teacher.Teacher{}, "finding teacher")
	}
	return row.teacher(), nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	q := `UPDATE teacher SET name = :name, email = :email, matricule = :matricule, password_hash = :password_hash,
			must_change_password = :must_change_password, is_active = :is_active, group_ids = :group_ids,
			schedule_file = :schedule_file, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	row := toTeacherRow(t)
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return teacher.Teacher{}, repo.trapErr(err, t, "updating teacher")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return row.teacher(), nil
}

// DeleteTeacher relies on the schema: schedules cascade, records set teacher_id to NULL.
func (repo *teacherRepository) DeleteTeacher(ctx context.Context, id string) error {
	if !validUUID(id) {
		return teacher.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM teacher WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return teacher.ErrNotFound
	}
	return nil
}
