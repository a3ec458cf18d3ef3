package pgrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/schedule"
)

// sessionList is stored as a jsonb array.
type sessionList []schedule.Session

func (sl sessionList) Value() (driver.Value, error) {
	if sl == nil {
		sl = sessionList{}
	}
	return json.Marshal(sl)
}

func (sl *sessionList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*sl = sessionList{}
		return nil
	default:
		return errors.Errorf("unsupported sessions type %T", src)
	}
	return json.Unmarshal(data, (*[]schedule.Session)(sl))
}

type scheduleRow struct {
	ID           string      `db:"id"`
	TeacherID    string      `db:"teacher_id"`
	Sessions     sessionList `db:"sessions"`
	WeekNumber   int         `db:"week_number"`
	AcademicYear string      `db:"academic_year"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func toScheduleRow(s schedule.Schedule) scheduleRow {
	return scheduleRow{
		ID:           s.ID,
		TeacherID:    s.TeacherID,
		Sessions:     s.Sessions,
		WeekNumber:   s.WeekNumber,
		AcademicYear: s.AcademicYear,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt.UTC(),
		UpdatedAt:    s.UpdatedAt.UTC(),
	}
}

func (r scheduleRow) schedule() schedule.Schedule {
	sessions := []schedule.Session(r.Sessions)
	if sessions == nil {
		sessions = []schedule.Session{}
	}
	return schedule.Schedule{
		ID:           r.ID,
		TeacherID:    r.TeacherID,
		Sessions:     sessions,
		WeekNumber:   r.WeekNumber,
		AcademicYear: r.AcademicYear,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func schedules(rows []scheduleRow) []schedule.Schedule {
	schs := make([]schedule.Schedule, 0, len(rows))
	for _, r := range rows {
		schs = append(schs, r.schedule())
	}
	return schs
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

// containsSession builds a jsonb containment pattern matching any session with the given fields.
func containsSession(fields map[string]string) (string, error) {
	b, err := json.Marshal([]map[string]string{fields})
	return string(b), err
}

func (repo *scheduleRepository) ActiveSchedulesAt(ctx context.Context, day, timeSlot, excludedID string) ([]schedule.Schedule, error) {
	pattern, err := containsSession(map[string]string{"day": day, "timeSlot": timeSlot})
	if err != nil {
		return nil, errors.Wrap(err, "encoding slot")
	}
	w := new(where)
	w.add("is_active")
	w.add("sessions @> ?::jsonb", pattern)
	if excludedID != "" {
		w.excluding([]string{excludedID})
	}

	var rows []scheduleRow
	q := "SELECT * FROM schedule" + w.String() + " ORDER BY created_at"
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying schedules at slot")
	}
	return schedules(rows), nil
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO schedule (id, teacher_id, sessions, week_number, academic_year, is_active, created_at, updated_at)
		VALUES (:id, :teacher_id, :sessions, :week_number, :academic_year, :is_active, :created_at, :updated_at)`
	row := toScheduleRow(s)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return row.schedule(), nil
}

func (repo *scheduleRepository) QuerySchedules(ctx context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]schedule.Schedule, int, error) {
	w := new(where)
	if filter != nil {
		if filter.TeacherID != "" {
			if !validUUID(filter.TeacherID) {
				return []schedule.Schedule{}, 0, nil
			}
			w.add("teacher_id = ?", filter.TeacherID)
		}
		if filter.GroupID != "" {
			pattern, err := containsSession(map[string]string{"groupId": filter.GroupID})
			if err != nil {
				return nil, 0, errors.Wrap(err, "encoding group")
			}
			w.add("sessions @> ?::jsonb", pattern)
		}
		if filter.AcademicYear != "" {
			w.add("academic_year = ?", filter.AcademicYear)
		}
		if filter.WeekNumber != nil {
			w.add("week_number = ?", *filter.WeekNumber)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []scheduleRow
	total, err := queryPage(ctx, repo.db, &rows, "schedule", w, orderBy(ordering, "created_at DESC"), page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying schedules")
	}
	return schedules(rows), total, nil
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	if !validUUID(id) {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	var row scheduleRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM schedule WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return schedule.Schedule{}, schedule.ErrNotFound
		}
		return schedule.Schedule{}, errors.Wrap(err, "finding schedule")
	}
	return row.schedule(), nil
}

func (repo *scheduleRepository) UpdateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	q := `UPDATE schedule SET sessions = :sessions, week_number = :week_number, academic_year = :academic_year,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	row := toScheduleRow(s)
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return row.schedule(), nil
}

func (repo *scheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	if !validUUID(id) {
		return schedule.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM schedule WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
