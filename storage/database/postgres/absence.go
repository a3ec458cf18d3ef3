package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/presence/core/absence"
)

type recordRow struct {
	ID          string      `db:"id"`
	Date        time.Time   `db:"date"`
	GroupID     string      `db:"group_id"`
	TeacherID   null.String `db:"teacher_id"`
	StartTime   string      `db:"start_time"`
	EndTime     string      `db:"end_time"`
	IsValidated bool        `db:"is_validated"`
	ValidatedBy null.String `db:"validated_by"`
	ValidatedAt null.Time   `db:"validated_at"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toRecordRow(r absence.Record) recordRow {
	return recordRow{
		ID:          r.ID,
		Date:        absence.Day(r.Date),
		GroupID:     r.GroupID,
		TeacherID:   null.NewString(r.TeacherID, r.TeacherID != ""),
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsValidated: r.IsValidated,
		ValidatedBy: null.NewString(r.ValidatedBy, r.ValidatedBy != ""),
		ValidatedAt: null.TimeFromPtr(r.ValidatedAt),
		CreatedBy:   null.NewString(r.CreatedBy, r.CreatedBy != ""),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r recordRow) record() absence.Record {
	return absence.Record{
		ID:          r.ID,
		Date:        absence.Day(r.Date),
		GroupID:     r.GroupID,
		TeacherID:   r.TeacherID.String,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsValidated: r.IsValidated,
		ValidatedBy: r.ValidatedBy.String,
		ValidatedAt: utcPtr(r.ValidatedAt),
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type entryRow struct {
	ID           string          `db:"id"`
	TraineeID    string          `db:"trainee_id"`
	RecordID     string          `db:"record_id"`
	Status       string          `db:"status"`
	IsValidated  bool            `db:"is_validated"`
	IsJustified  bool            `db:"is_justified"`
	Comment      null.String     `db:"comment"`
	AbsenceHours decimal.Decimal `db:"absence_hours"`
	ValidatedBy  null.String     `db:"validated_by"`
	ValidatedAt  null.Time       `db:"validated_at"`
	JustifiedBy  null.String     `db:"justified_by"`
	JustifiedAt  null.Time       `db:"justified_at"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func toEntryRow(e absence.Entry) entryRow {
	return entryRow{
		ID:           e.ID,
		TraineeID:    e.TraineeID,
		RecordID:     e.RecordID,
		Status:       e.Status,
		IsValidated:  e.IsValidated,
		IsJustified:  e.IsJustified,
		Comment:      null.NewString(e.Comment, e.Comment != ""),
		AbsenceHours: decimal.NewFromFloat(e.AbsenceHours).Round(1),
		ValidatedBy:  null.NewString(e.ValidatedBy, e.ValidatedBy != ""),
		ValidatedAt:  null.TimeFromPtr(e.ValidatedAt),
		JustifiedBy:  null.NewString(e.JustifiedBy, e.JustifiedBy != ""),
		JustifiedAt:  null.TimeFromPtr(e.JustifiedAt),
		CreatedAt:    e.CreatedAt.UTC(),
		UpdatedAt:    e.UpdatedAt.UTC(),
	}
}

func (r entryRow) entry() absence.Entry {
	hours, _ := r.AbsenceHours.Float64()
	return absence.Entry{
		ID:           r.ID,
		TraineeID:    r.TraineeID,
		RecordID:     r.RecordID,
		Status:       r.Status,
		IsValidated:  r.IsValidated,
		IsJustified:  r.IsJustified,
		Comment:      r.Comment.String,
		AbsenceHours: hours,
		ValidatedBy:  r.ValidatedBy.String,
		ValidatedAt:  utcPtr(r.ValidatedAt),
		JustifiedBy:  r.JustifiedBy.String,
		JustifiedAt:  utcPtr(r.JustifiedAt),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

type absenceRepository struct {
	db *sqlx.DB
}

var _ absence.Repository = (*absenceRepository)(nil) // interface compliance check

func NewAbsenceRepository(db *sqlx.DB) absence.Repository {
	return &absenceRepository{db: db}
}

const (
	insertRecordQuery = `INSERT INTO absence_record (id, date, group_id, teacher_id, start_time, end_time,
			is_validated, validated_by, validated_at, created_by, created_at, updated_at)
		VALUES (:id, :date, :group_id, :teacher_id, :start_time, :end_time,
			:is_validated, :validated_by, :validated_at, :created_by, :created_at, :updated_at)`

	insertEntryQuery = `INSERT INTO trainee_absence (id, trainee_id, record_id, status, is_validated, is_justified,
			comment, absence_hours, validated_by, validated_at, justified_by, justified_at, created_at, updated_at)
		VALUES (:id, :trainee_id, :record_id, :status, :is_validated, :is_justified,
			:comment, :absence_hours, :validated_by, :validated_at, :justified_by, :justified_at, :created_at, :updated_at)`

	updateEntryQuery = `UPDATE trainee_absence SET status = :status, is_validated = :is_validated,
			is_justified = :is_justified, comment = :comment, absence_hours = :absence_hours,
			validated_by = :validated_by, validated_at = :validated_at,
			justified_by = :justified_by, justified_at = :justified_at, updated_at = :updated_at
		WHERE id = :id`
)

func (repo *absenceRepository) CreateRecord(ctx context.Context, rec absence.Record, entries []absence.Entry) (absence.Record, []absence.Entry, error) {
	rec.ID = uuid.New().String()
	created := make([]absence.Entry, 0, len(entries))
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertRecordQuery, toRecordRow(rec)); err != nil {
			return errors.Wrap(err, "inserting record")
		}
		for _, e := range entries {
			e.ID = uuid.New().String()
			e.RecordID = rec.ID
			if _, err := tx.NamedExecContext(ctx, insertEntryQuery, toEntryRow(e)); err != nil {
				return errors.Wrap(err, "inserting entry")
			}
			created = append(created, e)
		}
		return nil
	})
	if err != nil {
		return absence.Record{}, nil, err
	}
	return rec, created, nil
}

func (repo *absenceRepository) GetRecord(ctx context.Context, id string) (absence.Record, error) {
	if !validUUID(id) {
		return absence.Record{}, absence.ErrRecordNotFound
	}
	var row recordRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM absence_record WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return absence.Record{}, absence.ErrRecordNotFound
		}
		return absence.Record{}, errors.Wrap(err, "finding record")
	}
	return row.record(), nil
}

func (repo *absenceRepository) QueryRecords(ctx context.Context, filter absence.RecordFilter) ([]absence.Record, error) {
	w := new(where)
	if filter.IDs != nil {
		w.in("id", validUUIDs(filter.IDs))
	}
	if filter.GroupID != "" {
		if !validUUID(filter.GroupID) {
			return []absence.Record{}, nil
		}
		w.add("group_id = ?", filter.GroupID)
	}
	if filter.TeacherID != "" {
		if !validUUID(filter.TeacherID) {
			return []absence.Record{}, nil
		}
		w.add("teacher_id = ?", filter.TeacherID)
	}
	if !filter.From.IsZero() {
		w.add("date >= ?", absence.Day(filter.From))
	}
	if !filter.To.IsZero() {
		w.add("date <= ?", absence.Day(filter.To))
	}
	if filter.IsValidated != nil {
		w.add("is_validated = ?", *filter.IsValidated)
	}

	var rows []recordRow
	q := "SELECT * FROM absence_record" + w.String() + " ORDER BY date DESC, start_time DESC, created_at DESC"
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	recs := make([]absence.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, r.record())
	}
	return recs, nil
}

func (repo *absenceRepository) UpdateRecord(ctx context.Context, rec absence.Record) (absence.Record, error) {
	q := `UPDATE absence_record SET date = :date, teacher_id = :teacher_id, start_time = :start_time,
			end_time = :end_time, is_validated = :is_validated, validated_by = :validated_by,
			validated_at = :validated_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toRecordRow(rec))
	if err != nil {
		return absence.Record{}, errors.Wrap(err, "updating record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return absence.Record{}, absence.ErrRecordNotFound
	}
	return rec, nil
}

// DeleteRecord relies on the schema to cascade the record's entries.
func (repo *absenceRepository) DeleteRecord(ctx context.Context, id string) error {
	if !validUUID(id) {
		return absence.ErrRecordNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM absence_record WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return absence.ErrRecordNotFound
	}
	return nil
}

func (repo *absenceRepository) GetEntry(ctx context.Context, id string) (absence.Entry, error) {
	if !validUUID(id) {
		return absence.Entry{}, absence.ErrEntryNotFound
	}
	var row entryRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM trainee_absence WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return absence.Entry{}, absence.ErrEntryNotFound
		}
		return absence.Entry{}, errors.Wrap(err, "finding entry")
	}
	return row.entry(), nil
}

func (repo *absenceRepository) QueryEntries(ctx context.Context, filter absence.EntryFilter) ([]absence.Entry, error) {
	w := new(where)
	if filter.IDs != nil {
		w.in("id", validUUIDs(filter.IDs))
	}
	if filter.TraineeIDs != nil {
		w.in("trainee_id", validUUIDs(filter.TraineeIDs))
	}
	if filter.RecordIDs != nil {
		w.in("record_id", validUUIDs(filter.RecordIDs))
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.IsJustified != nil {
		w.add("is_justified = ?", *filter.IsJustified)
	}
	if filter.IsValidated != nil {
		w.add("is_validated = ?", *filter.IsValidated)
	}

	var rows []entryRow
	q := "SELECT * FROM trainee_absence" + w.String() + " ORDER BY created_at"
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	entries := make([]absence.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

// UpdateEntries updates every given entry, or none if one of them is unknown.
func (repo *absenceRepository) UpdateEntries(ctx context.Context, entries ...absence.Entry) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, e := range entries {
			res, err := tx.NamedExecContext(ctx, updateEntryQuery, toEntryRow(e))
			if err != nil {
				return errors.Wrap(err, "updating entry")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return absence.ErrEntryNotFound
			}
		}
		return nil
	})
}
