package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/presence/core/absence"
)

type recordDoc struct {
	ID          string     `bson:"_id"`
	Date        time.Time  `bson:"date"`
	GroupID     string     `bson:"group_id"`
	TeacherID   string     `bson:"teacher_id,omitempty"`
	StartTime   string     `bson:"start_time"`
	EndTime     string     `bson:"end_time"`
	IsValidated bool       `bson:"is_validated"`
	ValidatedBy string     `bson:"validated_by,omitempty"`
	ValidatedAt *time.Time `bson:"validated_at,omitempty"`
	CreatedBy   string     `bson:"created_by,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

type entryDoc struct {
	ID           string     `bson:"_id"`
	TraineeID    string     `bson:"trainee_id"`
	RecordID     string     `bson:"record_id"`
	Status       string     `bson:"status"`
	IsValidated  bool       `bson:"is_validated"`
	IsJustified  bool       `bson:"is_justified"`
	Comment      string     `bson:"comment"`
	AbsenceHours float64    `bson:"absence_hours"`
	ValidatedBy  string     `bson:"validated_by,omitempty"`
	ValidatedAt  *time.Time `bson:"validated_at,omitempty"`
	JustifiedBy  string     `bson:"justified_by,omitempty"`
	JustifiedAt  *time.Time `bson:"justified_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

type absenceRepository struct {
	records *mongo.Collection
	entries *mongo.Collection
}

var _ absence.Repository = (*absenceRepository)(nil) // interface compliance check

func NewAbsenceRepository(db *mongo.Database) absence.Repository {
	return &absenceRepository{
		records: db.Collection(recordCollection),
		entries: db.Collection(entryCollection),
	}
}

// CreateRecord inserts the record, then its entries. If the entries cannot be stored the record is removed.
func (repo *absenceRepository) CreateRecord(ctx context.Context, rec absence.Record, entries []absence.Entry) (absence.Record, []absence.Entry, error) {
	rec.ID = uuid.New().String()
	rec.Date = absence.Day(rec.Date)
	if _, err := repo.records.InsertOne(ctx, recordDoc(rec)); err != nil {
		return absence.Record{}, nil, errors.Wrap(err, "inserting record")
	}

	created := make([]absence.Entry, 0, len(entries))
	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		e.ID = uuid.New().String()
		e.RecordID = rec.ID
		created = append(created, e)
		docs = append(docs, entryDoc(e))
	}
	if len(docs) > 0 {
		if _, err := repo.entries.InsertMany(ctx, docs); err != nil {
			_, _ = repo.entries.DeleteMany(ctx, bson.M{"record_id": rec.ID})
			_, _ = repo.records.DeleteOne(ctx, bson.M{"_id": rec.ID})
			return absence.Record{}, nil, errors.Wrap(err, "inserting entries")
		}
	}
	return rec, created, nil
}

func (repo *absenceRepository) GetRecord(ctx context.Context, id string) (absence.Record, error) {
	var doc recordDoc
	if err := repo.records.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return absence.Record{}, absence.ErrRecordNotFound
		}
		return absence.Record{}, errors.Wrap(err, "finding record")
	}
	return absence.Record(doc), nil
}

func (repo *absenceRepository) QueryRecords(ctx context.Context, filter absence.RecordFilter) ([]absence.Record, error) {
	f := bson.M{}
	if filter.IDs != nil {
		f["_id"] = inFilter(filter.IDs)
	}
	if filter.GroupID != "" {
		f["group_id"] = filter.GroupID
	}
	if filter.TeacherID != "" {
		f["teacher_id"] = filter.TeacherID
	}
	date := bson.M{}
	if !filter.From.IsZero() {
		date["$gte"] = absence.Day(filter.From)
	}
	if !filter.To.IsZero() {
		date["$lte"] = absence.Day(filter.To)
	}
	if len(date) > 0 {
		f["date"] = date
	}
	if filter.IsValidated != nil {
		f["is_validated"] = *filter.IsValidated
	}

	var docs []recordDoc
	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: -1}, {Key: "start_time", Value: -1}, {Key: "created_at", Value: -1},
	})
	if err := findAll(ctx, repo.records, &docs, f, opts); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	recs := make([]absence.Record, 0, len(docs))
	for _, d := range docs {
		recs = append(recs, absence.Record(d))
	}
	return recs, nil
}

func (repo *absenceRepository) UpdateRecord(ctx context.Context, rec absence.Record) (absence.Record, error) {
	rec.Date = absence.Day(rec.Date)
	res, err := repo.records.ReplaceOne(ctx, bson.M{"_id": rec.ID}, recordDoc(rec))
	if err != nil {
		return absence.Record{}, errors.Wrap(err, "updating record")
	}
	if res.MatchedCount == 0 {
		return absence.Record{}, absence.ErrRecordNotFound
	}
	return rec, nil
}

func (repo *absenceRepository) DeleteRecord(ctx context.Context, id string) error {
	res, err := repo.records.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting record")
	}
	if res.DeletedCount == 0 {
		return absence.ErrRecordNotFound
	}
	_, err = repo.entries.DeleteMany(ctx, bson.M{"record_id": id})
	return errors.Wrap(err, "deleting record entries")
}

func (repo *absenceRepository) GetEntry(ctx context.Context, id string) (absence.Entry, error) {
	var doc entryDoc
	if err := repo.entries.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return absence.Entry{}, absence.ErrEntryNotFound
		}
		return absence.Entry{}, errors.Wrap(err, "finding entry")
	}
	return absence.Entry(doc), nil
}

func (repo *absenceRepository) QueryEntries(ctx context.Context, filter absence.EntryFilter) ([]absence.Entry, error) {
	f := bson.M{}
	if filter.IDs != nil {
		f["_id"] = inFilter(filter.IDs)
	}
	if filter.TraineeIDs != nil {
		f["trainee_id"] = inFilter(filter.TraineeIDs)
	}
	if filter.RecordIDs != nil {
		f["record_id"] = inFilter(filter.RecordIDs)
	}
	if filter.Status != "" {
		f["status"] = filter.Status
	}
	if filter.IsJustified != nil {
		f["is_justified"] = *filter.IsJustified
	}
	if filter.IsValidated != nil {
		f["is_validated"] = *filter.IsValidated
	}

	var docs []entryDoc
	if err := findAll(ctx, repo.entries, &docs, f, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})); err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	entries := make([]absence.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, absence.Entry(d))
	}
	return entries, nil
}

// UpdateEntries replaces the given entries in one bulk write, after checking they all exist.
func (repo *absenceRepository) UpdateEntries(ctx context.Context, entries ...absence.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, 0, len(entries))
	models := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
		models = append(models, mongo.NewReplaceOneModel().SetFilter(bson.M{"_id": e.ID}).SetReplacement(entryDoc(e)))
	}

	n, err := repo.entries.CountDocuments(ctx, bson.M{"_id": inFilter(ids)})
	if err != nil {
		return errors.Wrap(err, "counting entries")
	}
	if int(n) != len(uniqueIDs(ids)) {
		return absence.ErrEntryNotFound
	}
	if _, err = repo.entries.BulkWrite(ctx, models); err != nil {
		return errors.Wrap(err, "updating entries")
	}
	return nil
}

func uniqueIDs(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
