package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/schedule"
)

type scheduleDoc struct {
	ID           string             `bson:"_id"`
	TeacherID    string             `bson:"teacher_id"`
	Sessions     []schedule.Session `bson:"sessions"`
	WeekNumber   int                `bson:"week_number"`
	AcademicYear string             `bson:"academic_year"`
	IsActive     bool               `bson:"is_active"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func toScheduleDoc(s schedule.Schedule) scheduleDoc {
	d := scheduleDoc(s)
	if d.Sessions == nil {
		d.Sessions = []schedule.Session{}
	}
	return d
}

func (d scheduleDoc) schedule() schedule.Schedule {
	s := schedule.Schedule(d)
	if s.Sessions == nil {
		s.Sessions = []schedule.Session{}
	}
	return s
}

type scheduleRepository struct {
	coll *mongo.Collection
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *mongo.Database) schedule.Repository {
	return &scheduleRepository{coll: db.Collection(scheduleCollection)}
}

func (repo *scheduleRepository) decodeAll(ctx context.Context, f bson.M, opts ...*options.FindOptions) ([]schedule.Schedule, error) {
	var docs []scheduleDoc
	if err := findAll(ctx, repo.coll, &docs, f, opts...); err != nil {
		return nil, err
	}
	schs := make([]schedule.Schedule, 0, len(docs))
	for _, d := range docs {
		schs = append(schs, d.schedule())
	}
	return schs, nil
}

func (repo *scheduleRepository) ActiveSchedulesAt(ctx context.Context, day, timeSlot, excludedID string) ([]schedule.Schedule, error) {
	f := bson.M{
		"is_active": true,
		"sessions":  bson.M{"$elemMatch": bson.M{"day": day, "timeSlot": timeSlot}},
	}
	if excludedID != "" {
		f["_id"] = bson.M{"$ne": excludedID}
	}
	schs, err := repo.decodeAll(ctx, f, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	return schs, errors.Wrap(err, "querying schedules at slot")
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	s.ID = uuid.New().String()
	doc := toScheduleDoc(s)
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return doc.schedule(), nil
}

func (repo *scheduleRepository) QuerySchedules(ctx context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]schedule.Schedule, int, error) {
	f := bson.M{}
	if filter != nil {
		if filter.TeacherID != "" {
			f["teacher_id"] = filter.TeacherID
		}
		if filter.GroupID != "" {
			f["sessions.groupId"] = filter.GroupID
		}
		if filter.AcademicYear != "" {
			f["academic_year"] = filter.AcademicYear
		}
		if filter.WeekNumber != nil {
			f["week_number"] = *filter.WeekNumber
		}
		if filter.IsActive != nil {
			f["is_active"] = *filter.IsActive
		}
	}

	var docs []scheduleDoc
	total, err := findPage(ctx, repo.coll, &docs, f, findOptions(ordering, page, core.DBOrdering{Field: "created_at"}))
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying schedules")
	}
	schs := make([]schedule.Schedule, 0, len(docs))
	for _, d := range docs {
		schs = append(schs, d.schedule())
	}
	return schs, total, nil
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	var doc scheduleDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return schedule.Schedule{}, schedule.ErrNotFound
		}
		return schedule.Schedule{}, errors.Wrap(err, "finding schedule")
	}
	return doc.schedule(), nil
}

func (repo *scheduleRepository) UpdateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	doc := toScheduleDoc(s)
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": s.ID}, doc)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if res.MatchedCount == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return doc.schedule(), nil
}

func (repo *scheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	if res.DeletedCount == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
