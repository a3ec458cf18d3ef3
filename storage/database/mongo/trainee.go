package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/trainee"
)

type traineeDoc struct {
	ID        string    `bson:"_id"`
	CEF       string    `bson:"cef"`
	Name      string    `bson:"name"`
	FirstName string    `bson:"first_name"`
	GroupName string    `bson:"group_name"`
	GroupID   string    `bson:"group_id"`
	Phone     string    `bson:"phone"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type traineeRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

var _ trainee.Repository = (*traineeRepository)(nil) // interface compliance check

func NewTraineeRepository(db *mongo.Database) trainee.Repository {
	return &traineeRepository{db: db, coll: db.Collection(traineeCollection)}
}

func (repo *traineeRepository) CreateTrainee(ctx context.Context, t trainee.Trainee) (trainee.Trainee, error) {
	t.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, traineeDoc(t)); err != nil {
		if _, dup := duplicateKey(err); dup {
			return trainee.Trainee{}, core.NewDuplicateError("trainee", "cef", t.CEF)
		}
		return trainee.Trainee{}, errors.Wrap(err, "inserting trainee")
	}
	return t, nil
}

func (repo *traineeRepository) QueryTrainees(ctx context.Context, filter *trainee.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]trainee.Trainee, int, error) {
	f := bson.M{}
	if filter != nil {
		var conds bson.A
		if filter.Search != "" {
			conds = append(conds, searchFilter(filter.Search, "cef", "name", "first_name"))
		}
		switch {
		case filter.GroupID != "":
			conds = append(conds, bson.M{"$or": bson.A{
				bson.M{"group_id": filter.GroupID},
				bson.M{"group_id": "", "group_name": filter.GroupName},
			}})
		case filter.GroupName != "":
			conds = append(conds, bson.M{"group_name": filter.GroupName})
		}
		if len(conds) > 0 {
			f["$and"] = conds
		}
	}

	var docs []traineeDoc
	opts := findOptions(ordering, page,
		core.DBOrdering{Field: "name", Ascending: true}, core.DBOrdering{Field: "first_name", Ascending: true})
	total, err := findPage(ctx, repo.coll, &docs, f, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying trainees")
	}
	trns := make([]trainee.Trainee, 0, len(docs))
	for _, d := range docs {
		trns = append(trns, trainee.Trainee(d))
	}
	return trns, total, nil
}

func (repo *traineeRepository) GetTrainee(ctx context.Context, filter trainee.GetFilter) (trainee.Trainee, error) {
	var f bson.M
	switch {
	case filter.ID != "":
		f = bson.M{"_id": filter.ID}
	case filter.CEF != "":
		f = bson.M{"cef": filter.CEF}
	default:
		return trainee.Trainee{}, trainee.ErrNotFound
	}

	var doc traineeDoc
	if err := repo.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return trainee.Trainee{}, trainee.ErrNotFound
		}
		return trainee.Trainee{}, errors.Wrap(err, "finding trainee")
	}
	return trainee.Trainee(doc), nil
}

func (repo *traineeRepository) UpdateTrainee(ctx context.Context, t trainee.Trainee) (trainee.Trainee, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": t.ID}, traineeDoc(t))
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return trainee.Trainee{}, core.NewDuplicateError("trainee", "cef", t.CEF)
		}
		return trainee.Trainee{}, errors.Wrap(err, "updating trainee")
	}
	if res.MatchedCount == 0 {
		return trainee.Trainee{}, trainee.ErrNotFound
	}
	return t, nil
}

func (repo *traineeRepository) DeleteTrainee(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting trainee")
	}
	if res.DeletedCount == 0 {
		return trainee.ErrNotFound
	}
	_, err = repo.db.Collection(entryCollection).DeleteMany(ctx, bson.M{"trainee_id": id})
	return errors.Wrap(err, "deleting trainee absences")
}

func (repo *traineeRepository) DeleteAllTrainees(ctx context.Context) (int, error) {
	if _, err := repo.db.Collection(entryCollection).DeleteMany(ctx, bson.M{}); err != nil {
		return 0, errors.Wrap(err, "deleting absences")
	}
	res, err := repo.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "deleting trainees")
	}
	return int(res.DeletedCount), nil
}
