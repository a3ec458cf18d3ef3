package mongorepos

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/teacher"
)

type teacherDoc struct {
	ID                 string    `bson:"_id"`
	Name               string    `bson:"name"`
	Email              string    `bson:"email"`
	Matricule          string    `bson:"matricule"`
	PasswordHash       []byte    `bson:"password_hash"`
	MustChangePassword bool      `bson:"must_change_password"`
	IsActive           bool      `bson:"is_active"`
	GroupIDs           []string  `bson:"group_ids"`
	ScheduleFile       string    `bson:"schedule_file,omitempty"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
	LastLogin          time.Time `bson:"last_login,omitempty"`
}

func toTeacherDoc(t teacher.Teacher) teacherDoc {
	d := teacherDoc(t)
	if d.GroupIDs == nil {
		d.GroupIDs = []string{}
	}
	return d
}

func (d teacherDoc) teacher() teacher.Teacher {
	t := teacher.Teacher(d)
	if t.GroupIDs == nil {
		t.GroupIDs = []string{}
	}
	t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
	if !t.LastLogin.IsZero() {
		t.LastLogin = t.LastLogin.UTC()
	}
	return t
}

type teacherRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *mongo.Database) teacher.Repository {
	return &teacherRepository{db: db, coll: db.Collection(teacherCollection)}
}

func (repo *teacherRepository) duplicateErr(err error, t teacher.Teacher) error {
	key, ok := duplicateKey(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(key, "matricule"):
		return core.NewDuplicateError("teacher", "matricule", t.Matricule)
	case strings.Contains(key, "name"):
		return core.NewDuplicateError("teacher", "name", t.Name)
	default:
		return core.NewDuplicateError("teacher", "email", t.Email)
	}
}

func (repo *teacherRepository) CheckUniqueness(ctx context.Context, name, email, matricule string, excludedIDs ...string) error {
	filter := bson.M{"$or": bson.A{
		bson.M{"name": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}},
		bson.M{"email": email},
		bson.M{"matricule": matricule},
	}}
	if len(excludedIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludedIDs}
	}

	var doc teacherDoc
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil
		}
		return errors.Wrap(err, "checking teacher uniqueness")
	}
	switch {
	case doc.Email == email:
		return core.NewDuplicateError("teacher", "email", email)
	case doc.Matricule == matricule:
		return core.NewDuplicateError("teacher", "matricule", matricule)
	default:
		return core.NewDuplicateError("teacher", "name", name)
	}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = uuid.New().String()
	doc := toTeacherDoc(t)
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		if dupErr := repo.duplicateErr(err, t); dupErr != nil {
			return teacher.Teacher{}, dupErr
		}
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return doc.teacher(), nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]teacher.Teacher, int, error) {
	f := bson.M{}
	if filter != nil {
		if filter.Search != "" {
			f = searchFilter(filter.Search, "name", "email", "matricule")
		}
		if filter.GroupID != "" {
			f["group_ids"] = filter.GroupID
		}
		if filter.IsActive != nil {
			f["is_active"] = *filter.IsActive
		}
	}

	var docs []teacherDoc
	total, err := findPage(ctx, repo.coll, &docs, f, findOptions(ordering, page, core.DBOrdering{Field: "name", Ascending: true}))
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying teachers")
	}
	tchrs := make([]teacher.Teacher, 0, len(docs))
	for _, d := range docs {
		tchrs = append(tchrs, d.teacher())
	}
	return tchrs, total, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	var f bson.M
	switch {
	case filter.ID != "":
		f = bson.M{"_id": filter.ID}
	case filter.Email != "":
		f = bson.M{"email": filter.Email}
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}

	var doc teacherDoc
	if err := repo.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return teacher.Teacher{}, teacher.ErrNotFound
		}
		return teacher.Teacher{}, errors.Wrap(err, "finding teacher")
	}
	return doc.teacher(), nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	doc := toTeacherDoc(t)
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": t.ID}, doc)
	if err != nil {
		if dupErr := repo.duplicateErr(err, t); dupErr != nil {
			return teacher.Teacher{}, dupErr
		}
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if res.MatchedCount == 0 {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return doc.teacher(), nil
}

func (repo *teacherRepository) DeleteTeacher(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	if res.DeletedCount == 0 {
		return teacher.ErrNotFound
	}
	if _, err = repo.db.Collection(scheduleCollection).DeleteMany(ctx, bson.M{"teacher_id": id}); err != nil {
		return errors.Wrap(err, "deleting teacher schedules")
	}
	_, err = repo.db.Collection(recordCollection).UpdateMany(ctx,
		bson.M{"teacher_id": id}, bson.M{"$unset": bson.M{"teacher_id": ""}})
	return errors.Wrap(err, "detaching teacher records")
}
