// Package mongorepos implements the domain repositories on MongoDB.
// Documents use string UUIDs as _id and the same field names as the SQL columns,
// so API orderings translate as-is.
package mongorepos

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/presence/core"
)

// collections
const (
	userCollection     = "users"
	teacherCollection  = "teachers"
	groupCollection    = "groups"
	traineeCollection  = "trainees"
	recordCollection   = "absence_records"
	entryCollection    = "trainee_absences"
	scheduleCollection = "schedules"
)

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		userCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		teacherCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "matricule", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).
				SetCollation(&options.Collation{Locale: "fr", Strength: 2})},
		},
		groupCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
		},
		traineeCollection: {
			{Keys: bson.D{{Key: "cef", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "group_id", Value: 1}}},
			{Keys: bson.D{{Key: "group_name", Value: 1}}},
		},
		recordCollection: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "date", Value: -1}}},
		},
		entryCollection: {
			{Keys: bson.D{{Key: "trainee_id", Value: 1}, {Key: "record_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "record_id", Value: 1}}},
		},
		scheduleCollection: {
			{Keys: bson.D{{Key: "teacher_id", Value: 1}}},
			{Keys: bson.D{{Key: "sessions.day", Value: 1}, {Key: "sessions.timeSlot", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

// searchFilter matches documents where any of fields contains term, case-insensitively.
func searchFilter(term string, fields ...string) bson.M {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	ors := make(bson.A, 0, len(fields))
	for _, f := range fields {
		ors = append(ors, bson.M{f: re})
	}
	return bson.M{"$or": ors}
}

func sortDoc(ordering []core.DBOrdering, fallback ...core.DBOrdering) bson.D {
	if len(ordering) == 0 {
		ordering = fallback
	}
	sort := make(bson.D, 0, len(ordering))
	for _, ord := range ordering {
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: dir})
	}
	return sort
}

func findOptions(ordering []core.DBOrdering, page core.Pagination, fallback ...core.DBOrdering) *options.FindOptions {
	opts := options.Find().SetSort(sortDoc(ordering, fallback...))
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit)).SetSkip(int64(page.Offset()))
	}
	return opts
}

// findPage counts the documents matching filter, then decodes one page of them into dest.
func findPage(ctx context.Context, coll *mongo.Collection, dest interface{}, filter bson.M, opts *options.FindOptions) (int, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, errors.Wrap(err, "counting documents")
	}
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return 0, errors.Wrap(err, "finding documents")
	}
	if err = cur.All(ctx, dest); err != nil {
		return 0, errors.Wrap(err, "decoding documents")
	}
	return int(total), nil
}

func findAll(ctx context.Context, coll *mongo.Collection, dest interface{}, filter bson.M, opts ...*options.FindOptions) error {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return errors.Wrap(err, "finding documents")
	}
	return errors.Wrap(cur.All(ctx, dest), "decoding documents")
}

// duplicateKey returns the key pattern of a duplicate key error, e.g. `{ email: 1 }`.
func duplicateKey(err error) (string, bool) {
	if !mongo.IsDuplicateKeyError(err) {
		return "", false
	}
	var we mongo.WriteException
	if errors.As(err, &we) && len(we.WriteErrors) > 0 {
		return we.WriteErrors[0].Message, true
	}
	return err.Error(), true
}

func inFilter(values []string) bson.M {
	if values == nil {
		values = []string{}
	}
	return bson.M{"$in": values}
}
