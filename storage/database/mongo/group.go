package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/group"
)

type groupDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Filiere   string    `bson:"filiere"`
	Annee     string    `bson:"annee"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type groupRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *mongo.Database) group.Repository {
	return &groupRepository{db: db, coll: db.Collection(groupCollection)}
}

func (repo *groupRepository) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	g.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, groupDoc(g)); err != nil {
		if _, dup := duplicateKey(err); dup {
			return group.Group{}, core.NewDuplicateError("group", "name", g.Name)
		}
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return g, nil
}

func (repo *groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]group.Group, int, error) {
	f := bson.M{}
	if filter != nil {
		if filter.Search != "" {
			f = searchFilter(filter.Search, "name", "filiere")
		}
		if filter.Filiere != "" {
			f["filiere"] = filter.Filiere
		}
		if filter.Annee != "" {
			f["annee"] = filter.Annee
		}
	}

	var docs []groupDoc
	total, err := findPage(ctx, repo.coll, &docs, f, findOptions(ordering, page, core.DBOrdering{Field: "name", Ascending: true}))
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying groups")
	}
	grps := make([]group.Group, 0, len(docs))
	for _, d := range docs {
		grps = append(grps, group.Group(d))
	}
	return grps, total, nil
}

func (repo *groupRepository) GetGroup(ctx context.Context, filter group.GetFilter) (group.Group, error) {
	var f bson.M
	switch {
	case filter.ID != "":
		f = bson.M{"_id": filter.ID}
	case filter.Name != "":
		f = bson.M{"name": filter.Name}
	default:
		return group.Group{}, group.ErrNotFound
	}

	var doc groupDoc
	if err := repo.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return group.Group{}, group.ErrNotFound
		}
		return group.Group{}, errors.Wrap(err, "finding group")
	}
	return group.Group(doc), nil
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	var old groupDoc
	err := repo.coll.FindOneAndReplace(ctx, bson.M{"_id": g.ID}, groupDoc(g)).Decode(&old)
	if err != nil {
		switch {
		case err == mongo.ErrNoDocuments:
			return group.Group{}, group.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return group.Group{}, core.NewDuplicateError("group", "name", g.Name)
		}
		return group.Group{}, errors.Wrap(err, "updating group")
	}

	if old.Name != g.Name {
		_, err = repo.db.Collection(traineeCollection).UpdateMany(ctx,
			bson.M{"$or": bson.A{
				bson.M{"group_id": g.ID},
				bson.M{"group_id": "", "group_name": old.Name},
			}},
			bson.M{"$set": bson.M{"group_id": g.ID, "group_name": g.Name}},
		)
		if err != nil {
			return group.Group{}, errors.Wrap(err, "renaming trainees group")
		}
	}
	return g, nil
}

func (repo *groupRepository) DeleteGroup(ctx context.Context, id string) error {
	n, err := repo.db.Collection(recordCollection).CountDocuments(ctx, bson.M{"group_id": id})
	if err != nil {
		return errors.Wrap(err, "counting group records")
	}
	if n > 0 {
		return group.ErrHasRecords
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	if res.DeletedCount == 0 {
		return group.ErrNotFound
	}
	return nil
}

func (repo *groupRepository) CountMembers(ctx context.Context, id string) (int, error) {
	g, err := repo.GetGroup(ctx, group.GetFilter{ID: id})
	if err != nil {
		return 0, err
	}
	n, err := repo.db.Collection(traineeCollection).CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"group_id": id},
		bson.M{"group_id": "", "group_name": g.Name},
	}})
	if err != nil {
		return 0, errors.Wrap(err, "counting group members")
	}
	return int(n), nil
}
