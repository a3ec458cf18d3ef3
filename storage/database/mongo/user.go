package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/user"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	Role         string    `bson:"role"`
	IsActive     bool      `bson:"is_active"`
	PasswordHash []byte    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
	LastLogin    time.Time `bson:"last_login,omitempty"`
}

func toUserDoc(u user.User) userDoc {
	return userDoc(u)
}

func (d userDoc) user() user.User {
	u := user.User(d)
	u.CreatedAt, u.UpdatedAt = u.CreatedAt.UTC(), u.UpdatedAt.UTC()
	if !u.LastLogin.IsZero() {
		u.LastLogin = u.LastLogin.UTC()
	}
	return u
}

type userRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{coll: db.Collection(userCollection)}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	filter := bson.M{"email": email}
	if len(excludedIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludedIDs}
	}
	n, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if n > 0 {
		return core.NewDuplicateError("user", "email", email)
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, toUserDoc(usr)); err != nil {
		if _, dup := duplicateKey(err); dup {
			return user.User{}, core.NewDuplicateError("user", "email", usr.Email)
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]user.User, int, error) {
	f := bson.M{}
	if filter != nil {
		if filter.Search != "" {
			f = searchFilter(filter.Search, "name", "email")
		}
		if filter.Role != "" {
			f["role"] = filter.Role
		}
		if filter.IsActive != nil {
			f["is_active"] = *filter.IsActive
		}
	}

	var docs []userDoc
	total, err := findPage(ctx, repo.coll, &docs, f, findOptions(ordering, page, core.DBOrdering{Field: "name", Ascending: true}))
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, total, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var f bson.M
	switch {
	case filter.ID != "":
		f = bson.M{"_id": filter.ID}
	case filter.Email != "":
		f = bson.M{"email": filter.Email}
	default:
		return user.User{}, user.ErrNotFound
	}

	var doc userDoc
	if err := repo.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return doc.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": usr.ID}, toUserDoc(usr))
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return user.User{}, core.NewDuplicateError("user", "email", usr.Email)
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string) (int, error) {
	res, err := repo.coll.DeleteMany(ctx, bson.M{"_id": inFilter(ids)})
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(res.DeletedCount), nil
}
