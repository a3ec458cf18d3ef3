package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/schedule"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/core/user"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	mongorepos "github.com/trezcool/presence/storage/database/mongo"
	pgrepos "github.com/trezcool/presence/storage/database/postgres"
)

var ErrUnknownEngine = errors.New("unknown database engine")

// Repositories is the set of repositories backed by one storage engine.
type Repositories struct {
	Engine    string
	Users     user.Repository
	Teachers  teacher.Repository
	Groups    group.Repository
	Trainees  trainee.Repository
	Absences  absence.Repository
	Schedules schedule.Repository

	// SQL is set for the postgres engine only.
	SQL   *sqlx.DB
	close func() error
}

// NewRepositories connects to the configured engine and builds its repositories.
// The postgres database is created and migrated if needed.
func NewRepositories(ctx context.Context, conf *core.Config) (*Repositories, error) {
	switch conf.Database.Engine {
	case core.EngineMemory:
		return NewInMemRepositories(inmemdb.Open()), nil

	case core.EnginePostgres, "":
		if err := CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := Open(conf)
		if err != nil {
			return nil, err
		}
		if err = Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgresRepositories(db), nil

	case core.EngineMongo:
		client, db, err := OpenMongo(ctx, conf)
		if err != nil {
			return nil, err
		}
		return NewMongoRepositories(client, db), nil

	default:
		return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
	}
}

func NewInMemRepositories(db *inmemdb.DB) *Repositories {
	return &Repositories{
		Engine:    core.EngineMemory,
		Users:     inmemdb.NewUserRepository(db),
		Teachers:  inmemdb.NewTeacherRepository(db),
		Groups:    inmemdb.NewGroupRepository(db),
		Trainees:  inmemdb.NewTraineeRepository(db),
		Absences:  inmemdb.NewAbsenceRepository(db),
		Schedules: inmemdb.NewScheduleRepository(db),
		close:     func() error { return nil },
	}
}

func NewPostgresRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Engine:    core.EnginePostgres,
		Users:     pgrepos.NewUserRepository(db),
		Teachers:  pgrepos.NewTeacherRepository(db),
		Groups:    pgrepos.NewGroupRepository(db),
		Trainees:  pgrepos.NewTraineeRepository(db),
		Absences:  pgrepos.NewAbsenceRepository(db),
		Schedules: pgrepos.NewScheduleRepository(db),
		SQL:       db,
		close:     db.Close,
	}
}

func NewMongoRepositories(client *mongo.Client, db *mongo.Database) *Repositories {
	return &Repositories{
		Engine:    core.EngineMongo,
		Users:     mongorepos.NewUserRepository(db),
		Teachers:  mongorepos.NewTeacherRepository(db),
		Groups:    mongorepos.NewGroupRepository(db),
		Trainees:  mongorepos.NewTraineeRepository(db),
		Absences:  mongorepos.NewAbsenceRepository(db),
		Schedules: mongorepos.NewScheduleRepository(db),
		close:     func() error { return client.Disconnect(context.Background()) },
	}
}

// Close releases the engine's connections.
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}
