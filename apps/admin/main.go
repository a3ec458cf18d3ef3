package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/presence/core"
	logsvc "github.com/trezcool/presence/services/logger"
	"github.com/trezcool/presence/storage/database"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf.Log, "admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	lgr := logsvc.NewRollbarLogger(zl, conf)
	lgr.Enable(!conf.Debug)
	defer lgr.Sync()
	logger = lgr

	repos, err := openRepositories(conf)
	errAndDie(err)

	cli := commandLine{
		users:    repos.Users,
		teachers: repos.Teachers,
	}
	if repos.SQL != nil {
		cli.db = repos.SQL.DB
	}
	err = cli.run(os.Args)
	if cerr := repos.Close(); cerr != nil {
		logger.Error("closing database", cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

// openRepositories connects to the configured engine. Postgres is not migrated here: that is `migrate`'s job.
func openRepositories(conf *core.Config) (*database.Repositories, error) {
	if conf.Database.Engine != core.EnginePostgres {
		return database.NewRepositories(context.Background(), conf)
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	return database.NewPostgresRepositories(db), nil
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
