package dig_container

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/presence/apps/api/echo"
	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/schedule"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/core/user"
	emailsvc "github.com/trezcool/presence/services/email"
	logsvc "github.com/trezcool/presence/services/logger"
	"github.com/trezcool/presence/storage/database"
)

// DBLoggerParam is the logger tagged for the storage layer.
type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams gathers everything the API server needs.
type ServerParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	Gate      *auth.Gate
	Users     *user.Service
	Teachers  *teacher.Service
	Groups    *group.Service
	Trainees  *trainee.Service
	Absences  *absence.Service
	Schedules *schedule.Service
}

func newNamedLogger(service string) func(conf *core.Config) (core.Logger, error) {
	return func(conf *core.Config) (core.Logger, error) {
		zl, err := logsvc.NewZap(conf.Log, service)
		if err != nil {
			return nil, err
		}
		logger := logsvc.NewRollbarLogger(zl, conf)
		logger.Enable(!conf.Debug)
		return logger, nil
	}
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) *database.Repositories {
	repos, err := database.NewRepositories(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal("setting up database", err)
	}
	loggerParam.Logger.Info("database ready: " + repos.Engine)
	return repos
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newAbsenceService(repos *database.Repositories, grps *group.Service, trns *trainee.Service, tchrs *teacher.Service) *absence.Service {
	return absence.NewService(repos.Absences, grps, trns, tchrs)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Gate:       p.Gate,
		Users:      p.Users,
		Teachers:   p.Teachers,
		Groups:     p.Groups,
		Trainees:   p.Trainees,
		Absences:   p.Absences,
		Schedules:  p.Schedules,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newNamedLogger("api")))
	must(c.Provide(newNamedLogger("db"), dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	must(c.Provide(func(r *database.Repositories) *user.Service { return user.NewService(r.Users) }))
	must(c.Provide(func(r *database.Repositories) *group.Service { return group.NewService(r.Groups) }))
	must(c.Provide(func(r *database.Repositories, grps *group.Service, mail core.EmailService) *teacher.Service {
		return teacher.NewService(r.Teachers, grps, mail)
	}))
	must(c.Provide(func(r *database.Repositories, grps *group.Service) *trainee.Service {
		return trainee.NewService(r.Trainees, grps)
	}))
	must(c.Provide(newAbsenceService))
	must(c.Provide(func(r *database.Repositories, tchrs *teacher.Service, grps *group.Service) *schedule.Service {
		return schedule.NewService(r.Schedules, tchrs, grps)
	}))
	must(c.Provide(auth.NewGate))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
