package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/schedule"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/core/user"
)

type (
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		Gate      *auth.Gate
		Users     *user.Service
		Teachers  *teacher.Service
		Groups    *group.Service
		Trainees  *trainee.Service
		Absences  *absence.Service
		Schedules *schedule.Service
	}

	Server struct {
		deps     Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps Deps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())
	if conf.Server.MaxUploadSize != "" {
		s.app.Use(middleware.BodyLimit(conf.Server.MaxUploadSize))
	}

	s.app.HTTPErrorHandler = s.newAppHTTPErrorHandler(s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	jwtMw := middleware.JWTWithConfig(s.jwtConfig())

	registerAuthAPI(s, api, jwtMw)
	registerUserAPI(s, api.Group("/users", jwtMw))
	registerTraineeAPI(s, api.Group("/trainees", jwtMw))
	registerGroupAPI(s, api.Group("/groups", jwtMw))
	registerTeacherAPI(s, api.Group("/teachers", jwtMw))
	registerAbsenceAPI(s, api.Group("/absences", jwtMw))
	registerScheduleAPI(s, api.Group("/schedules", jwtMw))
}

// Start serves until the server is shut down. Listener errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the app to stop gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return respondMessage(ctx, http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
