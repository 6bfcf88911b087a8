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

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/core/expense"
	"github.com/trezcool/kampus/core/grade"
	"github.com/trezcool/kampus/core/prefs"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/services/realtime"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Mailer         core.EmailService
		DisableReqLogs bool

		UserSvc       *user.Service
		CourseSvc     *course.Service
		GradeSvc      *grade.Service
		AttendanceSvc *attendance.Service
		DatingSvc     *dating.Service
		ExpenseSvc    *expense.Service
		PrefsSvc      *prefs.Service
		Hub           *realtime.Hub
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
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
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.Server.FrontendBaseURL},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	auth := newAuthenticator(conf, s.deps.UserSvc)

	registerUserAPI(v1, auth, s.deps.UserSvc)
	registerCourseAPI(v1, auth, s.deps.CourseSvc)
	registerGradeAPI(v1, auth, s.deps.GradeSvc, s.deps.UserSvc, s.deps.Mailer)
	registerAttendanceAPI(v1, auth, s.deps.AttendanceSvc)
	registerDatingAPI(v1, auth, s.deps.DatingSvc, s.deps.Hub, s.deps.Logger, conf)
	registerExpenseAPI(v1, auth, s.deps.ExpenseSvc)
	registerPrefsAPI(v1, auth, s.deps.PrefsSvc)
}

// Start blocks until the server stops. Listen errors are sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
