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
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/cohort"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/report"
	"github.com/trezcool/cblms/core/submission"
	"github.com/trezcool/cblms/core/trash"
	"github.com/trezcool/cblms/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		// rate limiting is off when a store is nil
		RateLimitStore     middleware.RateLimiterStore
		AuthRateLimitStore middleware.RateLimiterStore

		UserSvc       *user.Service
		CohortSvc     *cohort.Service
		ClassSvc      *class.Service
		AssignmentSvc *assignment.Service
		SubmissionSvc *submission.Service
		CompetencySvc *competency.Service
		ReportSvc     *report.Service
		TrashSvc      *trash.Service
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
	s.app.HidePort = true
	s.app.Debug = conf.Debug
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	} else {
		s.app.Logger.SetLevel(log.ERROR)
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if !conf.TestMode {
		s.app.Use(requestLogger(s.deps.Logger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	api := s.app.Group("/api", rateLimiter(s.deps.RateLimitStore))
	api.GET("/health", s.health)

	authn := authenticate(s.deps.Conf.SecretKey, s.deps.UserSvc)
	registerAuthAPI(api, authn, s.deps)
	registerUserAPI(api, authn, s.deps)
	registerCohortAPI(api, authn, s.deps)
	registerClassAPI(api, authn, s.deps)
	registerAssignmentAPI(api, authn, s.deps)
	registerSubmissionAPI(api, authn, s.deps)
	registerCompetencyAPI(api, authn, s.deps)
	registerReportAPI(api, authn, s.deps)
	registerTrashAPI(api, authn, s.deps)
}

// Start blocks until the server stops. Failures are reported on Errors.
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Address())
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) health(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, echo.Map{
		"status": "ok",
		"app":    s.deps.Conf.AppName,
		"build":  s.deps.Conf.Build,
		"time":   core.NowFunc(),
	})
}
