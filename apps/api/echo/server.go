// Package echoapi serves the admin dashboard: screen views, entity actions and
// cache control over the remote school API.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/apps/shared"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/cache"
	"github.com/trezcool/masomo-admin/core/message"
	"github.com/trezcool/masomo-admin/core/offer"
	"github.com/trezcool/masomo-admin/core/recruitment"
	"github.com/trezcool/masomo-admin/core/schoolyear"
	"github.com/trezcool/masomo-admin/core/screen"
	"github.com/trezcool/masomo-admin/core/student"
	"github.com/trezcool/masomo-admin/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validator      *core.Validator
		Cache          *cache.Cache
		Screens        *screen.Registry
		UserSvc        *user.Service
		SchoolYearSvc  *schoolyear.Service
		StudentSvc     *student.Service
		OfferSvc       *offer.Service
		RecruitmentSvc *recruitment.Service
		MessageSvc     *message.Service
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		sources  map[string]shared.Source
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = core.NopLogger{}
	}
	if deps.Validator == nil {
		deps.Validator = core.NewValidator(deps.Conf.Lang)
	}
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.sources = shared.NewSources(deps.SchoolYearSvc, deps.StudentSvc, deps.OfferSvc, deps.RecruitmentSvc, deps.MessageSvc)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	} else {
		s.app.Logger.SetLevel(log.INFO)
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s)

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1", rateLimitMiddleware(conf.Server.RateLimit, conf.Server.RateBurst))
	v1.POST("/auth/login", s.login)

	ag := v1.Group("", middleware.JWTWithConfig(jwtConfig(conf)), adminMiddleware())
	ag.POST("/auth/token-refresh", s.refreshToken)
	ag.GET("/screens", s.listScreens)
	ag.GET("/screens/:screen", s.viewScreen)
	ag.DELETE("/cache", s.clearCache)

	s.registerSchoolYearAPI(ag.Group("/" + schoolyear.Entity))
	s.registerStudentAPI(ag.Group("/" + student.Entity))
	s.registerOfferAPI(ag.Group("/" + offer.Entity))
	s.registerRecruitmentAPI(ag.Group("/" + recruitment.Entity))
	s.registerMessageAPI(ag.Group("/" + message.Entity))
}

// Start listens on the configured address; failures are reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && errors.Cause(err) != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

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
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+"!")
}
