// Package echodev serves, from memory, the REST API consumed by the dashboard.
package echodev

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/user"
	inmemdb "github.com/trezcool/masomo-admin/storage/inmem"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "authentification requise")
	errNotFound     = echo.NewHTTPError(http.StatusNotFound, "ressource introuvable")
)

type (
	Options struct {
		// Token is the service token accepted on every route besides the login.
		Token          string
		DisableReqLogs bool
	}

	Server struct {
		opts  Options
		app   *echo.Echo
		db    *inmemdb.DB
		users user.Repository

		mu       sync.RWMutex
		sessions map[string]int // token: user id
	}
)

func NewServer(db *inmemdb.DB, opts Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		db:       db,
		users:    inmemdb.NewUserRepository(db),
		sessions: make(map[string]int),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.HTTPErrorHandler = httpErrorHandler

	g := s.app.Group("/api")
	g.POST("/auth/login", s.login)

	authed := g.Group("", s.tokenMiddleware)
	for _, res := range resources {
		res.register(authed, s.db.Table(res.name))
	}

	authed.PUT("/annees-scolaires/:id/activer", s.activateSchoolYear)
	authed.PUT("/eleves/:id/valider", s.transition(inmemdb.Students, "statut", "INSCRIPTION", inmemdb.Row{"statut": "VALIDE", "motifRejet": ""}))
	authed.PUT("/eleves/:id/rejeter", s.rejectWithReason(inmemdb.Students, "INSCRIPTION", "motifRejet"))
	authed.POST("/eleves/:id/photo", s.uploadPhoto)
	authed.GET("/eleves/:id/photo", s.downloadPhoto)
	authed.DELETE("/eleves/:id/photo", s.deletePhoto)
	authed.PUT("/offres/:id/cloturer", s.transition(inmemdb.Offers, "statut", "OUVERTE", inmemdb.Row{"statut": "FERMEE"}))
	authed.PUT("/recrutements/:id/accepter", s.transition(inmemdb.Recruitments, "statut", "EN_ATTENTE", inmemdb.Row{"statut": "ACCEPTE"}))
	authed.PUT("/recrutements/:id/rejeter", s.rejectWithReason(inmemdb.Recruitments, "EN_ATTENTE", "motif"))
	authed.PUT("/messages/:id/lu", s.markRead)
	authed.POST("/messages/:id/repondre", s.reply)
}

func (s *Server) Start(addr string) error {
	return s.app.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) tokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer"))
		if token == "" {
			return errUnauthorized
		}
		if s.opts.Token != "" && token == s.opts.Token {
			return next(ctx)
		}
		s.mu.RLock()
		_, ok := s.sessions[token]
		s.mu.RUnlock()
		if !ok {
			return errUnauthorized
		}
		return next(ctx)
	}
}

func (s *Server) login(ctx echo.Context) error {
	var creds user.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "corps de requête invalide")
	}
	usr, err := user.Authenticate(s.users, creds)
	switch errors.Cause(err) {
	case nil:
	case user.ErrInvalidCredentials:
		return echo.NewHTTPError(http.StatusUnauthorized, "identifiants invalides")
	case user.ErrAccountDeactivated:
		return echo.NewHTTPError(http.StatusForbidden, "compte désactivé")
	default:
		return err
	}

	token := uuid.New().String()
	s.mu.Lock()
	s.sessions[token] = usr.ID
	s.mu.Unlock()
	return ctx.JSON(http.StatusOK, user.Session{Token: token, User: usr})
}

func httpErrorHandler(err error, ctx echo.Context) {
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	if he, ok := errors.Cause(err).(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		ctx.Logger().Error(err)
	}
	if ctx.Response().Committed {
		return
	}
	if ctx.Request().Method == http.MethodHead {
		_ = ctx.NoContent(code)
		return
	}
	_ = ctx.JSON(code, echo.Map{"message": message})
}
