package echoapi

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
	"github.com/trezcool/masomo-admin/core/user"
)

const (
	contextTokenKey = "userToken"
	audience        = "Masomo Admin"
)

var (
	authFailedKey = core.DefineTexts("api.auth.failed", core.Texts{
		"en": "authentication failed",
		"fr": "identifiants invalides",
	})
	notAdminKey = core.DefineTexts("api.auth.not_admin", core.Texts{
		"en": "this account has no access to the dashboard",
		"fr": "ce compte n'a pas accès au tableau de bord",
	})
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// Person identifies the token holder in error reports.
func (c Claims) Person() core.Person {
	return core.Person{ID: c.Subject, Username: c.Username, Email: c.Email}
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims builds the claims of usr. origIat keeps the first issue time across refreshes.
func NewClaims(usr user.User, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) && claims.Roles[i] == role {
				return true
			}
		}
	}
	return false
}

type (
	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}
)

func (s *Server) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	session, err := s.deps.UserSvc.Login(ctx.Request().Context(), data)
	if err != nil {
		switch apiclient.HTTPStatus(err) {
		case http.StatusUnauthorized, http.StatusNotFound:
			return echo.NewHTTPError(http.StatusBadRequest, s.deps.Validator.T(authFailedKey))
		case http.StatusForbidden:
			return echo.NewHTTPError(http.StatusForbidden, s.deps.Validator.T(notAdminKey))
		}
		return err
	}
	if !session.User.IsAdmin() || !session.User.IsActive {
		return echo.NewHTTPError(http.StatusForbidden, s.deps.Validator.T(notAdminKey))
	}

	token, err := GenerateToken(NewClaims(session.User, s.deps.Conf), s.deps.Conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	s.deps.Logger.Info("dashboard login", session.User.Person())
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: session.User})
}

// refreshToken renews a valid token until JWTRefreshExpirationDelta has passed since the login.
func (s *Server) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.deps.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	id, _ := strconv.Atoi(claims.Subject)
	usr := user.User{ID: id, Username: claims.Username, Email: claims.Email, Roles: claims.Roles, IsActive: true}
	token, err := GenerateToken(NewClaims(usr, s.deps.Conf, claims.OrigIssuedAt), s.deps.Conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}
