// Package user holds the dashboard accounts: their roles, the remote login and the
// repository used by the development backend.
package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
)

const loginPath = "auth/login"

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
)

// Repository stores accounts; implemented by storage/inmem.
type Repository interface {
	CreateUser(usr User) (User, error)
	GetUserByID(id int) (User, error)
	GetUserByUsernameOrEmail(username string) (User, error)
	SetLastLogin(id int, at time.Time) (User, error)
}

// NewUser contains the information needed to create an account.
type NewUser struct {
	Name     string   `json:"name" validate:"required,notblank"`
	Username string   `json:"username" validate:"required,min=4,alphanum_"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Roles    []string `json:"roles" validate:"omitempty,dive,notblank"`
}

// Create validates nu and stores it with a hashed password.
func Create(repo Repository, v *core.Validator, nu NewUser) (User, error) {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if err := v.Struct(nu); err != nil {
		return User{}, err
	}
	if _, err := repo.GetUserByUsernameOrEmail(nu.Username); err == nil {
		return User{}, core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
	}

	usr := User{Name: nu.Name, Username: nu.Username, Email: nu.Email, IsActive: true, Roles: nu.Roles}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return repo.CreateUser(usr)
}

// Authenticate checks c against the stored accounts.
func Authenticate(repo Repository, c Credentials) (User, error) {
	usr, err := repo.GetUserByUsernameOrEmail(core.CleanString(c.Username, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(c.Password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr, err = repo.SetLastLogin(usr.ID, time.Now().UTC())
	return usr, errors.Wrap(err, "setting lastLogin")
}

// Service logs dashboard users in against the remote API.
type Service struct {
	api      *apiclient.Client
	validate *core.Validator
}

func NewService(api *apiclient.Client, v *core.Validator) *Service {
	return &Service{api: api, validate: v}
}

// Login forwards c to the remote API and returns the account it belongs to.
func (svc *Service) Login(ctx context.Context, c Credentials) (Session, error) {
	if err := c.Validate(svc.validate); err != nil {
		return Session{}, err
	}
	raw, err := svc.api.Post(ctx, loginPath, c, svc.api.ShortTimeout())
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := apiclient.Decode(raw, &s); err != nil {
		return Session{}, errors.Wrap(err, "user.Login")
	}
	return s, nil
}
