package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrMatriculaExists    = errors.New("matricula already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		// CreateUser inserts usr and returns it with its ID set. Uniqueness
		// violations surface as ErrEmailExists / ErrMatriculaExists.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByMatricula(ctx context.Context, matricula string) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		UpdateProfile(ctx context.Context, id int64, nome, username string) error
		UpdatePasswordByEmail(ctx context.Context, email, hash string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger, conf: conf}
}

// Register creates a new account. Email and matricula must both be unused;
// the pre-checks keep the common path friendly, the unique indexes settle races.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if _, err := svc.repo.GetUserByEmail(ctx, nu.Email); err == nil {
		return User{}, core.NewConflictError("email", ErrEmailExists)
	} else if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "checking email")
	}
	if _, err := svc.repo.GetUserByMatricula(ctx, nu.Matricula); err == nil {
		return User{}, core.NewConflictError("matricula", ErrMatriculaExists)
	} else if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "checking matricula")
	}

	usr := User{
		Nome:      nu.Nome,
		Email:     nu.Email,
		Matricula: nu.Matricula,
		Telefone:  nu.Telefone,
		Username:  GenerateUsername(nu.Nome),
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Senha); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		switch errors.Cause(err) {
		case ErrEmailExists:
			return User{}, core.NewConflictError("email", ErrEmailExists)
		case ErrMatriculaExists:
			return User{}, core.NewConflictError("matricula", ErrMatriculaExists)
		}
		return User{}, err
	}
	return usr, nil
}

// Authenticate checks email+password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (svc *Service) Authenticate(ctx context.Context, email, senha string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(senha); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

// ResetPassword sets a new password for the account registered under rp.Email
// and fires a best-effort notification email.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	usr, err := svc.repo.GetUserByEmail(ctx, rp.Email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(rp.NovaSenha); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	if err = svc.repo.UpdatePasswordByEmail(ctx, rp.Email, usr.PasswordHash); err != nil {
		return errors.Wrap(err, "updating password")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Nome, Address: usr.Email}},
		Subject: "Password changed",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nThe password for your %s account was just changed. "+
				"If this was not you, contact support immediately.\n", usr.Nome, svc.conf.AppName),
	})
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) UpdateProfile(ctx context.Context, id int64, up UpdateProfile) error {
	return svc.repo.UpdateProfile(ctx, id, up.Nome, up.Username)
}
