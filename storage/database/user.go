package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core/user"
)

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// CreateUser inserts the account. Registrations spike together, so inserts
// are serialized in-process and retried on lock contention with the gentler
// registration profile; the unique indexes are the final word on duplicates.
func (repo *UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.store.regMu.Lock()
	defer repo.store.regMu.Unlock()

	id, err := repo.store.insertID(ctx, registrationRetry,
		`INSERT INTO users (nome, email, matricula, telefone, username, senha_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		usr.Nome, usr.Email, usr.Matricula, usr.Telefone, usr.Username, usr.PasswordHash, usr.CreatedAt)
	if err != nil {
		if dupErr := duplicateUserError(err); dupErr != nil {
			return user.User{}, dupErr
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

// duplicateUserError maps a unique-violation from either engine to the
// matching sentinel, or nil if err is something else.
func duplicateUserError(err error) error {
	cause := errors.Cause(err)

	var sqliteErr sqlite3.Error
	if errors.As(cause, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch {
		case strings.Contains(sqliteErr.Error(), "users.email"):
			return user.ErrEmailExists
		case strings.Contains(sqliteErr.Error(), "users.matricula"):
			return user.ErrMatriculaExists
		}
		return nil
	}

	var pqErr *pq.Error
	if errors.As(cause, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "email"):
			return user.ErrEmailExists
		case strings.Contains(pqErr.Constraint, "matricula"):
			return user.ErrMatriculaExists
		}
	}
	return nil
}

func (repo *UserRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	var usr user.User
	err := repo.store.get(ctx, &usr, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo *UserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	err := repo.store.get(ctx, &usr, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by email")
	}
	return usr, nil
}

func (repo *UserRepository) GetUserByMatricula(ctx context.Context, matricula string) (user.User, error) {
	var usr user.User
	err := repo.store.get(ctx, &usr, `SELECT * FROM users WHERE matricula = ?`, matricula)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by matricula")
	}
	return usr, nil
}

func (repo *UserRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	err := repo.store.selectAll(ctx, &users, `SELECT * FROM users ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *UserRepository) UpdateProfile(ctx context.Context, id int64, nome, username string) error {
	res, err := repo.store.exec(ctx, `UPDATE users SET nome = ?, username = ? WHERE id = ?`, nome, username, id)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *UserRepository) UpdatePasswordByEmail(ctx context.Context, email, hash string) error {
	res, err := repo.store.exec(ctx, `UPDATE users SET senha_hash = ? WHERE email = ?`, hash, email)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}
