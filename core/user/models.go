package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/modelaedu/modela/core"
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Nome         string    `json:"nome" db:"nome"`
	Email        string    `json:"email" db:"email"`
	Matricula    string    `json:"matricula" db:"matricula"`
	Telefone     string    `json:"telefone" db:"telefone"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"senha_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pwd))
}

// GenerateUsername derives a login handle from a full name:
// "Ada Maria Lovelace" -> "ada.lovelace", single names are used as-is.
func GenerateUsername(nome string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(nome)))
	if len(parts) == 0 {
		return ""
	}
	if len(parts) >= 2 {
		return parts[0] + "." + parts[len(parts)-1]
	}
	return parts[0]
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Nome      string `json:"nome" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Matricula string `json:"matricula" validate:"required"`
	Telefone  string `json:"telefone"`
	Senha     string `json:"senha" validate:"required"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Nome = core.CleanString(nu.Nome)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Matricula = core.CleanString(nu.Matricula)
	nu.Telefone = core.CleanString(nu.Telefone)
	return validate.Struct(nu)
}

type Credentials struct {
	Email string `json:"email" validate:"required"`
	Senha string `json:"senha" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

type ResetPassword struct {
	Email     string `json:"email" validate:"required"`
	NovaSenha string `json:"novaSenha" validate:"required"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	return validate.Struct(rp)
}

// UpdateProfile defines what information may be provided to modify an existing User.
type UpdateProfile struct {
	Nome     string `json:"nome" validate:"required"`
	Username string `json:"username" validate:"required,alphanum_"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Nome = core.CleanString(up.Nome)
	up.Username = core.CleanString(up.Username, true /* lower */)
	return validate.Struct(up)
}
