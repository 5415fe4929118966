package rest

import (
	"github.com/dmitrijs2005/authkeeper/internal/api"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Column widths of the users table.
const (
	maxUsernameLen = 50
	maxEmailLen    = 100
)

func validateRegister(r *api.RegisterRequest) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, maxUsernameLen)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmailLen), is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type loginForm struct {
	Username string
	Password string
}

func validateLogin(f *loginForm) error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Username, validation.Required),
		validation.Field(&f.Password, validation.Required),
	)
}
