package auth

import (
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

// Form field names used as ValidationErrors keys.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldToken           = "token"
)

type SignInForm struct {
	Email    string
	Password string
}

type SignUpForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

type ForgotPasswordForm struct {
	Email string
}

type ResetPasswordForm struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// ValidationErrors maps a form field to the message shown next to it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return autherrors.ErrValidation
}

func (v ValidationErrors) errOrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Validator holds the field rules of the authentication forms.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateSignIn(form SignInForm) error {
	errs := ValidationErrors{}
	v.checkEmail(errs, form.Email)
	if form.Password == "" {
		errs[FieldPassword] = "Password is required"
	}
	return errs.errOrNil()
}

func (v *Validator) ValidateSignUp(form SignUpForm) error {
	errs := ValidationErrors{}
	if utf8.RuneCountInString(strings.TrimSpace(form.Name)) < 2 {
		errs[FieldName] = "Enter your name"
	}
	v.checkEmail(errs, form.Email)
	v.checkNewPassword(errs, form.Password, form.ConfirmPassword)
	return errs.errOrNil()
}

func (v *Validator) ValidateForgotPassword(form ForgotPasswordForm) error {
	errs := ValidationErrors{}
	v.checkEmail(errs, form.Email)
	return errs.errOrNil()
}

func (v *Validator) ValidateResetPassword(form ResetPasswordForm) error {
	errs := ValidationErrors{}
	if strings.TrimSpace(form.Token) == "" {
		errs[FieldToken] = "Reset token is missing"
	}
	v.checkNewPassword(errs, form.Password, form.ConfirmPassword)
	return errs.errOrNil()
}

// ValidateEmail accepts a bare address, without a display name.
func (v *Validator) ValidateEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (v *Validator) checkEmail(errs ValidationErrors, email string) {
	if !v.ValidateEmail(email) {
		errs[FieldEmail] = "Invalid email"
	}
}

func (v *Validator) checkNewPassword(errs ValidationErrors, password, confirm string) {
	switch err := users.ValidatePasswordStrength(password); err {
	case nil:
	case users.ErrPasswordTooShort:
		errs[FieldPassword] = "Min 8 characters"
	case users.ErrPasswordNoNumber:
		errs[FieldPassword] = "Add a number"
	case users.ErrPasswordNoUpper:
		errs[FieldPassword] = "Add an uppercase"
	default:
		errs[FieldPassword] = err.Error()
	}
	if password != confirm {
		errs[FieldConfirmPassword] = "Passwords do not match"
	}
}
