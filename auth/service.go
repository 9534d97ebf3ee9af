package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/rs/zerolog/log"
)

// Destinations after a completed flow.
const (
	PathSignIn = "/auth/sign-in"
	PathReset  = "/auth/reset"

	MessageVerifyEmail  = "verify-email"
	MessageResetSuccess = "reset-success"
)

// Session is the part of the session manager the flows drive.
type Session interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string, name *string) error
}

// PasswordAPI covers the password recovery calls.
type PasswordAPI interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) error
}

// Service runs the authentication forms: validate, call out, and decide where
// the user goes next.
type Service struct {
	session   Session
	passwords PasswordAPI
	validator *Validator
}

func NewService(session Session, passwords PasswordAPI) *Service {
	return &Service{
		session:   session,
		passwords: passwords,
		validator: NewValidator(),
	}
}

// SignIn returns the return target: from (where the guard redirected from),
// then next (the query parameter), then home.
func (s *Service) SignIn(ctx context.Context, form SignInForm, from, next string) (string, error) {
	if err := s.validator.ValidateSignIn(form); err != nil {
		return "", err
	}
	if err := s.session.SignIn(ctx, form.Email, form.Password); err != nil {
		return "", fmt.Errorf("[Service SignIn] %w", err)
	}
	return guard.ReturnTarget(from, next), nil
}

// SignUp registers the account and sends the user to sign in once the email
// is verified.
func (s *Service) SignUp(ctx context.Context, form SignUpForm) (string, error) {
	if err := s.validator.ValidateSignUp(form); err != nil {
		return "", err
	}
	if err := s.session.SignUp(ctx, form.Email, form.Password, utils.NonEmptyPtr(form.Name)); err != nil {
		return "", fmt.Errorf("[Service SignUp] %w", err)
	}
	log.Info().Str("email", form.Email).Msg("account registered")
	return signInWithMessage(MessageVerifyEmail), nil
}

func (s *Service) ForgotPassword(ctx context.Context, form ForgotPasswordForm) (string, error) {
	if err := s.validator.ValidateForgotPassword(form); err != nil {
		return "", err
	}
	if err := s.passwords.ForgotPassword(ctx, form.Email); err != nil {
		return "", fmt.Errorf("[Service ForgotPassword] %w", err)
	}
	return PathReset, nil
}

func (s *Service) ResetPassword(ctx context.Context, form ResetPasswordForm) (string, error) {
	if err := s.validator.ValidateResetPassword(form); err != nil {
		return "", err
	}
	if err := s.passwords.ResetPassword(ctx, form.Token, form.Password); err != nil {
		return "", fmt.Errorf("[Service ResetPassword] %w", err)
	}
	return signInWithMessage(MessageResetSuccess), nil
}

func signInWithMessage(msg string) string {
	return PathSignIn + "?" + url.Values{"msg": {msg}}.Encode()
}
