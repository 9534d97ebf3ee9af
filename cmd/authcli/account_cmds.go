package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/spf13/cobra"
)

func signupCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	var form auth.SignUpForm

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if form.ConfirmPassword == "" {
				form.ConfirmPassword = form.Password
			}
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				target, err := a.auth.SignUp(ctx, form)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account created, verify your email then continue at %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm", "", "Password confirmation (defaults to --password)")
	return cmd
}

func forgotPasswordCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	var form auth.ForgotPasswordForm

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				target, err := a.auth.ForgotPassword(ctx, form)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Check your email, then continue at %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	return cmd
}

func resetPasswordCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	var form auth.ResetPasswordForm

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if form.ConfirmPassword == "" {
				form.ConfirmPassword = form.Password
			}
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				target, err := a.auth.ResetPassword(ctx, form)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password updated, continue at %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.Token, "token", "", "Reset token from the email")
	cmd.Flags().StringVar(&form.Password, "password", "", "New password")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm", "", "Password confirmation (defaults to --password)")
	return cmd
}
