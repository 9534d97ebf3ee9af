package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/spf13/cobra"
)

// runWithApp wires the client stack for one command invocation.
func runWithApp(cmd *cobra.Command, cfg config.Config, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(ctx, a)
	if opts.metrics {
		a.printMetrics(cmd.ErrOrStderr())
	}
	return err
}

func loginCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	var form auth.SignInForm
	var next string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				target, err := a.auth.SignIn(ctx, form, "", next)
				if err != nil {
					return err
				}
				user := a.session.State().User
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s, continue at %s\n", user.DisplayName(), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&next, "next", "", "Location to continue at after sign in")
	return cmd
}

func logoutCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				if err := a.session.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func whoamiCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Restore the session and print the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				a.session.Boot(ctx)
				state := a.session.State()
				if state.Status() != sessions.StatusAuthenticated {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
					return nil
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:    %s\n", state.User.ID)
				fmt.Fprintf(out, "Email: %s\n", state.User.Email)
				fmt.Fprintf(out, "Name:  %s\n", state.User.DisplayName())
				fmt.Fprintf(out, "Roles: %v\n", state.User.Roles)
				return nil
			})
		},
	}
}

func statusCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored token pair without contacting the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				pair := a.store.Read(ctx)
				if pair == nil {
					fmt.Fprintln(out, "No stored session")
					return nil
				}
				fmt.Fprintf(out, "Store key:     %s\n", a.store.Key())
				fmt.Fprintf(out, "Refresh token: %t\n", pair.RefreshToken != "")
				if exp, ok := pair.Expiry(); ok {
					fmt.Fprintf(out, "Access expiry: %s (%s)\n", exp.Format(time.RFC3339), describeExpiry(time.Until(exp)))
				} else {
					fmt.Fprintln(out, "Access expiry: unknown")
				}
				return nil
			})
		},
	}
}

func describeExpiry(remaining time.Duration) string {
	if remaining <= 0 {
		return "expired"
	}
	return "in " + remaining.Round(time.Second).String()
}
