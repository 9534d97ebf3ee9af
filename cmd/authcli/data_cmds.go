package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/spf13/cobra"
)

func usersCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users (admin or manager)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				members, err := a.directory.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLES\tSTATUS\tVERIFIED")
				for _, m := range members {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", m.ID, m.Name, m.Email, strings.Join(m.Roles, ","), m.Status, m.EmailVerified)
				}
				return tw.Flush()
			})
		},
	}
}

func routesCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show which application routes the current session may open",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, opts, func(ctx context.Context, a *app) error {
				a.session.Boot(ctx)
				state := a.session.State()
				g := guard.Guard{}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Session: %s\n\n", state.Status())
				fmt.Fprintln(tw, "PATH\tPAGE\tDECISION\tLOCATION")
				for _, r := range guard.Routes {
					d := g.Check(state, r.Path)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Path, r.Name, d.Outcome, d.Location)
				}

				nav := []string{}
				for _, item := range guard.Navigation(state) {
					nav = append(nav, item.Name)
				}
				fmt.Fprintf(tw, "\nNavigation: %s\n", strings.Join(nav, ", "))
				return tw.Flush()
			})
		},
	}
}
