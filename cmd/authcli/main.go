package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd(config.New())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", auth.ErrorMessage(err))
		os.Exit(1)
	}
}

type rootOptions struct {
	apiURL  string
	metrics bool
}

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "authcli",
		Short: "Client-side session management for the auth API",
		Long: `authcli signs in against the auth API, keeps the token pair in the
configured token store and sends authenticated requests, refreshing the
access token when the server rejects it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "API base URL (default $API_URL)")
	rootCmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Print client metrics after the command")

	rootCmd.AddCommand(
		loginCmd(cfg, opts),
		logoutCmd(cfg, opts),
		whoamiCmd(cfg, opts),
		statusCmd(cfg, opts),
		usersCmd(cfg, opts),
		signupCmd(cfg, opts),
		forgotPasswordCmd(cfg, opts),
		resetPasswordCmd(cfg, opts),
		routesCmd(cfg, opts),
		devAPICmd(cfg),
	)
	return rootCmd
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
