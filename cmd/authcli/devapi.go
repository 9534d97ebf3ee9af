package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/fakeapi"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type devAPIOptions struct {
	addr        string
	accessTTL   time.Duration
	rotate      bool
	latency     time.Duration
	seedEmail   string
	seedPass    string
	seedName    string
	seedRoles   []string
	expireEvery time.Duration
}

// devAPICmd serves the in-memory auth API so the other commands can be tried
// without a real backend.
func devAPICmd(cfg config.Config) *cobra.Command {
	opts := devAPIOptions{}

	cmd := &cobra.Command{
		Use:   "dev-api",
		Short: "Run an in-memory auth API for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.addr == "" {
				opts.addr = cfg.GetDevAPIPort()
			}
			return runDevAPI(cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", "", "Listen address (default $DEV_API_PORT)")
	flags.DurationVar(&opts.accessTTL, "access-ttl", 15*time.Minute, "Access token lifetime")
	flags.BoolVar(&opts.rotate, "rotate-refresh", false, "Issue a new refresh token on every refresh")
	flags.DurationVar(&opts.latency, "refresh-latency", 0, "Delay added to refresh responses")
	flags.DurationVar(&opts.expireEvery, "expire-every", 0, "Invalidate all access tokens on this interval")
	flags.StringVar(&opts.seedEmail, "seed-email", "admin@example.com", "Email of the seeded account (empty to skip)")
	flags.StringVar(&opts.seedPass, "seed-password", "Password1", "Password of the seeded account")
	flags.StringVar(&opts.seedName, "seed-name", "Admin", "Name of the seeded account")
	flags.StringSliceVar(&opts.seedRoles, "seed-roles", []string{users.RoleAdmin}, "Roles of the seeded account")
	return cmd
}

func runDevAPI(cfg config.Config, opts devAPIOptions) error {
	displayAppname(cfg.GetAppName())

	api := fakeapi.New(
		fakeapi.WithAccessTokenTTL(opts.accessTTL),
		fakeapi.WithRefreshRotation(opts.rotate),
		fakeapi.WithRefreshLatency(opts.latency),
	)
	if opts.seedEmail != "" {
		user, err := api.AddUser(opts.seedEmail, opts.seedPass, utils.NonEmptyPtr(opts.seedName), opts.seedRoles...)
		if err != nil {
			return fmt.Errorf("[authcli runDevAPI] seed account: %w", err)
		}
		log.Info().Str("email", user.Email).Strs("roles", user.Roles).Msg("seeded account")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if opts.expireEvery > 0 {
		go expireLoop(ctx, api, opts.expireEvery)
	}

	server := &http.Server{Addr: opts.addr, Handler: api, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(server)
	}()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func expireLoop(ctx context.Context, api *fakeapi.Server, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			api.ExpireAccessTokens()
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("dev API listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("dev API stopped")
	return nil
}
