package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/httpclient"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/filerepo"
	"github.com/jrsteele09/go-auth-client/token/redisrepo"
	tokenfakerepo "github.com/jrsteele09/go-auth-client/token/repofake"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const userAgent = "authcli/1.0"

// app is the wired client stack shared by every command.
type app struct {
	store     *token.Store
	http      *httpclient.Client
	api       *authapi.Client
	session   *sessions.Manager
	auth      *auth.Service
	directory *users.Directory
	registry  *prometheus.Registry

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, opts *rootOptions) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}

	repo, err := a.openRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = token.NewStore(repo, cfg.GetStorageKey())

	apiURL := opts.apiURL
	if apiURL == "" {
		apiURL = cfg.GetAPIURL()
	}

	// the refresh hooks keep the in-memory session in step with the store
	a.http, err = httpclient.New(apiURL, a.store,
		httpclient.WithTimeout(cfg.GetRequestTimeout()),
		httpclient.WithRefreshTimeout(cfg.GetRefreshTimeout()),
		httpclient.WithRefreshPolicy(httpclient.ParseRefreshPolicy(cfg.GetRefreshPolicy())),
		httpclient.WithUserAgent(userAgent),
		httpclient.WithMetrics(httpclient.NewMetrics(a.registry)),
		httpclient.WithOnRefresh(func(pair token.Pair) {
			if err := a.session.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
				log.Err(err).Msg("failed to record refreshed tokens")
			}
		}),
		httpclient.WithOnExpired(func() {
			a.session.Expire()
		}),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.api = authapi.New(a.http)
	a.session = sessions.New(a.api, a.store)
	a.auth = auth.NewService(a.session, a.api)
	a.directory = users.NewDirectory(a.http)
	return a, nil
}

func (a *app) openRepo(ctx context.Context, cfg config.Config) (token.Repo, error) {
	switch cfg.GetTokenStore() {
	case config.TokenStoreMemory:
		return tokenfakerepo.NewFakeTokenRepo(), nil
	case config.TokenStoreRedis:
		client, err := redisrepo.Connect(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return redisrepo.New(client), nil
	case config.TokenStoreFile:
		return filerepo.New(cfg.GetDataFolder())
	default:
		return nil, autherrors.Wrapf(autherrors.ErrUnsupported, "token store %q", cfg.GetTokenStore())
	}
}

func (a *app) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// printMetrics writes every counter and histogram sample count in the registry.
func (a *app) printMetrics(w io.Writer) {
	families, err := a.registry.Gather()
	if err != nil {
		log.Err(err).Msg("failed to gather metrics")
		return
	}

	lines := []string{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s_count %d", name, m.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
