package httpclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/httpclient"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	tokenfakerepo "github.com/jrsteele09/go-auth-client/token/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// apiFixture is a minimal remote API: /api/data accepts only the current
// access token, /auth/refresh rotates it.
type apiFixture struct {
	t      *testing.T
	server *httptest.Server
	store  *token.Store
	repo   *tokenfakerepo.FakeTokenRepo

	mu           sync.Mutex
	validAccess  string
	validRefresh string
	refreshCalls atomic.Int32
	lastBody     string
	lastAuth     string
	lastReqID    string

	// beforeUnauthorized runs before a 401 is written for /api/data
	beforeUnauthorized func()
	// refreshGate, when set, blocks the refresh handler until closed
	refreshGate    chan struct{}
	refreshEntered chan struct{}
	refreshStatus  int
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		t:             t,
		validAccess:   "access-2",
		validRefresh:  "refresh-1",
		refreshStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", f.handleData)
	mux.HandleFunc("POST /auth/refresh", f.handleRefresh)
	mux.HandleFunc("GET /api/fail", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"email already registered"}`))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	f.repo = tokenfakerepo.NewFakeTokenRepo()
	f.store = token.NewStore(f.repo, "")
	return f
}

func (f *apiFixture) handleData(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.lastBody = string(body)
	f.lastAuth = r.Header.Get("Authorization")
	f.lastReqID = r.Header.Get(httpclient.HeaderRequestID)
	ok := r.Header.Get("Authorization") == "Bearer "+f.validAccess
	hook := f.beforeUnauthorized
	f.mu.Unlock()

	if !ok {
		if hook != nil {
			hook()
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (f *apiFixture) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.refreshEntered != nil {
		f.refreshEntered <- struct{}{}
	}
	if f.refreshGate != nil {
		<-f.refreshGate
	}
	if f.refreshStatus != http.StatusOK {
		w.WriteHeader(f.refreshStatus)
		return
	}

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	valid := req.RefreshToken == f.validRefresh
	access := f.validAccess
	f.mu.Unlock()

	if !valid {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": access})
}

func (f *apiFixture) client(opts ...httpclient.Option) *httpclient.Client {
	f.t.Helper()
	c, err := httpclient.New(f.server.URL, f.store, opts...)
	require.NoError(f.t, err)
	return c
}

func (f *apiFixture) seed(pair token.Pair) {
	f.t.Helper()
	require.NoError(f.t, f.store.Save(context.Background(), pair))
}

func TestNew(t *testing.T) {
	store := token.NewStore(tokenfakerepo.NewFakeTokenRepo(), "")

	t.Run("requires a store", func(t *testing.T) {
		_, err := httpclient.New("http://localhost", nil)
		require.Error(t, err)
	})

	t.Run("requires an absolute url", func(t *testing.T) {
		_, err := httpclient.New("/relative", store)
		require.Error(t, err)
	})

	t.Run("resolves paths against the base url", func(t *testing.T) {
		c, err := httpclient.New("http://localhost:3100/", store)
		require.NoError(t, err)
		require.Equal(t, "http://localhost:3100/auth/me", c.URL("/auth/me"))
		require.Equal(t, "http://localhost:3100/auth/me", c.URL("auth/me"))
		require.Equal(t, "https://example.com/x", c.URL("https://example.com/x"))
	})
}

func TestClient_AttachesBearer(t *testing.T) {
	ctx := context.Background()

	t.Run("stored token is sent", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-2", RefreshToken: "refresh-1"})
		c := f.client()

		var out map[string]string
		require.NoError(t, c.GetJSON(ctx, "/api/data", &out))
		require.Equal(t, "ok", out["status"])
		require.Equal(t, "Bearer access-2", f.lastAuth)
		require.NotEmpty(t, f.lastReqID)
		require.Zero(t, f.refreshCalls.Load())
	})

	t.Run("no stored token sends no header", func(t *testing.T) {
		f := newAPIFixture(t)
		c := f.client()

		err := c.GetJSON(ctx, "/api/data", nil)
		require.ErrorIs(t, err, autherrors.ErrAuth)
		require.Empty(t, f.lastAuth)
	})

	t.Run("corrupt store entry is not surfaced", func(t *testing.T) {
		f := newAPIFixture(t)
		require.NoError(t, f.repo.Set(ctx, token.DefaultKey, "{not json"))
		c := f.client()

		err := c.GetJSON(ctx, "/api/data", nil)
		require.ErrorIs(t, err, autherrors.ErrAuth)
		require.Empty(t, f.lastAuth)
	})
}

func TestClient_RefreshAndRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("expired token is refreshed and request replayed", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"})

		var refreshed []token.Pair
		c := f.client(httpclient.WithOnRefresh(func(p token.Pair) { refreshed = append(refreshed, p) }))

		var out map[string]string
		require.NoError(t, c.PostJSON(ctx, "/api/data", map[string]string{"q": "x"}, &out))
		require.Equal(t, "ok", out["status"])
		require.Equal(t, int32(1), f.refreshCalls.Load())
		require.JSONEq(t, `{"q":"x"}`, f.lastBody)
		require.Equal(t, "Bearer access-2", f.lastAuth)

		stored := f.store.Read(ctx)
		require.NotNil(t, stored)
		require.Equal(t, token.Pair{AccessToken: "access-2", RefreshToken: "refresh-1"}, *stored)
		require.Equal(t, []token.Pair{*stored}, refreshed)
	})

	t.Run("body without GetBody is buffered for replay", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"})
		c := f.client()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL("/api/data"), io.NopCloser(strings.NewReader("payload")))
		require.NoError(t, err)
		resp, err := c.HTTPClient().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "payload", f.lastBody)
	})

	t.Run("refresh failure clears store and returns original 401", func(t *testing.T) {
		f := newAPIFixture(t)
		f.refreshStatus = http.StatusUnauthorized
		f.seed(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"})

		expired := 0
		c := f.client(httpclient.WithOnExpired(func() { expired++ }))

		err := c.GetJSON(ctx, "/api/data", nil)
		var httpErr *httpclient.HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
		require.Equal(t, "token expired", httpErr.Message)

		require.Nil(t, f.store.Read(ctx))
		require.Equal(t, 1, expired)
		require.Equal(t, int32(1), f.refreshCalls.Load())
	})

	t.Run("missing refresh token ends the session without a refresh call", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-1"})
		c := f.client()

		err := c.GetJSON(ctx, "/api/data", nil)
		require.ErrorIs(t, err, autherrors.ErrAuth)
		require.Zero(t, f.refreshCalls.Load())
		require.Nil(t, f.store.Read(ctx))
	})

	t.Run("requests marked WithoutRefresh never refresh", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"})
		c := f.client()

		err := c.GetJSON(httpclient.WithoutRefresh(ctx), "/api/data", nil)
		require.ErrorIs(t, err, autherrors.ErrAuth)
		require.Zero(t, f.refreshCalls.Load())
		require.NotNil(t, f.store.Read(ctx))
	})

	t.Run("rotated refresh token is stored", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"})
		c := f.client()

		pair, err := c.ExchangeRefreshToken(ctx, "refresh-1")
		require.NoError(t, err)
		require.Equal(t, "access-2", pair.AccessToken)
		require.Empty(t, pair.RefreshToken)

		_, err = c.ExchangeRefreshToken(ctx, "")
		require.ErrorIs(t, err, autherrors.ErrNoRefreshToken)
	})
}

func TestClient_ConcurrentUnauthorized(t *testing.T) {
	ctx := context.Background()

	t.Run("join policy refreshes once and retries both", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"})

		// both requests must be rejected before either refreshes
		var arrived sync.WaitGroup
		arrived.Add(2)
		f.beforeUnauthorized = func() {
			arrived.Done()
			arrived.Wait()
		}

		reg := prometheus.NewRegistry()
		metrics := httpclient.NewMetrics(reg)
		c := f.client(httpclient.WithMetrics(metrics))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = c.GetJSON(ctx, "/api/data", nil)
			}(i)
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		require.Equal(t, int32(1), f.refreshCalls.Load())
		require.Equal(t, "access-2", f.store.Read(ctx).AccessToken)

		require.Equal(t, float64(1), testutil.ToFloat64(metrics.Refreshes.WithLabelValues(httpclient.RefreshSuccess)))
		require.Equal(t, float64(2), testutil.ToFloat64(metrics.Requests.WithLabelValues("200")))
	})

	t.Run("fail-fast policy rejects a 401 during an in-flight refresh", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"})
		f.refreshGate = make(chan struct{})
		f.refreshEntered = make(chan struct{}, 1)

		c := f.client(httpclient.WithRefreshPolicy(httpclient.RefreshFailFast))

		first := make(chan error, 1)
		go func() {
			first <- c.GetJSON(ctx, "/api/data", nil)
		}()

		select {
		case <-f.refreshEntered:
		case <-time.After(5 * time.Second):
			t.Fatal("refresh never started")
		}

		err := c.GetJSON(ctx, "/api/data", nil)
		require.ErrorIs(t, err, autherrors.ErrAuth)

		close(f.refreshGate)
		require.NoError(t, <-first)
		require.Equal(t, int32(1), f.refreshCalls.Load())
	})

	t.Run("token refreshed by another caller is reused", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"})
		c := f.client()

		// the stored token changes while the stale request is in flight
		f.beforeUnauthorized = func() {
			f.seed(token.Pair{AccessToken: "access-2", RefreshToken: "refresh-1"})
		}

		require.NoError(t, c.GetJSON(ctx, "/api/data", nil))
		require.Zero(t, f.refreshCalls.Load())
	})
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("server message is extracted", func(t *testing.T) {
		f := newAPIFixture(t)
		c := f.client()

		err := c.GetJSON(ctx, "/api/fail", nil)
		var httpErr *httpclient.HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
		require.Equal(t, "email already registered", httpErr.Message)
		require.False(t, errors.Is(err, autherrors.ErrAuth))
	})

	t.Run("transport failure is a network error", func(t *testing.T) {
		f := newAPIFixture(t)
		c := f.client()
		f.server.Close()

		err := c.GetJSON(ctx, "/api/data", nil)
		var netErr *httpclient.NetworkError
		require.ErrorAs(t, err, &netErr)
		require.ErrorIs(t, err, autherrors.ErrNetwork)
	})
}

func TestParseRefreshPolicy(t *testing.T) {
	require.Equal(t, httpclient.RefreshFailFast, httpclient.ParseRefreshPolicy("fail-fast"))
	require.Equal(t, httpclient.RefreshJoin, httpclient.ParseRefreshPolicy("join"))
	require.Equal(t, httpclient.RefreshJoin, httpclient.ParseRefreshPolicy(""))
}
