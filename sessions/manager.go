package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-auth-client/authapi"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog/log"
)

//go:generate mockgen -source=manager.go -destination=mocks/mocks.go -package=mocks API

// API is the part of the remote auth API the session needs.
type API interface {
	Login(ctx context.Context, email, password string) (token.Pair, error)
	Me(ctx context.Context) (*users.User, error)
	Register(ctx context.Context, req authapi.RegisterRequest) error
}

// Manager owns the in-memory session and publishes every transition to its
// subscribers. No lock is held across a network call, so the HTTP client's
// refresh hooks may call SetTokens and Expire at any time.
//
// Subscribers run synchronously on the transitioning goroutine and must not
// trigger another transition from inside the callback.
type Manager struct {
	api    API
	tokens *token.Store

	lock        sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextID      int

	notifyLock sync.Mutex // keeps notifications in transition order
	signingIn  sync.Mutex
}

func New(api API, tokens *token.Store) *Manager {
	return &Manager{
		api:         api,
		tokens:      tokens,
		state:       State{IsLoading: true},
		subscribers: make(map[int]func(State)),
	}
}

// State returns a snapshot of the current session.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state.clone()
}

// Subscribe registers fn for every future transition. The current state is
// not replayed.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.lock.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.lock.Lock()
			delete(m.subscribers, id)
			m.lock.Unlock()
		})
	}
}

func (m *Manager) transition(update func(*State)) {
	m.notifyLock.Lock()
	defer m.notifyLock.Unlock()

	m.lock.Lock()
	update(&m.state)
	snapshot := m.state
	subscribers := make([]func(State), 0, len(m.subscribers))
	for id := 0; id < m.nextID; id++ {
		if fn, ok := m.subscribers[id]; ok {
			subscribers = append(subscribers, fn)
		}
	}
	m.lock.Unlock()

	for _, fn := range subscribers {
		fn(snapshot.clone())
	}
}

func (m *Manager) setAnonymous() {
	m.transition(func(s *State) {
		*s = State{}
	})
}

// Boot resolves the initial Loading state from the Token Store. A failed user
// fetch leaves the stored pair in place; the next API call will refresh or
// clear it.
func (m *Manager) Boot(ctx context.Context) {
	pair := m.tokens.Read(ctx)
	if pair == nil {
		m.setAnonymous()
		return
	}

	user, err := m.api.Me(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("session boot: current user unavailable")
		m.setAnonymous()
		return
	}

	// the fetch may have refreshed the pair
	access := pair.AccessToken
	if current := m.tokens.Read(ctx); current != nil {
		access = current.AccessToken
	}
	m.transition(func(s *State) {
		*s = State{User: user, AccessToken: access}
	})
}

// SignIn logs in, persists the pair and loads the user. A second call while
// one is running returns ErrSignInInProgress.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if !m.signingIn.TryLock() {
		return autherrors.ErrSignInInProgress
	}
	defer m.signingIn.Unlock()

	pair, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.setAnonymous()
		return fmt.Errorf("[Manager SignIn] login: %w", err)
	}
	if err := m.tokens.Save(ctx, pair); err != nil {
		m.setAnonymous()
		return fmt.Errorf("[Manager SignIn] save tokens: %w", err)
	}

	user, err := m.api.Me(ctx)
	if err != nil {
		if clearErr := m.tokens.Clear(ctx); clearErr != nil {
			log.Err(clearErr).Msg("failed to clear tokens after sign in failure")
		}
		m.setAnonymous()
		return fmt.Errorf("[Manager SignIn] fetch user: %w", err)
	}

	access := pair.AccessToken
	if current := m.tokens.Read(ctx); current != nil {
		access = current.AccessToken
	}
	m.transition(func(s *State) {
		*s = State{User: user, AccessToken: access}
	})
	log.Info().Str("email", user.Email).Msg("signed in")
	return nil
}

// SignUp registers an account. It does not sign in; the account usually needs
// email verification first.
func (m *Manager) SignUp(ctx context.Context, email, password string, name *string) error {
	if err := m.api.Register(ctx, authapi.RegisterRequest{Email: email, Password: password, Name: name}); err != nil {
		return fmt.Errorf("[Manager SignUp] %w", err)
	}
	return nil
}

// SignOut always ends the in-memory session. A storage failure is returned
// after the transition.
func (m *Manager) SignOut(ctx context.Context) error {
	err := m.tokens.Clear(ctx)
	m.setAnonymous()
	if err != nil {
		return fmt.Errorf("[Manager SignOut] %w", err)
	}
	return nil
}

// SetTokens records tokens obtained outside SignIn, typically a refresh, without
// re-fetching the user.
func (m *Manager) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	pair, err := m.tokens.Merge(ctx, accessToken, refreshToken)
	if err != nil {
		return fmt.Errorf("[Manager SetTokens] %w", err)
	}
	m.transition(func(s *State) {
		s.AccessToken = pair.AccessToken
	})
	return nil
}

// Expire ends the in-memory session after the Token Store has already been
// cleared elsewhere.
func (m *Manager) Expire() {
	m.setAnonymous()
}
