package fakeapi

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
	"golang.org/x/crypto/bcrypt"
)

// account is the server-side record behind a users.User.
type account struct {
	user          users.User
	passwordHash  string
	status        string
	emailVerified bool
}

func (a *account) member() users.Member {
	roles := append([]string{}, a.user.Roles...)
	return users.Member{
		ID:            a.user.ID,
		Name:          a.user.DisplayName(),
		Email:         a.user.Email,
		Roles:         roles,
		Status:        a.status,
		EmailVerified: a.emailVerified,
	}
}

type accountStore struct {
	accounts map[string]*account
	emailIDs map[string]string // lower-cased email to account id
	lock     sync.RWMutex
}

func newAccountStore() *accountStore {
	return &accountStore{
		accounts: make(map[string]*account),
		emailIDs: make(map[string]string),
	}
}

func (s *accountStore) create(email, password string, name *string, roles []string, verified bool) (*account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.emailIDs[key]; exists {
		return nil, autherrors.Wrapf(autherrors.ErrValidation, "email %s already registered", email)
	}
	if roles == nil {
		roles = []string{}
	}

	status := users.StatusActive
	if !verified {
		status = users.StatusPendingVerification
	}
	acc := &account{
		user: users.User{
			ID:    uuid.New().String(),
			Email: email,
			Name:  name,
			Roles: roles,
		},
		passwordHash:  hash,
		status:        status,
		emailVerified: verified,
	}
	s.accounts[acc.user.ID] = acc
	s.emailIDs[key] = acc.user.ID
	return acc, nil
}

func (s *accountStore) byEmail(email string) (*account, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	id, ok := s.emailIDs[strings.ToLower(email)]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *accountStore) byID(id string) (*account, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return acc, nil
}

// authenticate returns the account when the password matches its hash.
func (s *accountStore) authenticate(email, password string) (*account, error) {
	acc, err := s.byEmail(email)
	if err != nil {
		return nil, autherrors.ErrAuth
	}
	s.lock.RLock()
	hash, status := acc.passwordHash, acc.status
	s.lock.RUnlock()

	if !checkPasswordHash(password, hash) || status == users.StatusBlocked {
		return nil, autherrors.ErrAuth
	}
	return acc, nil
}

func (s *accountStore) setPassword(id, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return autherrors.ErrNotFound
	}
	acc.passwordHash = hash
	return nil
}

func (s *accountStore) list() []users.Member {
	s.lock.RLock()
	defer s.lock.RUnlock()

	members := make([]users.Member, 0, len(s.accounts))
	for _, acc := range s.accounts {
		members = append(members, acc.member())
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Email < members[j].Email
	})
	return members
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
