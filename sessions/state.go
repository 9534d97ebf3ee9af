package sessions

import "github.com/jrsteele09/go-auth-client/users"

// Status is the coarse session state the rest of the application branches on.
type Status int

const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. AccessToken "" means no token in memory.
type State struct {
	User        *users.User
	AccessToken string
	IsLoading   bool
}

func (s State) Status() Status {
	switch {
	case s.IsLoading:
		return StatusLoading
	case s.User != nil:
		return StatusAuthenticated
	default:
		return StatusAnonymous
	}
}

// clone copies the user so subscribers cannot mutate the manager's state.
func (s State) clone() State {
	if s.User == nil {
		return s
	}
	u := *s.User
	u.Roles = append([]string{}, s.User.Roles...)
	s.User = &u
	return s
}
