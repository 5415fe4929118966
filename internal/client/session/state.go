package session

import "github.com/dmitrijs2005/authkeeper/internal/api"

type State int

const (
	Uninitialized State = iota
	Checking
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	State     State
	Token     string
	User      *api.Profile
	IsLoading bool
}
