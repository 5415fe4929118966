// Package guard decides whether a protected screen may be shown for a
// given session snapshot.
package guard

import "github.com/dmitrijs2005/authkeeper/internal/client/session"

type Decision int

const (
	// Loading means the session is still being resolved; show a placeholder
	// and neither render nor redirect.
	Loading Decision = iota
	Render
	RedirectToLogin
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case RedirectToLogin:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decide is pure: the same snapshot always yields the same decision.
func Decide(s session.Snapshot) Decision {
	if s.IsLoading {
		return Loading
	}
	if s.User != nil && s.Token != "" {
		return Render
	}
	return RedirectToLogin
}
