package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/guard"
)

// Dashboard is the protected screen. While the session is still being
// resolved it waits; without a validated user it redirects to login.
func (a *App) Dashboard(ctx context.Context) error {
	snap := a.session.Snapshot()

	switch guard.Decide(snap) {
	case guard.Loading:
		fmt.Fprintln(a.out, "Checking session...")
		select {
		case <-a.session.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
		return a.Dashboard(ctx)

	case guard.Render:
		fmt.Fprintln(a.out, "=== Dashboard ===")
		fmt.Fprintf(a.out, "Welcome, %s!\n", snap.User.Username)
		fmt.Fprintf(a.out, "ID:       %d\n", snap.User.ID)
		fmt.Fprintf(a.out, "Username: %s\n", snap.User.Username)
		fmt.Fprintf(a.out, "Email:    %s\n", snap.User.Email)
		return nil

	default:
		fmt.Fprintln(a.out, "Please log in to view the dashboard.")
		return a.Login(ctx)
	}
}

// Status prints the session state and the connectivity mode.
func (a *App) Status(ctx context.Context) error {
	snap := a.session.Snapshot()
	fmt.Fprintf(a.out, "session: %s\n", snap.State)
	if m := a.getMode(); m != "" {
		fmt.Fprintf(a.out, "server:  %s\n", m)
	}
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	snap := a.session.Snapshot()
	if snap.User == nil {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s>\n", snap.User.Username, snap.User.Email)
	return nil
}
