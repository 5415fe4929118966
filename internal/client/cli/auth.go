package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

const networkFailureMessage = "Could not reach the server. Check your connection and try again."

// Register prompts for a username, an email and a password, creates the
// account and logs straight in with the same credentials.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	profile, err := a.session.Register(ctx, userName, email, string(password))
	if err != nil {
		a.showError(err)
		return err
	}

	fmt.Fprintf(a.out, "Registered and logged in as %s\n", profile.Username)
	return nil
}

// Login prompts for credentials and authenticates. A failed attempt leaves
// any existing session in place.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	profile, err := a.session.Login(ctx, userName, string(password))
	if err != nil {
		a.showError(err)
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", profile.Username)
	return nil
}

// Logout forgets the persisted token and the in-memory session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		a.showError(err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// showError prints a user-facing message for err. Server-provided details are
// shown verbatim; transport failures get a generic message.
func (a *App) showError(err error) {
	fmt.Fprintln(a.out, errorMessage(err))
}

func errorMessage(err error) string {
	if errors.Is(err, session.ErrSessionChanged) {
		return "The session changed while the request was running, please try again."
	}

	var ae *common.AuthError

	switch common.KindOf(err) {
	case common.KindNetworkFailure:
		return networkFailureMessage
	case common.KindInvalidCredentials, common.KindDuplicateUser, common.KindTokenExpiredOrInvalid, common.KindUnknown:
		if errors.As(err, &ae) && ae.Message != "" {
			return ae.Message
		}
	}
	return err.Error()
}
