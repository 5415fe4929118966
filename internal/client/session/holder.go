// Package session owns the client-side authentication state: the bearer
// token, the profile it was validated against and the lifecycle that moves
// between them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/api"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/tokens"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// ErrSessionChanged is returned by Login and Register when a logout or
// another login was committed while the request was in flight. The result
// of the superseded request is discarded.
var ErrSessionChanged = errors.New("session changed while the request was in flight")

// API is the part of the server API the holder drives.
type API interface {
	Register(ctx context.Context, username, email, password string) (*api.Profile, error)
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, token string) (*api.Profile, error)
}

// Holder is the single owner of the client session. It is safe for
// concurrent use; network calls are made without holding its lock.
//
// User is only ever set together with a Token that the server has accepted
// on /users/me.
type Holder struct {
	api    API
	store  tokens.Repository
	logger logging.Logger

	initOnce sync.Once
	ready    chan struct{}

	mu    sync.Mutex
	state State
	token string
	user  *api.Profile
	// epoch counts user-initiated commits (login, logout). A network result
	// is applied only if the epoch it started from is still current.
	epoch uint64
}

func NewHolder(a API, store tokens.Repository, logger logging.Logger) *Holder {
	return &Holder{
		api:    a,
		store:  store,
		logger: logger.With("module", "session"),
		ready:  make(chan struct{}),
		state:  Uninitialized,
	}
}

// Snapshot returns a consistent copy of the current session.
func (h *Holder) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Holder) snapshotLocked() Snapshot {
	var user *api.Profile
	if h.user != nil {
		u := *h.user
		user = &u
	}
	return Snapshot{
		State:     h.state,
		Token:     h.token,
		User:      user,
		IsLoading: h.state == Uninitialized || h.state == Checking,
	}
}

// Ready is closed once Init has settled.
func (h *Holder) Ready() <-chan struct{} {
	return h.ready
}

// Init restores a persisted session. It runs at most once per Holder; later
// calls return immediately. A token the server no longer accepts is removed
// from storage without surfacing an error.
func (h *Holder) Init(ctx context.Context) {
	h.initOnce.Do(func() {
		defer close(h.ready)
		h.restore(ctx)
	})
}

func (h *Holder) restore(ctx context.Context) {
	h.mu.Lock()
	if h.state != Uninitialized {
		// a login or logout already settled the session
		h.mu.Unlock()
		return
	}

	token, err := h.store.Get(ctx)
	if err != nil {
		h.logger.Warn(ctx, "reading persisted token failed", "error", err)
	}
	if err != nil || token == "" {
		h.state = Unauthenticated
		h.mu.Unlock()
		return
	}

	start := h.epoch
	h.state = Checking
	h.token = token
	h.mu.Unlock()

	h.logger.Debug(ctx, "validating persisted token", "token", logging.TokenPrefix(token))
	profile, err := h.api.Me(ctx, token)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.epoch != start {
		h.logger.Debug(ctx, "discarding stale session check")
		return
	}

	if err != nil {
		h.logger.Info(ctx, "persisted token rejected, clearing session", "error", err)
		if derr := h.store.Delete(ctx); derr != nil {
			h.logger.Warn(ctx, "deleting persisted token failed", "error", derr)
		}
		h.resetLocked()
		return
	}

	h.user = profile
	h.state = Authenticated
	h.logger.Info(ctx, "session restored", "username", profile.Username)
}

// Login obtains a token and validates it. On an issuance failure the
// current session is left untouched. When the fresh token is rejected by
// /users/me the session is cleared. If already authenticated the previous
// user stays visible until the new one is validated.
func (h *Holder) Login(ctx context.Context, username, password string) (*api.Profile, error) {
	h.mu.Lock()
	start := h.epoch
	h.mu.Unlock()

	token, err := h.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	h.logger.Debug(ctx, "token issued", "username", username, "token", logging.TokenPrefix(token))
	profile, err := h.api.Me(ctx, token)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.epoch != start {
		return nil, ErrSessionChanged
	}

	if err != nil {
		if derr := h.store.Delete(ctx); derr != nil {
			h.logger.Warn(ctx, "deleting persisted token failed", "error", derr)
		}
		h.resetLocked()
		h.epoch++
		return nil, err
	}

	if err := h.store.Set(ctx, token); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}

	h.token = token
	h.user = profile
	h.state = Authenticated
	h.epoch++

	h.logger.Info(ctx, "logged in", "username", profile.Username)
	return cloneProfile(profile), nil
}

// Register creates the account and then logs in with the same credentials.
// Errors from either step are returned unchanged.
func (h *Holder) Register(ctx context.Context, username, email, password string) (*api.Profile, error) {
	if _, err := h.api.Register(ctx, username, email, password); err != nil {
		return nil, err
	}
	return h.Login(ctx, username, password)
}

// Logout forgets the token and the user. It is idempotent and supersedes
// any request still in flight.
func (h *Holder) Logout(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.store.Delete(ctx)

	h.resetLocked()
	h.epoch++

	if err != nil {
		return fmt.Errorf("delete persisted token: %w", err)
	}
	return nil
}

func (h *Holder) resetLocked() {
	h.token = ""
	h.user = nil
	h.state = Unauthenticated
}

func cloneProfile(p *api.Profile) *api.Profile {
	c := *p
	return &c
}
