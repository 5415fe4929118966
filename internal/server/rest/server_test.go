package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/api"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUsers keeps users in memory and hands out "token-<username>" tokens.
type fakeUsers struct {
	mu       sync.Mutex
	users    map[string]*models.User
	password map[string]string
	failWith error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*models.User{}, password: map[string]string{}}
}

func (f *fakeUsers) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.UserName == username || u.Email == email {
			return nil, common.ErrDuplicateUser
		}
	}
	u := &models.User{ID: int64(len(f.users) + 1), UserName: username, Email: email, PasswordHash: []byte("hash")}
	f.users[username] = u
	f.password[username] = password
	return u, nil
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	if p, ok := f.password[username]; !ok || p != password {
		return "", common.ErrInvalidCredentials
	}
	return "token-" + username, nil
}

func (f *fakeUsers) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	name, ok := strings.CutPrefix(token, "token-")
	if !ok {
		return nil, common.ErrTokenExpiredOrInvalid
	}
	u, ok := f.users[name]
	if !ok {
		return nil, common.ErrTokenExpiredOrInvalid
	}
	return u, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newTestServer(t *testing.T, users UserService, db Pinger) (*RESTServer, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewRESTServer("127.0.0.1:0", logging.Nop{}, users, db, m, []string{"http://localhost:5173"}), m
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, path, body string) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func formReq(path string, values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Detail
}

func TestRoot(t *testing.T) {
	s, _ := newTestServer(t, newFakeUsers(), nil)

	rec := do(t, s.Router(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"JWT Authentication API","status":"running"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestHealth(t *testing.T) {
	ok, _ := newTestServer(t, newFakeUsers(), fakePinger{})
	rec := do(t, ok.Router(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down, _ := newTestServer(t, newFakeUsers(), fakePinger{err: errors.New("refused")})
	rec = do(t, down.Router(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Database connection failed")
}

func TestRegister(t *testing.T) {
	users := newFakeUsers()
	s, m := newTestServer(t, users, nil)
	h := s.Router()

	t.Run("success returns public profile", func(t *testing.T) {
		rec := do(t, h, jsonReq(http.MethodPost, "/register",
			`{"username":"newuser","email":"new@example.com","password":"password123"}`))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":1,"username":"newuser","email":"new@example.com"}`, rec.Body.String())
	})

	t.Run("duplicate username", func(t *testing.T) {
		rec := do(t, h, jsonReq(http.MethodPost, "/register",
			`{"username":"newuser","email":"other@example.com","password":"x"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, common.DetailAlreadyRegistered, decodeDetail(t, rec))
	})

	t.Run("invalid email", func(t *testing.T) {
		rec := do(t, h, jsonReq(http.MethodPost, "/register",
			`{"username":"u2","email":"not-an-email","password":"x"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeDetail(t, rec), "email")
	})

	t.Run("missing password", func(t *testing.T) {
		rec := do(t, h, jsonReq(http.MethodPost, "/register", `{"username":"u2","email":"u2@example.com"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, h, jsonReq(http.MethodPost, "/register", `{"username":`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Invalid request body", decodeDetail(t, rec))
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues(metrics.OperationRegister, metrics.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues(metrics.OperationRegister, metrics.OutcomeDuplicate)))
}

func TestRegister_InternalError(t *testing.T) {
	users := newFakeUsers()
	users.failWith = errors.New("db down")
	s, _ := newTestServer(t, users, nil)

	rec := do(t, s.Router(), jsonReq(http.MethodPost, "/register", `{"username":"u","email":"u@example.com","password":"p"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, common.DetailRegistrationFailed, decodeDetail(t, rec))
}

func TestLogin(t *testing.T) {
	users := newFakeUsers()
	_, err := users.Register(context.Background(), "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	s, _ := newTestServer(t, users, nil)
	h := s.Router()

	t.Run("success", func(t *testing.T) {
		rec := do(t, h, formReq("/login", url.Values{"username": {"alice"}, "password": {"secret"}}))

		require.Equal(t, http.StatusOK, rec.Code)
		var tok api.TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
		assert.Equal(t, "token-alice", tok.AccessToken)
		assert.Equal(t, "bearer", tok.TokenType)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := do(t, h, formReq("/login", url.Values{"username": {"alice"}, "password": {"nope"}}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Incorrect username or password", decodeDetail(t, rec))
	})

	t.Run("missing field", func(t *testing.T) {
		rec := do(t, h, formReq("/login", url.Values{"username": {"alice"}}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("json body is not a form", func(t *testing.T) {
		rec := do(t, h, jsonReq(http.MethodPost, "/login", `{"username":"alice","password":"secret"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestLogin_InternalError(t *testing.T) {
	users := newFakeUsers()
	users.failWith = errors.New("db down")
	s, _ := newTestServer(t, users, nil)

	rec := do(t, s.Router(), formReq("/login", url.Values{"username": {"a"}, "password": {"b"}}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, common.DetailAuthenticationFailed, decodeDetail(t, rec))
}

func TestUsersMe(t *testing.T) {
	users := newFakeUsers()
	_, err := users.Register(context.Background(), "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	s, m := newTestServer(t, users, nil)
	h := s.Router()

	meReq := func(auth string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		if auth != "" {
			r.Header.Set("Authorization", auth)
		}
		return r
	}

	rec := do(t, h, meReq("Bearer token-alice"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"username":"alice","email":"alice@example.com"}`, rec.Body.String())

	rec = do(t, h, meReq("bearer token-alice"))
	assert.Equal(t, http.StatusOK, rec.Code, "scheme is case-insensitive")

	for name, auth := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic token-alice",
		"empty token":    "Bearer ",
	} {
		rec := do(t, h, meReq(auth))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"), name)
		assert.Equal(t, common.DetailNotAuthenticated, decodeDetail(t, rec), name)
	}

	for name, auth := range map[string]string{
		"garbage token": "Bearer garbage",
		"unknown user":  "Bearer token-bob",
	} {
		rec := do(t, h, meReq(auth))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Equal(t, "Could not validate credentials", decodeDetail(t, rec), name)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues(metrics.OperationVerify, metrics.OutcomeSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues(metrics.OperationVerify, metrics.OutcomeInvalid)))
}

func TestUsersMe_StoreFailureIsServerError(t *testing.T) {
	users := newFakeUsers()
	users.failWith = fmt.Errorf("%w: %v", common.ErrorInternal, "db down")
	s, m := newTestServer(t, users, nil)

	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	r.Header.Set("Authorization", "Bearer token-alice")
	rec := do(t, s.Router(), r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, common.DetailAuthenticationFailed, decodeDetail(t, rec))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues(metrics.OperationVerify, metrics.OutcomeError)))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, newFakeUsers(), nil)
	h := s.Router()

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	rec := do(t, h, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec = do(t, h, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpointAndRequestCounters(t *testing.T) {
	s, m := newTestServer(t, newFakeUsers(), nil)
	h := s.Router()

	do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	do(t, h, formReq("/login", url.Values{"username": {"x"}, "password": {"y"}}))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/login", "401")))

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "authkeeper_http_requests_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	s, _ := newTestServer(t, newFakeUsers(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")

	rec := do(t, s.Router(), req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, newFakeUsers(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_BadAddress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewRESTServer("256.0.0.1:-1", logging.Nop{}, newFakeUsers(), nil, nil, nil)
	assert.Error(t, s.Run(ctx))
}
