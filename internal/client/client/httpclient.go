package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/api"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// HTTPClient talks to the authkeeper REST API. It keeps no session state:
// the token is passed in explicitly where one is needed.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Register creates an account and returns its public profile.
func (c *HTTPClient) Register(ctx context.Context, username, email, password string) (*api.Profile, error) {
	body, err := json.Marshal(api.RegisterRequest{Username: username, Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/register", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	profile := &api.Profile{}
	if err := c.do(req, profile, c.mapRegisterStatus); err != nil {
		return nil, err
	}
	return profile, nil
}

// Login exchanges credentials for a bearer token.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}

	req, err := c.newRequest(ctx, http.MethodPost, "/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp api.TokenResponse
	if err := c.do(req, &resp, c.mapLoginStatus); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", common.NewAuthError(common.KindUnknown, "server returned an empty token", nil)
	}
	return resp.AccessToken, nil
}

// Me resolves token to the profile of its owner.
func (c *HTTPClient) Me(ctx context.Context, token string) (*api.Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)

	profile := &api.Profile{}
	if err := c.do(req, profile, c.mapMeStatus); err != nil {
		return nil, err
	}
	return profile, nil
}

// Ping checks that the API root answers.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}

	var resp api.StatusResponse
	if err := c.do(req, &resp, func(int) common.ErrorKind { return common.KindUnknown }); err != nil {
		return err
	}
	if resp.Status != "running" {
		return common.NewAuthError(common.KindUnknown, "server status: "+resp.Status, nil)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req, decodes a 2xx body into out and turns anything else into
// an *common.AuthError whose kind comes from kindFor.
func (c *HTTPClient) do(req *http.Request, out any, kindFor func(status int) common.ErrorKind) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return common.NewAuthError(common.KindUnknown, "malformed server response", err)
		}
		return nil
	}

	return common.NewAuthError(kindFor(resp.StatusCode), readDetail(resp), nil)
}

func (c *HTTPClient) mapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return common.NewAuthError(common.KindNetworkFailure, "could not reach the server", err)
}

func (c *HTTPClient) mapRegisterStatus(status int) common.ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusConflict:
		return common.KindDuplicateUser
	default:
		return common.KindUnknown
	}
}

func (c *HTTPClient) mapLoginStatus(status int) common.ErrorKind {
	if status == http.StatusUnauthorized {
		return common.KindInvalidCredentials
	}
	return common.KindUnknown
}

func (c *HTTPClient) mapMeStatus(status int) common.ErrorKind {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return common.KindTokenExpiredOrInvalid
	}
	return common.KindUnknown
}

// readDetail returns the "detail" field of an error body, falling back to
// the status text.
func readDetail(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(b, &e) == nil && len(e.Detail) > 0 {
		var s string
		if json.Unmarshal(e.Detail, &s) == nil && s != "" {
			return s
		}
		return string(e.Detail)
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
