// Package api holds the JSON shapes exchanged between the authkeeper server
// and its clients.
package api

// Profile is the public view of a user. It never carries password material.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterRequest is the JSON body for POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse carries a human readable failure description.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusResponse is served on the API root.
type StatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}
