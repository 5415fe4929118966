// Package common contains shared constants and errors used by both the
// authkeeper server and client.
package common

// AuthorizationHeaderName carries the bearer token on protected requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only token type issued by the server.
const BearerScheme = "bearer"

// Detail messages shared by the server responses and the client tests.
const (
	DetailIncorrectCredentials = "Incorrect username or password"
	DetailAlreadyRegistered    = "Username or email already registered"
	DetailInvalidToken         = "Could not validate credentials"
	DetailNotAuthenticated     = "Not authenticated"
	DetailRegistrationFailed   = "Registration failed"
	DetailAuthenticationFailed = "Authentication failed"
)
