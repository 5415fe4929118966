// Package tokens persists the client's bearer token in a single named slot.
package tokens

import "context"

// AccessTokenSlot is the key the access token is stored under.
const AccessTokenSlot = "access_token"

// Repository is the durable token slot. An empty token from Get means the
// slot is empty.
type Repository interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}
