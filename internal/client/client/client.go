package client

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/api"
)

type Client interface {
	Register(ctx context.Context, username, email, password string) (*api.Profile, error)
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, token string) (*api.Profile, error)
	Ping(ctx context.Context) error
}

var _ Client = (*HTTPClient)(nil)
