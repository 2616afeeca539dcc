package session

import "context"

const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Store is durable key-value storage for the session. Writes come only
// from the Manager, so last writer wins.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type nopStore struct{}

func (nopStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (nopStore) Set(context.Context, string, string) error         { return nil }
func (nopStore) Delete(context.Context, ...string) error           { return nil }
