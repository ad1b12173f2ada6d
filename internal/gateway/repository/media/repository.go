package media

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("media not found")
	// ErrShareUnavailable means the backend cannot mint public links;
	// callers fall back to serving the bytes through the gateway.
	ErrShareUnavailable = errors.New("share links require object storage")
)

// Store persists generated videos keyed by "<jobID>/<filename>".
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	ShareURL(ctx context.Context, key string) (string, error)
}
