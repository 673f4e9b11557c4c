package storage

import "context"

// ObjectStore reads and writes objects addressed by container and key.
// Get returns an error wrapping types.ErrNotFound for a missing object.
type ObjectStore interface {
	Get(ctx context.Context, container, key string) ([]byte, error)
	Put(ctx context.Context, container, key string, body []byte) error
	Delete(ctx context.Context, container, key string) error
}
