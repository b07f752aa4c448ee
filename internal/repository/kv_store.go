package repository

import "context"

// KeyValueStore is the raw durable backend. Each key holds one serialized collection.
// Read returns appErrors.ErrStoreMiss when the key has never been written.
type KeyValueStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
}
