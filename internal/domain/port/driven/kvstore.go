package driven

import "context"

// KVStore is a durable key/value store holding opaque encoded values.
// Get reports found=false, with a nil error, for a key that was never set.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
