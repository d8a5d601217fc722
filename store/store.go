package store

import "context"

// Store is the durable KV collaborator behind drafts, saved pipelines and
// sealed execution sessions. The engine only needs opaque load/save calls; the
// prefix partitions the keyspace per record kind.
type Store interface {
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key.
	 * removing an unexists prefix + key would NOT return error.
	 */
	Remove(ctx context.Context, prefix, key string) error

	List(ctx context.Context, prefix string, iterator func(key string) bool) error
}
