package cachestorage

import "context"

// Storage is the cache-storage capability: a set of named partitions.
// This interface follows the port-adapter pattern so the interception policy
// can run against an in-memory fake or a persistent store alike.
//
// Implementations serialize their own internal mutations; callers perform no
// additional synchronization.
type Storage interface {
	// Open returns the partition with the given name, creating it if absent.
	Open(ctx context.Context, name string) (Partition, error)

	// Has reports whether a partition with the given name exists.
	Has(ctx context.Context, name string) (bool, error)

	// Keys lists all partition names in creation order.
	Keys(ctx context.Context) ([]string, error)

	// Delete removes a partition and all of its entries.
	// It reports whether a partition was found.
	Delete(ctx context.Context, name string) (bool, error)

	Close() error
}

// Partition is a named key-value mapping from request identity to stored response.
type Partition interface {
	Name() string

	// Match looks up the stored response for key.
	Match(ctx context.Context, key RequestKey) (Response, bool, error)

	// Put stores resp under key, replacing any previous entry.
	Put(ctx context.Context, key RequestKey, resp Response) error

	// PutAll stores every entry or none of them.
	PutAll(ctx context.Context, entries []Entry) error

	// Keys lists stored request identities in insertion order.
	Keys(ctx context.Context) ([]RequestKey, error)
}
