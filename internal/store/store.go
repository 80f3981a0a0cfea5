// Package store provides the key-value persistence backing the webhook
// receiver. Phone enrichment records are indexed under multiple keys per
// record, each entry carrying a TTL after which it is swept.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Store is the key-value interface the webhook receiver writes to and the
// status endpoint reads from. Keys are session-scoped strings; values are
// opaque payloads (the receiver stores JSON-encoded phone records).
type Store interface {
	// Get returns the value for key, or found=false if absent or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set writes value under key with the given TTL. Writing an existing
	// key overwrites it (last write wins).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// List returns all live entries whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// DeleteExpired removes entries past their TTL, returning the count.
	DeleteExpired(ctx context.Context) (int, error)

	// Migrate creates the backing schema if needed.
	Migrate(ctx context.Context) error

	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
