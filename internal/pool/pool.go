// Package pool keeps one live connection pool per distinct target database.
//
// Each driver owns a Manager parameterized over its native pool type
// (*pgxpool.Pool for postgres, *sqlx.DB for the database/sql engines).
// The Manager handles keying, double-checked creation and teardown; the
// driver supplies an open function and a close function.
package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
)

// BuildKey derives the cache key for a set of connection parameters.
//
// When the caller supplies a connection id the key is built from it alone,
// so the same logical connection keeps one pool even when its effective
// host and port change (an SSH tunnel re-established on a new local port).
// Otherwise the key falls back to the network coordinates.
func BuildKey(params driver.ConnectionParams) string {
	if params.ConnectionID != "" {
		return fmt.Sprintf("%s:conn:%s", params.Driver, params.ConnectionID)
	}
	return fmt.Sprintf("%s:%s:%d:%s", params.Driver, params.Host, params.Port, params.Database)
}

// OpenFunc creates a new pool for the given parameters.
type OpenFunc[P any] func(ctx context.Context, params driver.ConnectionParams) (P, error)

// CloseFunc tears down a pool.
type CloseFunc[P any] func(p P)

// Manager is a keyed cache of connection pools. It is safe for concurrent
// use by multiple goroutines.
type Manager[P any] struct {
	mu    sync.RWMutex
	pools map[string]P
	open  OpenFunc[P]
	close CloseFunc[P]
	log   *logger.Logger
}

// NewManager returns a Manager that creates pools with open and tears them
// down with close. A nil log disables logging.
func NewManager[P any](open OpenFunc[P], close CloseFunc[P], log *logger.Logger) *Manager[P] {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager[P]{
		pools: make(map[string]P),
		open:  open,
		close: close,
		log:   log,
	}
}

// Get returns the pool for params, creating it on first use.
// Creation is serialized per manager; the fast path is a read lock.
func (m *Manager[P]) Get(ctx context.Context, params driver.ConnectionParams) (P, error) {
	key := BuildKey(params)

	m.mu.RLock()
	p, ok := m.pools[key]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have created the pool while we waited.
	if p, ok := m.pools[key]; ok {
		return p, nil
	}

	p, err := m.open(ctx, params)
	if err != nil {
		var zero P
		return zero, errs.Wrap(errs.ErrKindConnection, "failed to open connection pool", err)
	}

	m.pools[key] = p
	m.log.With().Str("pool_key", key).Logger().Debug("connection pool created")
	return p, nil
}

// Close tears down the pool for params if one exists.
// It reports whether a pool was found.
func (m *Manager[P]) Close(params driver.ConnectionParams) bool {
	key := BuildKey(params)

	m.mu.Lock()
	p, ok := m.pools[key]
	if ok {
		delete(m.pools, key)
	}
	m.mu.Unlock()

	if ok {
		m.close(p)
		m.log.With().Str("pool_key", key).Logger().Debug("connection pool closed")
	}
	return ok
}

// CloseAll tears down every pool held by the manager.
func (m *Manager[P]) CloseAll() {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]P)
	m.mu.Unlock()

	for _, p := range pools {
		m.close(p)
	}
}

// Keys returns the keys of all live pools in sorted order.
func (m *Manager[P]) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.pools))
	for k := range m.pools {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys
}
