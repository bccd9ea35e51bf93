package driver

import (
	"context"
	"sort"
	"sync"

	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
)

// Registry is the concurrent map from driver id to a live driver instance.
// It is explicitly constructed and injected, never ambient: the host creates
// one at startup and drains it at shutdown, and tests build isolated
// instances. Lookups vastly outnumber mutations, hence the RWMutex.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
	log     *logger.Logger
}

// NewRegistry creates an empty registry. A nil log disables logging.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		drivers: make(map[string]Driver),
		log:     log,
	}
}

// Register inserts d under its manifest id, replacing any previous driver
// with the same id. Called at startup for built-in drivers and at any later
// point for plugin drivers.
func (r *Registry) Register(d Driver) {
	m := d.Manifest()
	r.log.Infof("registering driver: %s (%s)", m.Name, m.ID)

	r.mu.Lock()
	r.drivers[m.ID] = d
	r.mu.Unlock()
}

// Get returns the driver registered under id, or ErrKindNotFound.
// The returned handle stays valid even if the driver is unregistered while
// calls are still resolving; unregistration only removes the map entry.
func (r *Registry) Get(id string) (Driver, error) {
	r.mu.RLock()
	d, ok := r.drivers[id]
	r.mu.RUnlock()

	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no driver registered with id %q", id)
	}
	return d, nil
}

// Unregister removes the driver with the given id and invokes its shutdown
// path. Reports whether a driver was removed; unknown ids have no side
// effects. Shutdown runs outside the registry lock so in-flight Get/List
// calls never block behind a slow process termination.
func (r *Registry) Unregister(ctx context.Context, id string) bool {
	r.mu.Lock()
	d, ok := r.drivers[id]
	if ok {
		delete(r.drivers, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.log.Infof("unregistered driver: %s", id)
	if err := d.Shutdown(ctx); err != nil {
		r.log.Errorf("driver %s shutdown: %v", id, err)
	}
	return true
}

// List returns the manifests of all registered drivers, sorted by id for
// deterministic presentation.
func (r *Registry) List() []Manifest {
	r.mu.RLock()
	manifests := make([]Manifest, 0, len(r.drivers))
	for _, d := range r.drivers {
		manifests = append(manifests, d.Manifest())
	}
	r.mu.RUnlock()

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ID < manifests[j].ID })
	return manifests
}

// ShutdownAll unregisters every driver, shutting each one down.
// Called once at host shutdown.
func (r *Registry) ShutdownAll(ctx context.Context) {
	for _, m := range r.List() {
		r.Unregister(ctx, m.ID)
	}
}
