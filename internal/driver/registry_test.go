package driver

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// stubDriver records shutdowns; everything else is inherited.
type stubDriver struct {
	Unimplemented
	id        string
	shutdowns atomic.Int32
}

func (d *stubDriver) Manifest() Manifest { return Manifest{ID: d.id, Name: d.id} }

func (d *stubDriver) Shutdown(context.Context) error {
	d.shutdowns.Add(1)
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry(nil)
	d := &stubDriver{id: "sqlite"}
	reg.Register(d)

	got, err := reg.Get("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", got.Manifest().ID)
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry(nil)

	_, err := reg.Get("nope")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestRegistry_RegisterReplacesByID(t *testing.T) {
	reg := NewRegistry(nil)
	first := &stubDriver{id: "pg"}
	second := &stubDriver{id: "pg"}
	reg.Register(first)
	reg.Register(second)

	got, err := reg.Get("pg")
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Len(t, reg.List(), 1)
}

func TestRegistry_UnregisterUnknown(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(&stubDriver{id: "a"})

	assert.False(t, reg.Unregister(context.Background(), "missing"))
	assert.Len(t, reg.List(), 1)
}

func TestRegistry_UnregisterShutsDownOnce(t *testing.T) {
	reg := NewRegistry(nil)
	d := &stubDriver{id: "duckdb"}
	reg.Register(d)

	assert.True(t, reg.Unregister(context.Background(), "duckdb"))
	assert.False(t, reg.Unregister(context.Background(), "duckdb"))
	assert.Equal(t, int32(1), d.shutdowns.Load())

	_, err := reg.Get("duckdb")
	assert.True(t, errs.IsNotFound(err))
}

func TestRegistry_ListSortedByID(t *testing.T) {
	reg := NewRegistry(nil)
	for _, id := range []string{"sqlite", "mysql", "postgres"} {
		reg.Register(&stubDriver{id: id})
	}

	var ids []string
	for _, m := range reg.List() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"mysql", "postgres", "sqlite"}, ids)
}

func TestRegistry_ShutdownAll(t *testing.T) {
	reg := NewRegistry(nil)
	a := &stubDriver{id: "a"}
	b := &stubDriver{id: "b"}
	reg.Register(a)
	reg.Register(b)

	reg.ShutdownAll(context.Background())

	assert.Empty(t, reg.List())
	assert.Equal(t, int32(1), a.shutdowns.Load())
	assert.Equal(t, int32(1), b.shutdowns.Load())
}
