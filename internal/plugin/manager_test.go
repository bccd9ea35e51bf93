package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
)

// installPlugin lays out one plugin directory with a manifest and a shell
// script standing in for the executable.
func installPlugin(t *testing.T, root, id string) {
	t.Helper()
	installPluginAt(t, root, id, id)
}

// installPluginAt is installPlugin with a directory name that differs from
// the manifest id.
func installPluginAt(t *testing.T, root, dirName, id string) {
	t.Helper()
	dir := filepath.Join(root, dirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	m := fileManifest{
		ID:          id,
		Name:        id,
		Version:     "0.1.0",
		Description: "test plugin",
		Capabilities: driver.Capabilities{
			FileBased:       true,
			IdentifierQuote: `"`,
		},
		DataTypes:  []driver.DataType{{Name: "INTEGER", Category: "numeric"}},
		Executable: "plugin.sh",
	}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), raw, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.sh"), []byte("#!/bin/sh\nexec cat"), 0o755))
}

func TestLoadPlugin(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "duckdb")

	d, err := LoadPlugin(filepath.Join(root, "duckdb"), logger.Nop())
	require.NoError(t, err)
	defer d.Shutdown(context.Background())

	m := d.Manifest()
	assert.Equal(t, "duckdb", m.ID)
	assert.False(t, m.IsBuiltin)
	assert.True(t, m.Capabilities.FileBased)
	assert.Equal(t, []driver.DataType{{Name: "INTEGER", Category: "numeric"}}, d.DataTypes())
	assert.NotZero(t, d.PID())

	url, err := d.ConnectionURL(driver.ConnectionParams{})
	require.NoError(t, err)
	assert.Equal(t, "duckdb://...", url)
}

func TestLoadPluginMissingManifest(t *testing.T) {
	_, err := LoadPlugin(t.TempDir(), logger.Nop())
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestLoadPluginMissingExecutable(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "broken")
	require.NoError(t, os.Remove(filepath.Join(root, "broken", "plugin.sh")))

	_, err := LoadPlugin(filepath.Join(root, "broken"), logger.Nop())
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestLoadPluginsHonorsEnabledList(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "alpha")
	installPlugin(t, root, "beta")

	reg := driver.NewRegistry(logger.Nop())
	require.NoError(t, LoadPlugins(root, []string{"beta"}, reg, logger.Nop()))
	defer reg.ShutdownAll(context.Background())

	manifests := reg.List()
	require.Len(t, manifests, 1)
	assert.Equal(t, "beta", manifests[0].ID)
}

func TestLoadPluginsEnabledMatchesManifestID(t *testing.T) {
	root := t.TempDir()
	installPluginAt(t, root, "duckdb-plugin-v2", "duckdb")

	reg := driver.NewRegistry(logger.Nop())
	require.NoError(t, LoadPlugins(root, []string{"duckdb"}, reg, logger.Nop()))
	defer reg.ShutdownAll(context.Background())

	// The enabled list names manifest ids, not directory names.
	manifests := reg.List()
	require.Len(t, manifests, 1)
	assert.Equal(t, "duckdb", manifests[0].ID)

	reg2 := driver.NewRegistry(logger.Nop())
	require.NoError(t, LoadPlugins(root, []string{"duckdb-plugin-v2"}, reg2, logger.Nop()))
	defer reg2.ShutdownAll(context.Background())
	assert.Empty(t, reg2.List())
}

func TestLoadPluginsNilEnabledLoadsAll(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "alpha")
	installPlugin(t, root, "beta")

	reg := driver.NewRegistry(logger.Nop())
	require.NoError(t, LoadPlugins(root, nil, reg, logger.Nop()))
	defer reg.ShutdownAll(context.Background())

	assert.Len(t, reg.List(), 2)
}

func TestLoadPluginsCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plugins")
	reg := driver.NewRegistry(logger.Nop())
	require.NoError(t, LoadPlugins(dir, nil, reg, logger.Nop()))
	assert.DirExists(t, dir)
	assert.Empty(t, reg.List())
}
