package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
)

// manifestFile is the fixed manifest name inside each plugin directory.
const manifestFile = "manifest.json"

// fileManifest is the on-disk manifest shape. It carries everything the host
// needs to present and spawn a plugin without talking to it first.
type fileManifest struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Version         string              `json:"version"`
	Description     string              `json:"description"`
	DefaultPort     int                 `json:"default_port,omitempty"`
	Capabilities    driver.Capabilities `json:"capabilities"`
	DataTypes       []driver.DataType   `json:"data_types"`
	Executable      string              `json:"executable"`
	DefaultUsername string              `json:"default_username,omitempty"`
}

// LoadPlugins scans dir for plugin subdirectories, spawns each enabled
// plugin's executable and registers an RPCDriver for it. A nil enabled slice
// loads every installed plugin; otherwise only plugins whose manifest id is
// listed are started; disabled plugins are never spawned. Per-plugin
// failures are logged and skipped so one broken plugin cannot block the
// rest.
func LoadPlugins(dir string, enabled []string, reg *driver.Registry, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "cannot create plugins directory", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "cannot read plugins directory", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pluginDir := filepath.Join(dir, entry.Name())
		m, err := readManifest(pluginDir)
		if err != nil {
			log.ErrorWith("failed to load plugin", err, map[string]any{"plugin": entry.Name()})
			continue
		}
		// The enabled list names manifest ids; the directory name may
		// differ.
		if enabled != nil && !slices.Contains(enabled, m.ID) {
			log.Infof("skipping disabled plugin %s", m.ID)
			continue
		}

		d, err := spawnPlugin(pluginDir, m, log)
		if err != nil {
			log.ErrorWith("failed to load plugin", err, map[string]any{"plugin": m.ID})
			continue
		}
		reg.Register(d)
		log.Infof("loaded plugin %s (pid %d)", d.Manifest().ID, d.PID())
	}
	return nil
}

// LoadPlugin reads one plugin directory's manifest and spawns its executable.
func LoadPlugin(dir string, log *logger.Logger) (*RPCDriver, error) {
	m, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	return spawnPlugin(dir, m, log)
}

func readManifest(dir string) (*fileManifest, error) {
	path := filepath.Join(dir, manifestFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("cannot read %s", path), err)
	}

	var m fileManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.Wrap(errs.ErrKindDecode, fmt.Sprintf("cannot parse %s", path), err)
	}
	if m.ID == "" || m.Executable == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "plugin manifest needs id and executable")
	}
	return &m, nil
}

func spawnPlugin(dir string, m *fileManifest, log *logger.Logger) (*RPCDriver, error) {
	exe := filepath.Join(dir, m.Executable)
	if _, err := os.Stat(exe); err != nil {
		return nil, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("plugin executable %s missing", exe), err)
	}

	proc, err := Spawn(exe, log.With().Str("plugin", m.ID).Logger())
	if err != nil {
		return nil, err
	}

	manifest := driver.Manifest{
		ID:              m.ID,
		Name:            m.Name,
		Version:         m.Version,
		Description:     m.Description,
		DefaultPort:     m.DefaultPort,
		Capabilities:    m.Capabilities,
		DefaultUsername: m.DefaultUsername,
	}
	return NewRPCDriver(manifest, m.DataTypes, proc), nil
}
