package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/iboot/internal/logging"
)

const (
	appName    = "iboot"
	configFile = "config.yaml"

	// registryVersion is the file format this build reads and writes
	registryVersion = 1
)

var (
	// Process-wide registry, read from disk on first use
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// saveMu serializes writers; the panel and CLI record statuses concurrently
	saveMu sync.Mutex
)

// GetConfigDir returns the directory holding the device registry:
//   - Windows: %LOCALAPPDATA%\iboot (or %USERPROFILE%\AppData\Local\iboot)
//   - macOS: ~/.config/iboot
//   - others: $XDG_CONFIG_HOME/iboot, falling back to ~/.config/iboot
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", fmt.Errorf("cannot locate the iboot config directory: LOCALAPPDATA and USERPROFILE are unset")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil

	case "darwin":
		// ~/.config rather than ~/Library so dotfile managers pick it up

	default:
		if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate the iboot config directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigPath returns the full path of the registry file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry returns the process-wide registry, reading it on first call.
// A missing file is not an error: the registry starts empty.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		path, err := GetConfigPath()
		if err != nil {
			globalRegistryErr = err
			return
		}
		globalRegistry, globalRegistryErr = loadRegistryFile(path)
	})
	return globalRegistry, globalRegistryErr
}

// loadRegistryFile reads the registry at path and fills in defaults
func loadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logging.Debug("No device registry yet", zap.String("path", path))
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read device registry %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("device registry %s is not valid YAML: %w", path, err)
	}

	var registry Registry
	if err := doc.Decode(&registry); err != nil {
		return nil, fmt.Errorf("device registry %s is malformed: %w", path, err)
	}

	switch {
	case registry.Version == 0:
		return nil, fmt.Errorf("device registry %s has no version field; expected \"version: %d\"", path, registryVersion)
	case registry.Version > registryVersion:
		return nil, fmt.Errorf("device registry %s uses format version %d, written by a newer iboot; this build reads version %d", path, registry.Version, registryVersion)
	case registry.Version != registryVersion:
		return nil, fmt.Errorf("device registry %s uses unsupported format version %d (expected %d)", path, registry.Version, registryVersion)
	}

	// Passwords are never read from disk. A hand-edited password is ignored
	// and the user is told where it should come from instead.
	for _, name := range devicesWithPassword(&doc) {
		logging.Warn("Ignoring password stored in device registry; use --password or IBOOT_PASSWORD",
			zap.String("device", name),
			zap.String("path", path),
		)
	}

	if registry.Devices == nil {
		registry.Devices = make(map[string]*Device)
	}
	registry.Preferences = withDefaults(registry.Preferences)

	logging.Debug("Loaded device registry",
		zap.String("path", path),
		zap.Int("devices", len(registry.Devices)),
	)
	return &registry, nil
}

// withDefaults fills preferences that are missing or zero in the file
func withDefaults(p *Preferences) *Preferences {
	defaults := defaultPreferences()
	if p == nil {
		return defaults
	}
	if p.DefaultTimeout <= 0 {
		p.DefaultTimeout = defaults.DefaultTimeout
	}
	if p.DiscoverTimeout <= 0 {
		p.DiscoverTimeout = defaults.DiscoverTimeout
	}
	if p.DemoDelay <= 0 {
		p.DemoDelay = defaults.DemoDelay
	}
	return p
}

// devicesWithPassword returns the names of device entries that carry a
// password key in the raw document
func devicesWithPassword(doc *yaml.Node) []string {
	if len(doc.Content) == 0 {
		return nil
	}
	devices := mappingValue(doc.Content[0], "devices")
	if devices == nil || devices.Kind != yaml.MappingNode {
		return nil
	}

	var names []string
	for i := 0; i+1 < len(devices.Content); i += 2 {
		if mappingValue(devices.Content[i+1], "password") != nil {
			names = append(names, devices.Content[i].Value)
		}
	}
	return names
}

// mappingValue returns the value node for key in a YAML mapping, or nil
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// Save writes the registry to its default location.
func (r *Registry) Save() error {
	saveMu.Lock()
	defer saveMu.Unlock()

	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	// 0700: the file lists hosts that accept power commands
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	return r.saveFile(filepath.Join(dir, configFile))
}

// saveFile writes the registry to path through a temporary file and rename,
// so a crash mid-write leaves the previous registry intact
func (r *Registry) saveFile(path string) error {
	r.Version = registryVersion

	body, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode device registry: %w", err)
	}

	header := fmt.Sprintf(`# iBoot device registry (format version %d)
# Managed by 'iboot device add|remove' and 'iboot scan --save'.
#
# Passwords are never stored here and are ignored if added by hand.
# Supply them with --password, IBOOT_PASSWORD, or the interactive prompt.
#
# Location: %s

`, registryVersion, path)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append([]byte(header), body...), 0600); err != nil {
		return fmt.Errorf("failed to write device registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace device registry %s: %w", path, err)
	}

	logging.Debug("Saved device registry",
		zap.String("path", path),
		zap.Int("devices", len(r.Devices)),
	)
	return nil
}
