// Package config provides user configuration management for the iboot command.
//
// This package manages a YAML file that stores named iBoot devices (host, port,
// timeout, last known status) and application preferences. The file location
// follows OS-specific conventions.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/iboot/config.yaml or $HOME/.config/iboot/config.yaml
//   - macOS: $HOME/.config/iboot/config.yaml
//   - Windows: %LOCALAPPDATA%\iboot\config.yaml
//
// # Security
//
// IMPORTANT: Device passwords are NEVER stored. They are supplied per command
// through --password, IBOOT_PASSWORD or an interactive prompt.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.AddDevice("rack-1", &config.Device{Host: "10.0.0.5"})
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := registry.ClientConfig("rack-1", password)
//
// Durations are written in Go notation ("10s", "500ms").
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
