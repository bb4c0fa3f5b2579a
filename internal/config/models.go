package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muurk/iboot/internal/iboot"
)

// Registry represents the entire user configuration file.
// It stores named devices and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by user-chosen device name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device holds the connection settings for one named iBoot.
// The password is never stored.
type Device struct {
	Host        string        `yaml:"host" json:"host"`
	Port        int           `yaml:"port,omitempty" json:"port,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	LastStatus  string        `yaml:"last_status,omitempty" json:"last_status,omitempty"` // Last status reported by the device
	LastSeen    time.Time     `yaml:"last_seen,omitempty" json:"last_seen,omitempty"`     // Time of LastStatus
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultTimeout  time.Duration `yaml:"default_timeout"`  // Per-call timeout when a device sets none
	DiscoverTimeout time.Duration `yaml:"discover_timeout"` // mDNS scan duration
	DemoDelay       time.Duration `yaml:"demo_delay"`       // Pause between demo steps
}

// defaultPreferences returns the preferences used for a fresh registry
func defaultPreferences() *Preferences {
	return &Preferences{
		DefaultTimeout:  iboot.DefaultTimeout,
		DiscoverTimeout: 5 * time.Second,
		DemoDelay:       2 * time.Second,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

// GetDevice retrieves a device by name.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(name string) *Device {
	return r.Devices[name]
}

// AddDevice adds or replaces a named device.
func (r *Registry) AddDevice(name string, device *Device) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("device name must not be empty")
	}
	if device == nil || strings.TrimSpace(device.Host) == "" {
		return fmt.Errorf("device %s: host must not be empty", name)
	}
	if device.Port < 0 || device.Port > 65535 {
		return fmt.Errorf("device %s: invalid port %d", name, device.Port)
	}

	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	device.Host = strings.TrimSpace(device.Host)
	r.Devices[name] = device
	return nil
}

// RemoveDevice deletes a named device. Returns false if it did not exist.
func (r *Registry) RemoveDevice(name string) bool {
	if _, ok := r.Devices[name]; !ok {
		return false
	}
	delete(r.Devices, name)
	return true
}

// RecordStatus stores the last status seen for a device.
func (r *Registry) RecordStatus(name string, status iboot.Status) {
	device := r.Devices[name]
	if device == nil {
		return
	}
	device.LastStatus = string(status)
	device.LastSeen = time.Now()
}

// Names returns the device names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Devices))
	for name := range r.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClientConfig builds client settings for a named device.
func (r *Registry) ClientConfig(name, password string) (iboot.Config, error) {
	device := r.Devices[name]
	if device == nil {
		return iboot.Config{}, fmt.Errorf("unknown device %q (see 'iboot device list')", name)
	}

	timeout := device.Timeout
	if timeout <= 0 && r.Preferences != nil {
		timeout = r.Preferences.DefaultTimeout
	}

	return iboot.Config{
		Host:     device.Host,
		Port:     device.Port,
		Password: password,
		Timeout:  timeout,
	}, nil
}
