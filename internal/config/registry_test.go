package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/logging"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "iboot") {
		t.Errorf("GetConfigDir() = %v, should contain 'iboot'", configDir)
	}

	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		configDir, err = GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() error = %v", err)
		}
		if configDir != filepath.Join("/tmp/xdg", "iboot") {
			t.Errorf("GetConfigDir() = %v, want /tmp/xdg/iboot", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}
	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}
	if reg.Preferences.DefaultTimeout != iboot.DefaultTimeout {
		t.Errorf("DefaultTimeout = %v, want %v", reg.Preferences.DefaultTimeout, iboot.DefaultTimeout)
	}
	if reg.Preferences.DemoDelay != 2*time.Second {
		t.Errorf("DemoDelay = %v, want 2s", reg.Preferences.DemoDelay)
	}
}

func TestRegistryAddDevice(t *testing.T) {
	reg := NewRegistry()

	if err := reg.AddDevice("rack-1", &Device{Host: " 10.0.0.5 ", Port: 80}); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}
	device := reg.GetDevice("rack-1")
	if device == nil {
		t.Fatal("device should exist after AddDevice()")
	}
	if device.Host != "10.0.0.5" {
		t.Errorf("Host = %q, want trimmed", device.Host)
	}

	invalid := []struct {
		name   string
		device *Device
	}{
		{"", &Device{Host: "h"}},
		{"x", nil},
		{"x", &Device{Host: " "}},
		{"x", &Device{Host: "h", Port: 70000}},
	}
	for _, tt := range invalid {
		if err := reg.AddDevice(tt.name, tt.device); err == nil {
			t.Errorf("AddDevice(%q, %+v) should fail", tt.name, tt.device)
		}
	}
}

func TestRegistryRemoveDevice(t *testing.T) {
	reg := NewRegistry()
	reg.AddDevice("rack-1", &Device{Host: "10.0.0.5"})

	if !reg.RemoveDevice("rack-1") {
		t.Error("RemoveDevice() should report an existing device")
	}
	if reg.RemoveDevice("rack-1") {
		t.Error("RemoveDevice() should report a missing device")
	}
}

func TestRegistryRecordStatus(t *testing.T) {
	reg := NewRegistry()
	reg.AddDevice("rack-1", &Device{Host: "10.0.0.5"})

	before := time.Now()
	reg.RecordStatus("rack-1", iboot.StatusOn)
	reg.RecordStatus("missing", iboot.StatusOn)

	device := reg.GetDevice("rack-1")
	if device.LastStatus != "on" {
		t.Errorf("LastStatus = %q, want on", device.LastStatus)
	}
	if device.LastSeen.Before(before) {
		t.Errorf("LastSeen = %v, should be after %v", device.LastSeen, before)
	}
	if reg.GetDevice("missing") != nil {
		t.Error("RecordStatus() must not create devices")
	}
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	reg.AddDevice("b", &Device{Host: "h"})
	reg.AddDevice("a", &Device{Host: "h"})
	reg.AddDevice("c", &Device{Host: "h"})

	if got := strings.Join(reg.Names(), ","); got != "a,b,c" {
		t.Errorf("Names() = %q, want a,b,c", got)
	}
}

func TestRegistryClientConfig(t *testing.T) {
	reg := NewRegistry()
	reg.AddDevice("default-timeout", &Device{Host: "10.0.0.5"})
	reg.AddDevice("custom", &Device{Host: "10.0.0.6", Port: 9100, Timeout: time.Second})

	cfg, err := reg.ClientConfig("default-timeout", "secret")
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if cfg.Timeout != iboot.DefaultTimeout || cfg.Password != "secret" {
		t.Errorf("ClientConfig() = %+v", cfg)
	}

	cfg, err = reg.ClientConfig("custom", "secret")
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if cfg.Port != 9100 || cfg.Timeout != time.Second {
		t.Errorf("ClientConfig() = %+v", cfg)
	}

	if _, err := reg.ClientConfig("missing", "secret"); err == nil {
		t.Error("ClientConfig() should fail for unknown devices")
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	reg := NewRegistry()
	reg.AddDevice("rack-1", &Device{
		Host:        "10.0.0.5",
		Port:        9100,
		Timeout:     1500 * time.Millisecond,
		Description: "Lab router",
	})
	reg.Preferences.DemoDelay = 3 * time.Second

	if err := reg.saveFile(path); err != nil {
		t.Fatalf("saveFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# iBoot device registry (format version 1)") {
		t.Error("saved file should start with the header comment")
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, "password") && !strings.HasPrefix(line, "#") {
			t.Errorf("saved file must not contain passwords: %q", line)
		}
	}

	loaded, err := loadRegistryFile(path)
	if err != nil {
		t.Fatalf("loadRegistryFile() error = %v", err)
	}
	device := loaded.GetDevice("rack-1")
	if device == nil {
		t.Fatal("device missing after reload")
	}
	if device.Host != "10.0.0.5" || device.Port != 9100 || device.Timeout != 1500*time.Millisecond {
		t.Errorf("reloaded device = %+v", device)
	}
	if loaded.Preferences.DemoDelay != 3*time.Second {
		t.Errorf("DemoDelay = %v, want 3s", loaded.Preferences.DemoDelay)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}
}

func TestLoadRegistryFile_Missing(t *testing.T) {
	reg, err := loadRegistryFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadRegistryFile() error = %v", err)
	}
	if reg.Version != 1 || reg.Preferences == nil {
		t.Error("missing file should yield a default registry")
	}
}

func TestLoadRegistryFile_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		contains string
	}{
		{"newer version", "version: 2\n", "written by a newer iboot"},
		{"no version", "devices: {}\n", "has no version field"},
		{"negative version", "version: -1\n", "unsupported format version -1"},
		{"malformed YAML", "version: [\n", "not valid YAML"},
		{"wrong shape", "version: 1\ndevices: [a, b]\n", "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.contents), 0600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			_, err := loadRegistryFile(path)
			if err == nil {
				t.Fatal("loadRegistryFile() should fail")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error = %q, should contain %q", err, tt.contains)
			}
		})
	}
}

func TestLoadRegistryFile_MissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("version: 1\npreferences:\n  demo_delay: 750ms\n"), 0600)

	reg, err := loadRegistryFile(path)
	if err != nil {
		t.Fatalf("loadRegistryFile() error = %v", err)
	}
	if reg.Devices == nil {
		t.Error("missing devices section should be initialized")
	}
	if reg.Preferences.DemoDelay != 750*time.Millisecond {
		t.Errorf("DemoDelay = %v, want 750ms", reg.Preferences.DemoDelay)
	}
	if reg.Preferences.DefaultTimeout != iboot.DefaultTimeout {
		t.Errorf("DefaultTimeout = %v, want default %v", reg.Preferences.DefaultTimeout, iboot.DefaultTimeout)
	}
	if reg.Preferences.DiscoverTimeout != 5*time.Second {
		t.Errorf("DiscoverTimeout = %v, want default 5s", reg.Preferences.DiscoverTimeout)
	}
}

func TestLoadRegistryFile_IgnoresPasswords(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte(`version: 1
devices:
  rack-1:
    host: 10.0.0.5
    password: hunter2
  rack-2:
    host: 10.0.0.6
`), 0600)

	reg, err := loadRegistryFile(path)
	if err != nil {
		t.Fatalf("loadRegistryFile() error = %v", err)
	}

	cfg, err := reg.ClientConfig("rack-1", "")
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if cfg.Password != "" {
		t.Errorf("password %q was read from the registry", cfg.Password)
	}

	warnings := logs.FilterMessageSnippet("Ignoring password").All()
	if len(warnings) != 1 {
		t.Fatalf("got %d password warnings, want 1", len(warnings))
	}
	if warnings[0].ContextMap()["device"] != "rack-1" {
		t.Errorf("warning names device %v, want rack-1", warnings[0].ContextMap()["device"])
	}
	for _, entry := range logs.All() {
		for _, v := range entry.ContextMap() {
			if v == "hunter2" {
				t.Error("password value leaked into the log")
			}
		}
	}
}

func TestLoadRegistryFile_DurationStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte(`version: 1
devices:
  rack-1:
    host: 10.0.0.5
    timeout: 2s
preferences:
  default_timeout: 4s
  discover_timeout: 3s
  demo_delay: 500ms
`), 0600)

	reg, err := loadRegistryFile(path)
	if err != nil {
		t.Fatalf("loadRegistryFile() error = %v", err)
	}
	if reg.GetDevice("rack-1").Timeout != 2*time.Second {
		t.Errorf("device timeout = %v, want 2s", reg.GetDevice("rack-1").Timeout)
	}
	if reg.Preferences.DemoDelay != 500*time.Millisecond {
		t.Errorf("DemoDelay = %v, want 500ms", reg.Preferences.DemoDelay)
	}
}
