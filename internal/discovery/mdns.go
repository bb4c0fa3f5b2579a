package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/iboot/internal/logging"
)

const (
	// ServiceType is the mDNS service type iBoot web interfaces advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the default port for iBoot devices
	DefaultPort = 80
)

// hostnamePattern matches iBoot hostnames (e.g., "iBoot-0A1B2C.local.", "iboot.local")
var hostnamePattern = regexp.MustCompile(`(?i)^(iboot(?:[-_]?([0-9a-f]+))?)\.local\.?$`)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all iBoot devices on the local network
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background())
}

// ScanForDevicesWithContext discovers devices with a custom context
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan []*Device, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// The resolver closes entries once ctx is done
	go func() {
		devices := make([]*Device, 0)
		seen := make(map[string]bool)
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device == nil || seen[device.Hostname] {
				continue
			}
			seen[device.Hostname] = true
			logging.Debug("Discovered device",
				zap.String("hostname", device.Hostname),
				zap.String("addr", device.Address()),
			)
			devices = append(devices, device)
		}
		collected <- devices
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	select {
	case devices := <-collected:
		return devices, nil
	case <-time.After(time.Second):
		return nil, fmt.Errorf("mDNS resolver did not finish after timeout")
	}
}

// WaitForDevice waits for a device by name (case-insensitive)
func (s *Scanner) WaitForDevice(name string) (*Device, error) {
	return s.WaitForDeviceWithContext(context.Background(), name)
}

// WaitForDeviceWithContext waits for a specific device with a custom context
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, name string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	deviceChan := make(chan *Device, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var once sync.Once
	go func() {
		for entry := range entries {
			if device := s.matchEntry(entry, name); device != nil {
				once.Do(func() {
					deviceChan <- device
					cancel()
				})
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case device := <-deviceChan:
		return device, nil
	case <-ctx.Done():
		select {
		case device := <-deviceChan:
			return device, nil
		default:
		}
		return nil, fmt.Errorf("device %s not found within timeout", name)
	}
}

// matchEntry returns the device for entry if it is the iBoot called name.
// Names compare case-insensitively, with or without the ".local." suffix.
func (s *Scanner) matchEntry(entry *zeroconf.ServiceEntry, name string) *Device {
	device := s.parseServiceEntry(entry)
	if device == nil {
		return nil
	}
	want := strings.TrimSuffix(strings.TrimSuffix(name, "."), ".local")
	if !strings.EqualFold(device.Name, want) {
		return nil
	}
	return device
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry is not an iBoot.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	hostname := entry.HostName
	if hostname == "" {
		return nil
	}

	matches := hostnamePattern.FindStringSubmatch(hostname)
	if len(matches) < 3 {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Device{
		Name:         matches[1],
		Serial:       strings.ToUpper(matches[2]),
		Hostname:     hostname,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevices()
}

// FindDevice searches for a device by name with a custom timeout
func FindDevice(name string, timeout time.Duration) (*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.WaitForDevice(name)
}
