package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/iboot/internal/iboot"
)

// Device represents an iBoot discovered on the network
type Device struct {
	// Name is the device name from its hostname (e.g., "iBoot-0A1B2C")
	Name string `json:"name"`

	// Serial is the hex suffix of the hostname, usually the MAC tail (may be empty)
	Serial string `json:"serial,omitempty"`

	// Hostname is the mDNS hostname (e.g., "iBoot-0A1B2C.local.")
	Hostname string `json:"hostname"`

	// IP is the device address, IPv4 preferred
	IP string `json:"ip"`

	// Port is the advertised port (typically 80)
	Port int `json:"port"`

	// Metadata contains additional mDNS TXT record data
	Metadata map[string]string `json:"metadata,omitempty"`

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time `json:"discovered_at"`
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("iBoot %s (%s) at %s", d.Name, d.Hostname, d.Address())
}

// Address returns the host:port used to reach the device
func (d *Device) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// ClientConfig returns client settings for this device.
// The password is never advertised and must be supplied by the caller.
func (d *Device) ClientConfig(password string, timeout time.Duration) iboot.Config {
	return iboot.Config{
		Host:     d.IP,
		Port:     d.Port,
		Password: password,
		Timeout:  timeout,
	}
}
