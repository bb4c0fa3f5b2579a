// Package discovery finds iBoot power controllers on the local network via mDNS.
//
// iBoot units serve their web interface on port 80 and, on firmware that
// supports it, advertise it as an "_http._tcp" service. The scanner browses
// that service type and keeps entries whose hostname starts with "iboot"
// (any case), optionally followed by a hex suffix such as the MAC tail:
//
//	iboot.local.
//	iBoot-0A1B2C.local.
//
// # Usage Example
//
//	devices, err := discovery.ScanForDevices(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    client, err := iboot.NewClient(d.ClientConfig(password, 0))
//	    ...
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
