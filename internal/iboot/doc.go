// Package iboot implements a client for iBoot remote power control devices.
//
// An iBoot exposes a single TCP port (80 by default) that accepts one command
// per connection. The client connects, writes one request frame, waits for the
// first reply chunk and closes the connection.
//
// # Wire Format
//
// Request frame, sent as a single write:
//
//	ESC <password> ESC <action> CR
//
// Actions: query 'q', on 'n', off 'f', cycle 'c'.
//
// The device answers with a status word such as "ON" or "BUSY". Only the
// character at offset 1 is significant, compared case-insensitively:
// 'n' on, 'f' off, 'y' cycle, 'u' busy. The same table is used for every
// action, query included.
//
// # Usage Example
//
//	client, err := iboot.NewClient(iboot.Config{
//	    Host:     "10.0.0.5",
//	    Password: "secret",
//	    Timeout:  time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	status, err := client.Query()
//
// The asynchronous form reports through a callback that fires exactly once:
//
//	client.CycleAsync(func(status iboot.Status, err error) {
//	    ...
//	})
//
// # Errors
//
// Failures detected by the client are *Error values with an ErrorType
// (timeout, unknown status, closed without response, invalid host, invalid
// action, configuration). Other socket errors are returned unchanged. There
// are no automatic retries; every call ends within the configured timeout.
//
// # Thread Safety
//
// A Client only holds immutable settings. Concurrent calls each open their
// own connection; the device itself answers "busy" while it serves another
// session.
package iboot
