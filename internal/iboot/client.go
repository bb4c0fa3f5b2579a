package iboot

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPort is the TCP port iBoot devices listen on
	DefaultPort = 80

	// DefaultTimeout bounds connect plus response when Config.Timeout is unset
	DefaultTimeout = 10 * time.Second
)

// Config holds the connection settings for one device
type Config struct {
	// Host is the IP address or hostname of the device
	Host string

	// Port is the TCP port (0 means DefaultPort)
	Port int

	// Password is sent in every request frame
	Password string

	// Timeout bounds each call from connect to reply (0 means DefaultTimeout)
	Timeout time.Duration
}

// Callback receives the outcome of an asynchronous call.
// Exactly one of status or err is set.
type Callback func(status Status, err error)

// Client executes commands against a single iBoot device.
// A Client holds no per-call state and is safe for concurrent use;
// every call opens and closes its own connection.
type Client struct {
	host     string
	port     int
	password string
	timeout  time.Duration
}

// NewClient validates cfg and returns a client for the device it describes
func NewClient(cfg Config) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, NewConfigError("invalid iBoot IP address or hostname")
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	if port < 1 || port > 65535 {
		return nil, NewConfigError(fmt.Sprintf("invalid iBoot port: %d", port))
	}

	password := strings.TrimSpace(cfg.Password)
	if password == "" {
		return nil, NewConfigError("password must be a non-empty string")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		host:     host,
		port:     port,
		password: password,
		timeout:  timeout,
	}, nil
}

// ParsePort converts a textual port to an int.
// Empty or non-numeric input yields 0, which NewClient replaces with DefaultPort.
func ParsePort(s string) int {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return port
}

// Host returns the normalized device host
func (c *Client) Host() string { return c.host }

// Port returns the device port
func (c *Client) Port() int { return c.port }

// Timeout returns the per-call timeout
func (c *Client) Timeout() time.Duration { return c.timeout }

// Address returns the host:port dial address
func (c *Client) Address() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// ExecuteAsync runs action against the device and reports the outcome to callback.
// An unsupported action is reported synchronously, before any connection is made;
// all other outcomes are reported from a separate goroutine.
func (c *Client) ExecuteAsync(action string, callback Callback) {
	ex := c.newExchange(callback)

	a, ok := ParseAction(action)
	if !ok {
		ex.settle("", NewInvalidActionError(action))
		return
	}

	go ex.run(a)
}

// Execute runs action against the device and blocks until the outcome is known
func (c *Client) Execute(action string) (Status, error) {
	type outcome struct {
		status Status
		err    error
	}

	done := make(chan outcome, 1)
	c.ExecuteAsync(action, func(status Status, err error) {
		done <- outcome{status: status, err: err}
	})

	o := <-done
	return o.status, o.err
}

// Query returns the current power state
func (c *Client) Query() (Status, error) { return c.Execute(string(ActionQuery)) }

// On switches the outlet on
func (c *Client) On() (Status, error) { return c.Execute(string(ActionOn)) }

// Off switches the outlet off
func (c *Client) Off() (Status, error) { return c.Execute(string(ActionOff)) }

// Cycle power cycles the outlet
func (c *Client) Cycle() (Status, error) { return c.Execute(string(ActionCycle)) }

// QueryAsync is the asynchronous form of Query
func (c *Client) QueryAsync(callback Callback) { c.ExecuteAsync(string(ActionQuery), callback) }

// OnAsync is the asynchronous form of On
func (c *Client) OnAsync(callback Callback) { c.ExecuteAsync(string(ActionOn), callback) }

// OffAsync is the asynchronous form of Off
func (c *Client) OffAsync(callback Callback) { c.ExecuteAsync(string(ActionOff), callback) }

// CycleAsync is the asynchronous form of Cycle
func (c *Client) CycleAsync(callback Callback) { c.ExecuteAsync(string(ActionCycle), callback) }
