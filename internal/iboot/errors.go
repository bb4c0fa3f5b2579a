package iboot

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConfig indicates invalid connection settings given to NewClient
	ErrTypeConfig ErrorType = iota
	// ErrTypeInvalidAction indicates an action outside the supported set
	ErrTypeInvalidAction
	// ErrTypeTimeout indicates the device did not answer within the timeout
	ErrTypeTimeout
	// ErrTypeUnknownStatus indicates a reply with an unrecognised status character
	ErrTypeUnknownStatus
	// ErrTypeClosedWithoutResponse indicates the device hung up before replying
	ErrTypeClosedWithoutResponse
	// ErrTypeInvalidHost indicates the configured host could not be resolved
	ErrTypeInvalidHost
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConfig:
		return "Configuration Error"
	case ErrTypeInvalidAction:
		return "Invalid Action"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeUnknownStatus:
		return "Unknown Status"
	case ErrTypeClosedWithoutResponse:
		return "Closed Without Response"
	case ErrTypeInvalidHost:
		return "Invalid Host"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned for every failure the client itself detects.
// Transport failures other than host resolution are returned unwrapped.
type Error struct {
	Type    ErrorType // Category of error
	Message string    // Message as reported to callers
	Host    string    // Configured host (invalid host errors)
	Code    string    // Raw status character (unknown status errors)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *Error {
	return &Error{Type: ErrTypeConfig, Message: message}
}

// NewInvalidActionError creates an error for an unsupported action name
func NewInvalidActionError(action string) *Error {
	return &Error{
		Type:    ErrTypeInvalidAction,
		Message: fmt.Sprintf("Invalid action %q", action),
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError() *Error {
	return &Error{Type: ErrTypeTimeout, Message: "Timed out."}
}

// NewUnknownStatusError creates an error carrying the unrecognised status character
func NewUnknownStatusError(code string) *Error {
	return &Error{
		Type:    ErrTypeUnknownStatus,
		Message: fmt.Sprintf("Unknown status %q.", code),
		Code:    code,
	}
}

// NewClosedWithoutResponseError creates an error for a connection closed before any reply
func NewClosedWithoutResponseError() *Error {
	return &Error{Type: ErrTypeClosedWithoutResponse, Message: "Connection closed without a response."}
}

// NewInvalidHostError creates a host resolution error naming the configured host
func NewInvalidHostError(host string, err error) *Error {
	return &Error{
		Type:    ErrTypeInvalidHost,
		Message: fmt.Sprintf("Invalid host %q", host),
		Host:    host,
		Err:     err,
	}
}

func hasType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool { return hasType(err, ErrTypeConfig) }

// IsInvalidActionError checks if an error is an invalid action error
func IsInvalidActionError(err error) bool { return hasType(err, ErrTypeInvalidAction) }

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool { return hasType(err, ErrTypeTimeout) }

// IsUnknownStatusError checks if an error is an unknown status error
func IsUnknownStatusError(err error) bool { return hasType(err, ErrTypeUnknownStatus) }

// IsClosedWithoutResponseError checks if the device closed the connection without replying
func IsClosedWithoutResponseError(err error) bool {
	return hasType(err, ErrTypeClosedWithoutResponse)
}

// IsInvalidHostError checks if an error is a host resolution error
func IsInvalidHostError(err error) bool { return hasType(err, ErrTypeInvalidHost) }

// IsTransportError reports whether err is a raw socket error passed through from the network stack
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	return !errors.As(err, &e)
}

// isResolutionError reports whether a dial failed because the host name
// does not resolve. Resolver timeouts and server failures are not included.
func isResolutionError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// TroubleshootingHint returns user-friendly troubleshooting advice for an error
func TroubleshootingHint(err error) string {
	tips := TroubleshootingTips(err)
	if len(tips) <= 1 {
		return strings.Join(tips, "")
	}

	lines := []string{tips[0], "Troubleshooting:"}
	for _, tip := range tips[1:] {
		lines = append(lines, "  • "+tip)
	}
	return strings.Join(lines, "\n")
}

// TroubleshootingTips returns a summary line followed by individual tips
func TroubleshootingTips(err error) []string {
	var e *Error
	if !errors.As(err, &e) {
		return []string{transportHint(err)}
	}

	switch e.Type {
	case ErrTypeTimeout:
		return []string{
			"The device did not respond in time.",
			"Check that the iBoot is powered and its network LED is lit",
			"Verify the port (the default is 80)",
			"A wrong password makes some firmware stay silent",
			"Try increasing --timeout",
		}

	case ErrTypeClosedWithoutResponse:
		return []string{
			"The device closed the connection without answering.",
			"Check the password",
			"Another client may be connected; wait and retry",
		}

	case ErrTypeInvalidHost:
		return []string{
			"Could not resolve the device hostname.",
			"Use the IP address instead of hostname",
			"Run 'iboot scan' to find devices on the local network",
		}

	case ErrTypeUnknownStatus:
		return []string{fmt.Sprintf("The device answered with status %q, which this client does not understand.", e.Code)}

	case ErrTypeInvalidAction:
		return []string{"Supported actions: " + strings.Join(Actions(), ", ")}

	case ErrTypeConfig:
		return []string{"Check --host, --port and --password (or IBOOT_HOST, IBOOT_PORT, IBOOT_PASSWORD)."}

	default:
		return []string{"An error occurred. Please check the error message for details."}
	}
}

func transportHint(err error) string {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return "The device refused the connection. Verify the port number (default is 80)."
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return "Host unreachable. Check that you are on the same network as the device."
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return "Network unreachable. Check your network connection."
		}
	}
	if os.IsTimeout(err) {
		return "The connection attempt timed out."
	}
	return "Network communication failed. Check your network connection."
}

// ShortErrorMessage returns a concise, user-friendly error message
func ShortErrorMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeClosedWithoutResponse:
		return "Device hung up - check the password"
	case ErrTypeInvalidHost:
		return "Cannot resolve device hostname"
	default:
		return e.Message
	}
}
