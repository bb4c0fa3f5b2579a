package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/iboot/internal/config"
	"github.com/muurk/iboot/internal/discovery"
	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/logging"
)

// Environment variables consulted when the matching flag is not set
const (
	EnvHost     = "IBOOT_HOST"
	EnvPort     = "IBOOT_PORT"
	EnvPassword = "IBOOT_PASSWORD"
)

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
)

// Connection and output flags shared by all device commands
var opts struct {
	host     string
	port     int
	password string
	device   string
	timeout  time.Duration
	format   string
	logLevel string
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.host, "host", "", "Device IP address or hostname (env "+EnvHost+")")
	flags.IntVar(&opts.port, "port", 0, "Device TCP port (env "+EnvPort+", default 80)")
	flags.StringVar(&opts.password, "password", "", "Device password (env "+EnvPassword+", prompted if unset)")
	flags.StringVarP(&opts.device, "device", "d", "", "Named device from the registry")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Exchange timeout (default 10s)")
	flags.StringVar(&opts.format, "format", formatText, "Output format (text, json)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); silent if unset")
}

// target is a resolved device: a client plus its name, if any.
// Only registered targets have their status recorded.
type target struct {
	name       string
	registered bool
	client     *iboot.Client
}

// findDevice looks a device up on the network by mDNS name
var findDevice = discovery.FindDevice

// label names the target for display
func (t *target) label() string {
	if t.name != "" {
		return t.name
	}
	return t.client.Address()
}

// record stores a successful status in the registry for named devices.
// Registry failures are logged and never fail the command.
func (t *target) record(status iboot.Status, err error) {
	if !t.registered || err != nil {
		return
	}
	reg, loadErr := config.LoadRegistry()
	if loadErr != nil {
		logging.Warn("Failed to load registry", zap.Error(loadErr))
		return
	}
	reg.RecordStatus(t.name, status)
	if saveErr := reg.Save(); saveErr != nil {
		logging.Warn("Failed to save registry", zap.Error(saveErr))
	}
}

// resolveTarget builds a client from flags, environment, and registry
func resolveTarget(cmd *cobra.Command) (*target, error) {
	if err := checkFormat(); err != nil {
		return nil, err
	}

	var (
		cfg        iboot.Config
		name       string
		registered bool
	)

	if opts.device != "" {
		reg, err := config.LoadRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to load device registry: %w", err)
		}
		name = opts.device

		if reg.GetDevice(name) != nil {
			password, err := resolvePassword(cmd)
			if err != nil {
				return nil, err
			}
			cfg, err = reg.ClientConfig(name, password)
			if err != nil {
				return nil, err
			}
			registered = true
		} else {
			// Not registered: look for a unit announcing this name
			logging.Debug("Device not in registry, trying mDNS",
				zap.String("name", name),
				zap.Duration("timeout", reg.Preferences.DiscoverTimeout),
			)
			device, err := findDevice(name, reg.Preferences.DiscoverTimeout)
			if err != nil {
				return nil, fmt.Errorf("unknown device %q: not in the registry and not found on the network (see 'iboot device list' or 'iboot scan'): %w", name, err)
			}
			password, err := resolvePassword(cmd)
			if err != nil {
				return nil, err
			}
			cfg = device.ClientConfig(password, reg.Preferences.DefaultTimeout)
		}
	} else {
		host := opts.host
		if host == "" {
			host = os.Getenv(EnvHost)
		}
		if strings.TrimSpace(host) == "" {
			return nil, fmt.Errorf("no device specified: use --host, --device or %s", EnvHost)
		}

		port := opts.port
		if !cmd.Flags().Changed("port") {
			port = iboot.ParsePort(os.Getenv(EnvPort))
		}

		password, err := resolvePassword(cmd)
		if err != nil {
			return nil, err
		}
		cfg = iboot.Config{Host: host, Port: port, Password: password}
	}

	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = opts.timeout
	}

	client, err := iboot.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logging.Debug("Resolved device",
		zap.String("name", name),
		zap.String("addr", client.Address()),
		zap.Duration("timeout", client.Timeout()),
	)
	return &target{name: name, registered: registered, client: client}, nil
}

// resolvePassword returns the password from the flag, the environment, or
// an interactive prompt. Non-interactive sessions get an empty password,
// which the client rejects with a configuration error.
func resolvePassword(cmd *cobra.Command) (string, error) {
	if opts.password != "" {
		return opts.password, nil
	}
	if env := os.Getenv(EnvPassword); env != "" {
		return env, nil
	}

	if !isInteractive() {
		return "", nil
	}
	return promptPassword(cmd.ErrOrStderr(), func() ([]byte, error) {
		return term.ReadPassword(int(os.Stdin.Fd()))
	})
}

// isInteractive reports whether a password prompt can be shown
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptPassword asks for the password without echo
func promptPassword(out io.Writer, read func() ([]byte, error)) (string, error) {
	fmt.Fprint(out, "iBoot password: ")
	secret, err := read()
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func checkFormat() error {
	switch opts.format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("invalid --format %q (use %s or %s)", opts.format, formatText, formatJSON)
	}
}
