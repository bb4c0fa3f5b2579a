package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/muurk/iboot/internal/discovery"
	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/simulator"
	"github.com/muurk/iboot/internal/ui"
)

func TestMain(m *testing.M) {
	// The registry is loaded once per process; point it at a scratch dir
	dir, err := os.MkdirTemp("", "iboot-cli-test")
	if err != nil {
		panic(err)
	}
	os.Setenv("XDG_CONFIG_HOME", dir)
	os.Setenv("HOME", dir)
	os.Setenv("LOCALAPPDATA", dir)
	os.Unsetenv(EnvHost)
	os.Unsetenv(EnvPort)
	os.Unsetenv(EnvPassword)
	isInteractive = func() bool { return false }
	// No multicast in tests: discovery finds nothing unless a test says so
	findDevice = func(name string, _ time.Duration) (*discovery.Device, error) {
		return nil, fmt.Errorf("device %s not found within timeout", name)
	}
	scanDevices = func(time.Duration) ([]*discovery.Device, error) { return nil, nil }

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// run executes the root command with args and returns its output
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flag variables outlive a single Execute
	opts.host, opts.port, opts.password, opts.device = "", 0, "", ""
	opts.timeout, opts.format, opts.logLevel = 0, formatText, ""
	demoDelay, demoYes = 0, false
	devicePort, deviceTimeout, deviceDescription = 0, 0, ""
	scanTimeout, scanSave, scanName = 0, false, ""
	resetChanged(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetChanged(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetChanged(c)
	}
}

func startSimulator(t *testing.T, cfg *simulator.Config) string {
	t.Helper()

	cfg.Host = "127.0.0.1"
	if cfg.Password == "" {
		cfg.Password = "secret"
	}
	sim, err := simulator.New(cfg)
	if err != nil {
		t.Fatalf("simulator.New() error = %v", err)
	}
	if err := sim.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { sim.Shutdown(context.Background()) })

	return strconv.Itoa(sim.Addr().(*net.TCPAddr).Port)
}

func decodeOutcome(t *testing.T, out string) outcome {
	t.Helper()
	var o outcome
	if err := json.Unmarshal([]byte(out), &o); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return o
}

func TestPowerCommands_JSON(t *testing.T) {
	port := startSimulator(t, &simulator.Config{InitialState: iboot.StatusOff})

	steps := []struct {
		command string
		want    string
	}{
		{"query", "off"},
		{"on", "on"},
		{"query", "on"},
		{"off", "off"},
	}

	for _, step := range steps {
		out, err := run(t, step.command, "--host", "127.0.0.1", "--port", port, "--password", "secret", "--format", "json")
		if err != nil {
			t.Fatalf("%s error = %v", step.command, err)
		}
		o := decodeOutcome(t, out)
		if o.Status != step.want || o.Action != step.command || o.Error != "" {
			t.Errorf("%s = %+v, want status %q", step.command, o, step.want)
		}
	}
}

func TestQuery_Text(t *testing.T) {
	port := startSimulator(t, &simulator.Config{InitialState: iboot.StatusOn})

	out, err := run(t, "query", "--host", "127.0.0.1", "--port", port, "--password", "secret")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if !strings.Contains(out, "Outlet is ON") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestExec_InvalidAction(t *testing.T) {
	port := startSimulator(t, &simulator.Config{})

	out, err := run(t, "exec", "reboot", "--host", "127.0.0.1", "--port", port, "--password", "secret", "--format", "json")
	if !errors.Is(err, errReported) {
		t.Fatalf("exec error = %v, want errReported", err)
	}
	o := decodeOutcome(t, out)
	if o.Error != `Invalid action "reboot"` || o.ErrorType != "InvalidAction" {
		t.Errorf("outcome = %+v", o)
	}
}

func TestOn_WrongPassword(t *testing.T) {
	port := startSimulator(t, &simulator.Config{Password: "other"})

	out, err := run(t, "on", "--host", "127.0.0.1", "--port", port, "--password", "secret")
	if !errors.Is(err, errReported) {
		t.Fatalf("on error = %v, want errReported", err)
	}
	if !strings.Contains(out, "Connection closed without a response.") {
		t.Errorf("failure box missing error:\n%s", out)
	}
}

func TestEnvironmentFallback(t *testing.T) {
	port := startSimulator(t, &simulator.Config{InitialState: iboot.StatusOn})
	t.Setenv(EnvHost, "127.0.0.1")
	t.Setenv(EnvPort, port)
	t.Setenv(EnvPassword, "secret")

	out, err := run(t, "query", "--format", "json")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if o := decodeOutcome(t, out); o.Status != "on" {
		t.Errorf("status = %q, want on", o.Status)
	}
}

func TestResolveTarget_Errors(t *testing.T) {
	if _, err := run(t, "query"); err == nil || !strings.Contains(err.Error(), "no device specified") {
		t.Errorf("query without host error = %v", err)
	}

	// Non-interactive test runs yield an empty password
	if _, err := run(t, "query", "--host", "127.0.0.1"); !iboot.IsConfigError(err) {
		t.Errorf("query without password error = %v, want config error", err)
	}

	if _, err := run(t, "query", "--host", "127.0.0.1", "--password", "p", "--format", "xml"); err == nil {
		t.Error("invalid --format should fail")
	}

	if _, err := run(t, "query", "-d", "missing", "--password", "p"); err == nil || !strings.Contains(err.Error(), "unknown device") {
		t.Errorf("unknown device error = %v", err)
	}
}

// stubDiscovery makes findDevice and scanDevices report devices for the test
func stubDiscovery(t *testing.T, devices ...*discovery.Device) {
	t.Helper()
	prevFind, prevScan := findDevice, scanDevices
	t.Cleanup(func() { findDevice, scanDevices = prevFind, prevScan })

	findDevice = func(name string, _ time.Duration) (*discovery.Device, error) {
		for _, d := range devices {
			if strings.EqualFold(d.Name, name) {
				return d, nil
			}
		}
		return nil, fmt.Errorf("device %s not found within timeout", name)
	}
	scanDevices = func(time.Duration) ([]*discovery.Device, error) { return devices, nil }
}

func simulatedDevice(t *testing.T, name, port string) *discovery.Device {
	t.Helper()
	p, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("bad port %q", port)
	}
	return &discovery.Device{Name: name, Hostname: name + ".local.", IP: "127.0.0.1", Port: p}
}

func TestDeviceFlag_DiscoveryFallback(t *testing.T) {
	port := startSimulator(t, &simulator.Config{InitialState: iboot.StatusOn})
	stubDiscovery(t, simulatedDevice(t, "iBoot-0A1B2C", port))

	out, err := run(t, "query", "-d", "iBoot-0A1B2C", "--password", "secret", "--format", "json")
	if err != nil {
		t.Fatalf("query -d error = %v", err)
	}
	o := decodeOutcome(t, out)
	if o.Status != "on" || o.Device != "iBoot-0A1B2C" || o.Address != "127.0.0.1:"+port {
		t.Errorf("outcome = %+v", o)
	}

	// Discovered devices are used, not registered
	out, err = run(t, "device", "list")
	if err != nil {
		t.Fatalf("device list error = %v", err)
	}
	if strings.Contains(out, "iBoot-0A1B2C") {
		t.Errorf("discovered device should not be recorded:\n%s", out)
	}

	_, err = run(t, "query", "-d", "iBoot-FFFFFF", "--password", "secret")
	if err == nil || !strings.Contains(err.Error(), "not found on the network") {
		t.Errorf("query -d for an absent device error = %v", err)
	}
}

func TestScan(t *testing.T) {
	port := startSimulator(t, &simulator.Config{})
	stubDiscovery(t,
		simulatedDevice(t, "iBoot-0A1B2C", port),
		&discovery.Device{Name: "iBoot-DDEEFF", Hostname: "iBoot-DDEEFF.local.", IP: "10.0.0.9", Port: 80, Serial: "DDEEFF"},
	)

	out, err := run(t, "scan")
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	if !strings.Contains(out, "Found 2 device(s)") || !strings.Contains(out, "10.0.0.9:80") {
		t.Errorf("scan output:\n%s", out)
	}

	out, err = run(t, "scan", "--name", "iboot-0a1b2c", "--save", "--format", "json")
	if err != nil {
		t.Fatalf("scan --name error = %v", err)
	}
	var found []discovery.Device
	if err := json.Unmarshal([]byte(out), &found); err != nil || len(found) != 1 || found[0].Name != "iBoot-0A1B2C" {
		t.Fatalf("scan --name JSON = %q (%v)", out, err)
	}

	out, err = run(t, "on", "-d", "iBoot-0A1B2C", "--password", "secret", "--format", "json")
	if err != nil {
		t.Fatalf("on -d after scan --save error = %v", err)
	}
	if o := decodeOutcome(t, out); o.Status != "on" {
		t.Errorf("outcome = %+v", o)
	}

	out, err = run(t, "scan", "--name", "iBoot-123456")
	if !errors.Is(err, errReported) {
		t.Fatalf("scan --name for an absent device error = %v, want errReported", err)
	}
	if !strings.Contains(out, "Device not found") {
		t.Errorf("scan --name output:\n%s", out)
	}

	if _, err := run(t, "device", "remove", "iBoot-0A1B2C"); err != nil {
		t.Fatalf("device remove error = %v", err)
	}
}

func TestActions(t *testing.T) {
	out, err := run(t, "actions")
	if err != nil {
		t.Fatalf("actions error = %v", err)
	}
	if got := strings.Fields(out); strings.Join(got, ",") != "query,on,off,cycle" {
		t.Errorf("actions = %v", got)
	}

	out, err = run(t, "actions", "--format", "json")
	if err != nil {
		t.Fatalf("actions error = %v", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(out), &names); err != nil || len(names) != 4 {
		t.Errorf("actions JSON = %q (%v)", out, err)
	}
}

func TestDeviceRegistry(t *testing.T) {
	port := startSimulator(t, &simulator.Config{InitialState: iboot.StatusOff})

	if _, err := run(t, "device", "add", "bench", "127.0.0.1", "--device-port", port, "--description", "Bench PSU"); err != nil {
		t.Fatalf("device add error = %v", err)
	}

	out, err := run(t, "on", "-d", "bench", "--password", "secret", "--format", "json")
	if err != nil {
		t.Fatalf("on -d error = %v", err)
	}
	if o := decodeOutcome(t, out); o.Device != "bench" || o.Status != "on" {
		t.Errorf("outcome = %+v", o)
	}

	out, err = run(t, "device", "list")
	if err != nil {
		t.Fatalf("device list error = %v", err)
	}
	if !strings.Contains(out, "bench") || !strings.Contains(out, "Bench PSU") || !strings.Contains(out, " on ") {
		t.Errorf("device list output:\n%s", out)
	}

	if _, err := run(t, "device", "remove", "bench"); err != nil {
		t.Fatalf("device remove error = %v", err)
	}
	if _, err := run(t, "device", "remove", "bench"); err == nil {
		t.Error("removing a missing device should fail")
	}
}

func TestDemo(t *testing.T) {
	port := startSimulator(t, &simulator.Config{
		InitialState: iboot.StatusOff,
		CycleDelay:   50 * time.Millisecond,
	})

	out, err := run(t, "demo", "--yes", "--delay", "10ms", "--host", "127.0.0.1", "--port", port, "--password", "secret")
	if err != nil {
		t.Fatalf("demo error = %v\n%s", err, out)
	}
	for _, want := range []string{"POWER DEMO", "Power cycle", "Power Demo complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("demo output missing %q:\n%s", want, out)
		}
	}
}

// scriptedSwitch replays statuses and records calls
type scriptedSwitch struct {
	query iboot.Status
	calls []string
	fail  string
}

func (s *scriptedSwitch) do(name string, status iboot.Status) (iboot.Status, error) {
	s.calls = append(s.calls, name)
	if name == s.fail {
		return "", iboot.NewTimeoutError()
	}
	return status, nil
}

func (s *scriptedSwitch) Query() (iboot.Status, error) { return s.do("query", s.query) }
func (s *scriptedSwitch) On() (iboot.Status, error)    { return s.do("on", iboot.StatusOn) }
func (s *scriptedSwitch) Off() (iboot.Status, error)   { return s.do("off", iboot.StatusOff) }
func (s *scriptedSwitch) Cycle() (iboot.Status, error) { return s.do("cycle", iboot.StatusCycle) }

func TestRunDemo_Sequence(t *testing.T) {
	tests := []struct {
		name      string
		query     iboot.Status
		fail      string
		wantCalls string
		wantSleep int
		wantErr   bool
	}{
		{"starts off", iboot.StatusOff, "", "query,on,off,cycle", 2, false},
		{"already on", iboot.StatusOn, "", "query,off,cycle", 1, false},
		{"query fails", iboot.StatusOff, "query", "query", 0, true},
		{"off fails", iboot.StatusOn, "off", "query,off", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw := &scriptedSwitch{query: tt.query, fail: tt.fail}
			sleeps := 0
			var failed []int

			final, err := runDemo(sw, time.Second, func(time.Duration) { sleeps++ },
				func(n int, status ui.StepStatus, _ string) {
					if status == ui.StepFailed {
						failed = append(failed, n)
					}
				})

			if got := strings.Join(sw.calls, ","); got != tt.wantCalls {
				t.Errorf("calls = %s, want %s", got, tt.wantCalls)
			}
			if sleeps != tt.wantSleep {
				t.Errorf("sleeps = %d, want %d", sleeps, tt.wantSleep)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && len(failed) != 1 {
				t.Errorf("failed steps = %v, want one", failed)
			}
			if !tt.wantErr && final != iboot.StatusCycle {
				t.Errorf("final = %q, want cycle", final)
			}
		})
	}
}

func TestPromptPassword(t *testing.T) {
	var out bytes.Buffer
	got, err := promptPassword(&out, func() ([]byte, error) { return []byte(" secret \n"), nil })
	if err != nil || got != "secret" {
		t.Errorf("promptPassword() = %q, %v", got, err)
	}
	if !strings.Contains(out.String(), "iBoot password:") {
		t.Error("promptPassword() should print a prompt")
	}

	if _, err := promptPassword(&out, func() ([]byte, error) { return nil, errors.New("eof") }); err == nil {
		t.Error("promptPassword() should report read errors")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "iboot ") {
		t.Errorf("version output = %q", out)
	}
}
