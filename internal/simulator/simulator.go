package simulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/logging"
)

const (
	// DefaultCycleDelay is how long the outlet stays off during a power cycle
	DefaultCycleDelay = 5 * time.Second

	// DefaultReadTimeout bounds how long a client may take to send its frame
	DefaultReadTimeout = 5 * time.Second

	// maxFrameSize caps the request frame a client may send
	maxFrameSize = 256
)

// Config holds the simulator configuration
type Config struct {
	Host         string
	Port         int
	Password     string
	InitialState iboot.Status  // StatusOn or StatusOff (default StatusOff)
	CycleDelay   time.Duration // Off period of a power cycle
	ReplyDelay   time.Duration // Processing delay before each reply
	ReadTimeout  time.Duration // Deadline for the request frame
}

// Simulator emulates an iBoot device on a TCP port
type Simulator struct {
	config      *Config
	listener    net.Listener
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn

	// guarded by mu
	state      iboot.Status
	cycleUntil time.Time
	busy       bool
	sessions   int
}

// New creates a new Simulator instance. Logging goes through the
// process-wide logger, which the caller configures.
func New(config *Config) (*Simulator, error) {
	if strings.TrimSpace(config.Password) == "" {
		return nil, fmt.Errorf("simulator password must not be empty")
	}
	if config.CycleDelay <= 0 {
		config.CycleDelay = DefaultCycleDelay
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}

	state := config.InitialState
	switch state {
	case "":
		state = iboot.StatusOff
	case iboot.StatusOn, iboot.StatusOff:
	default:
		return nil, fmt.Errorf("invalid initial state %q (use on or off)", state)
	}

	return &Simulator{
		config:      config,
		activeConns: make(map[string]net.Conn),
		state:       state,
	}, nil
}

// Listen binds the listening socket and starts accepting connections
func (s *Simulator) Listen() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	logging.Info("Simulator listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("initial_state", string(s.State())),
		zap.Duration("cycle_delay", s.config.CycleDelay),
	)

	go func() {
		if err := s.acceptConnections(); err != nil {
			logging.Error("Accept loop stopped", zap.Error(err))
		}
	}()

	return nil
}

// Wait blocks until SIGINT or SIGTERM, then shuts the simulator down.
// Listen must have succeeded first.
func (s *Simulator) Wait() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	<-sigChan
	logging.Info("Shutdown signal received, stopping simulator...")
	return s.Shutdown(context.Background())
}

// Addr returns the bound listener address
func (s *Simulator) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptConnections accepts and handles incoming connections
func (s *Simulator) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection serves one request frame and closes the connection
func (s *Simulator) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	sessionID := uuid.NewString()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	frame, err := readFrame(conn)
	if err != nil {
		logging.Warn("Failed to read request frame",
			zap.String("session_id", sessionID),
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	password, action, err := iboot.DecodeRequest(frame)
	if err != nil {
		logging.Warn("Dropping malformed request",
			zap.String("session_id", sessionID),
			zap.String("remote_addr", remoteAddr),
		)
		return
	}
	if password != s.config.Password {
		logging.Warn("Dropping request with wrong password",
			zap.String("session_id", sessionID),
			zap.String("remote_addr", remoteAddr),
		)
		return
	}

	status := s.process(action)
	reply := Reply(status)

	logging.Info("Request served",
		zap.String("session_id", sessionID),
		zap.String("remote_addr", remoteAddr),
		zap.String("action", string(action)),
		zap.String("reply", string(status)),
	)

	if _, err := conn.Write(reply); err != nil {
		logging.Warn("Failed to write reply",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// readFrame reads up to and including the CR terminator
func readFrame(conn net.Conn) ([]byte, error) {
	r := bufio.NewReaderSize(conn, maxFrameSize)
	frame, err := r.ReadSlice(iboot.Terminator)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), frame...), nil
}

// process applies action and returns the status to report.
// Only one request is processed at a time; overlapping requests get busy.
func (s *Simulator) process(action iboot.Action) iboot.Status {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return iboot.StatusBusy
	}
	s.busy = true
	s.sessions++
	s.mu.Unlock()

	if s.config.ReplyDelay > 0 {
		time.Sleep(s.config.ReplyDelay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	now := time.Now()
	switch action {
	case iboot.ActionOn:
		s.state = iboot.StatusOn
		s.cycleUntil = time.Time{}
	case iboot.ActionOff:
		s.state = iboot.StatusOff
		s.cycleUntil = time.Time{}
	case iboot.ActionCycle:
		// Off for the cycle delay, then back on
		s.state = iboot.StatusOn
		s.cycleUntil = now.Add(s.config.CycleDelay)
	}
	return s.stateAt(now)
}

// stateAt reports the outlet state, cycle included. Caller holds mu.
func (s *Simulator) stateAt(now time.Time) iboot.Status {
	if now.Before(s.cycleUntil) {
		return iboot.StatusCycle
	}
	return s.state
}

// State returns the current outlet state
func (s *Simulator) State() iboot.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateAt(time.Now())
}

// Sessions returns the number of requests processed (busy replies excluded)
func (s *Simulator) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// GetActiveConnections returns the number of active connections
func (s *Simulator) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Shutdown gracefully shuts down the simulator
func (s *Simulator) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down simulator...")

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	logging.Sync()

	return nil
}

// Reply returns the bytes the device sends for status: the upper-case
// status word followed by CR LF, so the status character sits at offset 1.
func Reply(status iboot.Status) []byte {
	return []byte(strings.ToUpper(string(status)) + "\r\n")
}
