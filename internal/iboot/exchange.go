package iboot

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/iboot/internal/logging"
)

// readBufferSize comfortably holds any reply the device sends
const readBufferSize = 64

// exchange is one request/response round trip.
// Data, close, error and timeout events race to settle it; only the first wins.
type exchange struct {
	id       string
	host     string
	addr     string
	password string
	timeout  time.Duration
	callback Callback
	started  time.Time

	settled atomic.Bool

	// mu guards conn and timer
	mu    sync.Mutex
	conn  net.Conn
	timer *time.Timer
}

func (c *Client) newExchange(callback Callback) *exchange {
	if callback == nil {
		callback = func(Status, error) {}
	}
	return &exchange{
		id:       uuid.NewString(),
		host:     c.host,
		addr:     c.Address(),
		password: c.password,
		timeout:  c.timeout,
		callback: callback,
		started:  time.Now(),
	}
}

// run connects, sends the request frame and waits for the first reply chunk
func (e *exchange) run(action Action) {
	e.mu.Lock()
	e.timer = time.AfterFunc(e.timeout, func() {
		e.settle("", NewTimeoutError())
	})
	e.mu.Unlock()

	logging.Debug("Connecting to device",
		zap.String("exchange_id", e.id),
		zap.String("addr", e.addr),
		zap.String("action", string(action)),
		zap.Duration("timeout", e.timeout),
	)

	dialer := net.Dialer{Timeout: e.timeout}
	conn, err := dialer.Dial("tcp", e.addr)
	if err != nil {
		e.fail(err)
		return
	}
	if !e.attach(conn) {
		return
	}
	logging.LogConnection(e.addr, "connected")

	frame := EncodeRequest(e.password, action)
	logging.LogRequestFrame(e.id, frame, len(e.password))
	if _, err := conn.Write(frame); err != nil {
		e.fail(err)
		return
	}

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			logging.LogRawBytes("Response received", buf[:n])
			status, perr := ParseResponse(buf[:n])
			e.settle(status, perr)
			return
		}
		if errors.Is(err, io.EOF) {
			e.settle("", NewClosedWithoutResponseError())
			return
		}
		if err != nil {
			e.fail(err)
			return
		}
	}
}

// attach records the open connection. If the exchange already settled
// (the timer fired during dial) the connection is closed immediately.
func (e *exchange) attach(conn net.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settled.Load() {
		_ = conn.Close()
		return false
	}
	e.conn = conn
	return true
}

// fail settles the exchange with a socket-level error
func (e *exchange) fail(err error) {
	switch {
	case isResolutionError(err):
		e.settle("", NewInvalidHostError(e.host, err))
	case os.IsTimeout(err):
		e.settle("", NewTimeoutError())
	default:
		e.settle("", err)
	}
}

// settle delivers the outcome exactly once and releases the connection
func (e *exchange) settle(status Status, err error) {
	if !e.settled.CompareAndSwap(false, true) {
		return
	}

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.conn != nil {
		_ = e.conn.Close()
		logging.LogConnection(e.addr, "closed")
	}
	e.mu.Unlock()

	logging.LogExchange(e.id, e.addr, string(status), err, time.Since(e.started))
	e.callback(status, err)
}
