// Package logging provides structured logging for the iBoot client and simulator.
//
// This package wraps a global zap logger with convenience functions. Logging is
// silent unless a level is passed to Initialize or IBOOT_LOG_LEVEL is set, so
// library code can log freely without polluting CLI output.
//
// # Log Levels
//
//   - Debug: Connection events, request frames (password masked), raw replies
//   - Info: Completed exchanges, simulator lifecycle
//   - Warn: Failed exchanges
//   - Error: Fatal issues (listener failures)
//
// # Specialized Logging
//
//	logging.LogConnection(addr, "connected")
//	logging.LogExchange(id, addr, "on", nil, elapsed)
//	logging.LogRequestFrame(id, frame, len(password))
//
// Every exchange carries an exchange_id field so that the events of one call
// can be correlated when several calls run at once.
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr so that command output on stdout stays parseable.
package logging
