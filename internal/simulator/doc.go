// Package simulator emulates an iBoot power controller on a TCP port.
//
// The simulator speaks the same framing as a real device: it reads one
// ESC password ESC code CR frame per connection, applies the action to an
// in-memory outlet and answers with the status word ("ON", "OFF", "CYCLE"
// or "BUSY") before closing the connection.
//
// # Behaviour
//
//   - Wrong password or malformed frame: the connection is closed without a reply
//   - A request arriving while another one is processed gets "BUSY"
//   - cycle reports "CYCLE" for CycleDelay, after which the outlet is on
//   - on/off cancel a running cycle
//
// # Usage Example
//
//	sim, err := simulator.New(&simulator.Config{
//	    Port:         9100,
//	    Password:     "secret",
//	    InitialState: iboot.StatusOn,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sim.Listen(); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("listening on", sim.Addr())
//	if err := sim.Wait(); err != nil { // blocks until SIGINT/SIGTERM
//	    log.Fatal(err)
//	}
//
// New does not touch the logger; configure it with logging.Initialize
// first. Tests call Shutdown directly instead of Wait.
package simulator
