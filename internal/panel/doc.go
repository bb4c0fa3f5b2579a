// Package panel implements the interactive power control panel started by
// "iboot panel".
//
// The panel is a Bubble Tea program that shows the outlet state of one
// device and a short history of exchanges. Each key press sends one action
// through the asynchronous client API; the completion callback is turned
// into a message for the model. Power off and cycle ask for confirmation.
//
// Only one exchange runs at a time; keys pressed while a request is in
// flight are ignored.
package panel
