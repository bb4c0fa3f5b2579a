package iboot

import (
	"bytes"
	"errors"
	"strings"
)

// ErrMalformedRequest is returned by DecodeRequest for frames that do not
// follow the ESC password ESC code CR layout
var ErrMalformedRequest = errors.New("malformed request frame")

// Frame delimiters used by the iBoot TCP protocol
const (
	// Escape precedes and terminates the password in a request frame
	Escape byte = 0x1b

	// Terminator ends every request frame
	Terminator byte = '\r'

	// statusOffset is the position of the status character in a response.
	// Offset 0 is the device's own leading marker and carries no status.
	statusOffset = 1
)

// Action is a command the device understands
type Action string

const (
	ActionQuery Action = "query"
	ActionOn    Action = "on"
	ActionOff   Action = "off"
	ActionCycle Action = "cycle"
)

// Status is the power state reported by the device
type Status string

const (
	StatusOn    Status = "on"
	StatusOff   Status = "off"
	StatusCycle Status = "cycle"
	StatusBusy  Status = "busy"
)

// actionOrder is the listing order returned by Actions
var actionOrder = []Action{ActionQuery, ActionOn, ActionOff, ActionCycle}

// actionCodes maps each action to its wire character
var actionCodes = map[Action]byte{
	ActionQuery: 'q',
	ActionOn:    'n',
	ActionOff:   'f',
	ActionCycle: 'c',
}

// responseCodes maps response characters to statuses.
// The same table applies to every action, query included.
var responseCodes = map[string]Status{
	"n": StatusOn,
	"f": StatusOff,
	"y": StatusCycle,
	"u": StatusBusy,
}

// Actions returns the names of the supported actions
func Actions() []string {
	names := make([]string, len(actionOrder))
	for i, a := range actionOrder {
		names[i] = string(a)
	}
	return names
}

// ParseAction returns the Action named by s. Matching is exact.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := actionCodes[a]
	return a, ok
}

// Code returns the wire character for the action, or 0 if unknown
func (a Action) Code() byte {
	return actionCodes[a]
}

// ActionForCode returns the action whose wire character is c
func ActionForCode(c byte) (Action, bool) {
	for a, code := range actionCodes {
		if code == c {
			return a, true
		}
	}
	return "", false
}

// ResponseCode returns the single response character the device uses for s
func (s Status) ResponseCode() byte {
	for code, status := range responseCodes {
		if status == s {
			return code[0]
		}
	}
	return 0
}

// EncodeRequest builds the request frame: ESC password ESC code CR
func EncodeRequest(password string, action Action) []byte {
	frame := make([]byte, 0, len(password)+4)
	frame = append(frame, Escape)
	frame = append(frame, password...)
	frame = append(frame, Escape, action.Code(), Terminator)
	return frame
}

// DecodeRequest splits a request frame into password and action.
// It is the inverse of EncodeRequest and is used by device emulators.
func DecodeRequest(frame []byte) (string, Action, error) {
	// ESC + password (>= 1) + ESC + code + CR
	if len(frame) < 5 || frame[0] != Escape || frame[len(frame)-1] != Terminator {
		return "", "", ErrMalformedRequest
	}
	if frame[len(frame)-3] != Escape {
		return "", "", ErrMalformedRequest
	}

	password := frame[1 : len(frame)-3]
	if bytes.IndexByte(password, Escape) >= 0 {
		return "", "", ErrMalformedRequest
	}

	action, ok := ActionForCode(frame[len(frame)-2])
	if !ok {
		return "", "", ErrMalformedRequest
	}
	return string(password), action, nil
}

// statusCode extracts the lowercased status character from a response.
// Responses shorter than two bytes yield an empty code.
func statusCode(data []byte) string {
	if len(data) <= statusOffset {
		return ""
	}
	return strings.ToLower(string(data[statusOffset : statusOffset+1]))
}

// ParseResponse classifies a raw response chunk
func ParseResponse(data []byte) (Status, error) {
	code := statusCode(data)
	if status, ok := responseCodes[code]; ok {
		return status, nil
	}
	return "", NewUnknownStatusError(code)
}
