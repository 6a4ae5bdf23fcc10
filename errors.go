package goTacAuth

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMalformedPacket is an exported constant or variable used by the authentication engine.
	ErrMalformedPacket = errors.New("packet field lengths exceed declared packet length")
	// ErrUnsupportedMethod is an exported constant or variable used by the authentication engine.
	ErrUnsupportedMethod = errors.New("unsupported authentication action/type combination")
	// ErrInvalidPrivilegeLevel is an exported constant or variable used by the authentication engine.
	ErrInvalidPrivilegeLevel = errors.New("invalid privilege level in packet")
	// ErrNoUsername is an exported constant or variable used by the authentication engine.
	ErrNoUsername = errors.New("no username in packet")
	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is an exported constant or variable used by the authentication engine.
	ErrSessionExists = errors.New("session id already in use")
	// ErrSessionBusy is an exported constant or variable used by the authentication engine.
	ErrSessionBusy = errors.New("session has an outstanding backend query")
)
