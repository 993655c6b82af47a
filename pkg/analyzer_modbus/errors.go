package analyzer_modbus

import "fmt"

// TransportError means the Modbus-TCP session could not be established.
// No register read was attempted.
type TransportError struct {
	Addr  string
	cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("power analyzer unreachable at %s: %v", e.Addr, e.cause)
}

func (e *TransportError) Unwrap() error { return e.cause }

// RegisterReadError means one holding-register read failed mid-poll.
// Register is the address of the failing read.
type RegisterReadError struct {
	Register uint16
	cause    error
}

func (e *RegisterReadError) Error() string {
	return fmt.Sprintf("read holding register 0x%04x: %v", e.Register, e.cause)
}

func (e *RegisterReadError) Unwrap() error { return e.cause }
