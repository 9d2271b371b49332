package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionClosed = errors.New("protocol: connection closed unexpectedly")
	ErrConnectExhausted = errors.New("protocol: connect retries exhausted")
	ErrSpawnFailed      = errors.New("protocol: simulator spawn failed")
	ErrSessionDead      = errors.New("protocol: session terminated")
	ErrBufferOverrun    = errors.New("protocol: read past end of buffer")
	ErrTrailingBytes    = errors.New("protocol: buffer not exhausted after parse")
	ErrEchoMismatch     = errors.New("protocol: echoed field mismatch")
	ErrTypeMismatch     = errors.New("protocol: type tag mismatch")
	ErrUnknownResponse  = errors.New("protocol: unrecognized response command")
	ErrLengthMismatch   = errors.New("protocol: declared length mismatch")
	ErrUnsupportedAPI   = errors.New("protocol: unsupported api version")
	ErrCounterMismatch  = errors.New("protocol: actor counters inconsistent")
	ErrClockSkew        = errors.New("protocol: server time differs from step target")
)

// Status is the one-byte result carried by every response envelope.
type Status uint8

const (
	StatusOK             Status = 0x00
	StatusNotImplemented Status = 0x01
	StatusError          Status = 0xFF
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotImplemented:
		return "NOT_IMPLEMENTED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("status(0x%02x)", uint8(s))
	}
}

// TransportError reports socket or subprocess loss. Always fatal for the session.
type TransportError struct {
	Op       string
	ExitCode int
	Err      error
}

func (e *TransportError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("transport: %s failed (exit=%d): %v", e.Op, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("transport: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a server-side rejection: status ERROR or NOT_IMPLEMENTED.
type ProtocolError struct {
	Command     uint8
	Status      Status
	Description string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: command 0x%02x answered %s: %q", e.Command, e.Status, e.Description)
}

// DesyncError means the client and server no longer agree on the byte stream.
// It indicates a codec or schema bug, never a server rejection.
type DesyncError struct {
	Command uint8
	Detail  string
	Err     error
}

func (e *DesyncError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("desync: command 0x%02x: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("desync: command 0x%02x: %s: %v", e.Command, e.Detail, e.Err)
}

func (e *DesyncError) Unwrap() error { return e.Err }

// ConfigError is raised at setup time, before any socket activity.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Desync builds a DesyncError for cmd wrapping err with a formatted detail.
func Desync(cmd uint8, err error, format string, args ...any) *DesyncError {
	return &DesyncError{Command: cmd, Detail: fmt.Sprintf(format, args...), Err: err}
}

// IsSessionLost reports whether err leaves the connection unusable: transport
// loss or stream desynchronization.
func IsSessionLost(err error) bool {
	var te *TransportError
	var de *DesyncError
	return errors.As(err, &te) || errors.As(err, &de)
}
