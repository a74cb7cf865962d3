package cdp

import "errors"

// Sentinel errors for the CDP transport and client layers. Checked with
// errors.Is across the gRPC boundary mapping in internal/rpcserver.
var (
	ErrWebSocketClosed       = errors.New("cdp: websocket closed")
	ErrTimeout               = errors.New("cdp: per-method timeout exceeded")
	ErrScriptExecutionFailed = errors.New("cdp: script execution failed")
	ErrNavigationFailed      = errors.New("cdp: navigation could not be issued")
	ErrNoResultInResponse    = errors.New("cdp: no result in response")
	ErrConnectionNotActive   = errors.New("cdp: connection is not active")
)

// CdpError carries a verbatim CDP protocol error: {code, message, data}.
type CdpError struct {
	Code    int
	Message string
	Data    any
}

func (e *CdpError) Error() string {
	return e.Message
}

// ScriptExecutionError wraps a Runtime.evaluate exceptionDetails payload.
type ScriptExecutionError struct {
	Description string
	Err         error
}

func (e *ScriptExecutionError) Error() string {
	return e.Description
}

func (e *ScriptExecutionError) Unwrap() error {
	return e.Err
}

// ConnectionError wraps a transport-level failure with the method that was
// in flight when it occurred.
type ConnectionError struct {
	Method  string
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	return e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func newScriptExecutionError(description string) *ScriptExecutionError {
	return &ScriptExecutionError{Description: description, Err: ErrScriptExecutionFailed}
}

func newConnectionError(method, message string, err error) *ConnectionError {
	return &ConnectionError{Method: method, Message: message, Err: err}
}
