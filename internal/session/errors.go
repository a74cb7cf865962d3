package session

import "errors"

// Sentinel errors for the session graph, checked with errors.Is at the gRPC
// boundary mapping in internal/rpcserver.
var (
	ErrBrowserNotFound = errors.New("session: browser not found")
	ErrPageNotFound     = errors.New("session: page not found")
	ErrElementNotFound  = errors.New("session: element not found")
	ErrSessionNotFound  = errors.New("session: session not found")
	ErrTooManyBrowsers  = errors.New("session: maximum number of browsers reached")
	ErrTooManyPages     = errors.New("session: maximum pages per browser reached")
	ErrBrowserInactive  = errors.New("session: browser context is not active")
)
