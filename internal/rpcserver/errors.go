// Package rpcserver exposes the Session Manager, Event Dispatcher, and
// Stealth Engine over gRPC: one unary RPC per core operation plus a
// bidirectional-streaming Subscribe.
package rpcserver

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/security"
	"github.com/cdpforge/cdpd/internal/session"
)

// errorCode names error kinds, not Go type names.
type errorCode int

const (
	codeInternal errorCode = iota
	codeNotFound
	codeTimeout
	codeAborted
	codeInvalidArgument
)

// classify maps an error to its kind by walking the Unwrap chain with
// errors.Is against the sentinel set every core package exports.
func classify(err error) errorCode {
	switch {
	case errors.Is(err, session.ErrBrowserNotFound),
		errors.Is(err, session.ErrPageNotFound),
		errors.Is(err, session.ErrElementNotFound),
		errors.Is(err, session.ErrSessionNotFound):
		return codeNotFound
	case errors.Is(err, cdp.ErrTimeout):
		return codeTimeout
	case errors.Is(err, cdp.ErrNavigationFailed), errors.Is(err, cdp.ErrScriptExecutionFailed):
		return codeAborted
	case errors.Is(err, session.ErrTooManyBrowsers), errors.Is(err, session.ErrTooManyPages):
		return codeInvalidArgument
	case errors.Is(err, ErrProfileNotFound):
		return codeNotFound
	case errors.Is(err, ErrStealthDisabled):
		return codeInvalidArgument
	case errors.Is(err, security.ErrInvalidURL), errors.Is(err, security.ErrBlockedScheme),
		errors.Is(err, security.ErrPrivateIPBlocked),
		errors.Is(err, security.ErrLocalhostBlocked), errors.Is(err, security.ErrMetadataBlocked),
		errors.Is(err, security.ErrDNSLookupFailed),
		errors.Is(err, security.ErrInvalidIDN),
		errors.Is(err, security.ErrTooManyHeaders), errors.Is(err, security.ErrHeaderNameTooLong),
		errors.Is(err, security.ErrHeaderValueTooLong), errors.Is(err, security.ErrTotalHeadersTooLong),
		errors.Is(err, security.ErrHeaderNameEmpty), errors.Is(err, security.ErrBlockedHeader),
		errors.Is(err, security.ErrInvalidHeaderName), errors.Is(err, security.ErrInvalidHeaderChar):
		return codeInvalidArgument
	default:
		return codeInternal
	}
}

// toStatus maps an error kind to its gRPC status: not-found -> NOT_FOUND,
// timeout -> DEADLINE_EXCEEDED, navigation/script failure -> ABORTED,
// bad input -> INVALID_ARGUMENT, otherwise INTERNAL. Messages name
// components and offending identifiers only; callers must not pass absolute
// filesystem paths or pointers into err's message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch classify(err) {
	case codeNotFound:
		return status.Error(codes.NotFound, err.Error())
	case codeTimeout:
		return status.Error(codes.DeadlineExceeded, err.Error())
	case codeAborted:
		return status.Error(codes.Aborted, err.Error())
	case codeInvalidArgument:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
