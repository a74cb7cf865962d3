package rpcserver

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/security"
	"github.com/cdpforge/cdpd/internal/session"
)

func TestClassifyMapsSentinelsToExpectedCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want errorCode
	}{
		{"browser not found", session.ErrBrowserNotFound, codeNotFound},
		{"page not found", session.ErrPageNotFound, codeNotFound},
		{"element not found", session.ErrElementNotFound, codeNotFound},
		{"too many browsers", session.ErrTooManyBrowsers, codeInvalidArgument},
		{"too many pages", session.ErrTooManyPages, codeInvalidArgument},
		{"cdp timeout", cdp.ErrTimeout, codeTimeout},
		{"navigation failed", cdp.ErrNavigationFailed, codeAborted},
		{"script execution failed", cdp.ErrScriptExecutionFailed, codeAborted},
		{"blocked navigation target", security.ErrLocalhostBlocked, codeInvalidArgument},
		{"blocked extra header", security.ErrBlockedHeader, codeInvalidArgument},
		{"unmapped error", errors.New("boom"), codeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err); got != tc.want {
				t.Fatalf("classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyFollowsWrappedErrors(t *testing.T) {
	wrapped := errorsWrap(session.ErrPageNotFound, "navigate")
	if got := classify(wrapped); got != codeNotFound {
		t.Fatalf("classify(wrapped) = %v, want codeNotFound", got)
	}
}

func errorsWrap(err error, context string) error {
	return errors.Join(errors.New(context), err)
}

func TestToStatusMapsCodes(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{session.ErrBrowserNotFound, codes.NotFound},
		{cdp.ErrTimeout, codes.DeadlineExceeded},
		{cdp.ErrNavigationFailed, codes.Aborted},
		{session.ErrTooManyBrowsers, codes.InvalidArgument},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		got := toStatus(tc.err)
		st, ok := status.FromError(got)
		if !ok {
			t.Fatalf("toStatus(%v) did not return a status error", tc.err)
		}
		if st.Code() != tc.want {
			t.Fatalf("toStatus(%v).Code() = %v, want %v", tc.err, st.Code(), tc.want)
		}
	}
}

func TestToStatusNilIsNil(t *testing.T) {
	if err := toStatus(nil); err != nil {
		t.Fatalf("toStatus(nil) = %v, want nil", err)
	}
}
