package security

import (
	"errors"
	"fmt"
	"strings"
)

// Limits on the header set a caller may push onto a page via
// Network.setExtraHTTPHeaders. CDP attaches these to every request the page
// makes, so an unbounded set would ride along on all of the page's traffic.
const (
	MaxHeaderCount       = 50
	MaxHeaderNameLength  = 256
	MaxHeaderValueLength = 8192
	MaxTotalHeadersSize  = 65536
)

// Header validation errors, matched with errors.Is at the gRPC boundary.
var (
	ErrTooManyHeaders      = errors.New("too many extra headers")
	ErrHeaderNameEmpty     = errors.New("header name cannot be empty")
	ErrHeaderNameTooLong   = errors.New("header name too long")
	ErrHeaderValueTooLong  = errors.New("header value too long")
	ErrTotalHeadersTooLong = errors.New("combined extra headers too large")
	ErrBlockedHeader       = errors.New("header may not be overridden")
	ErrInvalidHeaderName   = errors.New("header name contains invalid characters")
	ErrInvalidHeaderChar   = errors.New("header value contains invalid characters")
)

// deniedHeaderNames are headers a caller must never override on a page.
// Hop-by-hop and framing headers belong to Chromium's network stack;
// cookie and authorization state must come from the page itself, not be
// smuggled in over the RPC surface; origin and referer are set by the
// browser and overriding them would advertise automation, the opposite of
// what the stealth pipeline works for.
var deniedHeaderNames = map[string]bool{
	"host":              true,
	"connection":        true,
	"keep-alive":        true,
	"transfer-encoding": true,
	"content-length":    true,
	"te":                true,
	"trailer":           true,
	"upgrade":           true,

	"cookie":              true,
	"authorization":       true,
	"proxy-authorization": true,
	"www-authenticate":    true,
	"proxy-authenticate":  true,

	"origin":  true,
	"referer": true,
}

// deniedHeaderPrefixes extends the denylist to whole families: sec-* is
// browser-owned fetch metadata, cf-* is stamped by Cloudflare's edge (a
// spoofed copy is an instant bot signal), and the proxy/forwarding families
// describe infrastructure the caller is not in a position to assert.
var deniedHeaderPrefixes = []string{
	"sec-",
	"cf-",
	"proxy-",
	"x-forwarded-",
	"x-real-",
	"x-amz-",
	"x-goog-",
}

// ValidateHeaders vets a caller-supplied extra-header set before it is
// handed to Network.setExtraHTTPHeaders. Nil and empty maps are valid.
func ValidateHeaders(headers map[string]string) error {
	if len(headers) == 0 {
		return nil
	}
	if len(headers) > MaxHeaderCount {
		return ErrTooManyHeaders
	}

	total := 0
	for name, value := range headers {
		if err := checkHeaderName(name); err != nil {
			return fmt.Errorf("header %q: %w", name, err)
		}
		if err := checkHeaderValue(value); err != nil {
			return fmt.Errorf("header %q: %w", name, err)
		}
		total += len(name) + len(value) + 4 // ": " plus CRLF on the wire
		if total > MaxTotalHeadersSize {
			return ErrTotalHeadersTooLong
		}
	}
	return nil
}

func checkHeaderName(name string) error {
	if name == "" {
		return ErrHeaderNameEmpty
	}
	if len(name) > MaxHeaderNameLength {
		return ErrHeaderNameTooLong
	}
	for _, c := range name {
		// Printable ASCII token characters only; a colon or control byte in
		// a name is a header-injection attempt.
		if c < 33 || c > 126 || c == ':' {
			return ErrInvalidHeaderName
		}
	}

	lower := strings.ToLower(name)
	if deniedHeaderNames[lower] {
		return ErrBlockedHeader
	}
	for _, prefix := range deniedHeaderPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return ErrBlockedHeader
		}
	}
	return nil
}

func checkHeaderValue(value string) error {
	if len(value) > MaxHeaderValueLength {
		return ErrHeaderValueTooLong
	}
	for _, c := range value {
		// Printable ASCII only. Tabs are legal per RFC 7230 but rejected
		// anyway: parsers disagree about them, and a header that needs a tab
		// does not belong on an automation API.
		if c < 32 || c >= 127 {
			return ErrInvalidHeaderChar
		}
	}
	return nil
}
