package session

import (
	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/stealth"
)

// BrowserOptions configures a Browser Context at creation time.
type BrowserOptions struct {
	CdpEndpoint string
}

// PageOptions configures a Page Context at creation time.
type PageOptions struct {
	DefaultURL string // empty means about:blank
	UserAgent  string // if set, Network.setUserAgentOverride is applied before navigation
	Block      stealth.BlockPatterns
}

// WaitUntil enumerates the navigation wait modes accepted by PageContext.Navigate.
type WaitUntil int

const (
	WaitLoad WaitUntil = iota
	WaitDOMContentLoaded
	WaitNetworkIdle
	WaitNetworkAlmostIdle
)

// NavigateOptions configures a single Navigate call.
type NavigateOptions struct {
	WaitUntil WaitUntil
}

// NavigateResult is the Page-level navigation result returned to callers.
type NavigateResult struct {
	URL        string
	StatusCode int
	IsLoaded   bool
}

// BrowserFactory produces a CDP Browser for a newly created Browser Context.
// It exists purely so tests can inject a mock in place of a real CDP
// connection.
type BrowserFactory func(opts BrowserOptions) (*cdp.Browser, error)

// DefaultBrowserFactory dials the real Chromium debug endpoint named by
// opts.CdpEndpoint.
func DefaultBrowserFactory(opts BrowserOptions) (*cdp.Browser, error) {
	return cdp.NewBrowser(opts.CdpEndpoint), nil
}
