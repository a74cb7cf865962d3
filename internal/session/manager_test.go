package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/cdpmock"
	"github.com/cdpforge/cdpd/internal/session"
)

func newTestManager(t *testing.T) (*session.Manager, *cdpmock.Server) {
	t.Helper()
	srv := cdpmock.NewServer()
	t.Cleanup(srv.Close)
	srv.Handle("Page.navigate", cdpmock.NavigateHandler())
	srv.Handle("Runtime.evaluate", cdpmock.ReadyStateCompleteHandler())

	factory := func(opts session.BrowserOptions) (*cdp.Browser, error) {
		return cdp.NewBrowser(srv.WSEndpoint()), nil
	}
	return session.NewManager(factory, 0), srv
}

func TestCreateAndNavigate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	browserID, err := m.CreateBrowser(session.BrowserOptions{})
	if err != nil {
		t.Fatalf("CreateBrowser: %v", err)
	}

	page, err := m.CreatePage(ctx, browserID, session.PageOptions{DefaultURL: "about:blank"})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	res, err := page.Navigate(ctx, "https://example.com", session.NavigateOptions{WaitUntil: session.WaitLoad})
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if res.URL != "https://example.com" || res.StatusCode != 200 {
		t.Fatalf("unexpected navigate result: %+v", res)
	}
	if !page.IsActive() {
		t.Fatal("expected page active after navigate")
	}
}

func TestCascadeClose(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	browserID, err := m.CreateBrowser(session.BrowserOptions{})
	if err != nil {
		t.Fatalf("CreateBrowser: %v", err)
	}
	p1, err := m.CreatePage(ctx, browserID, session.PageOptions{})
	if err != nil {
		t.Fatalf("CreatePage p1: %v", err)
	}
	p2, err := m.CreatePage(ctx, browserID, session.PageOptions{})
	if err != nil {
		t.Fatalf("CreatePage p2: %v", err)
	}

	if err := m.CloseBrowser(ctx, browserID); err != nil {
		t.Fatalf("CloseBrowser: %v", err)
	}

	if p1.IsActive() || p2.IsActive() {
		t.Fatal("expected both pages inactive after cascade close")
	}
	if _, err := m.GetBrowser(browserID); err != session.ErrBrowserNotFound {
		t.Fatalf("GetBrowser after close = %v, want ErrBrowserNotFound", err)
	}
}

func TestSessionCountRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	browserID, err := m.CreateBrowser(session.BrowserOptions{})
	if err != nil {
		t.Fatalf("CreateBrowser: %v", err)
	}
	if err := m.CloseBrowser(ctx, browserID); err != nil {
		t.Fatalf("CloseBrowser: %v", err)
	}
	m.Cleanup(ctx)
	if got := m.SessionCount(); got != 0 {
		t.Fatalf("SessionCount() = %d, want 0", got)
	}
}
