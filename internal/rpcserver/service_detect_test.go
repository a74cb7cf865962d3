package rpcserver_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/cdpmock"
	"github.com/cdpforge/cdpd/internal/events"
	"github.com/cdpforge/cdpd/internal/rpcserver"
	"github.com/cdpforge/cdpd/internal/session"
)

// evaluateRequest mirrors the subset of Runtime.evaluate's params this test
// needs to branch the mock response by which script cdpd sent.
type evaluateRequest struct {
	Expression string `json:"expression"`
}

func newDetectTestService(t *testing.T, bodyText string) (*rpcserver.Service, string) {
	t.Helper()
	srv := cdpmock.NewServer()
	t.Cleanup(srv.Close)
	srv.Handle("Page.navigate", cdpmock.NavigateHandler())
	srv.Handle("Runtime.evaluate", func(params json.RawMessage) (json.RawMessage, error) {
		var req evaluateRequest
		_ = json.Unmarshal(params, &req)
		switch {
		case strings.Contains(req.Expression, "querySelectorAll"):
			return json.RawMessage(`{"result":{"type":"string","value":"[]"}}`), nil
		case strings.Contains(req.Expression, "document.body"):
			encoded, _ := json.Marshal(bodyText)
			return json.RawMessage(`{"result":{"type":"string","value":` + string(encoded) + `}}`), nil
		default:
			return json.RawMessage(`{"result":{"type":"string","value":"complete"}}`), nil
		}
	})

	factory := func(opts session.BrowserOptions) (*cdp.Browser, error) {
		return cdp.NewBrowser(srv.WSEndpoint()), nil
	}
	sessions := session.NewManager(factory, 0)
	t.Cleanup(func() { sessions.Close(context.Background()) })
	svc := rpcserver.NewService(sessions, events.NewDispatcher(16), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	created, err := svc.CreateBrowser(ctx, &rpcserver.CreateBrowserRequest{})
	if err != nil {
		t.Fatalf("CreateBrowser: %v", err)
	}
	page, err := svc.CreatePage(ctx, &rpcserver.CreatePageRequest{BrowserID: created.BrowserID, DefaultURL: "about:blank"})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	return svc, page.PageID
}

func TestDiagnosePageDetectsJavaScriptChallenge(t *testing.T) {
	svc, pageID := newDetectTestService(t, "Checking your browser before accessing the site. Just a moment...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	diag, err := svc.DiagnosePage(ctx, &rpcserver.DiagnosePageRequest{PageID: pageID})
	if err != nil {
		t.Fatalf("DiagnosePage: %v", err)
	}
	if !diag.Blocked {
		t.Fatal("expected Blocked=true for a JS-challenge page")
	}
	found := false
	for _, c := range diag.Categories {
		if c == "javascript_challenge" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Categories = %v, want javascript_challenge present", diag.Categories)
	}
}

func TestDiagnosePageReportsCleanPageAsNotBlocked(t *testing.T) {
	svc, pageID := newDetectTestService(t, "Welcome to our totally normal website.")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	diag, err := svc.DiagnosePage(ctx, &rpcserver.DiagnosePageRequest{PageID: pageID})
	if err != nil {
		t.Fatalf("DiagnosePage: %v", err)
	}
	if diag.Blocked {
		t.Fatalf("expected Blocked=false, got Categories=%v", diag.Categories)
	}
}
