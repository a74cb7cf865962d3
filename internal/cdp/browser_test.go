package cdp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/cdpmock"
)

func TestGetVersion(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()

	browser := cdp.NewBrowser(srv.WSEndpoint())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	v, err := browser.GetVersion(ctx)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v.ProtocolVersion != "1.3" {
		t.Errorf("ProtocolVersion = %q, want 1.3", v.ProtocolVersion)
	}
	if v.Product != "mock/1.0" {
		t.Errorf("Product = %q, want mock/1.0", v.Product)
	}
}

func TestGetTargetsFiltersIncompleteDescriptors(t *testing.T) {
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"t1","type":"page","title":"one","url":"https://example.com","attached":false},
			{"id":"t2","type":"page","title":"no url"},
			{"type":"page","url":"https://example.com"},
			{"id":"t4","type":"worker","title":"w","url":"https://example.com/worker.js","attached":true}
		]`))
	}))
	defer httpSrv.Close()

	browser := cdp.NewBrowser("ws://" + strings.TrimPrefix(httpSrv.URL, "http://"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	targets, err := browser.GetTargets(ctx)
	if err != nil {
		t.Fatalf("GetTargets: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("GetTargets kept %d descriptors, want 2 (the ones carrying id, type and url)", len(targets))
	}
	if targets[0].ID != "t1" || targets[1].ID != "t4" {
		t.Errorf("kept targets = %q, %q; want t1, t4", targets[0].ID, targets[1].ID)
	}
}

func TestCreateTargetReturnsDebuggerURL(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()

	browser := cdp.NewBrowser(srv.WSEndpoint())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL, err := browser.CreateTarget(ctx, "about:blank")
	if err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	if !strings.HasPrefix(wsURL, "ws://") {
		t.Errorf("CreateTarget returned %q, want a ws:// debugger URL", wsURL)
	}
}

func TestCreateTargetUnreachableIncludesStartupHint(t *testing.T) {
	// Nothing listens on this port; the failure must carry actionable
	// instructions for starting Chromium with a debug port.
	browser := cdp.NewBrowser("ws://127.0.0.1:1")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := browser.CreateTarget(ctx, "about:blank")
	if err == nil {
		t.Fatal("expected error for unreachable debug endpoint")
	}
	if !strings.Contains(err.Error(), "--remote-debugging-port=9222") {
		t.Errorf("error lacks the startup hint: %v", err)
	}
}

func TestCreateTargetMissingDebuggerURL(t *testing.T) {
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"t1","type":"page"}`))
	}))
	defer httpSrv.Close()

	browser := cdp.NewBrowser("ws://" + strings.TrimPrefix(httpSrv.URL, "http://"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := browser.CreateTarget(ctx, "about:blank"); err == nil {
		t.Fatal("expected error when the response lacks webSocketDebuggerUrl")
	}
}
