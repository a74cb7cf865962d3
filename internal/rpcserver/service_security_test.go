package rpcserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/cdpforge/cdpd/internal/rpcserver"
)

func TestNavigateRejectsLocalhostURL(t *testing.T) {
	svc := newTestService(t)
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

	if _, err := svc.Navigate(ctx, &rpcserver.NavigateRequest{PageID: page.PageID, URL: "http://127.0.0.1:8080/admin"}); err == nil {
		t.Fatal("expected Navigate to reject a loopback URL")
	}

	if _, err := svc.Navigate(ctx, &rpcserver.NavigateRequest{PageID: page.PageID, URL: "http://169.254.169.254/latest/meta-data"}); err == nil {
		t.Fatal("expected Navigate to reject a cloud metadata URL")
	}

	if _, err := svc.Navigate(ctx, &rpcserver.NavigateRequest{PageID: page.PageID, URL: "javascript:alert(1)"}); err == nil {
		t.Fatal("expected Navigate to reject a non-http(s) scheme")
	}
}

func TestSetExtraHeadersRejectsBlockedHeader(t *testing.T) {
	svc := newTestService(t)
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

	if _, err := svc.SetExtraHeaders(ctx, &rpcserver.SetExtraHeadersRequest{
		PageID:  page.PageID,
		Headers: map[string]string{"Host": "evil.example"},
	}); err == nil {
		t.Fatal("expected SetExtraHeaders to reject a blocked header name")
	}

	if _, err := svc.SetExtraHeaders(ctx, &rpcserver.SetExtraHeadersRequest{
		PageID:  page.PageID,
		Headers: map[string]string{"X-Requested-With": "XMLHttpRequest"},
	}); err != nil {
		t.Fatalf("SetExtraHeaders: %v", err)
	}
}
