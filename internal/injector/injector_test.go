package injector_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/cdpmock"
	"github.com/cdpforge/cdpd/internal/injector"
)

func dialInjectorClient(t *testing.T, srv *cdpmock.Server) *cdp.Client {
	t.Helper()
	browser := cdp.NewBrowser(srv.WSEndpoint())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL, err := browser.CreateTarget(ctx, "about:blank")
	if err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	client, err := browser.CreateClient(ctx, wsURL)
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	t.Cleanup(func() { client.Conn().Close() })
	return client
}

func okHandlers(srv *cdpmock.Server) {
	srv.Handle("Page.addScriptToEvaluateOnNewDocument", func(p json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"identifier":"1"}`), nil
	})
	srv.Handle("Runtime.evaluate", func(p json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"result":{"type":"undefined"}}`), nil
	})
}

func TestInjectInitScriptTracksAndRemoves(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()
	okHandlers(srv)

	client := dialInjectorClient(t, srv)
	inj := injector.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const script = "Object.defineProperty(navigator, 'webdriver', { get: () => false });"
	id, err := inj.InjectInitScript(ctx, "page-1", client, script)
	if err != nil {
		t.Fatalf("InjectInitScript: %v", err)
	}

	scripts := inj.GetInjectedScripts("page-1")
	if len(scripts) != 1 {
		t.Fatalf("GetInjectedScripts = %d entries, want 1", len(scripts))
	}
	if scripts[0].Content != script {
		t.Errorf("tracked content = %q, want the exact submitted script", scripts[0].Content)
	}
	if scripts[0].Kind != injector.KindInitScript {
		t.Errorf("Kind = %v, want KindInitScript", scripts[0].Kind)
	}

	if !inj.RemoveScript("page-1", id) {
		t.Fatal("RemoveScript returned false for a known id")
	}
	if got := inj.GetInjectedScripts("page-1"); len(got) != 0 {
		t.Errorf("scripts after removal = %v, want empty", got)
	}
	if inj.RemoveScript("page-1", uuid.New()) {
		t.Error("RemoveScript returned true for an unknown id")
	}
}

func TestInjectInitScriptRegistrationFailureIsFatal(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()
	srv.Handle("Page.addScriptToEvaluateOnNewDocument", func(p json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("registration refused")
	})

	client := dialInjectorClient(t, srv)
	inj := injector.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := inj.InjectInitScript(ctx, "page-1", client, "1")
	if err == nil {
		t.Fatal("expected error when addScriptToEvaluateOnNewDocument fails")
	}
	if id != uuid.Nil {
		t.Errorf("id = %v, want uuid.Nil", id)
	}
	if got := inj.GetInjectedScripts("page-1"); len(got) != 0 {
		t.Errorf("failed injection still tracked: %v", got)
	}
}

func TestInjectInitScriptImmediateEvalFailureIsNonFatal(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()
	srv.Handle("Page.addScriptToEvaluateOnNewDocument", func(p json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"identifier":"1"}`), nil
	})
	srv.Handle("Runtime.evaluate", func(p json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("document gone")
	})

	client := dialInjectorClient(t, srv)
	inj := injector.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := inj.InjectInitScript(ctx, "page-1", client, "1"); err != nil {
		t.Fatalf("InjectInitScript should tolerate immediate-eval failure, got %v", err)
	}
	if got := inj.GetInjectedScripts("page-1"); len(got) != 1 {
		t.Errorf("scripts = %d entries, want 1", len(got))
	}
}

func TestInjectStyleRecordsStyleEntry(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()
	okHandlers(srv)

	client := dialInjectorClient(t, srv)
	inj := injector.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const css = "body { background: #000; }"
	if _, err := inj.InjectStyle(ctx, "page-1", client, css); err != nil {
		t.Fatalf("InjectStyle: %v", err)
	}

	scripts := inj.GetInjectedScripts("page-1")
	if len(scripts) != 1 || scripts[0].Kind != injector.KindStyle || scripts[0].Content != css {
		t.Errorf("tracked entry = %+v, want one Style entry with the submitted CSS", scripts)
	}
}

func TestEvaluateReturnsStringValue(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()
	srv.Handle("Runtime.evaluate", func(p json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"result":{"type":"string","value":"hello"}}`), nil
	})

	client := dialInjectorClient(t, srv)
	inj := injector.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := inj.Evaluate(ctx, client, "'hello'")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out != "hello" {
		t.Errorf("Evaluate = %q, want %q", out, "hello")
	}
}

func TestSetUserAgentIssuesOverride(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()

	var mu sync.Mutex
	var gotUA string
	srv.Handle("Network.setUserAgentOverride", func(p json.RawMessage) (json.RawMessage, error) {
		var params struct {
			UserAgent string `json:"userAgent"`
		}
		_ = json.Unmarshal(p, &params)
		mu.Lock()
		gotUA = params.UserAgent
		mu.Unlock()
		return json.RawMessage(`{}`), nil
	})

	client := dialInjectorClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := injector.SetUserAgent(ctx, client, "spoofed/1.0"); err != nil {
		t.Fatalf("SetUserAgent: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotUA != "spoofed/1.0" {
		t.Errorf("userAgent param = %q, want %q", gotUA, "spoofed/1.0")
	}
}

func TestClearAllDropsEveryScript(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()
	okHandlers(srv)

	client := dialInjectorClient(t, srv)
	inj := injector.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := inj.InjectInitScript(ctx, "page-1", client, "1"); err != nil {
			t.Fatalf("InjectInitScript: %v", err)
		}
	}
	inj.ClearAll("page-1")
	if got := inj.GetInjectedScripts("page-1"); len(got) != 0 {
		t.Errorf("scripts after ClearAll = %v, want empty", got)
	}
}
