package humanize_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/cdpmock"
	"github.com/cdpforge/cdpd/internal/humanize"
)

func dialInteractionClient(t *testing.T, srv *cdpmock.Server) *cdp.Client {
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

func TestMouseClickDispatchesPressAndRelease(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()

	var pressed, released, moved bool
	srv.Handle("Input.dispatchMouseEvent", func(p json.RawMessage) (json.RawMessage, error) {
		var params struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(p, &params)
		switch params.Type {
		case "mousePressed":
			pressed = true
		case "mouseReleased":
			released = true
		case "mouseMoved":
			moved = true
		}
		return json.RawMessage(`{}`), nil
	})

	client := dialInteractionClient(t, srv)
	mouse := humanize.NewMouseWithConfig(client, humanize.MouseConfig{
		MinSteps: 2, MaxSteps: 3, MinStepDelayMs: 1, MaxStepDelayMs: 2,
		PreClickHoverMinMs: 1, PreClickHoverMaxMs: 2,
		PostClickDwellMinMs: 1, PostClickDwellMaxMs: 2,
		ClickOffsetRadius: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := mouse.Click(ctx, 100, 100); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if !moved || !pressed || !released {
		t.Fatalf("expected moved/pressed/released all true, got %v/%v/%v", moved, pressed, released)
	}
}

func TestScrollerDispatchesWheelEventsClampedToContentSize(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()

	srv.Handle("Page.getLayoutMetrics", func(p json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{
			"visualViewport": {"pageY": 0, "clientWidth": 1280, "clientHeight": 800},
			"contentSize": {"height": 1000}
		}`), nil
	})

	var mu sync.Mutex
	var wheelEvents int
	var totalDelta float64
	srv.Handle("Input.dispatchMouseEvent", func(p json.RawMessage) (json.RawMessage, error) {
		var params struct {
			Type   string  `json:"type"`
			DeltaY float64 `json:"deltaY"`
		}
		_ = json.Unmarshal(p, &params)
		if params.Type == "mouseWheel" {
			mu.Lock()
			wheelEvents++
			totalDelta += params.DeltaY
			mu.Unlock()
		}
		return json.RawMessage(`{}`), nil
	})

	client := dialInteractionClient(t, srv)
	scroller := humanize.NewScrollerWithConfig(client, humanize.ScrollConfig{
		MinScrollSteps: 2, MaxScrollSteps: 3,
		MinStepDelayMs: 1, MaxStepDelayMs: 2,
		PreScrollDelayMinMs: 1, PreScrollDelayMaxMs: 2,
		PostScrollDelayMinMs: 1, PostScrollDelayMaxMs: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Content is 1000px in an 800px viewport, so a 5000px request clamps
	// to a 200px gesture.
	if err := scroller.ScrollBy(ctx, 5000); err != nil {
		t.Fatalf("ScrollBy: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if wheelEvents == 0 {
		t.Fatal("expected at least one mouseWheel dispatch")
	}
	if totalDelta < 199 || totalDelta > 201 {
		t.Fatalf("wheel deltas sum to %v, want ~200 (clamped)", totalDelta)
	}
}

func TestScrollerAcceleratedStepsEaseInAndOut(t *testing.T) {
	srv := cdpmock.NewServer()
	defer srv.Close()

	srv.Handle("Page.getLayoutMetrics", func(p json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{
			"visualViewport": {"pageY": 0, "clientWidth": 1280, "clientHeight": 800},
			"contentSize": {"height": 10000}
		}`), nil
	})

	var mu sync.Mutex
	var deltas []float64
	srv.Handle("Input.dispatchMouseEvent", func(p json.RawMessage) (json.RawMessage, error) {
		var params struct {
			Type   string  `json:"type"`
			DeltaY float64 `json:"deltaY"`
		}
		_ = json.Unmarshal(p, &params)
		if params.Type == "mouseWheel" {
			mu.Lock()
			deltas = append(deltas, params.DeltaY)
			mu.Unlock()
		}
		return json.RawMessage(`{}`), nil
	})

	client := dialInteractionClient(t, srv)
	scroller := humanize.NewScrollerWithConfig(client, humanize.ScrollConfig{
		MinScrollSteps: 2, MaxScrollSteps: 10, Steps: 8, Acceleration: true,
		MinStepDelayMs: 1, MaxStepDelayMs: 2,
		PreScrollDelayMinMs: 1, PreScrollDelayMaxMs: 2,
		PostScrollDelayMinMs: 1, PostScrollDelayMaxMs: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := scroller.ScrollBy(ctx, 800); err != nil {
		t.Fatalf("ScrollBy: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(deltas) != 8 {
		t.Fatalf("got %d wheel events, want the configured 8", len(deltas))
	}
	// Ease-in-out: the opening and closing steps are smaller than the
	// mid-gesture steps.
	mid := deltas[len(deltas)/2]
	if deltas[0] >= mid || deltas[len(deltas)-1] >= mid {
		t.Fatalf("deltas %v do not ease in and out", deltas)
	}
}
