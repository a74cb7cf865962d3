package session

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/humanize"
)

// waitSleep is the fixed sleep-per-mode used by Navigate's wait handling.
// A fuller implementation would gate on Page.lifecycleEvent notifications
// instead of sleeping.
var waitSleep = map[WaitUntil]time.Duration{
	WaitLoad:              500 * time.Millisecond,
	WaitDOMContentLoaded:  250 * time.Millisecond,
	WaitNetworkIdle:       500 * time.Millisecond,
	WaitNetworkAlmostIdle: 300 * time.Millisecond,
}

// PageContext is the live object bound to a CDP Client.
type PageContext struct {
	ID        uuid.UUID
	BrowserID uuid.UUID
	Options   PageOptions

	client       *cdp.Client
	active       atomic.Bool
	refCount     atomic.Int32
	blockCleanup func() // stops the resource-blocking listener, if any
}

func newPageContext(browserID uuid.UUID, opts PageOptions, client *cdp.Client) *PageContext {
	p := &PageContext{ID: uuid.New(), BrowserID: browserID, Options: opts, client: client}
	p.active.Store(true)
	return p
}

// IsActive reports the current lifecycle state.
func (p *PageContext) IsActive() bool {
	return p.active.Load()
}

func (p *PageContext) requireActive() error {
	if !p.active.Load() {
		return ErrPageNotFound
	}
	return nil
}

// AcquireRef increments the page's reference count. The count is only
// reported by RefCount; Close does not wait for it to drop to zero.
func (p *PageContext) AcquireRef() {
	p.refCount.Add(1)
}

// ReleaseRef decrements the page's reference count.
func (p *PageContext) ReleaseRef() {
	p.refCount.Add(-1)
}

// RefCount reports the current reference count.
func (p *PageContext) RefCount() int32 {
	return p.refCount.Load()
}

// Client exposes the underlying CDP Client for element/script callers.
func (p *PageContext) Client() *cdp.Client {
	return p.client
}

// Navigate delegates to the Client then waits according to WaitUntil by
// sleeping a short fixed amount per mode.
func (p *PageContext) Navigate(ctx context.Context, url string, opts NavigateOptions) (*NavigateResult, error) {
	if err := p.requireActive(); err != nil {
		return nil, err
	}
	res, err := p.client.Navigate(ctx, url)
	if err != nil {
		return nil, err
	}
	if d, ok := waitSleep[opts.WaitUntil]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
	return &NavigateResult{URL: res.URL, StatusCode: res.StatusCode, IsLoaded: res.IsLoaded}, nil
}

// Evaluate runs script via Runtime.evaluate.
func (p *PageContext) Evaluate(ctx context.Context, script string, awaitPromise bool) (*cdp.EvaluationResult, error) {
	if err := p.requireActive(); err != nil {
		return nil, err
	}
	return p.client.Evaluate(ctx, script, awaitPromise)
}

// Screenshot captures the page in the requested format.
func (p *PageContext) Screenshot(ctx context.Context, format cdp.ScreenshotFormat) ([]byte, error) {
	if err := p.requireActive(); err != nil {
		return nil, err
	}
	return p.client.Screenshot(ctx, format)
}

// GetContent returns the page's outer HTML.
func (p *PageContext) GetContent(ctx context.Context) (string, error) {
	if err := p.requireActive(); err != nil {
		return "", err
	}
	return p.client.GetContent(ctx)
}

// SetContent replaces the page's outer HTML.
func (p *PageContext) SetContent(ctx context.Context, html string) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	return p.client.SetContent(ctx, html)
}

// Reload reloads the page.
func (p *PageContext) Reload(ctx context.Context, ignoreCache bool) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	return p.client.Reload(ctx, ignoreCache)
}

// SetViewport issues Emulation.setDeviceMetricsOverride.
func (p *PageContext) SetViewport(ctx context.Context, width, height int, deviceScaleFactor float64) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	_, err := p.client.CallMethod(ctx, "Emulation.setDeviceMetricsOverride", map[string]any{
		"width": width, "height": height, "deviceScaleFactor": deviceScaleFactor, "mobile": false,
	})
	return err
}

// SetExtraHeaders installs headers CDP attaches to every subsequent
// request this page issues, the transport-level counterpart to the
// Stealth Engine's header fingerprint overrides.
func (p *PageContext) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	_, err := p.client.CallMethod(ctx, "Network.setExtraHTTPHeaders", map[string]any{
		"headers": headers,
	})
	return err
}

// SimulateMouseMove drives a Bezier-path mouse move from (startX,startY) to
// (endX,endY) with the given tuning.
func (p *PageContext) SimulateMouseMove(ctx context.Context, startX, startY, endX, endY float64, cfg humanize.MouseConfig) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	return humanize.NewMouseAtWithConfig(p.client, humanize.Point{X: startX, Y: startY}, cfg).MoveTo(ctx, endX, endY)
}

// SimulateScroll drives a wheel-event scroll to an absolute target Y with
// the given tuning.
func (p *PageContext) SimulateScroll(ctx context.Context, targetY float64, cfg humanize.ScrollConfig) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	return humanize.NewScrollerWithConfig(p.client, cfg).ScrollTo(ctx, targetY)
}

// GoBack evaluates history.back(); it does not model Chromium's own
// history-entry traversal.
func (p *PageContext) GoBack(ctx context.Context) error {
	_, err := p.Evaluate(ctx, "history.back()", false)
	return err
}

// GoForward evaluates history.forward().
func (p *PageContext) GoForward(ctx context.Context) error {
	_, err := p.Evaluate(ctx, "history.forward()", false)
	return err
}

// Close issues Page.close, sets active=false regardless of outcome, and
// logs the CDP result. Idempotent.
func (p *PageContext) Close(ctx context.Context) error {
	if !p.active.CompareAndSwap(true, false) {
		return nil
	}
	if p.blockCleanup != nil {
		p.blockCleanup()
	}
	_, err := p.client.CallMethod(ctx, "Page.close", nil)
	if err != nil {
		log.Debug().Str("page_id", p.ID.String()).Err(err).Msg("session: Page.close returned an error, page marked inactive regardless")
	}
	return p.client.Conn().Close()
}

// FindElement wraps an already-known backend node id in an ElementRef,
// without round-tripping to the page.
func (p *PageContext) FindElement(ctx context.Context, backendNodeID int64) *ElementRef {
	return newElementRef(p.ID, backendNodeID, p.client)
}

// FindElementBySelector resolves a CSS selector to an ElementRef via
// DOM.getDocument + DOM.querySelector against the document root, then
// DOM.describeNode to recover the backend node id the rest of ElementRef's
// methods address the node by. Returns ErrElementNotFound if no element
// matches.
func (p *PageContext) FindElementBySelector(ctx context.Context, selector string) (*ElementRef, error) {
	if err := p.requireActive(); err != nil {
		return nil, err
	}
	raw, err := p.client.CallMethod(ctx, "DOM.getDocument", map[string]any{"depth": 0})
	if err != nil {
		return nil, wrapElementErr(err)
	}
	var doc struct {
		Root struct {
			NodeID int64 `json:"nodeId"`
		} `json:"root"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, wrapElementErr(err)
	}

	raw, err = p.client.CallMethod(ctx, "DOM.querySelector", map[string]any{
		"nodeId": doc.Root.NodeID, "selector": selector,
	})
	if err != nil {
		return nil, wrapElementErr(err)
	}
	var qs struct {
		NodeID int64 `json:"nodeId"`
	}
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, wrapElementErr(err)
	}
	if qs.NodeID == 0 {
		return nil, ErrElementNotFound
	}

	raw, err = p.client.CallMethod(ctx, "DOM.describeNode", map[string]any{"nodeId": qs.NodeID})
	if err != nil {
		return nil, wrapElementErr(err)
	}
	var described struct {
		Node struct {
			BackendNodeID int64 `json:"backendNodeId"`
		} `json:"node"`
	}
	if err := json.Unmarshal(raw, &described); err != nil {
		return nil, wrapElementErr(err)
	}

	return newElementRef(p.ID, described.Node.BackendNodeID, p.client), nil
}
