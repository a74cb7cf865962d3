package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/humanize"
)

// ElementRef is a DOM node handle scoped to one page. Its lifetime is not
// tracked by the server beyond the page; a stale backend node id surfaces
// as ErrElementNotFound once Chromium rejects the DOM call.
type ElementRef struct {
	ID            uuid.UUID
	PageID        uuid.UUID
	BackendNodeID int64

	client *cdp.Client
}

// BoundingBox is the element's content-quad bounding box.
type BoundingBox struct {
	X, Y, Width, Height float64
}

func newElementRef(pageID uuid.UUID, backendNodeID int64, client *cdp.Client) *ElementRef {
	return &ElementRef{ID: uuid.New(), PageID: pageID, BackendNodeID: backendNodeID, client: client}
}

func (e *ElementRef) nodeParams() map[string]any {
	return map[string]any{"backendNodeId": e.BackendNodeID}
}

// GetText returns DOM.getOuterText for the node.
func (e *ElementRef) GetText(ctx context.Context) (string, error) {
	raw, err := e.client.CallMethod(ctx, "DOM.getOuterText", e.nodeParams())
	if err != nil {
		return "", wrapElementErr(err)
	}
	var resp struct {
		Text string `json:"text"`
	}
	_ = json.Unmarshal(raw, &resp)
	return resp.Text, nil
}

// GetHTML returns DOM.getOuterHTML for the node.
func (e *ElementRef) GetHTML(ctx context.Context) (string, error) {
	raw, err := e.client.CallMethod(ctx, "DOM.getOuterHTML", e.nodeParams())
	if err != nil {
		return "", wrapElementErr(err)
	}
	var resp struct {
		OuterHTML string `json:"outerHTML"`
	}
	_ = json.Unmarshal(raw, &resp)
	return resp.OuterHTML, nil
}

// GetAttribute scans DOM.getAttributes' flattened [name0,value0,...] pairs.
func (e *ElementRef) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	raw, err := e.client.CallMethod(ctx, "DOM.getAttributes", e.nodeParams())
	if err != nil {
		return "", false, wrapElementErr(err)
	}
	var resp struct {
		Attributes []string `json:"attributes"`
	}
	_ = json.Unmarshal(raw, &resp)
	for i := 0; i+1 < len(resp.Attributes); i += 2 {
		if resp.Attributes[i] == name {
			return resp.Attributes[i+1], true, nil
		}
	}
	return "", false, nil
}

// getBoxModel fetches the node's box model and returns the content quad's
// bounding box, used by Click, IsVisible, and GetBoundingBox.
func (e *ElementRef) getBoxModel(ctx context.Context) (BoundingBox, error) {
	raw, err := e.client.CallMethod(ctx, "DOM.getBoxModel", e.nodeParams())
	if err != nil {
		return BoundingBox{}, wrapElementErr(err)
	}
	var resp struct {
		Model struct {
			Content []float64 `json:"content"`
		} `json:"model"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Model.Content) < 8 {
		return BoundingBox{}, wrapElementErr(fmt.Errorf("malformed box model"))
	}
	quad := resp.Model.Content
	minX, maxX := quad[0], quad[0]
	minY, maxY := quad[1], quad[1]
	for i := 0; i < 8; i += 2 {
		if quad[i] < minX {
			minX = quad[i]
		}
		if quad[i] > maxX {
			maxX = quad[i]
		}
		if quad[i+1] < minY {
			minY = quad[i+1]
		}
		if quad[i+1] > maxY {
			maxY = quad[i+1]
		}
	}
	return BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, nil
}

// GetBoundingBox returns the content quad's bounding box.
func (e *ElementRef) GetBoundingBox(ctx context.Context) (BoundingBox, error) {
	return e.getBoxModel(ctx)
}

// IsVisible is true iff DOM.getBoxModel succeeds.
func (e *ElementRef) IsVisible(ctx context.Context) bool {
	_, err := e.getBoxModel(ctx)
	return err == nil
}

// IsEnabled is true iff the "disabled" attribute is absent, empty, or "false".
func (e *ElementRef) IsEnabled(ctx context.Context) (bool, error) {
	val, present, err := e.GetAttribute(ctx, "disabled")
	if err != nil {
		return false, err
	}
	if !present || val == "" || val == "false" {
		return true, nil
	}
	return false, nil
}

// ScrollIntoView scrolls the node into view.
func (e *ElementRef) ScrollIntoView(ctx context.Context) error {
	_, err := e.client.CallMethod(ctx, "DOM.scrollIntoViewIfNeeded", e.nodeParams())
	return wrapElementErr(err)
}

// Focus focuses the node.
func (e *ElementRef) Focus(ctx context.Context) error {
	_, err := e.client.CallMethod(ctx, "DOM.focus", e.nodeParams())
	return wrapElementErr(err)
}

// Hover moves the mouse to the node's center without clicking.
func (e *ElementRef) Hover(ctx context.Context) error {
	box, err := e.getBoxModel(ctx)
	if err != nil {
		return err
	}
	cx, cy := box.X+box.Width/2, box.Y+box.Height/2
	_, err = e.client.CallMethod(ctx, "Input.dispatchMouseEvent", map[string]any{
		"type": "mouseMoved", "x": cx, "y": cy,
	})
	return wrapElementErr(err)
}

// Click scrolls into view, computes the content quad's center, and
// dispatches a press/release mouse event pair there.
func (e *ElementRef) Click(ctx context.Context) error {
	if err := e.ScrollIntoView(ctx); err != nil {
		return err
	}
	box, err := e.getBoxModel(ctx)
	if err != nil {
		return err
	}
	cx, cy := box.X+box.Width/2, box.Y+box.Height/2

	if _, err := e.client.CallMethod(ctx, "Input.dispatchMouseEvent", map[string]any{
		"type": "mousePressed", "x": cx, "y": cy, "button": "left", "clickCount": 1,
	}); err != nil {
		return wrapElementErr(err)
	}
	_, err = e.client.CallMethod(ctx, "Input.dispatchMouseEvent", map[string]any{
		"type": "mouseReleased", "x": cx, "y": cy, "button": "left", "clickCount": 1,
	})
	return wrapElementErr(err)
}

// SimulateClick performs a humanized click: scroll into view, then a
// Bezier-path mouse move to a randomized point within the element's box,
// press, hold, release, in place of Click's direct jump.
func (e *ElementRef) SimulateClick(ctx context.Context) error {
	if err := e.ScrollIntoView(ctx); err != nil {
		return err
	}
	box, err := e.getBoxModel(ctx)
	if err != nil {
		return err
	}
	return humanize.NewMouse(e.client).ClickWithinBounds(ctx, box.X, box.Y, box.Width, box.Height)
}

// TypeText focuses the element, then dispatches one char key event per rune.
func (e *ElementRef) TypeText(ctx context.Context, text string) error {
	if err := e.Focus(ctx); err != nil {
		return err
	}
	for _, r := range text {
		if _, err := e.client.CallMethod(ctx, "Input.dispatchKeyEvent", map[string]any{
			"type": "char", "text": string(r),
		}); err != nil {
			return wrapElementErr(err)
		}
	}
	return nil
}

// SimulateTypeText focuses the element, then types text with Gaussian
// inter-keystroke delay and typo/backspace injection per cfg, in place of
// TypeText's uniform per-character dispatch.
func (e *ElementRef) SimulateTypeText(ctx context.Context, text string, cfg humanize.TypingConfig) error {
	if err := e.Focus(ctx); err != nil {
		return err
	}
	return humanize.NewTyperWithConfig(e.client, cfg).Type(ctx, text)
}

func wrapElementErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrElementNotFound, err)
}
