package humanize

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/cdpforge/cdpd/internal/cdp"
)

// ScrollConfig contains configuration for humanized scroll behavior.
type ScrollConfig struct {
	MinScrollSteps       int
	MaxScrollSteps       int
	MinStepDelayMs       int
	MaxStepDelayMs       int
	ScrollMargin         float64
	PreScrollDelayMinMs  int
	PreScrollDelayMaxMs  int
	PostScrollDelayMinMs int
	PostScrollDelayMaxMs int

	// Steps fixes the number of wheel events per gesture; 0 sizes the burst
	// from the distance, bounded by Min/MaxScrollSteps.
	Steps int
	// Acceleration eases the gesture in and out instead of covering the
	// distance in uniform increments.
	Acceleration bool
}

// DefaultScrollConfig returns sensible defaults for human-like scrolling.
func DefaultScrollConfig() ScrollConfig {
	return ScrollConfig{
		MinScrollSteps:       8,
		MaxScrollSteps:       20,
		MinStepDelayMs:       20,
		MaxStepDelayMs:       60,
		ScrollMargin:         100,
		PreScrollDelayMinMs:  50,
		PreScrollDelayMaxMs:  200,
		PostScrollDelayMinMs: 100,
		PostScrollDelayMaxMs: 300,
	}
}

// Scroller provides humanized scroll interactions driven over a CDP client.
type Scroller struct {
	client *cdp.Client
	config ScrollConfig
}

// NewScroller creates a humanized scroller for the given client.
func NewScroller(client *cdp.Client) *Scroller {
	return &Scroller{client: client, config: DefaultScrollConfig()}
}

// NewScrollerWithConfig creates a humanized scroller with custom config.
func NewScrollerWithConfig(client *cdp.Client, config ScrollConfig) *Scroller {
	return &Scroller{client: client, config: config}
}

type layoutMetrics struct {
	VisualViewport struct {
		PageY        float64 `json:"pageY"`
		ClientWidth  float64 `json:"clientWidth"`
		ClientHeight float64 `json:"clientHeight"`
	} `json:"visualViewport"`
	ContentSize struct {
		Height float64 `json:"height"`
	} `json:"contentSize"`
}

func (s *Scroller) getLayoutMetrics(ctx context.Context) (layoutMetrics, error) {
	var lm layoutMetrics
	raw, err := s.client.CallMethod(ctx, "Page.getLayoutMetrics", map[string]any{})
	if err != nil {
		return lm, err
	}
	if err := json.Unmarshal(raw, &lm); err != nil {
		return lm, err
	}
	return lm, nil
}

// ScrollToElementBox smoothly scrolls to bring a box (x/y/width/height, in
// page coordinates, as returned by session.ElementRef.GetBoundingBox) into
// view, centering it in the viewport.
func (s *Scroller) ScrollToElementBox(ctx context.Context, x, y, width, height float64) error {
	if width <= 0 || height <= 0 {
		return ErrElementNotVisible
	}

	lm, err := s.getLayoutMetrics(ctx)
	if err != nil {
		return err
	}

	elementCenterY := y + height/2
	currentScrollY := lm.VisualViewport.PageY
	viewportHeight := lm.VisualViewport.ClientHeight

	viewportTop := currentScrollY
	viewportBottom := currentScrollY + viewportHeight

	if elementCenterY >= viewportTop+s.config.ScrollMargin &&
		elementCenterY <= viewportBottom-s.config.ScrollMargin {
		log.Debug().Msg("humanize: element already in view, no scroll needed")
		return nil
	}

	targetScrollY := elementCenterY - viewportHeight/2
	maxScrollY := lm.ContentSize.Height - viewportHeight
	if targetScrollY < 0 {
		targetScrollY = 0
	}
	if targetScrollY > maxScrollY {
		targetScrollY = maxScrollY
	}

	return s.smoothScrollTo(ctx, lm, currentScrollY, targetScrollY)
}

// ScrollBy scrolls by deltaY with smooth animation, clamped to the page's
// valid scroll range.
func (s *Scroller) ScrollBy(ctx context.Context, deltaY float64) error {
	lm, err := s.getLayoutMetrics(ctx)
	if err != nil {
		return err
	}

	currentScrollY := lm.VisualViewport.PageY
	targetScrollY := currentScrollY + deltaY

	maxScrollY := lm.ContentSize.Height - lm.VisualViewport.ClientHeight
	if targetScrollY < 0 {
		targetScrollY = 0
	}
	if targetScrollY > maxScrollY {
		targetScrollY = maxScrollY
	}

	return s.smoothScrollTo(ctx, lm, currentScrollY, targetScrollY)
}

// ScrollTo smoothly scrolls to an absolute target Y, clamped to the page's
// valid scroll range.
func (s *Scroller) ScrollTo(ctx context.Context, targetY float64) error {
	lm, err := s.getLayoutMetrics(ctx)
	if err != nil {
		return err
	}
	maxScrollY := lm.ContentSize.Height - lm.VisualViewport.ClientHeight
	if targetY < 0 {
		targetY = 0
	}
	if targetY > maxScrollY {
		targetY = maxScrollY
	}
	return s.smoothScrollTo(ctx, lm, lm.VisualViewport.PageY, targetY)
}

// ScrollToTop smoothly scrolls to the top of the page.
func (s *Scroller) ScrollToTop(ctx context.Context) error {
	lm, err := s.getLayoutMetrics(ctx)
	if err != nil {
		return err
	}
	if lm.VisualViewport.PageY < 10 {
		return nil
	}
	return s.smoothScrollTo(ctx, lm, lm.VisualViewport.PageY, 0)
}

// ScrollToBottom smoothly scrolls to the bottom of the page.
func (s *Scroller) ScrollToBottom(ctx context.Context) error {
	lm, err := s.getLayoutMetrics(ctx)
	if err != nil {
		return err
	}
	maxScrollY := lm.ContentSize.Height - lm.VisualViewport.ClientHeight
	if maxScrollY-lm.VisualViewport.PageY < 10 {
		return nil
	}
	return s.smoothScrollTo(ctx, lm, lm.VisualViewport.PageY, maxScrollY)
}

// smoothScrollTo covers the distance from fromY to toY with a burst of
// synthetic wheel events via Input.dispatchMouseEvent, the same input path a
// physical mouse wheel takes, so a page listening for wheel events observes
// a real-looking gesture rather than a script-driven scroll position jump.
// With Acceleration set, step sizes follow an ease-in-out curve; otherwise
// the distance is covered in uniform increments.
func (s *Scroller) smoothScrollTo(ctx context.Context, lm layoutMetrics, fromY, toY float64) error {
	preDelay := RandomDuration(s.config.PreScrollDelayMinMs, s.config.PreScrollDelayMaxMs)
	if !sleepWithContext(ctx, preDelay) {
		return ctx.Err()
	}

	total := toY - fromY
	if math.Abs(total) < 1 {
		return nil
	}

	numSteps := s.config.Steps
	if numSteps <= 0 {
		numSteps = s.config.MinScrollSteps + int(math.Abs(total)/100)
		if numSteps > s.config.MaxScrollSteps {
			numSteps = s.config.MaxScrollSteps
		}
	}

	// Wheel events carry a cursor position; park it near the middle of the
	// viewport where a hand resting on the wheel would be.
	cursorX := lm.VisualViewport.ClientWidth / 2
	cursorY := lm.VisualViewport.ClientHeight / 2
	if cursorX <= 0 {
		cursorX = 400
	}
	if cursorY <= 0 {
		cursorY = 300
	}

	log.Debug().
		Float64("from_y", fromY).
		Float64("to_y", toY).
		Int("steps", numSteps).
		Bool("accelerated", s.config.Acceleration).
		Msg("humanize: starting wheel scroll")

	progress := func(t float64) float64 {
		if s.config.Acceleration {
			return easeInOutQuad(t)
		}
		return t
	}

	covered := 0.0
	for i := 1; i <= numSteps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		target := total * progress(float64(i)/float64(numSteps))
		delta := target - covered
		covered = target

		if _, err := s.client.CallMethod(ctx, "Input.dispatchMouseEvent", map[string]any{
			"type":   "mouseWheel",
			"x":      cursorX,
			"y":      cursorY,
			"deltaX": 0,
			"deltaY": delta,
		}); err != nil {
			return err
		}

		stepDelay := RandomDuration(s.config.MinStepDelayMs, s.config.MaxStepDelayMs)
		if !sleepWithContext(ctx, stepDelay) {
			return ctx.Err()
		}
	}

	postDelay := RandomDuration(s.config.PostScrollDelayMinMs, s.config.PostScrollDelayMaxMs)
	if !sleepWithContext(ctx, postDelay) {
		return ctx.Err()
	}

	log.Debug().Float64("target_y", toY).Msg("humanize: wheel scroll completed")
	return nil
}

// easeInOutQuad is the 2t^2 / 1-2(1-t)^2 ease-in-out pair: slow start and
// stop with the bulk of the distance covered mid-gesture.
func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	d := 1 - t
	return 1 - 2*d*d
}

// RandomSmallScroll performs a small random scroll to simulate natural page
// exploration before an action.
func (s *Scroller) RandomSmallScroll(ctx context.Context) error {
	delta := float64(rand.Intn(101) - 50)
	if math.Abs(delta) < 10 {
		return nil
	}
	log.Debug().Float64("delta", delta).Msg("humanize: random small scroll")
	return s.ScrollBy(ctx, delta)
}

// EnsureElementBoxVisible scrolls if necessary to ensure the given box is
// fully visible, returning whether scrolling was performed.
func (s *Scroller) EnsureElementBoxVisible(ctx context.Context, x, y, width, height float64) (bool, error) {
	if width <= 0 || height <= 0 {
		return false, ErrElementNotVisible
	}

	lm, err := s.getLayoutMetrics(ctx)
	if err != nil {
		return false, err
	}

	elementTop := y
	elementBottom := y + height

	viewportTop := lm.VisualViewport.PageY
	viewportBottom := viewportTop + lm.VisualViewport.ClientHeight

	isVisible := elementTop >= viewportTop+s.config.ScrollMargin &&
		elementBottom <= viewportBottom-s.config.ScrollMargin

	if isVisible {
		return false, nil
	}

	if err := s.ScrollToElementBox(ctx, x, y, width, height); err != nil {
		return false, err
	}

	return true, nil
}
