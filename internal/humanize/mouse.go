// Package humanize provides timing, mouse-movement, scroll, and typing
// primitives that make automated interaction harder to distinguish from a
// human operator.
//
// Mouse and keyboard motion is driven over a raw internal/cdp.Client via
// Input.dispatchMouseEvent / Input.dispatchKeyEvent, the same domain the
// Element Ref's own Click/Hover helpers use, rather than through a
// higher-level page abstraction.
package humanize

import (
	"context"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/cdpforge/cdpd/internal/cdp"
)

// Point represents a 2D coordinate.
type Point struct {
	X, Y float64
}

// MouseConfig contains configuration for humanized mouse behavior.
type MouseConfig struct {
	MinSteps            int
	MaxSteps            int
	MinStepDelayMs      int
	MaxStepDelayMs      int
	ClickOffsetRadius   float64
	PreClickHoverMinMs  int
	PreClickHoverMaxMs  int
	PostClickDwellMinMs int
	PostClickDwellMaxMs int

	// Deviation fixes the Bezier control-point offset in pixels; 0 scales
	// the offset from the move distance instead.
	Deviation float64
}

// DefaultMouseConfig returns sensible defaults for human-like mouse behavior.
func DefaultMouseConfig() MouseConfig {
	return MouseConfig{
		MinSteps:            15,
		MaxSteps:            30,
		MinStepDelayMs:      3,
		MaxStepDelayMs:      12,
		ClickOffsetRadius:   5.0,
		PreClickHoverMinMs:  50,
		PreClickHoverMaxMs:  200,
		PostClickDwellMinMs: 80,
		PostClickDwellMaxMs: 250,
	}
}

// Mouse provides humanized mouse interactions driven over a CDP client.
type Mouse struct {
	client   *cdp.Client
	config   MouseConfig
	position Point
}

// NewMouse creates a humanized mouse controller for the given client.
func NewMouse(client *cdp.Client) *Mouse {
	return &Mouse{client: client, config: DefaultMouseConfig()}
}

// NewMouseWithConfig creates a humanized mouse controller with custom config.
func NewMouseWithConfig(client *cdp.Client, config MouseConfig) *Mouse {
	return &Mouse{client: client, config: config}
}

// NewMouseAt creates a humanized mouse controller whose first MoveTo/Click
// builds its Bezier path starting from start.
func NewMouseAt(client *cdp.Client, start Point) *Mouse {
	return &Mouse{client: client, config: DefaultMouseConfig(), position: start}
}

// NewMouseAtWithConfig seeds both the start position and the config.
func NewMouseAtWithConfig(client *cdp.Client, start Point, config MouseConfig) *Mouse {
	return &Mouse{client: client, config: config, position: start}
}

// MoveTo moves the mouse to the target coordinates using Bezier curve
// interpolation, dispatching one Input.dispatchMouseEvent mouseMoved call
// per intermediate point.
func (m *Mouse) MoveTo(ctx context.Context, x, y float64) error {
	start := m.position
	end := Point{X: x, Y: y}

	numSteps := m.config.MinSteps + rand.Intn(m.config.MaxSteps-m.config.MinSteps+1)
	path := bezierPath(start, end, numSteps, m.config.Deviation)

	for _, p := range path {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := m.client.CallMethod(ctx, "Input.dispatchMouseEvent", map[string]any{
			"type": "mouseMoved",
			"x":    p.X,
			"y":    p.Y,
		}); err != nil {
			return err
		}
		m.position = p

		delay := RandomDuration(m.config.MinStepDelayMs, m.config.MaxStepDelayMs)
		if !sleepWithContext(ctx, delay) {
			return ctx.Err()
		}
	}

	return nil
}

// Click performs a humanized click at the target coordinates: move via
// Bezier curve, pre-click hover, press/release, post-click dwell.
func (m *Mouse) Click(ctx context.Context, x, y float64) error {
	offsetX := (rand.Float64()*2 - 1) * m.config.ClickOffsetRadius
	offsetY := (rand.Float64()*2 - 1) * m.config.ClickOffsetRadius
	targetX := x + offsetX
	targetY := y + offsetY

	if err := m.MoveTo(ctx, targetX, targetY); err != nil {
		return err
	}

	hoverDelay := RandomDuration(m.config.PreClickHoverMinMs, m.config.PreClickHoverMaxMs)
	if !sleepWithContext(ctx, hoverDelay) {
		return ctx.Err()
	}

	if _, err := m.client.CallMethod(ctx, "Input.dispatchMouseEvent", map[string]any{
		"type":       "mousePressed",
		"x":          targetX,
		"y":          targetY,
		"button":     "left",
		"clickCount": 1,
	}); err != nil {
		return err
	}
	if _, err := m.client.CallMethod(ctx, "Input.dispatchMouseEvent", map[string]any{
		"type":       "mouseReleased",
		"x":          targetX,
		"y":          targetY,
		"button":     "left",
		"clickCount": 1,
	}); err != nil {
		return err
	}

	dwellDelay := RandomDuration(m.config.PostClickDwellMinMs, m.config.PostClickDwellMaxMs)
	if !sleepWithContext(ctx, dwellDelay) {
		return ctx.Err()
	}

	log.Debug().Float64("x", targetX).Float64("y", targetY).Msg("humanize: click completed")
	return nil
}

// ClickBox clicks a randomized point within the given box, biased toward
// its center (a typical element hit-test target supplied by the caller,
// e.g. session.ElementRef.GetBoundingBox).
func (m *Mouse) ClickBox(ctx context.Context, x, y, width, height float64) error {
	if width <= 0 || height <= 0 {
		return ErrElementNotVisible
	}
	centerX := x + width/2
	centerY := y + height/2
	return m.Click(ctx, centerX, centerY)
}

// ClickWithinBounds clicks at a random position within the given bounds,
// avoiding edges by restricting to the middle 60% of each axis.
func (m *Mouse) ClickWithinBounds(ctx context.Context, x, y, width, height float64) error {
	marginX := width * 0.2
	marginY := height * 0.2

	targetX := x + marginX + rand.Float64()*(width-2*marginX)
	targetY := y + marginY + rand.Float64()*(height-2*marginY)

	return m.Click(ctx, targetX, targetY)
}

// generateBezierPath generates a cubic Bezier curve path between two points
// with randomized, perpendicular-offset control points for natural movement.
// Control-point offsets scale with the move distance.
func generateBezierPath(start, end Point, numPoints int) []Point {
	return bezierPath(start, end, numPoints, 0)
}

// bezierPath is generateBezierPath with an explicit control-point deviation
// in pixels; 0 falls back to the distance-proportional offset.
func bezierPath(start, end Point, numPoints int, deviation float64) []Point {
	if numPoints < 2 {
		numPoints = 2
	}

	dx := end.X - start.X
	dy := end.Y - start.Y
	distance := math.Sqrt(dx*dx + dy*dy)

	ctrl1Offset := distance * (0.2 + rand.Float64()*0.3)
	ctrl2Offset := distance * (0.2 + rand.Float64()*0.3)
	if deviation > 0 {
		ctrl1Offset = deviation * (0.75 + rand.Float64()*0.5)
		ctrl2Offset = deviation * (0.75 + rand.Float64()*0.5)
	}

	perpDir1 := 1.0
	if rand.Float64() < 0.5 {
		perpDir1 = -1.0
	}
	perpDir2 := 1.0
	if rand.Float64() < 0.5 {
		perpDir2 = -1.0
	}

	perpX := -dy / distance
	perpY := dx / distance
	if distance == 0 {
		perpX, perpY = 0, 0
	}

	ctrl1 := Point{
		X: start.X + dx*0.33 + perpX*ctrl1Offset*perpDir1,
		Y: start.Y + dy*0.33 + perpY*ctrl1Offset*perpDir1,
	}
	ctrl2 := Point{
		X: start.X + dx*0.67 + perpX*ctrl2Offset*perpDir2,
		Y: start.Y + dy*0.67 + perpY*ctrl2Offset*perpDir2,
	}

	points := make([]Point, numPoints)
	for i := 0; i < numPoints; i++ {
		t := float64(i) / float64(numPoints-1)
		t = easeInOutCubic(t)

		mt := 1 - t
		mt2 := mt * mt
		mt3 := mt2 * mt
		t2 := t * t
		t3 := t2 * t

		points[i] = Point{
			X: mt3*start.X + 3*mt2*t*ctrl1.X + 3*mt*t2*ctrl2.X + t3*end.X,
			Y: mt3*start.Y + 3*mt2*t*ctrl1.Y + 3*mt*t2*ctrl2.Y + t3*end.Y,
		}
	}

	return points
}

// easeInOutCubic applies cubic easing: starts slow, speeds up, slows down.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Position returns the mouse's last known position.
func (m *Mouse) Position() Point {
	return m.position
}
