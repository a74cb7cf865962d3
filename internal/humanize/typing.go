package humanize

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/cdpforge/cdpd/internal/cdp"
)

// TypingConfig contains configuration for humanized typing behavior.
type TypingConfig struct {
	// DelayMeanMs / DelayStdDevMs parameterize the Gaussian inter-keystroke
	// delay (see GaussianDelay).
	DelayMeanMs   float64
	DelayStdDevMs float64
	// TypoProbability is the chance, per character, of typing an adjacent
	// key before backspacing and typing the correct one.
	TypoProbability float64
	// BackspaceProbability is the independent chance, per character, of a
	// spurious backspace before the intended key, as if reconsidering text
	// already typed.
	BackspaceProbability float64
}

// DefaultTypingConfig returns sensible defaults for human-like typing.
func DefaultTypingConfig() TypingConfig {
	return TypingConfig{
		DelayMeanMs:          90,
		DelayStdDevMs:        35,
		TypoProbability:      0.02,
		BackspaceProbability: 0.01,
	}
}

// qwertyNeighbors maps a lowercase letter to plausible adjacent-key typos.
var qwertyNeighbors = map[rune]string{
	'a': "qws", 'b': "vgn", 'c': "xdv", 'd': "serfc", 'e': "wsdr",
	'f': "drtgv", 'g': "ftyhb", 'h': "gyujn", 'i': "ujko", 'j': "huikm",
	'k': "jiol", 'l': "kop", 'm': "njk", 'n': "bhjm", 'o': "iklp",
	'p': "ol", 'q': "wa", 'r': "edft", 's': "awedxz", 't': "rfgy",
	'u': "yhji", 'v': "cfgb", 'w': "qase", 'x': "zsdc", 'y': "tghu",
	'z': "asx",
}

// Typer simulates human keystrokes over a CDP client via
// Input.dispatchKeyEvent, one "char" event per rune, with Gaussian-jittered
// inter-keystroke delay and occasional typo-then-backspace corrections.
type Typer struct {
	client *cdp.Client
	config TypingConfig
}

// NewTyper creates a Typer for the given client with default config.
func NewTyper(client *cdp.Client) *Typer {
	return &Typer{client: client, config: DefaultTypingConfig()}
}

// NewTyperWithConfig creates a Typer with custom config.
func NewTyperWithConfig(client *cdp.Client, config TypingConfig) *Typer {
	return &Typer{client: client, config: config}
}

// Type dispatches one key event per rune of text, occasionally typing a
// neighboring key and self-correcting with a backspace, occasionally
// backspacing for no reason at all, with a Gaussian-jittered delay between
// keystrokes.
func (ty *Typer) Type(ctx context.Context, text string) error {
	for _, r := range text {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rand.Float64() < ty.config.BackspaceProbability {
			if err := ty.pressKey(ctx, "Backspace"); err != nil {
				return err
			}
			if !sleepWithContext(ctx, GaussianDelay(ty.config.DelayMeanMs, ty.config.DelayStdDevMs)) {
				return ctx.Err()
			}
			log.Debug().Msg("humanize: simulated spurious backspace")
		}

		if neighbors, ok := qwertyNeighbors[r]; ok && rand.Float64() < ty.config.TypoProbability {
			typo := rune(neighbors[rand.Intn(len(neighbors))])
			if err := ty.pressChar(ctx, typo); err != nil {
				return err
			}
			if !sleepWithContext(ctx, GaussianDelay(ty.config.DelayMeanMs, ty.config.DelayStdDevMs)) {
				return ctx.Err()
			}
			if err := ty.pressKey(ctx, "Backspace"); err != nil {
				return err
			}
			if !sleepWithContext(ctx, GaussianDelay(ty.config.DelayMeanMs, ty.config.DelayStdDevMs)) {
				return ctx.Err()
			}
			log.Debug().Str("typo", string(typo)).Msg("humanize: simulated typo and correction")
		}

		if err := ty.pressChar(ctx, r); err != nil {
			return err
		}

		if !sleepWithContext(ctx, GaussianDelay(ty.config.DelayMeanMs, ty.config.DelayStdDevMs)) {
			return ctx.Err()
		}
	}
	return nil
}

func (ty *Typer) pressChar(ctx context.Context, r rune) error {
	_, err := ty.client.CallMethod(ctx, "Input.dispatchKeyEvent", map[string]any{
		"type": "char",
		"text": string(r),
	})
	return err
}

func (ty *Typer) pressKey(ctx context.Context, key string) error {
	opts := map[string]any{"type": "keyDown", "key": key}
	if _, err := ty.client.CallMethod(ctx, "Input.dispatchKeyEvent", opts); err != nil {
		return err
	}
	opts["type"] = "keyUp"
	_, err := ty.client.CallMethod(ctx, "Input.dispatchKeyEvent", opts)
	return err
}
