package stealth

import (
	"context"
	"sync"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/injector"
)

// Feature names as tracked in the Applied Features list.
const (
	FeatureUserAgent = "user_agent"
	FeatureNavigator = "navigator"
	FeatureScreen    = "screen"
	FeatureWebGL     = "webgl"
	FeatureCanvas    = "canvas"
	FeatureAudio     = "audio"
)

// Engine orchestrates applying a Profile to a page and owns the per-page
// applied-features map.
type Engine struct {
	inj *injector.Injector

	mu      sync.Mutex
	applied map[string][]string
}

// NewEngine constructs an Engine backed by the given Injector. The Injector
// owns the per-page installed-scripts list; the Engine owns only the
// applied-features bookkeeping.
func NewEngine(inj *injector.Injector) *Engine {
	return &Engine{inj: inj, applied: make(map[string][]string)}
}

// ApplyProfile installs, in order (UA first so an immediate navigation
// already uses the spoofed UA):
//  1. user_agent
//  2. navigator (if Mask.InjectNavigator)
//  3. screen (if Mask.InjectScreen)
//  4. webgl (if Mask.InjectWebGL)
//  5. canvas (if Mask.InjectCanvas)
//  6. audio (if Mask.InjectAudio)
func (e *Engine) ApplyProfile(ctx context.Context, pageID string, client *cdp.Client, profile Profile) ([]string, error) {
	var features []string

	if err := injector.SetUserAgent(ctx, client, profile.Fingerprint.Headers.UserAgent); err != nil {
		return nil, err
	}
	features = append(features, FeatureUserAgent)

	if profile.Mask.InjectNavigator {
		if _, err := e.inj.InjectInitScript(ctx, pageID, client, navigatorOverrideScript(profile.Fingerprint)); err != nil {
			return nil, err
		}
		features = append(features, FeatureNavigator)
	}
	if profile.Mask.InjectScreen {
		if _, err := e.inj.InjectInitScript(ctx, pageID, client, screenOverrideScript(profile.Fingerprint)); err != nil {
			return nil, err
		}
		features = append(features, FeatureScreen)
	}
	if profile.Mask.InjectWebGL {
		if _, err := e.inj.InjectInitScript(ctx, pageID, client, webglOverrideScript(profile.Fingerprint)); err != nil {
			return nil, err
		}
		features = append(features, FeatureWebGL)
	}
	if profile.Mask.InjectCanvas {
		if _, err := e.inj.InjectInitScript(ctx, pageID, client, canvasNoiseScript()); err != nil {
			return nil, err
		}
		features = append(features, FeatureCanvas)
	}
	if profile.Mask.InjectAudio {
		if _, err := e.inj.InjectInitScript(ctx, pageID, client, audioNoiseScript()); err != nil {
			return nil, err
		}
		features = append(features, FeatureAudio)
	}

	e.mu.Lock()
	e.applied[pageID] = features
	e.mu.Unlock()

	return features, nil
}

// Injector returns the script injector backing this Engine, so callers can
// reach its operations for a page without going through profile application.
func (e *Engine) Injector() *injector.Injector {
	return e.inj
}

// GetAppliedFeatures returns the feature list actually installed for a page.
func (e *Engine) GetAppliedFeatures(pageID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.applied[pageID]))
	copy(out, e.applied[pageID])
	return out
}

// RemoveAll clears the page's installed scripts and applied-features entry.
func (e *Engine) RemoveAll(pageID string) {
	e.inj.ClearAll(pageID)
	e.mu.Lock()
	delete(e.applied, pageID)
	e.mu.Unlock()
}
