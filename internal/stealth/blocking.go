package stealth

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/cdpforge/cdpd/internal/cdp"
)

// BlockPatterns selects which sub-resource kinds to block on a page.
type BlockPatterns struct {
	Images bool
	CSS    bool
	Fonts  bool
	Media  bool
}

// Any reports whether at least one resource kind is selected for blocking.
func (b BlockPatterns) Any() bool {
	return b.Images || b.CSS || b.Fonts || b.Media
}

type fetchPattern struct {
	URLPattern   string `json:"urlPattern"`
	ResourceType string `json:"resourceType,omitempty"`
}

func (b BlockPatterns) cdpPatterns() []fetchPattern {
	var patterns []fetchPattern
	if b.Images {
		for _, ext := range []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico", "*.bmp"} {
			patterns = append(patterns, fetchPattern{URLPattern: ext, ResourceType: "Image"})
		}
	}
	if b.CSS {
		patterns = append(patterns, fetchPattern{URLPattern: "*.css", ResourceType: "Stylesheet"})
	}
	if b.Fonts {
		for _, ext := range []string{"*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot"} {
			patterns = append(patterns, fetchPattern{URLPattern: ext, ResourceType: "Font"})
		}
	}
	if b.Media {
		for _, ext := range []string{"*.mp4", "*.webm", "*.mp3", "*.ogg", "*.wav"} {
			patterns = append(patterns, fetchPattern{URLPattern: ext, ResourceType: "Media"})
		}
	}
	return patterns
}

// BlockResources enables Fetch-domain interception for the given patterns
// and fails every matching intercepted request. Returns a cleanup function
// that must be called (e.g. from PageContext.Close) to stop the background
// listener; safe to call multiple times.
func BlockResources(ctx context.Context, client *cdp.Client, patterns BlockPatterns) (cleanup func(), err error) {
	if !patterns.Any() {
		return func() {}, nil
	}

	if _, err := client.CallMethod(ctx, "Fetch.enable", map[string]any{
		"patterns": patterns.cdpPatterns(),
	}); err != nil {
		log.Warn().Err(err).Msg("stealth: failed to enable resource blocking")
		return func() {}, err
	}

	// The listener must outlive the page-creation request that installed it;
	// it stops only via the returned cleanup or the event stream closing.
	listenerCtx, cancel := context.WithCancel(context.Background())
	events := client.SubscribeEvents("Fetch.requestPaused")

	var once sync.Once
	cleanupFunc := func() {
		once.Do(cancel)
	}

	go func() {
		for {
			select {
			case <-listenerCtx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				var params struct {
					RequestID string `json:"requestId"`
				}
				if err := json.Unmarshal(evt.Params, &params); err != nil {
					continue
				}
				_, _ = client.CallMethod(listenerCtx, "Fetch.failRequest", map[string]any{
					"requestId":   params.RequestID,
					"errorReason": "BlockedByClient",
				})
			}
		}
	}()

	return cleanupFunc, nil
}
