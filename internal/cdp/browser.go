package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Browser interacts with Chromium's HTTP debug endpoint and tracks the
// Clients it creates for targets, keyed by target id.
type Browser struct {
	httpBase string // derived from the ws endpoint by ws->http, wss->https
	wsBase   string
	http     *http.Client

	mu      sync.Mutex
	clients map[string]*Client // target_id -> client
}

// NewBrowser constructs a Browser bound to the given CDP WebSocket base URL
// (e.g. "ws://localhost:9222").
func NewBrowser(cdpEndpoint string) *Browser {
	return &Browser{
		httpBase: toHTTPBase(cdpEndpoint),
		wsBase:   cdpEndpoint,
		http:     &http.Client{},
		clients:  make(map[string]*Client),
	}
}

func toHTTPBase(wsURL string) string {
	switch {
	case strings.HasPrefix(wsURL, "wss://"):
		return "https://" + strings.TrimPrefix(wsURL, "wss://")
	case strings.HasPrefix(wsURL, "ws://"):
		return "http://" + strings.TrimPrefix(wsURL, "ws://")
	default:
		return wsURL
	}
}

// getJSON issues GET <httpBase><path> and decodes the JSON body into v.
func (b *Browser) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.httpBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("cdp: GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cdp: GET %s failed with status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// GetVersion calls GET /json/version.
func (b *Browser) GetVersion(ctx context.Context) (*VersionInfo, error) {
	var v VersionInfo
	if err := b.getJSON(ctx, "/json/version", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetTargets calls GET /json, one entry per descriptor carrying id/type/url.
func (b *Browser) GetTargets(ctx context.Context) ([]TargetDescriptor, error) {
	var raw []TargetDescriptor
	if err := b.getJSON(ctx, "/json", &raw); err != nil {
		return nil, err
	}
	targets := raw[:0]
	for _, t := range raw {
		if t.ID != "" && t.Type != "" && t.URL != "" {
			targets = append(targets, t)
		}
	}
	return targets, nil
}

// CreateTarget calls PUT /json/new?<url> and returns the new target's
// WebSocket debugger URL. On failure the error includes actionable
// diagnostics for the common "Chromium wasn't started with a debug port"
// misconfiguration.
func (b *Browser) CreateTarget(ctx context.Context, url string) (string, error) {
	endpoint := fmt.Sprintf("%s/json/new?%s", b.httpBase, url)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdp: could not reach Chromium debug endpoint at %s: %w\n"+
			"start Chromium with --remote-debugging-port=9222 (Linux/macOS) or\n"+
			"chrome.exe --remote-debugging-port=9222 (Windows) and retry", b.httpBase, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cdp: create target failed with status %d: %s", resp.StatusCode, string(body))
	}

	var descriptor TargetDescriptor
	if err := json.Unmarshal(body, &descriptor); err != nil {
		return "", fmt.Errorf("cdp: decode create-target response: %w", err)
	}
	if descriptor.WSURL == "" {
		return "", fmt.Errorf("cdp: create-target response missing webSocketDebuggerUrl")
	}
	return descriptor.WSURL, nil
}

// CreateClient opens a Connection to targetURL, stores it keyed by the
// target id (the last path segment of targetURL), and enables Page and
// Runtime. Other domains are enabled lazily by callers.
func (b *Browser) CreateClient(ctx context.Context, targetURL string) (*Client, error) {
	conn, err := Dial(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	client := NewClient(conn)

	if err := client.EnableDomain(ctx, "Page"); err != nil {
		log.Warn().Err(err).Msg("cdp: Page.enable failed")
	}
	if err := client.EnableDomain(ctx, "Runtime"); err != nil {
		log.Warn().Err(err).Msg("cdp: Runtime.enable failed")
	}

	targetID := lastPathSegment(targetURL)
	b.mu.Lock()
	b.clients[targetID] = client
	b.mu.Unlock()

	return client, nil
}

func lastPathSegment(u string) string {
	idx := strings.LastIndex(u, "/")
	if idx < 0 {
		return u
	}
	return u[idx+1:]
}

// Close closes every stored connection. Failures are logged per target but
// do not abort the sweep; the overall result is success.
func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	clients := make(map[string]*Client, len(b.clients))
	for k, v := range b.clients {
		clients[k] = v
	}
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for targetID, client := range clients {
		targetID, client := targetID, client
		g.Go(func() error {
			if err := client.Conn().Close(); err != nil {
				log.Warn().Str("target_id", targetID).Err(err).Msg("cdp: error closing target connection")
			}
			return nil
		})
	}
	_ = g.Wait()
	return nil
}
