// Package session implements the session ownership graph: the Manager owns
// Browser Contexts, a Browser Context owns its Pages, and a Page owns its
// CDP Connection. Cascade-close propagates top-down.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Manager is the registry of active Browser Contexts, keyed by UUID.
type Manager struct {
	mu          sync.RWMutex
	browsers    map[string]*BrowserContext
	factory     BrowserFactory
	maxBrowsers int
	stats       ManagerStats
}

// NewManager constructs a Manager. maxBrowsers <= 0 means unlimited.
func NewManager(factory BrowserFactory, maxBrowsers int) *Manager {
	if factory == nil {
		factory = DefaultBrowserFactory
	}
	return &Manager{
		browsers:    make(map[string]*BrowserContext),
		factory:     factory,
		maxBrowsers: maxBrowsers,
	}
}

// CreateBrowser calls the construction hook to produce a CDP Browser (the
// hook exists to allow injecting mocks) and stores the resulting Context.
func (m *Manager) CreateBrowser(opts BrowserOptions) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBrowsers > 0 && len(m.browsers) >= m.maxBrowsers {
		return uuid.Nil, ErrTooManyBrowsers
	}

	cdpBrowser, err := m.factory(opts)
	if err != nil {
		m.stats.Errors.Add(1)
		return uuid.Nil, err
	}

	ctxObj := newBrowserContext(opts, cdpBrowser)
	m.browsers[ctxObj.ID.String()] = ctxObj
	m.stats.Acquired.Add(1)

	log.Debug().Str("browser_id", ctxObj.ID.String()).Int("total", len(m.browsers)).Msg("session: browser created")
	return ctxObj.ID, nil
}

// GetBrowser looks up a Browser Context by id.
func (m *Manager) GetBrowser(id uuid.UUID) (*BrowserContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.browsers[id.String()]
	if !ok {
		return nil, ErrBrowserNotFound
	}
	return b, nil
}

// ListBrowsers returns every registered Browser Context id.
func (m *Manager) ListBrowsers() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.browsers))
	for _, b := range m.browsers {
		ids = append(ids, b.ID)
	}
	return ids
}

// CloseBrowser closes every Page owned by the browser before removing it
// from the registry, satisfying the cascade-close invariant.
func (m *Manager) CloseBrowser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	b, ok := m.browsers[id.String()]
	if ok {
		delete(m.browsers, id.String())
	}
	m.mu.Unlock()
	if !ok {
		return ErrBrowserNotFound
	}
	b.close(ctx)
	m.stats.Released.Add(1)
	return nil
}

// CreatePage delegates to the named Browser Context.
func (m *Manager) CreatePage(ctx context.Context, browserID uuid.UUID, opts PageOptions) (*PageContext, error) {
	b, err := m.GetBrowser(browserID)
	if err != nil {
		return nil, err
	}
	return b.CreatePage(ctx, opts)
}

// GetPage scans all browsers linearly; acceptable because the expected
// browser count is small (tens). If this assumption changes, a flat index
// keyed by page id may be added.
func (m *Manager) GetPage(pageID uuid.UUID) (*PageContext, error) {
	m.mu.RLock()
	browsers := make([]*BrowserContext, 0, len(m.browsers))
	for _, b := range m.browsers {
		browsers = append(browsers, b)
	}
	m.mu.RUnlock()

	for _, b := range browsers {
		if p, ok := b.GetPage(pageID); ok {
			return p, nil
		}
	}
	return nil, ErrPageNotFound
}

// ClosePage finds the owning browser and closes the page through it.
func (m *Manager) ClosePage(ctx context.Context, pageID uuid.UUID) error {
	m.mu.RLock()
	browsers := make([]*BrowserContext, 0, len(m.browsers))
	for _, b := range m.browsers {
		browsers = append(browsers, b)
	}
	m.mu.RUnlock()

	for _, b := range browsers {
		if _, ok := b.GetPage(pageID); ok {
			return b.ClosePage(ctx, pageID)
		}
	}
	return ErrPageNotFound
}

// SessionCount returns the count of currently-registered browsers.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.browsers)
}

// Cleanup garbage-collects inactive Browser Context entries (ones whose
// close() already ran but were not removed through CloseBrowser).
func (m *Manager) Cleanup(ctx context.Context) int {
	m.mu.Lock()
	var stale []*BrowserContext
	for key, b := range m.browsers {
		if !b.IsActive() {
			stale = append(stale, b)
			delete(m.browsers, key)
		}
	}
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range stale {
		b := b
		g.Go(func() error {
			b.close(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return len(stale)
}

// Close shuts down every registered Browser Context, for full daemon
// shutdown.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	browsers := make([]*BrowserContext, 0, len(m.browsers))
	for _, b := range m.browsers {
		browsers = append(browsers, b)
	}
	m.browsers = make(map[string]*BrowserContext)
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range browsers {
		b := b
		g.Go(func() error {
			b.close(ctx)
			return nil
		})
	}
	_ = g.Wait()
}
