package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/stealth"
)

// BrowserContext holds the pages created against one CDP Browser. It
// exclusively owns its Pages and the Clients it creates for them.
type BrowserContext struct {
	ID        uuid.UUID
	Options   BrowserOptions
	createdAt time.Time

	cdpBrowser *cdp.Browser

	mu     sync.RWMutex // never held across an RPC/slow I/O call
	pages  map[string]*PageContext
	active atomic.Bool
}

func newBrowserContext(opts BrowserOptions, cdpBrowser *cdp.Browser) *BrowserContext {
	b := &BrowserContext{
		ID:         uuid.New(),
		Options:    opts,
		createdAt:  time.Now(),
		cdpBrowser: cdpBrowser,
		pages:      make(map[string]*PageContext),
	}
	b.active.Store(true)
	return b
}

// PageCount reports how many pages are currently registered.
func (b *BrowserContext) PageCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pages)
}

// IsActive reports whether new pages may still be created.
func (b *BrowserContext) IsActive() bool {
	return b.active.Load()
}

// CreatePage creates a new target (at opts.DefaultURL or about:blank),
// opens a Connection, and, if opts.UserAgent is set, applies the UA
// override before any navigation, since that is the only way to influence
// the request that fetches the page's top document.
func (b *BrowserContext) CreatePage(ctx context.Context, opts PageOptions) (*PageContext, error) {
	if !b.active.Load() {
		return nil, ErrBrowserInactive
	}

	url := opts.DefaultURL
	if url == "" {
		url = "about:blank"
	}

	wsURL, err := b.cdpBrowser.CreateTarget(ctx, url)
	if err != nil {
		return nil, err
	}
	client, err := b.cdpBrowser.CreateClient(ctx, wsURL)
	if err != nil {
		return nil, err
	}

	if opts.UserAgent != "" {
		if err := client.EnableDomain(ctx, "Network"); err != nil {
			log.Warn().Err(err).Msg("session: Network.enable failed before UA override")
		}
		if _, err := client.CallMethod(ctx, "Network.setUserAgentOverride", map[string]any{
			"userAgent": opts.UserAgent,
		}); err != nil {
			log.Warn().Err(err).Msg("session: Network.setUserAgentOverride failed")
		}
	}

	var blockCleanup func()
	if opts.Block.Any() {
		cleanup, err := stealth.BlockResources(ctx, client, opts.Block)
		if err != nil {
			log.Warn().Err(err).Msg("session: resource blocking setup failed, continuing without it")
		} else {
			blockCleanup = cleanup
		}
	}

	page := newPageContext(b.ID, opts, client)
	page.blockCleanup = blockCleanup

	b.mu.Lock()
	b.pages[page.ID.String()] = page
	b.mu.Unlock()

	return page, nil
}

// GetPage looks up a page created while this context was active.
func (b *BrowserContext) GetPage(id uuid.UUID) (*PageContext, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pages[id.String()]
	return p, ok
}

// ListPages returns the pages created while this context was active.
func (b *BrowserContext) ListPages() []*PageContext {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*PageContext, 0, len(b.pages))
	for _, p := range b.pages {
		out = append(out, p)
	}
	return out
}

// ClosePage closes and removes one page.
func (b *BrowserContext) ClosePage(ctx context.Context, id uuid.UUID) error {
	b.mu.Lock()
	p, ok := b.pages[id.String()]
	if ok {
		delete(b.pages, id.String())
	}
	b.mu.Unlock()
	if !ok {
		return ErrPageNotFound
	}
	return p.Close(ctx)
}

// closeAllPages closes every owned page in parallel and marks the context
// inactive. Collection state is cloned under lock, then the slow I/O runs
// outside the lock; the collection lock is never held across an RPC call.
func (b *BrowserContext) closeAllPages(ctx context.Context) {
	b.active.Store(false)

	b.mu.Lock()
	pages := make([]*PageContext, 0, len(b.pages))
	for _, p := range b.pages {
		pages = append(pages, p)
	}
	b.pages = make(map[string]*PageContext)
	b.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, p := range pages {
		p := p
		g.Go(func() error {
			if err := p.Close(ctx); err != nil {
				log.Warn().Str("page_id", p.ID.String()).Err(err).Msg("session: error during cascade page close")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// close tears down the underlying CDP Browser after all pages are closed.
func (b *BrowserContext) close(ctx context.Context) {
	b.closeAllPages(ctx)
	if err := b.cdpBrowser.Close(ctx); err != nil {
		log.Warn().Str("browser_id", b.ID.String()).Err(err).Msg("session: error closing CDP browser")
	}
}
