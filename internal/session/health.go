package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ManagerStats counts Manager lifecycle events for monitoring.
type ManagerStats struct {
	Acquired atomic.Int64
	Released atomic.Int64
	Recycled atomic.Int64
	Errors   atomic.Int64
}

// StatsSnapshot is a point-in-time read of ManagerStats.
type StatsSnapshot struct {
	Acquired int64
	Released int64
	Recycled int64
	Errors   int64
}

// Stats returns a snapshot of the Manager's lifecycle counters.
func (m *Manager) Stats() StatsSnapshot {
	return StatsSnapshot{
		Acquired: m.stats.Acquired.Load(),
		Released: m.stats.Released.Load(),
		Recycled: m.stats.Recycled.Load(),
		Errors:   m.stats.Errors.Load(),
	}
}

// healthCheckTimeout bounds each individual browser health probe.
const healthCheckTimeout = 5 * time.Second

// isBrowserHealthy opens a throwaway target and navigates it to about:blank,
// a cheap end-to-end probe of the browser's target lifecycle.
func isBrowserHealthy(ctx context.Context, b *BrowserContext) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	wsURL, err := b.cdpBrowser.CreateTarget(ctx, "about:blank")
	if err != nil {
		log.Debug().Err(err).Str("browser_id", b.ID.String()).Msg("session: health check failed, cannot create target")
		return false
	}
	client, err := b.cdpBrowser.CreateClient(ctx, wsURL)
	if err != nil {
		log.Debug().Err(err).Str("browser_id", b.ID.String()).Msg("session: health check failed, cannot attach client")
		return false
	}
	defer func() {
		_, _ = client.CallMethod(ctx, "Page.close", nil)
		_ = client.Conn().Close()
	}()

	if _, err := client.Navigate(ctx, "about:blank"); err != nil {
		log.Debug().Err(err).Str("browser_id", b.ID.String()).Msg("session: health check failed, cannot navigate")
		return false
	}
	return true
}

// StartHealthCheck launches a background loop that probes every registered
// Browser Context at interval and recycles (closes and relaunches) any that
// fail the probe or have exceeded maxAge. The returned stop function blocks
// until the loop has exited; it is safe to call more than once.
func (m *Manager) StartHealthCheck(ctx context.Context, interval, maxAge time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	stopCh := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				m.runHealthCheckPass(ctx, maxAge)
			}
		}
	}()

	var stopped atomic.Bool
	return func() {
		if stopped.CompareAndSwap(false, true) {
			close(stopCh)
		}
		<-done
	}
}

func (m *Manager) runHealthCheckPass(ctx context.Context, maxAge time.Duration) {
	m.mu.RLock()
	browsers := make([]*BrowserContext, 0, len(m.browsers))
	for _, b := range m.browsers {
		browsers = append(browsers, b)
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, b := range browsers {
		stale := maxAge > 0 && now.Sub(b.createdAt) > maxAge
		if stale || !isBrowserHealthy(ctx, b) {
			log.Info().Str("browser_id", b.ID.String()).Bool("stale", stale).Msg("session: recycling browser")
			m.recycleBrowser(ctx, b)
		}
	}
}

// recycleBrowser closes the old Browser Context and relaunches a
// replacement with the same options. Errors during
// relaunch only increment Errors; the old context is gone either way.
func (m *Manager) recycleBrowser(ctx context.Context, b *BrowserContext) {
	m.mu.Lock()
	delete(m.browsers, b.ID.String())
	m.mu.Unlock()

	b.close(ctx)
	m.stats.Recycled.Add(1)

	cdpBrowser, err := m.factory(b.Options)
	if err != nil {
		m.stats.Errors.Add(1)
		log.Warn().Err(err).Msg("session: failed to relaunch browser during recycle")
		return
	}

	replacement := newBrowserContext(b.Options, cdpBrowser)
	m.mu.Lock()
	m.browsers[replacement.ID.String()] = replacement
	m.mu.Unlock()
}
