// Package injector owns a per-page list of installed scripts and registers/
// evaluates scripts through a page's CDP Client.
package injector

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cdpforge/cdpd/internal/cdp"
)

// ScriptKind distinguishes an init script from an injected style.
type ScriptKind int

const (
	KindInitScript ScriptKind = iota
	KindStyle
)

// InstalledScript is one entry in a page's installed-script list.
type InstalledScript struct {
	ScriptID uuid.UUID
	Kind     ScriptKind
	Content  string
}

// Injector tracks installed scripts per page and drives the CDP calls that
// install/evaluate them.
type Injector struct {
	mu     sync.Mutex
	byPage map[string][]InstalledScript
}

// New constructs an empty Injector.
func New() *Injector {
	return &Injector{byPage: make(map[string][]InstalledScript)}
}

// InjectInitScript registers script via Page.addScriptToEvaluateOnNewDocument
// (the canonical hook, effective on every future navigation), then also
// evaluates it immediately on the current document. Failures from the
// immediate evaluation are logged but non-fatal;
// addScriptToEvaluateOnNewDocument failure is fatal.
func (inj *Injector) InjectInitScript(ctx context.Context, pageID string, client *cdp.Client, script string) (uuid.UUID, error) {
	if _, err := client.CallMethod(ctx, "Page.addScriptToEvaluateOnNewDocument", map[string]any{
		"source": script,
	}); err != nil {
		return uuid.Nil, err
	}

	if _, err := client.Evaluate(ctx, script, true); err != nil {
		log.Debug().Str("page_id", pageID).Err(err).Msg("injector: immediate evaluation of init script failed, registration still stands")
	}

	id := uuid.New()
	inj.append(pageID, InstalledScript{ScriptID: id, Kind: KindInitScript, Content: script})
	return id, nil
}

// Evaluate runs script via Runtime.evaluate and returns a string result as
// is and an object result as its raw JSON; every other result kind (number,
// bool, null, undefined) yields an empty string.
func (inj *Injector) Evaluate(ctx context.Context, client *cdp.Client, script string) (string, error) {
	res, err := client.Evaluate(ctx, script, true)
	if err != nil {
		return "", err
	}
	switch res.Kind {
	case cdp.EvalString:
		return res.String, nil
	case cdp.EvalObject:
		return string(res.Object), nil
	default:
		return "", nil
	}
}

// InjectStyle evaluates a small wrapper that appends a <style> element to
// document.head and records it as a Style entry.
func (inj *Injector) InjectStyle(ctx context.Context, pageID string, client *cdp.Client, css string) (uuid.UUID, error) {
	encoded, err := json.Marshal(css)
	if err != nil {
		return uuid.Nil, err
	}
	script := `(() => { const el = document.createElement('style'); el.textContent = ` + string(encoded) + `; document.head.appendChild(el); })();`
	if _, err := client.Evaluate(ctx, script, false); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	inj.append(pageID, InstalledScript{ScriptID: id, Kind: KindStyle, Content: css})
	return id, nil
}

// SetUserAgent enables Network then issues Network.setUserAgentOverride.
func SetUserAgent(ctx context.Context, client *cdp.Client, ua string) error {
	if err := client.EnableDomain(ctx, "Network"); err != nil {
		return err
	}
	_, err := client.CallMethod(ctx, "Network.setUserAgentOverride", map[string]any{"userAgent": ua})
	return err
}

func (inj *Injector) append(pageID string, s InstalledScript) {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	inj.byPage[pageID] = append(inj.byPage[pageID], s)
}

// GetInjectedScripts returns the page's installed-script list.
func (inj *Injector) GetInjectedScripts(pageID string) []InstalledScript {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	out := make([]InstalledScript, len(inj.byPage[pageID]))
	copy(out, inj.byPage[pageID])
	return out
}

// RemoveScript removes one entry by id.
func (inj *Injector) RemoveScript(pageID string, scriptID uuid.UUID) bool {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	list := inj.byPage[pageID]
	for i, s := range list {
		if s.ScriptID == scriptID {
			inj.byPage[pageID] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAll drops every installed script for a page.
func (inj *Injector) ClearAll(pageID string) {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	delete(inj.byPage, pageID)
}
