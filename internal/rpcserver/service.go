package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/detect"
	"github.com/cdpforge/cdpd/internal/domscript"
	"github.com/cdpforge/cdpd/internal/events"
	"github.com/cdpforge/cdpd/internal/humanize"
	"github.com/cdpforge/cdpd/internal/injector"
	"github.com/cdpforge/cdpd/internal/security"
	"github.com/cdpforge/cdpd/internal/session"
	"github.com/cdpforge/cdpd/internal/stealth"
)

// ErrStealthDisabled is returned by the Stealth Engine / Script Injector
// RPCs when the daemon was started with stealth support turned off;
// CreateProfile and SetUserAgent do not use the engine and still succeed.
var ErrStealthDisabled = errors.New("rpcserver: stealth engine disabled")

// ErrProfileNotFound is returned when a profile_id does not name a Profile
// created via CreateProfile.
var ErrProfileNotFound = errors.New("rpcserver: profile not found")

// Service wires the Session Manager, Event Dispatcher, and Stealth Engine
// into the gRPC method handlers registered by desc.go.
type Service struct {
	sessions   *session.Manager
	dispatcher *events.Dispatcher
	stealth    *stealth.Engine

	profilesMu sync.Mutex
	profiles   map[uuid.UUID]stealth.Profile
}

// NewService constructs a Service bound to the daemon's core components.
func NewService(sessions *session.Manager, dispatcher *events.Dispatcher, engine *stealth.Engine) *Service {
	return &Service{
		sessions:   sessions,
		dispatcher: dispatcher,
		stealth:    engine,
		profiles:   make(map[uuid.UUID]stealth.Profile),
	}
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id %q", session.ErrBrowserNotFound, s)
	}
	return id, nil
}

// CreateBrowser launches a new Browser Context.
func (s *Service) CreateBrowser(ctx context.Context, req *CreateBrowserRequest) (*CreateBrowserResponse, error) {
	id, err := s.sessions.CreateBrowser(session.BrowserOptions{CdpEndpoint: req.CdpEndpoint})
	if err != nil {
		return nil, err
	}
	return &CreateBrowserResponse{BrowserID: id.String()}, nil
}

// GetBrowser reports the state of a Browser Context.
func (s *Service) GetBrowser(ctx context.Context, req *GetBrowserRequest) (*GetBrowserResponse, error) {
	id, err := parseUUID(req.BrowserID)
	if err != nil {
		return nil, err
	}
	b, err := s.sessions.GetBrowser(id)
	if err != nil {
		return nil, err
	}
	return &GetBrowserResponse{
		BrowserID: b.ID.String(),
		IsActive:  b.IsActive(),
		PageCount: b.PageCount(),
	}, nil
}

// ListBrowsers lists every registered Browser Context.
func (s *Service) ListBrowsers(ctx context.Context, req *ListBrowsersRequest) (*ListBrowsersResponse, error) {
	ids := s.sessions.ListBrowsers()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return &ListBrowsersResponse{BrowserIDs: out}, nil
}

// CloseBrowser cascades a close down through every owned Page.
func (s *Service) CloseBrowser(ctx context.Context, req *CloseBrowserRequest) (*CloseBrowserResponse, error) {
	id, err := parseUUID(req.BrowserID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.CloseBrowser(ctx, id); err != nil {
		return nil, err
	}
	return &CloseBrowserResponse{}, nil
}

func blockPatternsFromMsg(m *BlockPatternsMsg) stealth.BlockPatterns {
	if m == nil {
		return stealth.BlockPatterns{}
	}
	return stealth.BlockPatterns{Images: m.Images, CSS: m.CSS, Fonts: m.Fonts, Media: m.Media}
}

// CreatePage opens a new Page Context under a Browser Context.
func (s *Service) CreatePage(ctx context.Context, req *CreatePageRequest) (*CreatePageResponse, error) {
	browserID, err := parseUUID(req.BrowserID)
	if err != nil {
		return nil, err
	}
	if req.DefaultURL != "" {
		if err := security.ValidateNavigationTarget(ctx, req.DefaultURL); err != nil {
			return nil, err
		}
	}
	page, err := s.sessions.CreatePage(ctx, browserID, session.PageOptions{
		DefaultURL: req.DefaultURL,
		UserAgent:  req.UserAgent,
		Block:      blockPatternsFromMsg(req.Block),
	})
	if err != nil {
		return nil, err
	}
	return &CreatePageResponse{PageID: page.ID.String()}, nil
}

// ClosePage closes a single Page Context.
func (s *Service) ClosePage(ctx context.Context, req *ClosePageRequest) (*ClosePageResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.ClosePage(ctx, pageID); err != nil {
		return nil, err
	}
	if s.stealth != nil {
		s.stealth.RemoveAll(req.PageID)
	}
	return &ClosePageResponse{}, nil
}

func waitUntilFromString(v string) session.WaitUntil {
	switch v {
	case "dom_content_loaded":
		return session.WaitDOMContentLoaded
	case "network_idle":
		return session.WaitNetworkIdle
	case "network_almost_idle":
		return session.WaitNetworkAlmostIdle
	default:
		return session.WaitLoad
	}
}

// Navigate drives a Page Context to a new URL.
func (s *Service) Navigate(ctx context.Context, req *NavigateRequest) (*NavigateResponse, error) {
	if err := security.ValidateNavigationTarget(ctx, req.URL); err != nil {
		return nil, err
	}
	log.Debug().Str("url", security.RedactURL(req.URL)).Str("page_id", req.PageID).Msg("rpcserver: navigating")
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	res, err := page.Navigate(ctx, req.URL, session.NavigateOptions{WaitUntil: waitUntilFromString(req.WaitUntil)})
	if err != nil {
		return nil, err
	}
	return &NavigateResponse{URL: res.URL, StatusCode: res.StatusCode, IsLoaded: res.IsLoaded}, nil
}

// Evaluate runs a script in a Page Context and reports its tagged result.
func (s *Service) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	res, err := page.Evaluate(ctx, req.Script, req.AwaitPromise)
	if err != nil {
		return nil, err
	}
	return &EvaluateResponse{ValueJSON: evaluationResultJSON(res), Type: evaluationKindName(res.Kind)}, nil
}

func evaluationKindName(k cdp.EvaluationKind) string {
	switch k {
	case cdp.EvalString:
		return "string"
	case cdp.EvalNumber:
		return "number"
	case cdp.EvalBool:
		return "bool"
	case cdp.EvalObject:
		return "object"
	default:
		return "null"
	}
}

func evaluationResultJSON(res *cdp.EvaluationResult) string {
	var v any
	switch res.Kind {
	case cdp.EvalString:
		v = res.String
	case cdp.EvalNumber:
		v = res.Number
	case cdp.EvalBool:
		v = res.Bool
	case cdp.EvalObject:
		raw, err := json.Marshal(json.RawMessage(res.Object))
		if err != nil {
			return "null"
		}
		return string(raw)
	default:
		v = nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func screenshotFormatFromString(v string) cdp.ScreenshotFormat {
	switch v {
	case "jpeg":
		return cdp.ScreenshotFormat{Kind: cdp.FormatJpeg, Quality: 80}
	case "webp":
		return cdp.ScreenshotFormat{Kind: cdp.FormatWebP, Quality: 80}
	default:
		return cdp.ScreenshotFormat{Kind: cdp.FormatPng}
	}
}

// Screenshot captures the Page Context's visible viewport.
func (s *Service) Screenshot(ctx context.Context, req *ScreenshotRequest) (*ScreenshotResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	data, err := page.Screenshot(ctx, screenshotFormatFromString(req.Format))
	if err != nil {
		return nil, err
	}
	return &ScreenshotResponse{Data: data}, nil
}

// GetContent returns the Page Context's current outer HTML.
func (s *Service) GetContent(ctx context.Context, req *GetContentRequest) (*GetContentResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	html, err := page.GetContent(ctx)
	if err != nil {
		return nil, err
	}
	return &GetContentResponse{HTML: html}, nil
}

// SetContent replaces the Page Context's document.
func (s *Service) SetContent(ctx context.Context, req *SetContentRequest) (*SetContentResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	if err := page.SetContent(ctx, req.HTML); err != nil {
		return nil, err
	}
	return &SetContentResponse{}, nil
}

// Reload reloads a Page Context, optionally bypassing the cache.
func (s *Service) Reload(ctx context.Context, req *ReloadRequest) (*ReloadResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	if err := page.Reload(ctx, req.IgnoreCache); err != nil {
		return nil, err
	}
	return &ReloadResponse{}, nil
}

// SetExtraHeaders installs headers CDP attaches to a page's subsequent
// requests, after rejecting names/values a client should never be allowed
// to push onto a page (injection characters, disallowed headers, oversize
// values).
func (s *Service) SetExtraHeaders(ctx context.Context, req *SetExtraHeadersRequest) (*SetExtraHeadersResponse, error) {
	if err := security.ValidateHeaders(req.Headers); err != nil {
		return nil, err
	}
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	if err := page.SetExtraHeaders(ctx, req.Headers); err != nil {
		return nil, err
	}
	return &SetExtraHeadersResponse{}, nil
}

// FindElement resolves a CSS selector to an Element Ref handle scoped to
// the page.
func (s *Service) FindElement(ctx context.Context, req *FindElementRequest) (*FindElementResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	el, err := page.FindElementBySelector(ctx, req.Selector)
	if err != nil {
		return nil, err
	}
	return &FindElementResponse{ElementID: el.ID.String(), BackendNodeID: el.BackendNodeID}, nil
}

// resolveElement looks up the page and re-wraps the caller-supplied backend
// node id as an ElementRef; ElementRef itself holds no server-side registry
// entry, so there is nothing to look up beyond the page.
func (s *Service) resolveElement(ctx context.Context, req *ElementRequest) (*session.ElementRef, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	return page.FindElement(ctx, req.BackendNodeID), nil
}

// GetText returns an element's rendered text content.
func (s *Service) GetText(ctx context.Context, req *ElementRequest) (*GetTextResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	text, err := el.GetText(ctx)
	if err != nil {
		return nil, err
	}
	return &GetTextResponse{Text: text}, nil
}

// GetHTML returns an element's outer HTML.
func (s *Service) GetHTML(ctx context.Context, req *ElementRequest) (*GetHTMLResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	html, err := el.GetHTML(ctx)
	if err != nil {
		return nil, err
	}
	return &GetHTMLResponse{HTML: html}, nil
}

// GetAttribute returns a named attribute's value, or Found=false if absent.
func (s *Service) GetAttribute(ctx context.Context, req *GetAttributeRequest) (*GetAttributeResponse, error) {
	el, err := s.resolveElement(ctx, &ElementRequest{PageID: req.PageID, BackendNodeID: req.BackendNodeID})
	if err != nil {
		return nil, err
	}
	value, found, err := el.GetAttribute(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return &GetAttributeResponse{Value: value, Found: found}, nil
}

// Click scrolls the element into view and dispatches a press/release pair
// at its content-quad center.
func (s *Service) Click(ctx context.Context, req *ElementRequest) (*ElementActionResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ElementActionResponse{}, el.Click(ctx)
}

// TypeText focuses the element and dispatches one char key event per rune.
func (s *Service) TypeText(ctx context.Context, req *TypeTextElementRequest) (*ElementActionResponse, error) {
	el, err := s.resolveElement(ctx, &ElementRequest{PageID: req.PageID, BackendNodeID: req.BackendNodeID})
	if err != nil {
		return nil, err
	}
	return &ElementActionResponse{}, el.TypeText(ctx, req.Text)
}

// Focus focuses the element without clicking it.
func (s *Service) Focus(ctx context.Context, req *ElementRequest) (*ElementActionResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ElementActionResponse{}, el.Focus(ctx)
}

// Hover moves the mouse to the element's center without pressing.
func (s *Service) Hover(ctx context.Context, req *ElementRequest) (*ElementActionResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ElementActionResponse{}, el.Hover(ctx)
}

// ScrollIntoView scrolls the element into the viewport if needed.
func (s *Service) ScrollIntoView(ctx context.Context, req *ElementRequest) (*ElementActionResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ElementActionResponse{}, el.ScrollIntoView(ctx)
}

// IsVisible reports whether DOM.getBoxModel succeeds for the element.
func (s *Service) IsVisible(ctx context.Context, req *ElementRequest) (*IsVisibleResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	return &IsVisibleResponse{Visible: el.IsVisible(ctx)}, nil
}

// IsEnabled reports whether the element's disabled attribute is absent,
// empty, or false.
func (s *Service) IsEnabled(ctx context.Context, req *ElementRequest) (*IsEnabledResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	enabled, err := el.IsEnabled(ctx)
	if err != nil {
		return nil, err
	}
	return &IsEnabledResponse{Enabled: enabled}, nil
}

// GetBoundingBox returns the element's content-quad bounding box.
func (s *Service) GetBoundingBox(ctx context.Context, req *ElementRequest) (*GetBoundingBoxResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	box, err := el.GetBoundingBox(ctx)
	if err != nil {
		return nil, err
	}
	return &GetBoundingBoxResponse{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

// SimulateClick performs a humanized Bezier-path click in place of Click's
// direct jump.
func (s *Service) SimulateClick(ctx context.Context, req *ElementRequest) (*SimulateActionResponse, error) {
	el, err := s.resolveElement(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SimulateActionResponse{}, el.SimulateClick(ctx)
}

// typingConfigFromRequest overlays a request's non-zero typing options on
// the server defaults.
func typingConfigFromRequest(req *TypeTextElementRequest) humanize.TypingConfig {
	cfg := humanize.DefaultTypingConfig()
	if req.MeanDelayMs > 0 {
		cfg.DelayMeanMs = req.MeanDelayMs
	}
	if req.StdDevMs > 0 {
		cfg.DelayStdDevMs = req.StdDevMs
	}
	if req.TypoProbability > 0 {
		cfg.TypoProbability = req.TypoProbability
	}
	if req.BackspaceProbability > 0 {
		cfg.BackspaceProbability = req.BackspaceProbability
	}
	return cfg
}

// SimulateTypeText types with Gaussian inter-keystroke delay and
// typo/backspace injection in place of TypeText's uniform dispatch.
func (s *Service) SimulateTypeText(ctx context.Context, req *TypeTextElementRequest) (*SimulateActionResponse, error) {
	el, err := s.resolveElement(ctx, &ElementRequest{PageID: req.PageID, BackendNodeID: req.BackendNodeID})
	if err != nil {
		return nil, err
	}
	return &SimulateActionResponse{}, el.SimulateTypeText(ctx, req.Text, typingConfigFromRequest(req))
}

// mouseConfigFromRequest overlays a request's non-zero move options on the
// server defaults: Points fixes the sample count, DurationMs spreads the
// per-step delay across those samples, Deviation sets the control-point
// offset.
func mouseConfigFromRequest(req *SimulateMouseMoveRequest) humanize.MouseConfig {
	cfg := humanize.DefaultMouseConfig()
	if req.Points > 0 {
		cfg.MinSteps, cfg.MaxSteps = req.Points, req.Points
	}
	if req.DurationMs > 0 {
		delay := req.DurationMs / cfg.MaxSteps
		if delay < 1 {
			delay = 1
		}
		cfg.MinStepDelayMs, cfg.MaxStepDelayMs = delay, delay
	}
	if req.Deviation > 0 {
		cfg.Deviation = req.Deviation
	}
	return cfg
}

// SimulateMouseMove dispatches a Bezier-path mouse move across the bare
// page, independent of any element handle.
func (s *Service) SimulateMouseMove(ctx context.Context, req *SimulateMouseMoveRequest) (*SimulateActionResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	return &SimulateActionResponse{}, page.SimulateMouseMove(ctx, req.StartX, req.StartY, req.EndX, req.EndY, mouseConfigFromRequest(req))
}

// SimulateScroll dispatches a wheel-event scroll to an absolute target Y.
func (s *Service) SimulateScroll(ctx context.Context, req *SimulateScrollRequest) (*SimulateActionResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	cfg := humanize.DefaultScrollConfig()
	if req.Steps > 0 {
		cfg.Steps = req.Steps
	}
	cfg.Acceleration = req.Acceleration
	return &SimulateActionResponse{}, page.SimulateScroll(ctx, req.TargetY, cfg)
}

// evalDomScript runs one of internal/domscript's generated scripts against
// a page and reports its raw JSON-stringified result.
func (s *Service) evalDomScript(ctx context.Context, pageIDStr, script string) (*DomScriptResponse, error) {
	pageID, err := parseUUID(pageIDStr)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	res, err := page.Evaluate(ctx, script, false)
	if err != nil {
		return nil, err
	}
	return &DomScriptResponse{ResultJSON: res.String}, nil
}

// FindBySelector reports whether a CSS selector matches any element.
func (s *Service) FindBySelector(ctx context.Context, req *FindBySelectorRequest) (*DomScriptResponse, error) {
	return s.evalDomScript(ctx, req.PageID, domscript.FindBySelector(req.Selector))
}

// FindAllBySelector reports the count of elements a CSS selector matches,
// bounded by an optional limit.
func (s *Service) FindAllBySelector(ctx context.Context, req *FindAllBySelectorRequest) (*DomScriptResponse, error) {
	return s.evalDomScript(ctx, req.PageID, domscript.FindAllBySelector(req.Selector, req.Limit))
}

// FindByXPath reports the first element an XPath expression matches.
func (s *Service) FindByXPath(ctx context.Context, req *FindByXPathRequest) (*DomScriptResponse, error) {
	return s.evalDomScript(ctx, req.PageID, domscript.FindByXPath(req.Expression))
}

// FindByText walks the document's text nodes for the first match.
func (s *Service) FindByText(ctx context.Context, req *FindByTextRequest) (*DomScriptResponse, error) {
	return s.evalDomScript(ctx, req.PageID, domscript.FindByText(req.Text))
}

// Fill sets an input's value and dispatches input/change events.
func (s *Service) Fill(ctx context.Context, req *FillRequest) (*DomScriptResponse, error) {
	return s.evalDomScript(ctx, req.PageID, domscript.Fill(req.Selector, req.Value))
}

// VisibilityWithReasons reports visibility plus, if not visible, why not.
func (s *Service) VisibilityWithReasons(ctx context.Context, req *VisibilityWithReasonsRequest) (*DomScriptResponse, error) {
	return s.evalDomScript(ctx, req.PageID, domscript.VisibilityWithReasons(req.Selector))
}

// DragAndDrop synthesizes a drag event sequence between two selectors.
func (s *Service) DragAndDrop(ctx context.Context, req *DragAndDropRequest) (*DomScriptResponse, error) {
	return s.evalDomScript(ctx, req.PageID, domscript.DragAndDrop(req.SourceSelector, req.TargetSelector))
}

// PressKey dispatches a synthetic keyboard event sequence against
// document.activeElement.
func (s *Service) PressKey(ctx context.Context, req *PressKeyRequest) (*DomScriptResponse, error) {
	return s.evalDomScript(ctx, req.PageID, domscript.PressKey(req.Key))
}

func platformFromString(v string) stealth.Platform {
	switch v {
	case "windows":
		return stealth.PlatformWindows
	case "macos":
		return stealth.PlatformMacOS
	case "linux":
		return stealth.PlatformLinux
	case "android":
		return stealth.PlatformAndroid
	case "ios":
		return stealth.PlatformIOS
	default:
		return stealth.PlatformCustom
	}
}

// CreateProfile builds a fingerprint profile and stores it for a later
// ApplyProfile call.
func (s *Service) CreateProfile(ctx context.Context, req *CreateProfileRequest) (*CreateProfileResponse, error) {
	mask := stealth.InjectionMask{
		InjectNavigator: req.InjectNavigator,
		InjectScreen:    req.InjectScreen,
		InjectWebGL:     req.InjectWebGL,
		InjectCanvas:    req.InjectCanvas,
		InjectAudio:     req.InjectAudio,
	}
	platform := platformFromString(req.Platform)

	var profile stealth.Profile
	if platform == stealth.PlatformCustom {
		var viewport *stealth.Screen
		if req.CustomViewportWidth > 0 && req.CustomViewportHeight > 0 {
			viewport = &stealth.Screen{Width: int(req.CustomViewportWidth), Height: int(req.CustomViewportHeight)}
		}
		profile = stealth.Profile{
			ID:   uuid.New(),
			Type: stealth.PlatformCustom,
			Fingerprint: stealth.GenerateCustom(stealth.CustomOptions{
				UserAgent: req.CustomUserAgent,
				Platform:  req.CustomPlatform,
				Viewport:  viewport,
			}),
			Mask: mask,
		}
	} else {
		profile = stealth.NewProfile(platform, mask)
	}

	s.profilesMu.Lock()
	s.profiles[profile.ID] = profile
	s.profilesMu.Unlock()

	return &CreateProfileResponse{ProfileID: profile.ID.String(), UserAgent: profile.Fingerprint.Headers.UserAgent}, nil
}

func (s *Service) lookupProfile(profileIDStr string) (stealth.Profile, error) {
	profileID, err := uuid.Parse(profileIDStr)
	if err != nil {
		return stealth.Profile{}, fmt.Errorf("%w: malformed profile id %q", ErrProfileNotFound, profileIDStr)
	}
	s.profilesMu.Lock()
	defer s.profilesMu.Unlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return stealth.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, profileIDStr)
	}
	return profile, nil
}

// RandomizeProfile re-rolls an existing profile's hardware concurrency,
// device memory, and screen jitter into a new stored profile, leaving the
// original untouched.
func (s *Service) RandomizeProfile(ctx context.Context, req *RandomizeProfileRequest) (*RandomizeProfileResponse, error) {
	if s.stealth == nil {
		return nil, ErrStealthDisabled
	}
	profile, err := s.lookupProfile(req.ProfileID)
	if err != nil {
		return nil, err
	}
	derived := stealth.Profile{
		ID:          uuid.New(),
		Type:        profile.Type,
		Fingerprint: stealth.Randomize(profile.Fingerprint),
		Mask:        profile.Mask,
	}
	s.profilesMu.Lock()
	s.profiles[derived.ID] = derived
	s.profilesMu.Unlock()
	return &RandomizeProfileResponse{ProfileID: derived.ID.String()}, nil
}

// ApplyProfile installs a previously created profile onto a page, in the
// fixed user-agent-first order the Stealth Engine guarantees.
func (s *Service) ApplyProfile(ctx context.Context, req *ApplyProfileRequest) (*ApplyProfileResponse, error) {
	if s.stealth == nil {
		return nil, ErrStealthDisabled
	}
	profile, err := s.lookupProfile(req.ProfileID)
	if err != nil {
		return nil, err
	}
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	features, err := s.stealth.ApplyProfile(ctx, req.PageID, page.Client(), profile)
	if err != nil {
		return nil, err
	}
	return &ApplyProfileResponse{Features: features}, nil
}

// GetAppliedFeatures returns the Stealth Engine's applied-features list for
// a page.
func (s *Service) GetAppliedFeatures(ctx context.Context, req *GetAppliedFeaturesRequest) (*GetAppliedFeaturesResponse, error) {
	if s.stealth == nil {
		return nil, ErrStealthDisabled
	}
	return &GetAppliedFeaturesResponse{Features: s.stealth.GetAppliedFeatures(req.PageID)}, nil
}

// ClearStealth clears a page's installed scripts and applied-features entry.
func (s *Service) ClearStealth(ctx context.Context, req *ClearStealthRequest) (*ClearStealthResponse, error) {
	if s.stealth == nil {
		return nil, ErrStealthDisabled
	}
	s.stealth.RemoveAll(req.PageID)
	return &ClearStealthResponse{}, nil
}

// InjectStyle appends a <style> element to the page via the Script Injector.
func (s *Service) InjectStyle(ctx context.Context, req *InjectStyleRequest) (*InjectStyleResponse, error) {
	if s.stealth == nil {
		return nil, ErrStealthDisabled
	}
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	id, err := s.stealth.Injector().InjectStyle(ctx, req.PageID, page.Client(), req.CSS)
	if err != nil {
		return nil, err
	}
	return &InjectStyleResponse{ScriptID: id.String()}, nil
}

// SetUserAgent overrides the page's user agent independent of a full
// profile application.
func (s *Service) SetUserAgent(ctx context.Context, req *SetUserAgentRequest) (*SetUserAgentResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	if err := injector.SetUserAgent(ctx, page.Client(), req.UserAgent); err != nil {
		return nil, err
	}
	return &SetUserAgentResponse{}, nil
}

func scriptKindString(k injector.ScriptKind) string {
	if k == injector.KindStyle {
		return "style"
	}
	return "init_script"
}

// GetInjectedScripts lists every script/style the Script Injector has
// installed on a page.
func (s *Service) GetInjectedScripts(ctx context.Context, req *GetInjectedScriptsRequest) (*GetInjectedScriptsResponse, error) {
	if s.stealth == nil {
		return nil, ErrStealthDisabled
	}
	installed := s.stealth.Injector().GetInjectedScripts(req.PageID)
	out := make([]InjectedScriptMsg, len(installed))
	for i, sc := range installed {
		out[i] = InjectedScriptMsg{ScriptID: sc.ScriptID.String(), Kind: scriptKindString(sc.Kind), Content: sc.Content}
	}
	return &GetInjectedScriptsResponse{Scripts: out}, nil
}

// RemoveScript removes one installed script/style by id.
func (s *Service) RemoveScript(ctx context.Context, req *RemoveScriptRequest) (*RemoveScriptResponse, error) {
	if s.stealth == nil {
		return nil, ErrStealthDisabled
	}
	scriptID, err := uuid.Parse(req.ScriptID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed script id %q", session.ErrElementNotFound, req.ScriptID)
	}
	removed := s.stealth.Injector().RemoveScript(req.PageID, scriptID)
	return &RemoveScriptResponse{Removed: removed}, nil
}

// ClearAllScripts drops every installed script/style for a page, without
// touching the Stealth Engine's applied-features bookkeeping.
func (s *Service) ClearAllScripts(ctx context.Context, req *ClearAllScriptsRequest) (*ClearAllScriptsResponse, error) {
	if s.stealth == nil {
		return nil, ErrStealthDisabled
	}
	s.stealth.Injector().ClearAll(req.PageID)
	return &ClearAllScriptsResponse{}, nil
}

// presentTurnstileSelectors evaluates each curated Turnstile selector
// against the live DOM and reports which ones matched at least one element.
func presentTurnstileSelectors(ctx context.Context, page *session.PageContext) ([]string, error) {
	selectors, err := json.Marshal(detect.Get().TurnstileSelectors)
	if err != nil {
		return nil, err
	}
	script := `(() => {
		const selectors = ` + string(selectors) + `;
		return JSON.stringify(selectors.filter(s => {
			try { return document.querySelectorAll(s).length > 0; } catch (e) { return false; }
		}));
	})()`
	res, err := page.Evaluate(ctx, script, false)
	if err != nil {
		return nil, err
	}
	var present []string
	if res.Kind == cdp.EvalString && res.String != "" {
		if err := json.Unmarshal([]byte(res.String), &present); err != nil {
			return nil, err
		}
	}
	return present, nil
}

// DiagnosePage classifies a page's rendered text and present selectors
// against the curated challenge/anti-bot pattern lists: read-only
// diagnostics, never an attempt to solve a challenge.
func (s *Service) DiagnosePage(ctx context.Context, req *DiagnosePageRequest) (*DiagnosePageResponse, error) {
	pageID, err := parseUUID(req.PageID)
	if err != nil {
		return nil, err
	}
	page, err := s.sessions.GetPage(pageID)
	if err != nil {
		return nil, err
	}

	res, err := page.Evaluate(ctx, `document.body ? document.body.innerText : ''`, false)
	if err != nil {
		return nil, err
	}
	var text string
	if res.Kind == cdp.EvalString {
		text = res.String
	}
	diagnosis := detect.ClassifyText(text)

	if present, err := presentTurnstileSelectors(ctx, page); err == nil && detect.ClassifySelectors(present) {
		alreadyFlagged := false
		for _, c := range diagnosis.Categories {
			if c == detect.CategoryTurnstile {
				alreadyFlagged = true
				break
			}
		}
		if !alreadyFlagged {
			diagnosis.Categories = append(diagnosis.Categories, detect.CategoryTurnstile)
		}
	}

	return &DiagnosePageResponse{
		Categories:      diagnosis.Categories,
		MatchedPatterns: diagnosis.Matched,
		Blocked:         diagnosis.Blocked(),
	}, nil
}

// eventTypesFromStrings maps the wire names used by SubscribeFrame.Action's
// companion filter fields onto events.EventType.
func eventTypesFromStrings(names []string) []events.EventType {
	out := make([]events.EventType, 0, len(names))
	for _, n := range names {
		switch n {
		case "page":
			out = append(out, events.EventPageLoaded)
		case "console":
			out = append(out, events.EventConsoleLog)
		case "network":
			out = append(out, events.EventRequestSent)
		}
	}
	return out
}

func eventMsgFromEvent(e events.Event) *EventMsg {
	msg := &EventMsg{
		PageID:             e.PageID,
		BrowserID:          e.BrowserID,
		TimestampUnixMilli: e.Timestamp.UnixMilli(),
	}
	switch {
	case e.Page != nil:
		msg.Type = "page"
		msg.PageURL = e.Page.URL
		msg.PageTitle = e.Page.Title
	case e.Console != nil:
		msg.Type = "console"
		msg.ConsoleLevel = e.Console.Level
		msg.ConsoleText = e.Console.Text
	case e.Network != nil:
		msg.Type = "network"
		msg.NetworkURL = e.Network.URL
		msg.NetworkMethod = e.Network.Method
		msg.NetworkStatus = e.Network.StatusCode
		msg.ResourceType = e.Network.ResourceType
	}
	return msg
}

// frameStream is the minimal interface Subscribe needs from a gRPC
// bidi-streaming server handle, satisfied by grpc.ServerStream in desc.go.
type frameStream interface {
	Send(*SubscribeFrame) error
	Recv() (*SubscribeFrame, error)
	Context() context.Context
}

// Subscribe implements the bidirectional event stream: a client sends
// SUBSCRIBE/UNSUBSCRIBE/LIST/PING frames and the server interleaves matching
// events plus frame acknowledgements, all multiplexed over one stream.
func (s *Service) Subscribe(stream frameStream) error {
	ctx := stream.Context()
	subs := make(map[string]*events.FilteredReceiver)
	defer func() {
		for id := range subs {
			if parsed, err := uuid.Parse(id); err == nil {
				s.dispatcher.Unsubscribe(parsed)
			}
		}
	}()

	recvCh := make(chan *SubscribeFrame)
	recvErr := make(chan error, 1)
	go func() {
		for {
			frame, err := stream.Recv()
			if err != nil {
				recvErr <- err
				return
			}
			recvCh <- frame
		}
	}()

	eventCh := make(chan events.Event, 64)
	stopFanIn := make(chan struct{})
	fanIn := func(recv *events.FilteredReceiver) {
		for {
			e, ok := recv.Recv()
			if !ok {
				return
			}
			select {
			case eventCh <- e:
			case <-stopFanIn:
				return
			}
		}
	}
	defer close(stopFanIn)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-recvErr:
			return err
		case e := <-eventCh:
			if err := stream.Send(&SubscribeFrame{Event: eventMsgFromEvent(e)}); err != nil {
				return err
			}
		case frame := <-recvCh:
			switch frame.Action {
			case "SUBSCRIBE":
				var filter *events.Filter
				if frame.URLPattern != "" {
					filter = &events.Filter{URLPattern: frame.URLPattern}
				}
				id, recv := s.dispatcher.SubscribeWithFilter(frame.PageID, frame.BrowserID, eventTypesFromStrings(frame.EventTypes), filter)
				subs[id.String()] = recv
				go fanIn(recv)
				if err := stream.Send(&SubscribeFrame{Subscribed: id.String()}); err != nil {
					return err
				}
			case "UNSUBSCRIBE":
				if id, err := uuid.Parse(frame.SubscriptionID); err == nil {
					s.dispatcher.Unsubscribe(id)
					delete(subs, frame.SubscriptionID)
				}
				if err := stream.Send(&SubscribeFrame{Unsubscribed: true}); err != nil {
					return err
				}
			case "LIST":
				ids := make([]string, 0, len(subs))
				for id := range subs {
					ids = append(ids, id)
				}
				if err := stream.Send(&SubscribeFrame{Subscriptions: ids}); err != nil {
					return err
				}
			case "PING":
				if err := stream.Send(&SubscribeFrame{Pong: true}); err != nil {
					return err
				}
			default:
				log.Debug().Str("action", frame.Action).Msg("rpcserver: unrecognized subscribe frame action")
			}
		}
	}
}
