package rpcserver

// Request/response payloads for the unary RPCs. These are plain Go structs
// rather than protoc-generated types: api/cdpd.proto is the documentation
// of record for this wire shape, and jsonCodec (see codec.go) marshals
// these directly, so no .pb.go stubs are required to exercise the service.

type CreateBrowserRequest struct {
	CdpEndpoint string `json:"cdp_endpoint"`
}

type CreateBrowserResponse struct {
	BrowserID string `json:"browser_id"`
}

type GetBrowserRequest struct {
	BrowserID string `json:"browser_id"`
}

type GetBrowserResponse struct {
	BrowserID string `json:"browser_id"`
	IsActive  bool   `json:"is_active"`
	PageCount int    `json:"page_count"`
}

type ListBrowsersRequest struct{}

type ListBrowsersResponse struct {
	BrowserIDs []string `json:"browser_ids"`
}

type CloseBrowserRequest struct {
	BrowserID string `json:"browser_id"`
}

type CloseBrowserResponse struct{}

type CreatePageRequest struct {
	BrowserID  string            `json:"browser_id"`
	DefaultURL string            `json:"default_url"`
	UserAgent  string            `json:"user_agent"`
	Block      *BlockPatternsMsg `json:"block,omitempty"`
}

type BlockPatternsMsg struct {
	Images bool `json:"images"`
	CSS    bool `json:"css"`
	Fonts  bool `json:"fonts"`
	Media  bool `json:"media"`
}

type CreatePageResponse struct {
	PageID string `json:"page_id"`
}

type ClosePageRequest struct {
	PageID string `json:"page_id"`
}

type ClosePageResponse struct{}

type NavigateRequest struct {
	PageID    string `json:"page_id"`
	URL       string `json:"url"`
	WaitUntil string `json:"wait_until"` // "load", "dom_content_loaded", "network_idle", "network_almost_idle"
}

type NavigateResponse struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	IsLoaded   bool   `json:"is_loaded"`
}

type EvaluateRequest struct {
	PageID       string `json:"page_id"`
	Script       string `json:"script"`
	AwaitPromise bool   `json:"await_promise"`
}

type EvaluateResponse struct {
	ValueJSON string `json:"value_json"`
	Type      string `json:"type"`
}

type ScreenshotRequest struct {
	PageID string `json:"page_id"`
	Format string `json:"format"` // "png" or "jpeg"
}

type ScreenshotResponse struct {
	Data []byte `json:"data"`
}

type GetContentRequest struct {
	PageID string `json:"page_id"`
}

type GetContentResponse struct {
	HTML string `json:"html"`
}

type SetContentRequest struct {
	PageID string `json:"page_id"`
	HTML   string `json:"html"`
}

type SetContentResponse struct{}

type ReloadRequest struct {
	PageID      string `json:"page_id"`
	IgnoreCache bool   `json:"ignore_cache"`
}

type ReloadResponse struct{}

type SetExtraHeadersRequest struct {
	PageID  string            `json:"page_id"`
	Headers map[string]string `json:"headers"`
}

type SetExtraHeadersResponse struct{}

// FindElementRequest/Response resolve a CSS selector to an element handle
// scoped to the page.
type FindElementRequest struct {
	PageID   string `json:"page_id"`
	Selector string `json:"selector"`
}

type FindElementResponse struct {
	ElementID     string `json:"element_id"`
	BackendNodeID int64  `json:"backend_node_id"`
}

type ElementRequest struct {
	PageID        string `json:"page_id"`
	BackendNodeID int64  `json:"backend_node_id"`
}

type GetTextResponse struct {
	Text string `json:"text"`
}

type GetHTMLResponse struct {
	HTML string `json:"html"`
}

type GetAttributeRequest struct {
	PageID        string `json:"page_id"`
	BackendNodeID int64  `json:"backend_node_id"`
	Name          string `json:"name"`
}

type GetAttributeResponse struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

type ElementActionResponse struct{}

// TypeTextElementRequest serves both TypeText and SimulateTypeText. The
// timing/typo fields tune SimulateTypeText only (zero means the server
// default); plain TypeText dispatches one char event per rune regardless.
type TypeTextElementRequest struct {
	PageID        string `json:"page_id"`
	BackendNodeID int64  `json:"backend_node_id"`
	Text          string `json:"text"`

	MeanDelayMs          float64 `json:"mean_delay_ms,omitempty"`
	StdDevMs             float64 `json:"std_dev_ms,omitempty"`
	TypoProbability      float64 `json:"typo_probability,omitempty"`
	BackspaceProbability float64 `json:"backspace_probability,omitempty"`
}

type IsVisibleResponse struct {
	Visible bool `json:"visible"`
}

type IsEnabledResponse struct {
	Enabled bool `json:"enabled"`
}

type GetBoundingBoxResponse struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SimulateMouseMoveRequest drives a humanized mouse move over a bare page,
// independent of any element handle. DurationMs spreads the gesture over a
// total duration, Points fixes the number of sampled path points, and
// Deviation sets the Bezier control-point offset in pixels; zero values fall
// back to the server defaults.
type SimulateMouseMoveRequest struct {
	PageID string  `json:"page_id"`
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`

	DurationMs int     `json:"duration_ms,omitempty"`
	Deviation  float64 `json:"deviation,omitempty"`
	Points     int     `json:"points,omitempty"`
}

// SimulateScrollRequest drives a wheel-event scroll to an absolute Y. Steps
// fixes the number of wheel events (zero sizes the burst from the
// distance); Acceleration eases the gesture in and out.
type SimulateScrollRequest struct {
	PageID  string  `json:"page_id"`
	TargetY float64 `json:"target_y"`

	Steps        int  `json:"steps,omitempty"`
	Acceleration bool `json:"acceleration,omitempty"`
}

type SimulateActionResponse struct{}

// Higher-level, server-generated-JS element operations:
// find/fill/press_key/drag_and_drop/visibility. These evaluate
// internal/domscript-built scripts and return the raw JSON payload the
// script produced; the caller parses the shape documented for each op.
type FindBySelectorRequest struct {
	PageID   string `json:"page_id"`
	Selector string `json:"selector"`
}

type FindAllBySelectorRequest struct {
	PageID   string `json:"page_id"`
	Selector string `json:"selector"`
	Limit    int    `json:"limit"`
}

type FindByXPathRequest struct {
	PageID     string `json:"page_id"`
	Expression string `json:"expression"`
}

type FindByTextRequest struct {
	PageID string `json:"page_id"`
	Text   string `json:"text"`
}

type FillRequest struct {
	PageID   string `json:"page_id"`
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

type VisibilityWithReasonsRequest struct {
	PageID   string `json:"page_id"`
	Selector string `json:"selector"`
}

type DragAndDropRequest struct {
	PageID         string `json:"page_id"`
	SourceSelector string `json:"source_selector"`
	TargetSelector string `json:"target_selector"`
}

type PressKeyRequest struct {
	PageID string `json:"page_id"`
	Key    string `json:"key"`
}

// DomScriptResponse carries a script's JSON-stringified result verbatim;
// each domscript builder function documents its own result shape.
type DomScriptResponse struct {
	ResultJSON string `json:"result_json"`
}

// CreateProfileRequest describes a fingerprint profile to generate.
// Platform is one of "windows", "macos", "linux", "android", "ios",
// "custom"; the custom_* fields are honored only when platform is "custom".
// The inject_* flags become the Stealth Engine's InjectionMask.
type CreateProfileRequest struct {
	Platform             string `json:"platform"`
	InjectNavigator      bool   `json:"inject_navigator"`
	InjectScreen         bool   `json:"inject_screen"`
	InjectWebGL          bool   `json:"inject_webgl"`
	InjectCanvas         bool   `json:"inject_canvas"`
	InjectAudio          bool   `json:"inject_audio"`
	CustomUserAgent      string `json:"custom_user_agent,omitempty"`
	CustomPlatform       string `json:"custom_platform,omitempty"`
	CustomViewportWidth  int32  `json:"custom_viewport_width,omitempty"`
	CustomViewportHeight int32  `json:"custom_viewport_height,omitempty"`
}

// CreateProfileResponse returns the opaque id a caller later passes to
// ApplyProfile, plus the user agent string the profile carries (useful for
// callers that want to log or display it without a second round trip).
type CreateProfileResponse struct {
	ProfileID string `json:"profile_id"`
	UserAgent string `json:"user_agent"`
}

// RandomizeProfileRequest derives a new profile from an existing one: same
// identity fields, fresh hardware concurrency and device memory, screen
// dimensions jittered by a few pixels.
type RandomizeProfileRequest struct {
	ProfileID string `json:"profile_id"`
}

type RandomizeProfileResponse struct {
	ProfileID string `json:"profile_id"`
}

// ApplyProfileRequest names the page and the previously created profile to
// install onto it.
type ApplyProfileRequest struct {
	PageID    string `json:"page_id"`
	ProfileID string `json:"profile_id"`
}

// ApplyProfileResponse and GetAppliedFeaturesResponse both return the
// Stealth Engine's applied-features list.
type ApplyProfileResponse struct {
	Features []string `json:"features"`
}

type GetAppliedFeaturesRequest struct {
	PageID string `json:"page_id"`
}

type GetAppliedFeaturesResponse struct {
	Features []string `json:"features"`
}

// ClearStealthRequest/Response expose the Stealth Engine's remove_all: it
// clears installed scripts and the applied-features entry for a page.
type ClearStealthRequest struct {
	PageID string `json:"page_id"`
}

type ClearStealthResponse struct{}

// InjectStyleRequest/Response expose the Script Injector's inject_style.
type InjectStyleRequest struct {
	PageID string `json:"page_id"`
	CSS    string `json:"css"`
}

type InjectStyleResponse struct {
	ScriptID string `json:"script_id"`
}

// SetUserAgentRequest/Response expose the Script Injector's set_user_agent
// independent of full profile application.
type SetUserAgentRequest struct {
	PageID    string `json:"page_id"`
	UserAgent string `json:"user_agent"`
}

type SetUserAgentResponse struct{}

type GetInjectedScriptsRequest struct {
	PageID string `json:"page_id"`
}

// InjectedScriptMsg is the wire projection of injector.InstalledScript.
type InjectedScriptMsg struct {
	ScriptID string `json:"script_id"`
	Kind     string `json:"kind"` // "init_script" | "style"
	Content  string `json:"content"`
}

type GetInjectedScriptsResponse struct {
	Scripts []InjectedScriptMsg `json:"scripts"`
}

type RemoveScriptRequest struct {
	PageID   string `json:"page_id"`
	ScriptID string `json:"script_id"`
}

type RemoveScriptResponse struct {
	Removed bool `json:"removed"`
}

type ClearAllScriptsRequest struct {
	PageID string `json:"page_id"`
}

type ClearAllScriptsResponse struct{}

// DiagnosePageRequest/Response expose the read-only challenge/anti-bot
// pattern classifier (internal/detect). It never attempts to solve what it
// detects.
type DiagnosePageRequest struct {
	PageID string `json:"page_id"`
}

type DiagnosePageResponse struct {
	Categories      []string `json:"categories"`
	MatchedPatterns []string `json:"matched_patterns"`
	Blocked         bool     `json:"blocked"`
}

// SubscribeFrame is one frame of the bidirectional Subscribe RPC; the same
// shape carries client commands and server events/acknowledgements.
type SubscribeFrame struct {
	// Client -> server fields.
	Action         string   `json:"action,omitempty"` // "SUBSCRIBE", "UNSUBSCRIBE", "LIST", "PING"
	PageID         string   `json:"page_id,omitempty"`
	BrowserID      string   `json:"browser_id,omitempty"`
	SubscriptionID string   `json:"subscription_id,omitempty"`
	EventTypes     []string `json:"event_types,omitempty"` // "page", "console", "network"
	URLPattern     string   `json:"url_pattern,omitempty"`

	// Server -> client fields.
	Event         *EventMsg `json:"event,omitempty"`
	Subscribed    string    `json:"subscribed,omitempty"`
	Unsubscribed  bool      `json:"unsubscribed,omitempty"`
	Pong          bool      `json:"pong,omitempty"`
	Subscriptions []string  `json:"subscriptions,omitempty"`
}

// EventMsg is the wire projection of events.Event.
type EventMsg struct {
	Type               string `json:"type"`
	PageID             string `json:"page_id"`
	BrowserID          string `json:"browser_id"`
	TimestampUnixMilli int64  `json:"timestamp_unix_milli"`

	PageURL       string `json:"page_url,omitempty"`
	PageTitle     string `json:"page_title,omitempty"`
	ConsoleLevel  string `json:"console_level,omitempty"`
	ConsoleText   string `json:"console_text,omitempty"`
	NetworkURL    string `json:"network_url,omitempty"`
	NetworkMethod string `json:"network_method,omitempty"`
	NetworkStatus int    `json:"network_status,omitempty"`
	ResourceType  string `json:"resource_type,omitempty"`
}
