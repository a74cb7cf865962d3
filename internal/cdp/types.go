package cdp

import "encoding/json"

// Request is a CDP command frame. Params is omitted on the wire when nil;
// SessionID is carried as opaque passthrough, never parsed.
type Request struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Response is a CDP command reply. Exactly one of Result/Error is
// meaningful; both are structurally optional.
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the CDP protocol error shape.
type ResponseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Notification is an unsolicited CDP event; never carries an id.
type Notification struct {
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	SessionID string          `json:"sessionId,omitempty"`
}

// rawFrame is the shape used to sniff an inbound text frame before deciding
// whether it is a Response or a Notification: presence of a numeric "id"
// means response, presence of "method" with no "id" means notification.
type rawFrame struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *ResponseError  `json:"error"`
	Params json.RawMessage `json:"params"`
}

// Event is the Connection's broadcast unit, one per inbound Notification.
type Event struct {
	Method    string
	Params    json.RawMessage
	SessionID string
}

// EvaluationResult tags the possible shapes of a Runtime.evaluate return
// value.
type EvaluationResult struct {
	Kind   EvaluationKind
	String string
	Number float64
	Bool   bool
	Object json.RawMessage
}

// EvaluationKind enumerates the mapped Runtime remote-object type tags.
type EvaluationKind int

const (
	EvalNull EvaluationKind = iota
	EvalString
	EvalNumber
	EvalBool
	EvalObject
)

// evaluationKindFor maps a Runtime remote-object "type" tag into the
// evaluation-result variant; unknown tags map to Null.
func evaluationKindFor(tag string) EvaluationKind {
	switch tag {
	case "string":
		return EvalString
	case "number", "bigint":
		return EvalNumber
	case "boolean":
		return EvalBool
	case "object", "function", "symbol":
		return EvalObject
	default:
		return EvalNull
	}
}

// ScreenshotFormat selects the encoding for Page.captureScreenshot.
type ScreenshotFormat struct {
	Kind    ScreenshotKind
	Quality int // only meaningful for Jpeg/WebP
}

type ScreenshotKind int

const (
	FormatPng ScreenshotKind = iota
	FormatJpeg
	FormatWebP
)

func (f ScreenshotFormat) cdpFormat() string {
	switch f.Kind {
	case FormatJpeg:
		return "jpeg"
	case FormatWebP:
		return "webp"
	default:
		return "png"
	}
}

// TargetDescriptor mirrors one entry of GET /json.
type TargetDescriptor struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Attached bool   `json:"attached"`
	WSURL    string `json:"webSocketDebuggerUrl"`
}

// VersionInfo mirrors GET /json/version.
type VersionInfo struct {
	ProtocolVersion string `json:"Protocol-Version"`
	Product         string `json:"Browser"`
	UserAgent       string `json:"User-Agent"`
	JSVersion       string `json:"V8-Version"`
}
