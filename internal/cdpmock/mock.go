// Package cdpmock provides a minimal in-process fake of Chromium's CDP
// debug endpoint (HTTP discovery + WebSocket target) so the session graph,
// dispatcher, and stealth pipeline can be exercised in tests without a real
// Chromium.
package cdpmock

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Handler answers a mocked CDP method call with a raw JSON result.
type Handler func(params json.RawMessage) (json.RawMessage, error)

// Server is an httptest-backed fake of Chromium's debug endpoint: it serves
// /json/version, /json, /json/new, and upgrades target connections to
// WebSocket, replying to commands via registered Handlers.
type Server struct {
	httpServer *httptest.Server
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	handlers map[string]Handler
}

// NewServer starts a fake CDP debug endpoint.
func NewServer() *Server {
	s := &Server{handlers: make(map[string]Handler)}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", s.handleVersion)
	mux.HandleFunc("/json/new", s.handleNewTarget)
	mux.HandleFunc("/json", s.handleTargets)
	mux.HandleFunc("/target/", s.handleTargetSocket)
	s.httpServer = httptest.NewServer(mux)
	return s
}

// Handle registers a response producer for a CDP method name. Unregistered
// methods return an empty JSON object.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// WSEndpoint returns the ws:// base URL callers pass to cdp.NewBrowser.
func (s *Server) WSEndpoint() string {
	return "ws://" + strings.TrimPrefix(s.httpServer.URL, "http://")
}

// Close shuts down the fake server.
func (s *Server) Close() {
	s.httpServer.Close()
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{
		"Protocol-Version": "1.3",
		"Browser":          "mock/1.0",
		"User-Agent":       "cdpmock",
		"V8-Version":       "0.0.0",
	})
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode([]map[string]any{})
}

func (s *Server) handleNewTarget(w http.ResponseWriter, r *http.Request) {
	wsURL := s.WSEndpoint() + "/target/mock-target-1"
	_ = json.NewEncoder(w).Encode(map[string]string{
		"id":                  "mock-target-1",
		"type":                "page",
		"webSocketDebuggerUrl": wsURL,
	})
}

func (s *Server) handleTargetSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		s.mu.Lock()
		h, ok := s.handlers[req.Method]
		s.mu.Unlock()

		result := json.RawMessage(`{}`)
		if ok {
			r, err := h(req.Params)
			if err != nil {
				_ = conn.WriteJSON(map[string]any{
					"id":    req.ID,
					"error": map[string]any{"code": -32000, "message": err.Error()},
				})
				continue
			}
			result = r
		}
		_ = conn.WriteJSON(map[string]any{"id": req.ID, "result": result})
	}
}

// NavigateHandler always succeeds with a fixed frame/loader pair.
func NavigateHandler() Handler {
	return func(params json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"frameId":"mock-frame","loaderId":"mock-loader"}`), nil
	}
}

// ReadyStateCompleteHandler answers a readyState poll with "complete" so
// Navigate's poll loop resolves on the first attempt in tests.
func ReadyStateCompleteHandler() Handler {
	return func(params json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"result":{"type":"string","value":"complete"}}`), nil
	}
}

// ArithmeticEvaluateHandler answers any evaluation with the number 2.
func ArithmeticEvaluateHandler() Handler {
	return func(params json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"result":{"type":"number","value":2}}`), nil
	}
}

// PNGMagicBytes is the 8-byte PNG file signature.
var PNGMagicBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// PNGScreenshotHandler answers Page.captureScreenshot with a base64-encoded
// PNG signature.
func PNGScreenshotHandler() Handler {
	return func(params json.RawMessage) (json.RawMessage, error) {
		encoded := base64.StdEncoding.EncodeToString(PNGMagicBytes)
		b, _ := json.Marshal(map[string]string{"data": encoded})
		return b, nil
	}
}
