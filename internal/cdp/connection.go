package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// State is the Connection's monotone lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// pendingCmd is one entry in Connection's pending table: a single-shot
// completion handle plus the method name, kept for timeout diagnostics.
type pendingCmd struct {
	method string
	done   chan *Response
}

const eventChannelCapacity = 100

// Connection owns one WebSocket to one CDP target. It correlates
// request/response pairs by id and broadcasts notifications to subscribers.
//
// A single goroutine owns read access to the socket; writers serialize on
// writeMu. The two never contend, so a quiet read period cannot starve a
// sender.
type Connection struct {
	url     string
	ws      *websocket.Conn
	writeMu sync.Mutex // exclusive writer section for each frame

	nextID int64 // atomic, strictly increasing starting at 1

	pendingMu sync.Mutex
	pending   map[int64]*pendingCmd

	subsMu sync.Mutex
	subs   []chan Event

	state    atomic.Int32
	timeouts TimeoutPolicy

	closeOnce sync.Once
	loopDone  chan struct{}
}

// ConnectionOption customizes a Connection at construction time.
type ConnectionOption func(*Connection)

// WithTimeoutPolicy overrides the default per-method timeout table.
func WithTimeoutPolicy(p TimeoutPolicy) ConnectionOption {
	return func(c *Connection) { c.timeouts = p }
}

// Dial opens a WebSocket to the given CDP target URL and starts its message
// loop. The returned Connection transitions Disconnected → Connecting →
// Connected on success.
func Dial(ctx context.Context, wsURL string, opts ...ConnectionOption) (*Connection, error) {
	c := &Connection{
		url:      wsURL,
		pending:  make(map[int64]*pendingCmd),
		timeouts: DefaultTimeoutPolicy(),
		loopDone: make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	c.state.Store(int32(StateConnecting))

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return nil, newConnectionError("dial", "cdp: dial failed: "+err.Error(), err)
	}
	c.ws = ws
	c.state.Store(int32(StateConnected))

	go c.messageLoop()
	return c, nil
}

// State reports the current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// IsActive reports whether the connection can still accept commands.
func (c *Connection) IsActive() bool {
	return c.State() == StateConnected
}

// SendCommand writes a CDP command and awaits its correlated response,
// subject to the per-method timeout. Exactly one pending id is allocated and
// exactly one is freed before return, whether by resolution, timeout, or
// connection close sweep.
func (c *Connection) SendCommand(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !c.IsActive() {
		return nil, ErrWebSocketClosed
	}

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, newConnectionError(method, "cdp: marshal params: "+err.Error(), err)
		}
		raw = b
	}

	id := atomic.AddInt64(&c.nextID, 1)
	done := make(chan *Response, 1)

	c.pendingMu.Lock()
	c.pending[id] = &pendingCmd{method: method, done: done}
	c.pendingMu.Unlock()

	req := Request{ID: id, Method: method, Params: raw}
	if err := c.writeJSON(req); err != nil {
		c.removePending(id)
		return nil, newConnectionError(method, "cdp: write failed: "+err.Error(), err)
	}

	timeout := c.timeouts.For(method)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-done:
		if resp == nil {
			return nil, ErrWebSocketClosed
		}
		if resp.Error != nil {
			return nil, &CdpError{Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}
		}
		return resp.Result, nil
	case <-timer.C:
		c.removePending(id)
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, method, timeout)
	case <-ctx.Done():
		c.removePending(id)
		return nil, ctx.Err()
	}
}

func (c *Connection) removePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// writeJSON serializes and writes one frame under the exclusive writer
// section. This is the only place the socket is written to.
func (c *Connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// ListenEvents returns a fresh bounded receiver observing events broadcast
// from now on. Subscribers whose receive handles stop being drained are
// dropped lazily the next time a send to them fails (no explicit unsubscribe
// required for channel teardown).
func (c *Connection) ListenEvents() <-chan Event {
	ch := make(chan Event, eventChannelCapacity)
	c.subsMu.Lock()
	c.subs = append(c.subs, ch)
	c.subsMu.Unlock()
	return ch
}

func (c *Connection) broadcast(evt Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	live := c.subs[:0]
	for _, ch := range c.subs {
		select {
		case ch <- evt:
			live = append(live, ch)
		default:
			// Full: the subscriber is not draining (slow subscriber already
			// diagnosed at the dispatcher level); drop it from the fan-out list.
			log.Debug().Str("method", evt.Method).Msg("cdp: dropping stalled event subscriber")
		}
	}
	c.subs = live
}

// Close is idempotent. It marks the connection inactive, sends a close
// frame, drops the socket, and fails every pending command with
// ErrWebSocketClosed.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))

		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		err = c.ws.Close()

		c.pendingMu.Lock()
		for id, p := range c.pending {
			close(p.done)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()

		c.subsMu.Lock()
		for _, ch := range c.subs {
			close(ch)
		}
		c.subs = nil
		c.subsMu.Unlock()
	})
	<-c.loopDone
	return err
}

// messageLoop is the single goroutine owning read access to the socket.
// The websocket's read and write locks are independent, so a blocked read
// here never holds up SendCommand's writes; writeMu only serializes writers
// against each other (command frames, pong replies, the close frame).
func (c *Connection) messageLoop() {
	defer close(c.loopDone)
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if isExpectedClose(err) {
				c.state.Store(int32(StateClosed))
				return
			}
			log.Warn().Err(err).Msg("cdp: read error, connection closing")
			c.state.Store(int32(StateClosed))
			return
		}

		switch msgType {
		case websocket.TextMessage:
			c.handleFrame(data)
		case websocket.CloseMessage:
			c.state.Store(int32(StateClosed))
			return
		case websocket.PingMessage:
			c.writeMu.Lock()
			_ = c.ws.WriteMessage(websocket.PongMessage, nil)
			c.writeMu.Unlock()
		default:
			// Binary or other: ignore.
		}
	}
}

func (c *Connection) handleFrame(data []byte) {
	var frame rawFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn().Err(err).Msg("cdp: dropping frame with unknown shape")
		return
	}

	if frame.ID != nil {
		c.pendingMu.Lock()
		p, ok := c.pending[*frame.ID]
		if ok {
			delete(c.pending, *frame.ID)
		}
		c.pendingMu.Unlock()
		if !ok {
			log.Warn().Int64("id", *frame.ID).Msg("cdp: response for unknown id, dropped")
			return
		}
		p.done <- &Response{ID: *frame.ID, Result: frame.Result, Error: frame.Error}
		return
	}

	if frame.Method != "" {
		c.broadcast(Event{Method: frame.Method, Params: frame.Params, SessionID: ""})
		return
	}

	log.Warn().Msg("cdp: dropping frame with neither id nor method")
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already closed") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection closed")
}

