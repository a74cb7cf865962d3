package cdp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Client is a thin typed façade over a Connection.
type Client struct {
	conn *Connection
}

// NewClient wraps an already-dialed Connection.
func NewClient(conn *Connection) *Client {
	return &Client{conn: conn}
}

// Conn exposes the underlying Connection for callers that need raw access
// (event subscription bookkeeping, close propagation).
func (c *Client) Conn() *Connection {
	return c.conn
}

// NavigateResult is the result of Navigate.
type NavigateResult struct {
	NavigationID string
	URL          string
	StatusCode   int
	IsLoaded     bool
}

// Navigate sends Page.navigate, then polls document.readyState via
// Runtime.evaluate every 100ms for up to 5s. "complete" is treated as
// success; otherwise the call still returns success with status 200, since
// event-based load signaling races against Page.navigate completion and a
// slow load is not a navigation failure.
func (c *Client) Navigate(ctx context.Context, url string) (*NavigateResult, error) {
	var navParams struct {
		URL string `json:"url"`
	}
	navParams.URL = url

	raw, err := c.conn.SendCommand(ctx, "Page.navigate", navParams)
	if err != nil {
		return nil, newConnectionError("Page.navigate", "cdp: navigate failed: "+err.Error(), ErrNavigationFailed)
	}

	var navResult struct {
		FrameID   string `json:"frameId"`
		LoaderID  string `json:"loaderId"`
		ErrorText string `json:"errorText"`
	}
	_ = json.Unmarshal(raw, &navResult)

	isLoaded := c.pollReadyState(ctx)

	return &NavigateResult{
		NavigationID: navResult.LoaderID,
		URL:          url,
		StatusCode:   200,
		IsLoaded:     isLoaded,
	}, nil
}

func (c *Client) pollReadyState(ctx context.Context) bool {
	deadline := time.Now().Add(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		result, err := c.Evaluate(ctx, "document.readyState", false)
		if err == nil && result.Kind == EvalString && result.String == "complete" {
			return true
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		}
	}
	log.Debug().Msg("cdp: readyState poll exhausted, returning soft success")
	return false
}

// Evaluate sends Runtime.evaluate with returnByValue=true. A response
// carrying exceptionDetails fails with ScriptExecutionError.
func (c *Client) Evaluate(ctx context.Context, script string, awaitPromise bool) (*EvaluationResult, error) {
	params := struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
		AwaitPromise  bool   `json:"awaitPromise"`
	}{
		Expression:    script,
		ReturnByValue: true,
		AwaitPromise:  awaitPromise,
	}

	raw, err := c.conn.SendCommand(ctx, "Runtime.evaluate", params)
	if err != nil {
		return nil, err
	}

	var evalResp struct {
		Result struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text       string `json:"text"`
			Exception  *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &evalResp); err != nil {
		return nil, newConnectionError("Runtime.evaluate", "cdp: decode eval response: "+err.Error(), err)
	}
	if evalResp.ExceptionDetails != nil {
		desc := evalResp.ExceptionDetails.Text
		if evalResp.ExceptionDetails.Exception != nil && evalResp.ExceptionDetails.Exception.Description != "" {
			desc = evalResp.ExceptionDetails.Exception.Description
		}
		return nil, newScriptExecutionError(desc)
	}

	kind := evaluationKindFor(evalResp.Result.Type)
	out := &EvaluationResult{Kind: kind, Object: evalResp.Result.Value}
	switch kind {
	case EvalString:
		_ = json.Unmarshal(evalResp.Result.Value, &out.String)
	case EvalNumber:
		_ = json.Unmarshal(evalResp.Result.Value, &out.Number)
	case EvalBool:
		_ = json.Unmarshal(evalResp.Result.Value, &out.Bool)
	}
	return out, nil
}

// Screenshot sends Page.captureScreenshot with the requested format and
// base64-decodes the returned data.
func (c *Client) Screenshot(ctx context.Context, format ScreenshotFormat) ([]byte, error) {
	params := map[string]any{"format": format.cdpFormat()}
	if format.Kind != FormatPng && format.Quality > 0 {
		params["quality"] = format.Quality
	}

	raw, err := c.conn.SendCommand(ctx, "Page.captureScreenshot", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Data == "" {
		return nil, &CdpError{Message: "cdp: screenshot response missing data field"}
	}
	return base64.StdEncoding.DecodeString(resp.Data)
}

// GetContent returns the page's outer HTML.
func (c *Client) GetContent(ctx context.Context) (string, error) {
	res, err := c.Evaluate(ctx, "document.documentElement.outerHTML", false)
	if err != nil {
		return "", err
	}
	return res.String, nil
}

// SetContent replaces the page's outer HTML.
func (c *Client) SetContent(ctx context.Context, html string) error {
	encoded, err := json.Marshal(html)
	if err != nil {
		return err
	}
	_, err = c.Evaluate(ctx, "document.documentElement.outerHTML = "+string(encoded), false)
	return err
}

// Reload sends Page.reload.
func (c *Client) Reload(ctx context.Context, ignoreCache bool) error {
	_, err := c.conn.SendCommand(ctx, "Page.reload", map[string]any{"ignoreCache": ignoreCache})
	return err
}

// EnableDomain sends "<name>.enable".
func (c *Client) EnableDomain(ctx context.Context, name string) error {
	_, err := c.conn.SendCommand(ctx, name+".enable", nil)
	return err
}

// CallMethod is a raw pass-through to the Connection.
func (c *Client) CallMethod(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := c.conn.SendCommand(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, newConnectionError(method, "cdp: no result in response", ErrNoResultInResponse)
	}
	return raw, nil
}

// SubscribeEvents spawns a filter goroutine forwarding events whose method
// equals eventType (or all events if eventType == "*") to a fresh bounded
// channel. The goroutine exits when the underlying Connection's event stream
// closes.
func (c *Client) SubscribeEvents(eventType string) <-chan Event {
	src := c.conn.ListenEvents()
	out := make(chan Event, eventChannelCapacity)
	go func() {
		defer close(out)
		for evt := range src {
			if eventType != "*" && evt.Method != eventType {
				continue
			}
			select {
			case out <- evt:
			default:
				log.Debug().Str("event_type", eventType).Msg("cdp: client subscriber lagging, dropping event")
			}
		}
	}()
	return out
}
