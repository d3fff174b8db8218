package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// CDPCapturer captures through the Chrome DevTools Protocol of a running browser
// (chrome --remote-debugging-port=9222).
type CDPCapturer struct {
	Endpoint         string // http://127.0.0.1:9222
	PageURL          string
	ProgressFunction string // window.<fn>(percent)
	Settle           time.Duration
	Timeout          time.Duration

	HTTPClient *http.Client
	Dialer     *websocket.Dialer

	conn     *websocket.Conn
	targetID string
	nextID   int64
}

type cdpTarget struct {
	ID                   string `json:"id"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

type cdpRequest struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type cdpResponse struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type evaluateResult struct {
	Result struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception *struct {
			Description string `json:"description"`
		} `json:"exception"`
	} `json:"exceptionDetails"`
}

type clipBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

// NewCDPCapturer creates a capturer with default timeouts
func NewCDPCapturer(endpoint, pageURL, progressFunction string, settle time.Duration) *CDPCapturer {
	return &CDPCapturer{
		Endpoint:         strings.TrimRight(endpoint, "/"),
		PageURL:          pageURL,
		ProgressFunction: progressFunction,
		Settle:           settle,
		Timeout:          30 * time.Second,
	}
}

// Open creates a browser tab for PageURL and waits until the page is loaded
// and exposes the progress function.
func (c *CDPCapturer) Open(ctx context.Context) error {
	if c.conn != nil {
		return errors.New("cdp: already open")
	}

	target, err := c.newTarget(ctx)
	if err != nil {
		return err
	}
	c.targetID = target.ID

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, target.WebSocketDebuggerURL, nil)
	if err != nil {
		c.closeTarget()
		return fmt.Errorf("cdp: connect %s: %w", target.WebSocketDebuggerURL, err)
	}
	c.conn = conn

	// Неготовая страница не должна оставлять вкладку и соединение
	if err := c.waitReady(ctx); err != nil {
		c.Close()
		return err
	}
	return nil
}

func (c *CDPCapturer) newTarget(ctx context.Context) (*cdpTarget, error) {
	endpoint := c.Endpoint + "/json/new?" + url.QueryEscape(c.PageURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("cdp: new target: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("cdp: new target: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdp: new target: unexpected status %s", resp.Status)
	}

	var target cdpTarget
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return nil, fmt.Errorf("cdp: new target: %w", err)
	}
	if target.WebSocketDebuggerURL == "" {
		return nil, errors.New("cdp: new target: no webSocketDebuggerUrl in response")
	}
	return &target, nil
}

func (c *CDPCapturer) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	for {
		var state string
		if err := c.evaluate(ctx, "document.readyState", &state); err != nil {
			return err
		}
		if state == "complete" {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("cdp: page not loaded (readyState %q): %w", state, ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}

	var kind string
	if err := c.evaluate(ctx, "typeof window."+c.ProgressFunction, &kind); err != nil {
		return err
	}
	if kind != "function" {
		return fmt.Errorf("cdp: window.%s is %s, not a function", c.ProgressFunction, kind)
	}
	return nil
}

// SetProgress calls window.<ProgressFunction>(percent) and waits Settle
func (c *CDPCapturer) SetProgress(ctx context.Context, percent float64) error {
	expr := fmt.Sprintf("window.%s(%s)", c.ProgressFunction, strconv.FormatFloat(percent, 'f', -1, 64))
	if err := c.evaluate(ctx, expr, nil); err != nil {
		return err
	}

	// Анимации нужно время, чтобы перерисовать кадр
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.Settle):
	}
	return nil
}

// Screenshot saves a PNG of the element matched by selector
func (c *CDPCapturer) Screenshot(ctx context.Context, selector, path string) error {
	quoted, _ := json.Marshal(selector)
	expr := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return null;
  const r = el.getBoundingClientRect();
  return {x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
})()`, quoted)

	var box *clipBox
	if err := c.evaluate(ctx, expr, &box); err != nil {
		return err
	}
	if box == nil {
		return fmt.Errorf("cdp: element %s not found", selector)
	}
	if box.Width <= 0 || box.Height <= 0 {
		return fmt.Errorf("cdp: element %s has empty size %vx%v", selector, box.Width, box.Height)
	}
	box.Scale = 1

	var shot struct {
		Data string `json:"data"`
	}
	params := map[string]any{
		"format":                "png",
		"clip":                  box,
		"captureBeyondViewport": true,
	}
	if err := c.call(ctx, "Page.captureScreenshot", params, &shot); err != nil {
		return err
	}

	data, err := base64.StdEncoding.DecodeString(shot.Data)
	if err != nil {
		return fmt.Errorf("cdp: decode screenshot: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Close disconnects and closes the tab created by Open
func (c *CDPCapturer) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.closeTarget()
	return err
}

// closeTarget closes the tab created by Open; errors are ignored
func (c *CDPCapturer) closeTarget() {
	if c.targetID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/json/close/"+c.targetID, nil)
	if err == nil {
		if resp, err := c.httpClient().Do(req); err == nil {
			resp.Body.Close()
		}
	}
	c.targetID = ""
}

func (c *CDPCapturer) evaluate(ctx context.Context, expr string, out any) error {
	params := map[string]any{
		"expression":    expr,
		"returnByValue": true,
		"awaitPromise":  true,
	}

	var res evaluateResult
	if err := c.call(ctx, "Runtime.evaluate", params, &res); err != nil {
		return err
	}
	if res.ExceptionDetails != nil {
		msg := res.ExceptionDetails.Text
		if res.ExceptionDetails.Exception != nil && res.ExceptionDetails.Exception.Description != "" {
			msg = res.ExceptionDetails.Exception.Description
		}
		return fmt.Errorf("cdp: evaluate %q: %s", firstLine(expr), msg)
	}
	if out == nil || len(res.Result.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Result.Value, out); err != nil {
		return fmt.Errorf("cdp: evaluate %q: %w", firstLine(expr), err)
	}
	return nil
}

// call sends one command and waits for its response, skipping events
func (c *CDPCapturer) call(ctx context.Context, method string, params, out any) error {
	if c.conn == nil {
		return errors.New("cdp: not open")
	}

	deadline := time.Now().Add(c.timeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	c.nextID++
	id := c.nextID
	if err := c.conn.WriteJSON(cdpRequest{ID: id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("cdp: %s: %w", method, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var resp cdpResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("cdp: %s: %w", method, err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("cdp: %s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("cdp: %s: %w", method, err)
			}
		}
		return nil
	}
}

func (c *CDPCapturer) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

func (c *CDPCapturer) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.timeout()}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
