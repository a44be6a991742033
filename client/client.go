// Package client is the Go SDK for the live notification channel. It owns
// one connection's lifecycle (connect, re-verify, reconnect with backoff),
// merges the live stream with durable-store backfill into a render-ready
// feed, and keeps read state in sync with the server and with the same
// user's other sessions.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StateErrored is terminal: authentication was rejected and retrying
	// cannot help until the caller supplies a new token.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ErrAuthRejected is returned when the server refuses the connection for
// authentication reasons. The client stops retrying.
var ErrAuthRejected = errors.New("authentication rejected")

// ErrClosed is returned from operations invoked after Close.
var ErrClosed = errors.New("client closed")

// ErrUnknownNotification is returned when a read operation names an id not
// present in the local view.
var ErrUnknownNotification = errors.New("unknown notification")

// Wire message types, mirroring the server.
const (
	msgConnected    = "connected"
	msgNotification = "notification"
	msgRead         = "notification_read"
	msgReadAll      = "notification_read_all"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultFetchLimit   = 50
	maxReconnectDelay   = 30 * time.Second
	readIdleTimeout     = 90 * time.Second
)

// Identity is the server-verified identity echoed back on admission.
type Identity struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// Config configures a Client. BaseURL and Token are required.
type Config struct {
	BaseURL string // e.g. "http://localhost:3000"
	Token   string // bearer access token

	LiveCap      int           // session-local live list bound, default 50
	DisplayCap   int           // merged view bound, default 20
	PollInterval time.Duration // fallback poll period while disconnected
	FetchLimit   int           // backfill fetch size

	HTTPClient *http.Client
	Logger     zerolog.Logger

	// OnUpdate is invoked with a fresh feed snapshot after every change.
	// Never called after Close returns.
	OnUpdate func(Feed)
	// OnStateChange is invoked on every lifecycle transition.
	OnStateChange func(State)
}

// Client manages one live notification connection and its local view.
type Client struct {
	cfg  Config
	view *view
	log  zerolog.Logger
	http *http.Client

	state  atomic.Int32
	closed atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conn  *websocket.Conn
	ident Identity
}

// New creates a Client. Call Connect to start it.
func New(cfg Config) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		cfg:  cfg,
		view: newView(cfg.LiveCap, cfg.DisplayCap),
		log:  cfg.Logger,
		http: httpClient,
	}
}

// Connect starts the connection loop and the disconnected-state poll timer.
// It returns immediately; lifecycle transitions are reported via
// Config.OnStateChange.
func (c *Client) Connect(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(2)
	go c.run(ctx)
	go c.pollLoop(ctx)
}

// Close tears the client down: the transport is closed, the retry loop
// stops, and no state updates or callbacks occur afterwards. Safe to call
// more than once.
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Identity returns the server-verified identity. Zero until connected.
func (c *Client) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ident
}

// Feed returns a merged, de-duplicated snapshot of the notification view.
func (c *Client) Feed() Feed {
	return c.view.snapshot()
}

// MarkRead marks one notification read: local state first (optimistic), then
// a read-sync signal to sibling sessions, then a durable-store update when
// the item came from the store. A server failure leaves the optimistic local
// state in place and is returned for the caller to retry.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	found, durable := c.view.markRead(id)
	if !found {
		return ErrUnknownNotification
	}
	c.notifyUpdate()
	c.sendSignal(msgRead, map[string]string{"id": id})
	if durable {
		return c.do(ctx, http.MethodPut, "/v1/notifications/"+id+"/read")
	}
	return nil
}

// MarkAllRead marks everything read locally, signals sibling sessions and
// updates the durable store in bulk.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.view.markAllRead()
	c.notifyUpdate()
	c.sendSignal(msgReadAll, nil)
	return c.do(ctx, http.MethodPut, "/v1/notifications/read-all")
}

// run is the connection loop: dial, drain, reconnect with capped exponential
// backoff and no retry bound. A definitive auth rejection stops the loop.
func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = maxReconnectDelay
	bo.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil || c.closed.Load() {
			return
		}
		c.setState(StateConnecting)

		conn, err := c.dial(ctx)
		if err != nil {
			if errors.Is(err, ErrAuthRejected) {
				c.log.Error().Err(err).Msg("live channel auth rejected, giving up")
				c.setState(StateErrored)
				return
			}
			c.log.Warn().Err(err).Msg("live channel connect failed")
			c.setState(StateDisconnected)
			if !sleepCtx(ctx, bo.NextBackOff()) {
				return
			}
			continue
		}

		bo.Reset()
		c.setConn(conn)
		c.setState(StateConnected)

		// The live stream is never assumed gap-free: refresh from the
		// durable store on every successful (re)connection.
		if err := c.backfill(ctx); err != nil {
			c.log.Warn().Err(err).Msg("backfill failed")
		}

		c.readLoop(conn)
		c.setConn(nil)
		if ctx.Err() != nil || c.closed.Load() {
			return
		}
		c.setState(StateDisconnected)
	}
}

// pollLoop re-fetches the durable store on a timer, but only while the live
// channel is down; when connected the stream plus reconnect backfill cover it.
func (c *Client) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.State() != StateDisconnected {
				continue
			}
			if err := c.backfill(ctx); err != nil {
				c.log.Warn().Err(err).Msg("fallback poll failed")
			}
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := strings.Replace(c.cfg.BaseURL, "http", "ws", 1) + "/v1/ws"
	header := http.Header{"Authorization": {"Bearer " + c.cfg.Token}}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// readLoop drains server frames until the connection dies.
func (c *Client) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			_ = conn.Close()
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		c.handleFrame(msg)
	}
}

func (c *Client) handleFrame(msg wsMessage) {
	if c.closed.Load() {
		return
	}
	switch msg.Type {
	case msgConnected:
		var ident Identity
		if err := json.Unmarshal(msg.Data, &ident); err != nil {
			c.log.Warn().Err(err).Msg("bad connected frame")
			return
		}
		c.mu.Lock()
		c.ident = ident
		c.mu.Unlock()

	case msgNotification:
		var ev liveEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.log.Warn().Err(err).Msg("bad notification frame")
			return
		}
		c.ingest(ev)

	case msgRead:
		var sig struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &sig); err != nil {
			return
		}
		if found, _ := c.view.markRead(sig.ID); found {
			c.notifyUpdate()
		}

	case msgReadAll:
		c.view.markAllRead()
		c.notifyUpdate()
	}
}

// ingest applies the defense-in-depth filters before admitting a live event
// into the local list: drop self-echo and events addressed to another role,
// even though the router already enforces both.
func (c *Client) ingest(ev liveEvent) {
	ident := c.Identity()
	if ev.Actor.ID != "" && ev.Actor.ID == ident.UserID {
		return
	}
	if ev.TargetRole != "" && ev.TargetRole != "all" && ev.TargetRole != ident.Role {
		return
	}
	c.view.ingestLive(Notification{
		Type:      ev.Type,
		Title:     ev.Title,
		Message:   ev.Message,
		Module:    ev.Module,
		ActionURL: ev.ActionURL,
		Icon:      ev.Icon,
		Color:     ev.Color,
		Timestamp: ev.Timestamp,
	})
	c.notifyUpdate()
}

// backfill fetches recent durable notifications and replaces the durable
// half of the view.
func (c *Client) backfill(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/notifications?limit=%d", c.cfg.BaseURL, c.cfg.FetchLimit), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch notifications: status %d", resp.StatusCode)
	}

	var feed struct {
		Items []struct {
			ID        string    `json:"id"`
			Type      string    `json:"type"`
			Title     string    `json:"title"`
			Message   string    `json:"message"`
			Module    string    `json:"module"`
			ActionURL string    `json:"action_url"`
			Icon      string    `json:"icon"`
			Color     string    `json:"color"`
			CreatedAt time.Time `json:"created_at"`
			Read      bool      `json:"read"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return err
	}
	if c.closed.Load() {
		return nil
	}

	items := make([]Notification, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, Notification{
			ID:        it.ID,
			Type:      it.Type,
			Title:     it.Title,
			Message:   it.Message,
			Module:    it.Module,
			ActionURL: it.ActionURL,
			Icon:      it.Icon,
			Color:     it.Color,
			Timestamp: it.CreatedAt,
			Read:      it.Read,
		})
	}
	c.view.setDurable(items)
	c.notifyUpdate()
	return nil
}

// do issues an authenticated request with an empty body and discards the
// response payload.
func (c *Client) do(ctx context.Context, method, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}

// sendSignal writes a read-sync frame, best-effort. No connection means no
// siblings to notify; the durable path still converges them later.
func (c *Client) sendSignal(msgType string, data interface{}) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.WriteJSON(outMessage{Type: msgType, Data: data}); err != nil {
		c.log.Warn().Err(err).Str("type", msgType).Msg("read-sync signal failed")
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) setState(s State) {
	if c.closed.Load() {
		return
	}
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(s)
	}
}

func (c *Client) notifyUpdate() {
	if c.closed.Load() || c.cfg.OnUpdate == nil {
		return
	}
	c.cfg.OnUpdate(c.view.snapshot())
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type liveEvent struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Module     string `json:"module"`
	ActionURL  string `json:"action_url"`
	TargetRole string `json:"target_role"`
	Actor      struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"actor"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	Timestamp time.Time `json:"timestamp"`
}
