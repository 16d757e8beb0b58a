package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// wsPath is the fixed WebSocket endpoint on the server origin.
	wsPath = "/api/ws"

	// writeWait is the time allowed to write a frame to the server.
	writeWait = 10 * time.Second

	DefaultKeepaliveInterval = 30 * time.Second
	DefaultBackoffBase       = time.Second
	DefaultMaxReconnects     = 5
)

// Config holds connection settings. Zero values for the tuning fields fall
// back to the defaults above.
type Config struct {
	// ServerURL is the server origin, e.g. "http://localhost:8080". The
	// scheme maps http→ws and https→wss.
	ServerURL string

	// Token, when set, is sent as an Authorization bearer header.
	Token string

	KeepaliveInterval time.Duration
	BackoffBase       time.Duration
	MaxReconnects     int
}

func (c Config) withDefaults() Config {
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = DefaultMaxReconnects
	}
	return c
}

// Client maintains one persistent WebSocket connection to the orchestration
// server, multiplexes task subscriptions over it, fans inbound events out to
// registered listeners, and reconnects with exponential backoff after an
// unexpected close. All methods are safe for concurrent use.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dial   func(urlStr string, hdr http.Header) (*websocket.Conn, *http.Response, error)

	mu            sync.Mutex
	state         State
	conn          *websocket.Conn
	gen           uint64 // bumped per dial and on Disconnect; stale goroutines check it
	attempts      int    // consecutive failed reconnect attempts
	reconnect     *time.Timer
	keepaliveStop chan struct{}
	active        string // target of the last subscribe frame actually sent
	pending       string // queued intent, flushed when the socket opens
	primary       string // subscription restored after a reconnect

	writeMu sync.Mutex

	events *registry
	status *statusRegistry
}

// New creates a client. It does not connect; call Connect.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: logger,
		dial:   websocket.DefaultDialer.Dial,
		state:  StateDisconnected,
		events: newRegistry(),
		status: newStatusRegistry(),
	}
}

var (
	sharedOnce   sync.Once
	sharedClient *Client
)

// Shared returns the process-wide client, creating it on first call with the
// given config. One physical connection serves every consumer; later calls
// ignore their arguments.
func Shared(cfg Config, logger *slog.Logger) *Client {
	sharedOnce.Do(func() {
		sharedClient = New(cfg, logger)
	})
	return sharedClient
}

// Connect opens the connection. If the socket is already open, target (when
// non-empty) is issued as a subscription on the existing connection and no
// new socket is opened. If a dial is already in flight, target replaces the
// queued subscription intent.
func (c *Client) Connect(target string) {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		if target != "" {
			c.Subscribe(target)
		}
		return
	}
	if c.state == StateConnecting {
		if target != "" {
			c.pending = target
		}
		c.mu.Unlock()
		return
	}
	c.stopReconnectLocked()
	if target != "" {
		c.pending = target
	}
	c.attempts = 0
	notify := c.setStateLocked(StateConnecting)
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	notify()
	go c.dialAndRun(gen)
}

// Disconnect closes the socket, cancels the keepalive and any pending
// reconnect, and clears both subscription slots except the primary. No
// automatic reconnection follows.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	c.stopReconnectLocked()
	if c.keepaliveStop != nil {
		close(c.keepaliveStop)
		c.keepaliveStop = nil
	}
	conn := c.conn
	c.conn = nil
	c.active = ""
	c.pending = ""
	c.attempts = 0
	notify := c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}
	notify()
}

// Subscribe scopes the connection to target's events, superseding any
// previous subscription. Before the socket opens it only records intent; the
// frame is sent when the open flushes it.
func (c *Client) Subscribe(target string) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.pending = target
		c.mu.Unlock()
		return
	}
	c.active = target
	c.mu.Unlock()

	c.writeFrame(conn, outboundFrame{Type: "subscribe", TaskID: target})
}

// Unsubscribe sends an unsubscribe frame for the active target and clears
// both the active target and any queued intent. No-op when nothing is
// subscribed.
func (c *Client) Unsubscribe() {
	c.mu.Lock()
	conn := c.conn
	target := c.active
	c.active = ""
	c.pending = ""
	c.mu.Unlock()

	if conn == nil || target == "" {
		return
	}
	c.writeFrame(conn, outboundFrame{Type: "unsubscribe", TaskID: target})
}

// SubscribeGlobal establishes the standing "observe everything" posture: it
// sets the primary subscription to AllTasks and subscribes to it.
func (c *Client) SubscribeGlobal() {
	c.SetPrimarySubscription(AllTasks)
	c.Subscribe(AllTasks)
}

// SetPrimarySubscription records the target to restore after a reconnect,
// independent of the currently active one. Empty clears it.
func (c *Client) SetPrimarySubscription(target string) {
	c.mu.Lock()
	c.primary = target
	c.mu.Unlock()
}

// PrimarySubscription returns the reconnect-restore target, or "".
func (c *Client) PrimarySubscription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.primary
}

// Command sends a pause/resume/cancel control frame for taskID. Commands
// issued while the socket is not open are dropped: a stale control command
// delivered to a later session has no defined meaning. Effects are observed
// through subsequent events, never a return value.
func (c *Client) Command(taskID string, action Action) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.logger.Debug("command dropped, not connected", "task_id", taskID, "action", string(action))
		return
	}
	c.writeFrame(conn, outboundFrame{Type: "command", TaskID: taskID, Action: string(action)})
}

// On registers fn for events of the given kind (KindAll for every kind) and
// returns a func that removes exactly this registration.
func (c *Client) On(kind Kind, fn func(Event)) func() {
	return c.events.add(kind, fn)
}

// OnStatusChange registers fn for connection-state transitions. fn is
// invoked once with the current state before OnStatusChange returns, so a
// late subscriber never misses the state it joined in.
func (c *Client) OnStatusChange(fn func(State)) func() {
	remove := c.status.add(fn)
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()
	fn(s)
	return remove
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setStateLocked moves to next and returns the observer notification to run
// once the client mutex is released. Self-transitions are no-ops.
func (c *Client) setStateLocked(next State) func() {
	if c.state == next {
		return func() {}
	}
	if !CanTransition(c.state, next) {
		c.logger.Warn("unexpected state transition", "from", c.state.String(), "to", next.String())
	}
	c.state = next
	return func() { c.status.notify(next, c.logger) }
}

func (c *Client) stopReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

func (c *Client) dialAndRun(gen uint64) {
	wsURL, err := deriveWSURL(c.cfg.ServerURL)
	if err != nil {
		c.logger.Error("bad server url", "url", c.cfg.ServerURL, "error", err)
		c.dispatchError("connection error")
		c.handleClosed(gen)
		return
	}

	hdr := http.Header{}
	if c.cfg.Token != "" {
		hdr.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	conn, _, err := c.dial(wsURL, hdr)
	if err != nil {
		c.logger.Warn("websocket dial failed", "url", wsURL, "error", err)
		c.dispatchError("connection error")
		c.handleClosed(gen)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		// Superseded by Disconnect or a newer Connect while dialing.
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.attempts = 0
	pending := c.pending
	c.pending = ""
	if pending != "" {
		c.active = pending
	}
	stop := make(chan struct{})
	c.keepaliveStop = stop
	notify := c.setStateLocked(StateConnected)
	c.mu.Unlock()

	notify()
	c.logger.Info("websocket connected", "url", wsURL)

	if pending != "" {
		c.writeFrame(conn, outboundFrame{Type: "subscribe", TaskID: pending})
	}

	go c.keepalive(conn, stop)
	c.readLoop(conn, gen)
}

// readLoop consumes frames until the connection dies. Dispatch happens here,
// synchronously, so listeners observe frames strictly in arrival order.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := gen != c.gen
			c.mu.Unlock()
			if !stale {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.logger.Warn("websocket read error", "error", err)
				}
				c.dispatchError("connection lost")
				c.handleClosed(gen)
			}
			return
		}
		c.handleFrame(data)
	}
}

// handleClosed tears down the dead connection and, unless the close came
// from Disconnect (stale gen), schedules a reconnect attempt.
func (c *Client) handleClosed(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.keepaliveStop != nil {
		close(c.keepaliveStop)
		c.keepaliveStop = nil
	}
	notifyDown := c.setStateLocked(StateDisconnected)
	notifyRetry := c.scheduleReconnectLocked()
	c.mu.Unlock()

	notifyDown()
	if notifyRetry != nil {
		notifyRetry()
	}
}

// scheduleReconnectLocked arms the backoff timer for the next attempt, or
// gives up silently once the attempt budget is spent.
func (c *Client) scheduleReconnectLocked() func() {
	if c.attempts >= c.cfg.MaxReconnects {
		c.logger.Warn("reconnect attempts exhausted, staying disconnected", "attempts", c.attempts)
		return nil
	}
	c.attempts++
	delay := backoffDelay(c.cfg.BackoffBase, c.attempts)
	notify := c.setStateLocked(StateReconnecting)
	gen := c.gen
	c.reconnect = time.AfterFunc(delay, func() { c.retry(gen) })
	c.logger.Info("reconnecting", "attempt", c.attempts, "delay", delay)
	return notify
}

// backoffDelay returns base·2^(attempt-1) for attempt ≥ 1.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

// retry fires when the backoff wait elapses. The restored subscription is
// the primary if one is set, else the last active target: a standing
// wildcard survives any transient narrow subscription made in between.
func (c *Client) retry(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnect = nil
	target := c.primary
	if target == "" {
		target = c.active
	}
	if target != "" {
		c.pending = target
	}
	notify := c.setStateLocked(StateConnecting)
	c.gen++
	newGen := c.gen
	c.mu.Unlock()

	notify()
	go c.dialAndRun(newGen)
}

func (c *Client) keepalive(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.writeFrame(conn, outboundFrame{Type: "ping"})
		}
	}
}

// handleFrame parses one inbound frame and routes it. Parse failures are
// logged and dropped without touching connection state.
func (c *Client) handleFrame(data []byte) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Debug("dropping malformed frame", "error", err)
		return
	}

	switch f.Type {
	case "event":
		c.dispatch(Event{Kind: f.Event, TaskID: f.TaskID, Data: f.Data, Time: f.Time})
	case "error":
		c.dispatchError(f.Error)
	case "subscribed":
		c.logger.Debug("subscription confirmed", "task_id", f.TaskID)
	case "command_result":
		c.logger.Debug("command acknowledged", "task_id", f.TaskID)
	case "pong":
		// Keepalive acknowledged.
	default:
		c.logger.Debug("ignoring unknown frame", "type", f.Type)
	}
}

func (c *Client) dispatch(ev Event) {
	for _, fn := range c.events.collect(ev.Kind) {
		fn(ev)
	}
}

// dispatchError synthesizes an error-kind event so consumers can surface
// failures without waiting for a close sequence.
func (c *Client) dispatchError(msg string) {
	data, _ := json.Marshal(map[string]string{"message": msg})
	c.dispatch(Event{Kind: KindError, Data: data, Time: time.Now()})
}

func (c *Client) writeFrame(conn *websocket.Conn, f outboundFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		c.logger.Error("marshal frame failed", "type", f.Type, "error", err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("websocket write failed", "type", f.Type, "error", err)
	}
}

// deriveWSURL maps the configured server origin to the socket endpoint:
// http→ws, https→wss, fixed path.
func deriveWSURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = wsPath
	u.RawQuery = ""
	return u.String(), nil
}
