package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// State describes the connection lifecycle as observed by callers.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ErrNotConnected is returned by Send while the connection is down.
var ErrNotConnected = errors.New("realtime: not connected")

// Config holds connection settings.
type Config struct {
	// URL is the websocket endpoint (ws:// or wss://).
	URL string
	// WakeURL, when set, is requested once per manager lifetime before the
	// first dial. The platform spins the realtime service up lazily, so the
	// first client in has to poke it awake.
	WakeURL string
	// Token is the bearer credential passed on the handshake.
	Token string
	// PersonalRoom, when set, is re-joined after every successful
	// (re)connect. Server-side membership does not survive a reconnect.
	PersonalRoom string

	// Reconnect policy. Zero values take the defaults below.
	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

const (
	defaultMaxRetries     = 5
	defaultBaseRetryDelay = 2 * time.Second
	defaultMaxRetryDelay  = 30 * time.Second
)

// Conn owns one persistent connection to the realtime gateway and the
// reconnect policy on top of it. A connected state implies nothing about
// delivery; correctness lives in the idempotent merges downstream.
type Conn struct {
	cfg Config

	mu         sync.Mutex
	ws         *websocket.Conn
	state      State
	generation int
	attempts   int
	woke       bool

	stateMu   sync.Mutex
	stateSubs []func(State)

	onMessage   func([]byte)
	onConnected []func()
}

// NewConn creates a connection manager. It does not dial until Connect.
func NewConn(cfg Config) *Conn {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = defaultBaseRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = defaultMaxRetryDelay
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	return &Conn{cfg: cfg, state: StateDisconnected}
}

// SetMessageHandler installs the inbound frame handler. Frames are
// delivered sequentially from a single reader goroutine.
func (c *Conn) SetMessageHandler(fn func([]byte)) {
	c.onMessage = fn
}

// AddConnectedHandler installs a hook invoked after every successful
// (re)connect, once the personal room has been re-joined. Hooks run in
// registration order.
func (c *Conn) AddConnectedHandler(fn func()) {
	c.onConnected = append(c.onConnected, fn)
}

// OnStateChange registers a state observer. Observers are invoked outside
// the connection lock, in registration order.
func (c *Conn) OnStateChange(fn func(State)) {
	c.stateMu.Lock()
	c.stateSubs = append(c.stateSubs, fn)
	c.stateMu.Unlock()
}

// IsConnected reports whether a live connection is up.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// Connect wakes the service if needed, dials, and starts the read loop.
// An explicit Connect resets the retry budget exhausted by a previous
// reconnect storm.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.attempts = 0
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.setState(StateConnecting)
	if err := c.wake(ctx); err != nil {
		log.Printf("realtime: wake call failed: %v", err)
		// The wake endpoint is best effort; the dial decides.
	}

	if err := c.dial(ctx, gen); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	return nil
}

// Close tears the connection down and stops any reconnect attempt.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.generation++ // invalidate running read/reconnect loops
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	c.setState(StateDisconnected)
	if ws != nil {
		return ws.Close()
	}
	return nil
}

// Send writes one frame. It is safe for concurrent use.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.ws == nil {
		return ErrNotConnected
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// wake performs the one-time bootstrap call that lazily starts the
// realtime service.
func (c *Conn) wake(ctx context.Context) error {
	c.mu.Lock()
	if c.woke || c.cfg.WakeURL == "" {
		c.mu.Unlock()
		return nil
	}
	c.woke = true
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.WakeURL, nil)
	if err != nil {
		return err
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("wake endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Conn) dial(ctx context.Context, gen int) error {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	ws, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if gen != c.generation {
		// Closed while dialing.
		c.mu.Unlock()
		ws.Close()
		return ErrNotConnected
	}
	c.ws = ws
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()

	c.notifyState(StateConnected)
	c.joinPersonalRoom()
	for _, fn := range c.onConnected {
		fn()
	}

	go c.readLoop(ws, gen)
	return nil
}

// joinPersonalRoom re-subscribes the user's notification channel. Issued on
// every successful connect because the server forgets membership across
// reconnects.
func (c *Conn) joinPersonalRoom() {
	if c.cfg.PersonalRoom == "" {
		return
	}
	if err := c.sendControl(&wire.RoomJoin{Room: c.cfg.PersonalRoom}); err != nil {
		log.Printf("realtime: join personal room %s: %v", c.cfg.PersonalRoom, err)
	}
}

// sendControl encodes and sends a control frame (room join/leave).
func (c *Conn) sendControl(ev wire.Event) error {
	data, err := wire.Encode("", ev)
	if err != nil {
		return err
	}
	return c.Send(data)
}

func (c *Conn) readLoop(ws *websocket.Conn, gen int) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := gen != c.generation
			if !stale {
				c.ws = nil
				c.state = StateDisconnected
			}
			c.mu.Unlock()
			if stale {
				return
			}
			log.Printf("realtime: connection lost: %v", err)
			c.notifyState(StateDisconnected)
			go c.reconnect(gen)
			return
		}
		if c.onMessage != nil {
			c.onMessage(data)
		}
	}
}

// reconnect retries with capped exponential delay: base, 2*base, 4*base...
// up to MaxRetryDelay, at most MaxRetries attempts. After the budget is
// spent the manager stays disconnected until an explicit Connect.
func (c *Conn) reconnect(gen int) {
	for {
		c.mu.Lock()
		if gen != c.generation || c.state == StateConnected {
			c.mu.Unlock()
			return
		}
		if c.attempts >= c.cfg.MaxRetries {
			c.mu.Unlock()
			log.Printf("realtime: giving up after %d reconnect attempts", c.cfg.MaxRetries)
			return
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		delay := c.cfg.BaseRetryDelay * time.Duration(1<<uint(attempt-1))
		if delay > c.cfg.MaxRetryDelay {
			delay = c.cfg.MaxRetryDelay
		}
		time.Sleep(delay)

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()
		c.notifyState(StateConnecting)

		if err := c.dial(context.Background(), gen); err != nil {
			log.Printf("realtime: reconnect attempt %d failed: %v", attempt, err)
			c.mu.Lock()
			if gen == c.generation {
				c.state = StateDisconnected
			}
			c.mu.Unlock()
			c.notifyState(StateDisconnected)
			continue
		}
		return
	}
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.notifyState(s)
	}
}

func (c *Conn) notifyState(s State) {
	c.stateMu.Lock()
	subs := make([]func(State), len(c.stateSubs))
	copy(subs, c.stateSubs)
	c.stateMu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}
