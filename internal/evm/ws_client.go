package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// WSClient implements HeadSubscriber using gorilla/websocket.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	logger   logrus.FieldLogger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps the server subscription ID to its channel
	subs   map[string]chan Head
	subsMu sync.RWMutex

	// pending maps request ID to the channel waiting for its result
	pending   map[uint64]chan wsResult
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

type wsResult struct {
	result json.RawMessage
	err    *RPCError
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, logger logrus.FieldLogger) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger.WithField("component", "ws"),
		subs:     make(map[string]chan Head),
		pending:  make(map[uint64]chan wsResult),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	if c.closed.Load() {
		conn.Close()
		return fmt.Errorf("client closed")
	}

	c.conn = conn
	return nil
}

// SubscribeNewHeads subscribes to new block headers.
func (c *WSClient) SubscribeNewHeads(ctx context.Context) (<-chan Head, func(), error) {
	subID, err := c.subscribe(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Heads are wake-up hints. A full channel drops them rather than stalling readLoop.
	ch := make(chan Head, 16)
	c.subsMu.Lock()
	c.subs[subID] = ch
	c.subsMu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.subsMu.Lock()
			var current string
			for id, sub := range c.subs {
				if sub == ch {
					current = id
					delete(c.subs, id)
					break
				}
			}
			c.subsMu.Unlock()

			if current == "" || c.closed.Load() {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), c.config.WriteTimeout)
			defer cancel()
			if _, err := c.request(ctx, "eth_unsubscribe", []interface{}{current}); err != nil {
				c.logger.WithError(err).Debug("unsubscribe failed")
			}
		})
	}

	return ch, release, nil
}

// subscribe sends eth_subscribe newHeads and returns the subscription ID.
func (c *WSClient) subscribe(ctx context.Context) (string, error) {
	raw, err := c.request(ctx, "eth_subscribe", []interface{}{"newHeads"})
	if err != nil {
		return "", fmt.Errorf("subscribe newHeads: %w", err)
	}

	var subID string
	if err := json.Unmarshal(raw, &subID); err != nil || subID == "" {
		return "", fmt.Errorf("subscribe newHeads: invalid subscription id %s", string(raw))
	}
	return subID, nil
}

// request writes a JSON-RPC request and waits for the matching response.
func (c *WSClient) request(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	resCh := make(chan wsResult, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = resCh
	c.pendingMu.Unlock()

	forget := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		forget()
		return nil, fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		forget()
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case res, ok := <-resCh:
		if !ok {
			return nil, fmt.Errorf("client closed")
		}
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	case <-time.After(c.config.SubscribeTimeout):
		forget()
		return nil, fmt.Errorf("%s timeout after %s", method, c.config.SubscribeTimeout)
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from WebSocket and dispatches them.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if !c.reconnecting.Swap(true) {
				go c.reconnect(c.config.ReconnectDelay)
			}
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Drop the failed conn so it is never read again.
			c.connMu.Lock()
			if c.conn == conn {
				c.conn.Close()
				c.conn = nil
			}
			c.connMu.Unlock()

			if !c.reconnecting.Swap(true) {
				c.logger.WithError(err).Warnf("connection lost, reconnecting in %s", c.config.ReconnectDelay)
				go c.reconnect(c.config.ReconnectDelay)
			}
			continue
		}

		c.handleMessage(message)
	}
}

// reconnect dials with exponential backoff until it connects or the client
// is closed, then resubscribes.
func (c *WSClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	for {
		if c.closed.Load() {
			return
		}

		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.connect(ctx)
		cancel()
		if err == nil {
			break
		}

		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
		c.logger.WithError(err).Warnf("reconnect failed, retrying in %s", delay)
	}

	c.resubscribeAll()
}

// resubscribeAll re-creates every live subscription on the new connection
// and moves its channel to the new subscription ID.
func (c *WSClient) resubscribeAll() {
	c.subsMu.RLock()
	channels := make(map[string]chan Head, len(c.subs))
	for id, ch := range c.subs {
		channels[id] = ch
	}
	c.subsMu.RUnlock()

	for oldID, ch := range channels {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := c.subscribe(ctx)
		cancel()

		if err != nil {
			c.logger.WithError(err).Warn("resubscribe failed")
			continue
		}

		c.subsMu.Lock()
		if cur, ok := c.subs[oldID]; ok && cur == ch {
			delete(c.subs, oldID)
			c.subs[newID] = ch
		}
		c.subsMu.Unlock()
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.WithError(err).Debug("ignoring malformed message")
		return
	}

	if msg.Method == "eth_subscription" && msg.Params != nil {
		c.handleHead(msg.Params)
		return
	}

	if msg.ID == nil {
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[*msg.ID]
	if ok {
		delete(c.pending, *msg.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		return
	}

	select {
	case ch <- wsResult{result: msg.Result, err: msg.Error}:
	default:
	}
}

// handleHead dispatches a newHeads notification to its subscriber.
func (c *WSClient) handleHead(params *wsNotificationParams) {
	var header wsHeader
	if err := json.Unmarshal(params.Result, &header); err != nil {
		return
	}

	// Send under the read lock so Close cannot close the channel mid-send.
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	ch, ok := c.subs[params.Subscription]
	if !ok {
		return
	}

	select {
	case ch <- Head{Number: uint64(header.Number), Hash: header.Hash}:
	default:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.logger.WithError(err).Debug("ping failed")
				}
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage covers both responses (ID set) and notifications (Method set).
type wsMessage struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *uint64               `json:"id,omitempty"`
	Method  string                `json:"method,omitempty"`
	Result  json.RawMessage       `json:"result,omitempty"`
	Error   *RPCError             `json:"error,omitempty"`
	Params  *wsNotificationParams `json:"params,omitempty"`
}

type wsNotificationParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type wsHeader struct {
	Number hexutil.Uint64 `json:"number"`
	Hash   string         `json:"hash"`
}
