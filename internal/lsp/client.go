package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Request ceilings. The handshake gets a longer window than ordinary
// calls because the peer may still be loading the project.
const (
	DefaultRequestTimeout = 10 * time.Second
	initializeTimeout     = 30 * time.Second
)

// Sentinel failures surfaced by Request.
var (
	// ErrTimeout means no matching response arrived within the ceiling.
	// The pending entry is retired; a late reply is discarded.
	ErrTimeout = errors.New("request timed out")
	// ErrNotConnected means Request was called with no established
	// connection, or the connection dropped while waiting.
	ErrNotConnected = errors.New("not connected")
)

// State is the connection lifecycle of a Client.
type State int

const (
	Disconnected State = iota
	Connecting
	Initialized
)

// Client maintains one connection to the script language server. All
// in-flight requests share the socket and the pending map; mutation of
// the map is serialized by mu, and whoever removes an entry owns its
// reply channel.
type Client struct {
	Host        string
	Port        int
	ProjectRoot string
	Log         *zap.SugaredLogger

	// OnNotification, when set, receives unsolicited method calls from
	// the peer. Invoked from the reader goroutine.
	OnNotification func(method string, params json.RawMessage)

	mu      sync.Mutex
	state   State
	conn    net.Conn
	nextID  int64
	pending map[int64]chan json.RawMessage

	writeMu sync.Mutex
}

// Connect dials the peer and performs the handshake: an initialize
// request followed by an initialized notification. It reports whether the
// client reached the Initialized state; on any failure the client is left
// Disconnected. Calling Connect on an initialized client is a no-op that
// returns true. At most one attempt is in flight at a time.
func (c *Client) Connect(ctx context.Context) bool {
	c.mu.Lock()
	switch c.state {
	case Initialized:
		c.mu.Unlock()
		return true
	case Connecting:
		c.mu.Unlock()
		return false
	}
	c.state = Connecting
	c.mu.Unlock()

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.logger().Debugw("dial failed", "addr", addr, "err", err)
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		return false
	}

	c.mu.Lock()
	c.conn = conn
	c.nextID = 0
	c.pending = make(map[int64]chan json.RawMessage)
	c.mu.Unlock()

	go c.readLoop(conn)

	params := initializeParams{
		ProcessID:    os.Getpid(),
		RootURI:      "file://" + c.ProjectRoot,
		Capabilities: map[string]any{},
	}
	if _, err := c.roundTrip(ctx, "initialize", params, initializeTimeout); err != nil {
		c.logger().Debugw("handshake failed", "err", err)
		c.Disconnect()
		return false
	}
	if err := c.Notify("initialized", struct{}{}); err != nil {
		c.Disconnect()
		return false
	}

	c.mu.Lock()
	// Disconnect may have raced in while the handshake completed.
	if c.conn != conn {
		c.mu.Unlock()
		return false
	}
	c.state = Initialized
	c.mu.Unlock()
	c.logger().Debugw("connected", "addr", addr)
	return true
}

// IsConnected reports whether the handshake has completed and the
// connection is still up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Initialized
}

// Disconnect closes the connection and fails all pending requests.
// Safe to call repeatedly and from any goroutine.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == Disconnected && c.conn == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	pending := c.pending
	c.conn = nil
	c.pending = nil
	c.state = Disconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	// Closing the reply channels wakes waiters with ErrNotConnected.
	for _, ch := range pending {
		close(ch)
	}
}

// Request sends a correlated request and waits for the matching response
// or the timeout, whichever comes first. A timeout of 0 uses the default
// ceiling. Requires an established connection.
func (c *Client) Request(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	c.mu.Lock()
	ready := c.state == Initialized
	c.mu.Unlock()
	if !ready {
		return nil, ErrNotConnected
	}
	return c.roundTrip(ctx, method, params, timeout)
}

// roundTrip is Request without the state gate, shared with the handshake.
func (c *Client) roundTrip(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshalling params: %w", err)
	}

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan json.RawMessage, 1)
	c.pending[id] = ch
	conn := c.conn
	c.mu.Unlock()

	env := envelope{ProtocolVersion: protocolVersion, ID: &id, Method: method, Params: raw}
	if err := c.write(conn, &env); err != nil {
		c.retire(id)
		return nil, fmt.Errorf("writing request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		return payload, nil
	case <-timer.C:
		if c.retire(id) {
			return nil, ErrTimeout
		}
		// The response won the race: the reader already removed the
		// entry and a payload is in (or about to hit) the channel.
		payload, ok := <-ch
		if !ok {
			return nil, ErrNotConnected
		}
		return payload, nil
	case <-ctx.Done():
		c.retire(id)
		return nil, ctx.Err()
	}
}

// retire removes a pending entry, reporting whether it was still present.
// Only the caller that observes true owns the abandoned channel.
func (c *Client) retire(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return false
	}
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// Notify sends a fire-and-forget method call; no response is expected.
func (c *Client) Notify(method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshalling params: %w", err)
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	env := envelope{ProtocolVersion: protocolVersion, Method: method, Params: raw}
	return c.write(conn, &env)
}

// write serializes one envelope plus the newline delimiter. Concurrent
// writers are serialized so envelopes never interleave on the wire.
func (c *Client) write(conn net.Conn, env *envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshalling envelope: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = conn.Write(data)
	return err
}

// readLoop splits the stream on newlines and demultiplexes envelopes to
// pending callers. Malformed lines and unmatched ids are dropped; one bad
// frame never tears down the connection. Exits when the socket closes,
// failing whatever is still pending.
func (c *Client) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			c.logger().Debugw("dropping malformed envelope", "err", err)
			continue
		}
		if env.ID == nil {
			if env.Method != "" && c.OnNotification != nil {
				c.OnNotification(env.Method, env.Params)
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*env.ID]
		if ok {
			delete(c.pending, *env.ID)
		}
		c.mu.Unlock()
		if !ok {
			// Unsolicited id, or a response to a request that already
			// timed out.
			continue
		}
		ch <- env.payload()
	}

	// Socket gone. Tear down unless a newer connection replaced this one.
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.Disconnect()
}

func (c *Client) logger() *zap.SugaredLogger {
	if c.Log != nil {
		return c.Log
	}
	return zap.NewNop().Sugar()
}
