package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePeer is a loopback language server speaking newline-delimited JSON.
// The handle callback decides how (and whether) to answer each envelope;
// send may be called from any goroutine.
type fakePeer struct {
	ln net.Listener

	mu      sync.Mutex
	methods []string
}

func startPeer(t *testing.T, handle func(env *envelope, send func(*envelope))) *fakePeer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	p := &fakePeer{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go p.serve(conn, handle)
		}
	}()
	return p
}

func (p *fakePeer) serve(conn net.Conn, handle func(*envelope, func(*envelope))) {
	var writeMu sync.Mutex
	send := func(env *envelope) {
		data, err := json.Marshal(env)
		if err != nil {
			return
		}
		writeMu.Lock()
		_, _ = conn.Write(append(data, '\n'))
		writeMu.Unlock()
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var env envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			continue
		}
		p.mu.Lock()
		p.methods = append(p.methods, env.Method)
		p.mu.Unlock()
		handle(&env, send)
	}
}

func (p *fakePeer) sawMethod(method string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.methods {
		if m == method {
			return true
		}
	}
	return false
}

func (p *fakePeer) port() int {
	return p.ln.Addr().(*net.TCPAddr).Port
}

// echoHandler answers every request immediately with an empty result.
func echoHandler(env *envelope, send func(*envelope)) {
	if env.ID == nil {
		return
	}
	send(&envelope{ProtocolVersion: protocolVersion, ID: env.ID, Result: json.RawMessage(`{}`)})
}

func newTestClient(p *fakePeer) *Client {
	return &Client{Host: "127.0.0.1", Port: p.port(), ProjectRoot: "/proj"}
}

func TestConnect_Handshake(t *testing.T) {
	peer := startPeer(t, echoHandler)
	c := newTestClient(peer)

	require.True(t, c.Connect(context.Background()))
	require.True(t, c.IsConnected())

	// The handshake ends with the initialized notification.
	require.Eventually(t, func() bool { return peer.sawMethod("initialized") },
		time.Second, 10*time.Millisecond)
}

func TestConnect_AlreadyInitialized(t *testing.T) {
	peer := startPeer(t, echoHandler)
	c := newTestClient(peer)

	require.True(t, c.Connect(context.Background()))
	// Second connect skips the handshake and reports true.
	require.True(t, c.Connect(context.Background()))
}

func TestConnect_NoPeer(t *testing.T) {
	// Grab a port with nothing listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c := &Client{Host: "127.0.0.1", Port: port, ProjectRoot: "/proj"}
	require.False(t, c.Connect(context.Background()))
	require.False(t, c.IsConnected())
}

func TestRequest_BeforeConnect(t *testing.T) {
	c := &Client{Host: "127.0.0.1", Port: 1, ProjectRoot: "/proj"}
	_, err := c.Request(context.Background(), "ping", nil, time.Second)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestRequest_CorrelationIDs(t *testing.T) {
	var mu sync.Mutex
	var ids []int64
	peer := startPeer(t, func(env *envelope, send func(*envelope)) {
		if env.ID == nil {
			return
		}
		mu.Lock()
		ids = append(ids, *env.ID)
		mu.Unlock()
		// Echo the id back so each caller can verify it got its own reply.
		body, _ := json.Marshal(map[string]int64{"id": *env.ID})
		send(&envelope{ProtocolVersion: protocolVersion, ID: env.ID, Result: body})
	})
	c := newTestClient(peer)
	require.True(t, c.Connect(context.Background()))

	const n = 8
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := c.Request(context.Background(), "ping", nil, time.Second)
			errCh <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errCh)
	}

	mu.Lock()
	defer mu.Unlock()
	// initialize consumed id 1; the n requests got 2..n+1, all distinct.
	seen := map[int64]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "correlation id %d reused", id)
		seen[id] = true
	}
	require.Len(t, ids, n+1)
}

func TestRequest_TimeoutThenLateReply(t *testing.T) {
	var mu sync.Mutex
	delay := false
	peer := startPeer(t, func(env *envelope, send func(*envelope)) {
		if env.ID == nil {
			return
		}
		mu.Lock()
		d := delay
		mu.Unlock()
		reply := &envelope{ProtocolVersion: protocolVersion, ID: env.ID, Result: json.RawMessage(`{}`)}
		if d {
			go func() {
				time.Sleep(300 * time.Millisecond)
				send(reply)
			}()
			return
		}
		send(reply)
	})
	c := newTestClient(peer)
	require.True(t, c.Connect(context.Background()))

	mu.Lock()
	delay = true
	mu.Unlock()
	_, err := c.Request(context.Background(), "slow", nil, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	// Let the late reply arrive; it must be discarded without breaking
	// the connection or later requests.
	time.Sleep(400 * time.Millisecond)
	mu.Lock()
	delay = false
	mu.Unlock()

	_, err = c.Request(context.Background(), "fast", nil, time.Second)
	require.NoError(t, err)
	require.True(t, c.IsConnected())
}

func TestReadLoop_UnmatchedResponseDropped(t *testing.T) {
	peer := startPeer(t, func(env *envelope, send func(*envelope)) {
		if env.ID == nil {
			return
		}
		// Send a response nobody asked for, then the real one.
		bogus := int64(9999)
		send(&envelope{ProtocolVersion: protocolVersion, ID: &bogus, Result: json.RawMessage(`{}`)})
		send(&envelope{ProtocolVersion: protocolVersion, ID: env.ID, Result: json.RawMessage(`{"ok":true}`)})
	})
	c := newTestClient(peer)
	require.True(t, c.Connect(context.Background()))

	payload, err := c.Request(context.Background(), "ping", nil, time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(payload))
}

func TestReadLoop_MalformedLineIgnored(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var env envelope
			if json.Unmarshal(scanner.Bytes(), &env) != nil || env.ID == nil {
				continue
			}
			// Garbage before every reply; the reader must step over it.
			_, _ = conn.Write([]byte("{this is not json\n"))
			data, _ := json.Marshal(envelope{ProtocolVersion: protocolVersion, ID: env.ID, Result: json.RawMessage(`{}`)})
			_, _ = conn.Write(append(data, '\n'))
		}
	}()

	c := &Client{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port, ProjectRoot: "/proj"}
	require.True(t, c.Connect(context.Background()))

	_, err = c.Request(context.Background(), "ping", nil, time.Second)
	require.NoError(t, err)
	require.True(t, c.IsConnected())
}

func TestNotification_Dispatched(t *testing.T) {
	peer := startPeer(t, func(env *envelope, send func(*envelope)) {
		if env.ID == nil {
			return
		}
		if env.Method == "initialize" {
			send(&envelope{ProtocolVersion: protocolVersion, ID: env.ID, Result: json.RawMessage(`{}`)})
			// Out-of-band notification after the handshake reply.
			send(&envelope{ProtocolVersion: protocolVersion, Method: "peer/event", Params: json.RawMessage(`{"n":1}`)})
			return
		}
		send(&envelope{ProtocolVersion: protocolVersion, ID: env.ID, Result: json.RawMessage(`{}`)})
	})

	got := make(chan string, 1)
	c := newTestClient(peer)
	c.OnNotification = func(method string, params json.RawMessage) {
		select {
		case got <- method:
		default:
		}
	}
	require.True(t, c.Connect(context.Background()))

	select {
	case m := <-got:
		require.Equal(t, "peer/event", m)
	case <-time.After(time.Second):
		t.Fatal("notification not dispatched")
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	peer := startPeer(t, echoHandler)
	c := newTestClient(peer)
	require.True(t, c.Connect(context.Background()))

	c.Disconnect()
	require.False(t, c.IsConnected())
	c.Disconnect() // second call is a no-op
	require.False(t, c.IsConnected())
}

func TestDisconnect_FailsPending(t *testing.T) {
	peer := startPeer(t, func(env *envelope, send func(*envelope)) {
		if env.ID == nil {
			return
		}
		if env.Method == "initialize" {
			send(&envelope{ProtocolVersion: protocolVersion, ID: env.ID, Result: json.RawMessage(`{}`)})
			return
		}
		// Never answer anything else.
	})
	c := newTestClient(peer)
	require.True(t, c.Connect(context.Background()))

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), "hang", nil, 5*time.Second)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	c.Disconnect()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrNotConnected)
	case <-time.After(time.Second):
		t.Fatal("pending request leaked across disconnect")
	}
}

func TestReconnect_AfterDisconnect(t *testing.T) {
	peer := startPeer(t, echoHandler)
	c := newTestClient(peer)

	require.True(t, c.Connect(context.Background()))
	c.Disconnect()
	require.True(t, c.Connect(context.Background()))
	require.True(t, c.IsConnected())
}
