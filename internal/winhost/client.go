package winhost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// InvokeTimeout bounds a window operation forwarded to the host. Opening a
// window includes spawning its process.
const InvokeTimeout = 45 * time.Second

// CommandFunc executes a bridge command inside a child window.
type CommandFunc func(ctx context.Context, command string, args Args) (Args, error)

// Client is the child's end of the bridge.
type Client struct {
	label   string
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *Message
	closed  bool
}

// Dial connects to the hub at hubURL and announces the window.
func Dial(ctx context.Context, hubURL, token, label string, pid int) (*Client, error) {
	u, err := url.Parse(hubURL)
	if err != nil {
		return nil, fmt.Errorf("parse hub url: %w", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial hub: %w", err)
	}

	c := &Client{label: label, conn: conn, pending: make(map[string]chan *Message)}
	if err := c.send(&Message{Type: TypeHello, Label: label, PID: pid}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}
	return c, nil
}

// Label is the window label announced in the hello frame.
func (c *Client) Label() string { return c.label }

// Serve answers commands until the connection closes or ctx is done. It also
// delivers the replies to Invoke, so Invoke needs Serve to be running.
func (c *Client) Serve(ctx context.Context, fn CommandFunc) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()
	defer c.failPending()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		m, err := Decode(data)
		if err != nil {
			continue
		}
		if m.Type == TypeReply {
			c.deliver(m)
			continue
		}
		if m.Type != TypeCommand {
			continue
		}

		result, err := fn(ctx, m.Command, m.Args)
		reply := &Message{ID: m.ID, Type: TypeReply, Label: c.label, Command: m.Command, Result: result}
		if err != nil {
			reply.Error = err.Error()
		}
		if err := c.send(reply); err != nil {
			return err
		}
	}
}

// Invoke asks the host to perform a window operation and waits for its result.
func (c *Client) Invoke(ctx context.Context, op string, args Args) (Args, error) {
	id := uuid.NewString()
	ch := make(chan *Message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Args{}, ErrPeerGone
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(&Message{ID: id, Type: TypeInvoke, Label: c.label, Command: op, Args: args}); err != nil {
		return Args{}, fmt.Errorf("send %s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, InvokeTimeout)
	defer cancel()

	select {
	case reply, ok := <-ch:
		if !ok {
			return Args{}, ErrPeerGone
		}
		if reply.Error != "" {
			return reply.Result, fmt.Errorf("%s: %s", op, reply.Error)
		}
		return reply.Result, nil
	case <-ctx.Done():
		return Args{}, ctx.Err()
	}
}

func (c *Client) deliver(m *Message) {
	c.mu.Lock()
	ch, ok := c.pending[m.ID]
	if ok {
		delete(c.pending, m.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- m
	}
}

func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Shutdown tells the host the window is closing and disconnects.
func (c *Client) Shutdown() {
	_ = c.send(&Message{Type: TypeShutdown, Label: c.label})
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.conn.Close()
}

func (c *Client) send(m *Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
