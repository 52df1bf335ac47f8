package winhost

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	helloTimeout = 10 * time.Second
	writeTimeout = 5 * time.Second
)

// ErrPeerGone is returned when a window disconnects before answering.
var ErrPeerGone = errors.New("window disconnected")

// InvokeFunc handles an operation a child window asks the host to perform.
type InvokeFunc func(ctx context.Context, from string, op string, args Args) (Args, error)

// Hub accepts bridge connections from child windows.
type Hub struct {
	issuer   *TokenIssuer
	upgrader websocket.Upgrader

	mu      sync.Mutex
	peers   map[string]*Peer
	waiters map[string][]chan *Peer
	onGone  func(label string, pid int)
	invoke  InvokeFunc
}

// NewHub creates a hub that admits tokens signed by issuer.
func NewHub(issuer *TokenIssuer) *Hub {
	return &Hub{
		issuer:  issuer,
		peers:   make(map[string]*Peer),
		waiters: make(map[string][]chan *Peer),
	}
}

// OnDisconnect registers fn to run after a window's connection closes.
func (h *Hub) OnDisconnect(fn func(label string, pid int)) {
	h.mu.Lock()
	h.onGone = fn
	h.mu.Unlock()
}

// OnInvoke registers the handler for operations forwarded by children.
func (h *Hub) OnInvoke(fn InvokeFunc) {
	h.mu.Lock()
	h.invoke = fn
	h.mu.Unlock()
}

func (h *Hub) invoker() InvokeFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invoke
}

// HandleWebSocket upgrades an authenticated child connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	label, err := h.issuer.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Bridge] Upgrade failed for %q: %v", label, err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("[Bridge] No hello from %q: %v", label, err)
		conn.Close()
		return
	}
	hello, err := Decode(data)
	if err != nil || hello.Type != TypeHello || hello.Label != label {
		log.Printf("[Bridge] Bad hello from %q", label)
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	p := newPeer(label, hello.PID, conn, h.invoker)
	h.register(p)
	log.Printf("[Bridge] Window %q connected (PID %d)", label, p.pid)

	p.readLoop()
	h.unregister(p)
	log.Printf("[Bridge] Window %q disconnected", label)
}

func (h *Hub) lookup(label string) (*Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.peers[label]
	return p, ok
}

func (h *Hub) labels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	labels := make([]string, 0, len(h.peers))
	for label := range h.peers {
		labels = append(labels, label)
	}
	return labels
}

// WaitFor blocks until the window with label connects.
func (h *Hub) WaitFor(ctx context.Context, label string) (*Peer, error) {
	h.mu.Lock()
	if p, ok := h.peers[label]; ok {
		h.mu.Unlock()
		return p, nil
	}
	ch := make(chan *Peer, 1)
	h.waiters[label] = append(h.waiters[label], ch)
	h.mu.Unlock()

	select {
	case p := <-ch:
		return p, nil
	case <-ctx.Done():
		h.mu.Lock()
		waiters := h.waiters[label]
		for i, w := range waiters {
			if w == ch {
				h.waiters[label] = append(waiters[:i], waiters[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
		return nil, fmt.Errorf("wait for window %q: %w", label, ctx.Err())
	}
}

// Close disconnects every window.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.conn.Close()
	}
}

func (h *Hub) register(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.peers[p.label]; ok {
		old.conn.Close()
	}
	h.peers[p.label] = p
	for _, ch := range h.waiters[p.label] {
		ch <- p
	}
	delete(h.waiters, p.label)
}

func (h *Hub) unregister(p *Peer) {
	h.mu.Lock()
	if h.peers[p.label] == p {
		delete(h.peers, p.label)
	}
	onGone := h.onGone
	h.mu.Unlock()

	if onGone != nil {
		onGone(p.label, p.pid)
	}
}

// Peer is the host's end of one window connection.
type Peer struct {
	label string
	pid   int
	conn  *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *Message
	done    chan struct{}
	invoker func() InvokeFunc
}

func newPeer(label string, pid int, conn *websocket.Conn, invoker func() InvokeFunc) *Peer {
	return &Peer{
		label:   label,
		pid:     pid,
		conn:    conn,
		pending: make(map[string]chan *Message),
		done:    make(chan struct{}),
		invoker: invoker,
	}
}

func (p *Peer) Label() string { return p.label }

// PID is the child process ID reported in the hello frame.
func (p *Peer) PID() int { return p.pid }

// Done is closed when the connection ends.
func (p *Peer) Done() <-chan struct{} { return p.done }

// Call sends a command and waits for its reply.
func (p *Peer) Call(ctx context.Context, command string, args Args) (Args, error) {
	id := uuid.NewString()
	ch := make(chan *Message, 1)

	p.mu.Lock()
	select {
	case <-p.done:
		p.mu.Unlock()
		return Args{}, ErrPeerGone
	default:
	}
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	if err := p.write(&Message{ID: id, Type: TypeCommand, Label: p.label, Command: command, Args: args}); err != nil {
		return Args{}, fmt.Errorf("send %s to %q: %w", command, p.label, err)
	}

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return reply.Result, fmt.Errorf("%s on %q: %s", command, p.label, reply.Error)
		}
		return reply.Result, nil
	case <-p.done:
		return Args{}, ErrPeerGone
	case <-ctx.Done():
		return Args{}, ctx.Err()
	}
}

func (p *Peer) write(m *Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *Peer) readLoop() {
	defer func() {
		p.mu.Lock()
		close(p.done)
		p.mu.Unlock()
		p.conn.Close()
	}()

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Bridge] Read from %q: %v", p.label, err)
			}
			return
		}
		m, err := Decode(data)
		if err != nil {
			log.Printf("[Bridge] Bad frame from %q: %v", p.label, err)
			continue
		}

		switch m.Type {
		case TypeReply:
			p.mu.Lock()
			ch, ok := p.pending[m.ID]
			p.mu.Unlock()
			if ok {
				ch <- m
			}
		case TypeInvoke:
			go p.serveInvoke(m)
		case TypeShutdown:
			log.Printf("[Bridge] Window %q shutting down", p.label)
		case TypeEvent:
			log.Printf("[Bridge] Event from %q: %s", p.label, m.Command)
		}
	}
}

// serveInvoke runs a child's operation and replies with its result. The
// operation is cancelled if the child disconnects.
func (p *Peer) serveInvoke(m *Message) {
	reply := &Message{ID: m.ID, Type: TypeReply, Label: p.label, Command: m.Command}

	fn := p.invoker()
	if fn == nil {
		reply.Error = "window operations are not available"
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-p.done:
				cancel()
			case <-ctx.Done():
			}
		}()
		result, err := fn(ctx, p.label, m.Command, m.Args)
		cancel()
		reply.Result = result
		if err != nil {
			reply.Error = err.Error()
		}
	}

	if err := p.write(reply); err != nil {
		log.Printf("[Bridge] Reply to %q for %s: %v", p.label, m.Command, err)
	}
}
