package winhost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type bridgeFixture struct {
	hub    *Hub
	issuer *TokenIssuer
	url    string
}

func newBridge(t *testing.T) *bridgeFixture {
	t.Helper()
	issuer, err := NewTokenIssuer()
	if err != nil {
		t.Fatal(err)
	}
	hub := NewHub(issuer)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &bridgeFixture{
		hub:    hub,
		issuer: issuer,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

// connect dials the hub as a child window serving fn.
func (b *bridgeFixture) connect(t *testing.T, label string, pid int, fn CommandFunc) (*Client, context.CancelFunc) {
	t.Helper()
	token, err := b.issuer.Issue(label)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Dial(context.Background(), b.url, token, label, pid)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go c.Serve(ctx, fn)
	t.Cleanup(cancel)
	return c, cancel
}

func echoSize(_ context.Context, command string, args Args) (Args, error) {
	switch command {
	case CmdGetSize:
		return Args{Width: 840, Height: 725}, nil
	case CmdSetPosition:
		return args, nil
	case "boom":
		return Args{}, errors.New("kaboom")
	}
	return Args{}, nil
}

func waitPeer(t *testing.T, hub *Hub, label string) *Peer {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := hub.WaitFor(ctx, label)
	if err != nil {
		t.Fatalf("WaitFor(%q) error = %v", label, err)
	}
	return p
}

func TestHubCallRoundTrip(t *testing.T) {
	b := newBridge(t)
	b.connect(t, "Settings", 4242, echoSize)
	p := waitPeer(t, b.hub, "Settings")

	if p.PID() != 4242 || p.Label() != "Settings" {
		t.Errorf("peer = %q/%d", p.Label(), p.PID())
	}
	if labels := b.hub.labels(); len(labels) != 1 || labels[0] != "Settings" {
		t.Errorf("Labels() = %v", labels)
	}

	ctx := context.Background()
	res, err := p.Call(ctx, CmdGetSize, Args{})
	if err != nil || res.Width != 840 || res.Height != 725 {
		t.Fatalf("Call(get_size) = %+v, %v", res, err)
	}
	res, err = p.Call(ctx, CmdSetPosition, Args{X: -20, Y: 15})
	if err != nil || res.X != -20 || res.Y != 15 {
		t.Fatalf("Call(set_position) = %+v, %v", res, err)
	}
	if _, err := p.Call(ctx, "boom", Args{}); err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Call(boom) err = %v", err)
	}
}

func TestHubRejectsBadToken(t *testing.T) {
	b := newBridge(t)
	_, err := Dial(context.Background(), b.url, "forged", "x", 1)
	if err == nil {
		t.Fatal("Dial with forged token succeeded")
	}
}

func TestHubRejectsLabelMismatch(t *testing.T) {
	b := newBridge(t)
	token, _ := b.issuer.Issue("Toolbar")
	c, err := Dial(context.Background(), b.url, token, "Impostor", 1)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := b.hub.WaitFor(ctx, "Impostor"); err == nil {
		t.Fatal("mismatched hello registered a peer")
	}
	if _, ok := b.hub.lookup("Toolbar"); ok {
		t.Fatal("mismatched hello registered under the token label")
	}
}

func TestHubDisconnect(t *testing.T) {
	b := newBridge(t)
	gone := make(chan string, 1)
	b.hub.OnDisconnect(func(label string, pid int) { gone <- label })

	c, _ := b.connect(t, "About", 7, echoSize)
	p := waitPeer(t, b.hub, "About")

	c.Shutdown()
	select {
	case label := <-gone:
		if label != "About" {
			t.Errorf("disconnected label = %q", label)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no disconnect callback")
	}

	<-p.Done()
	if _, err := p.Call(context.Background(), CmdShow, Args{}); !errors.Is(err, ErrPeerGone) {
		t.Errorf("Call after disconnect err = %v, want ErrPeerGone", err)
	}
	if _, ok := b.hub.lookup("About"); ok {
		t.Error("peer still registered")
	}
}

func TestWaitForTimeout(t *testing.T) {
	b := newBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := b.hub.WaitFor(ctx, "never"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}
