package winhost

import (
	"context"
	"fmt"
	"log"

	"github.com/awsl-project/deskshell/internal/window"
)

// Invoker sends a window operation to the host.
type Invoker interface {
	Invoke(ctx context.Context, op string, args Args) (Args, error)
}

// RemoteWindows performs window operations from a child window by
// forwarding them to the main process.
type RemoteWindows struct {
	inv Invoker
}

// NewRemoteWindows creates window operations backed by inv.
func NewRemoteWindows(inv Invoker) *RemoteWindows {
	return &RemoteWindows{inv: inv}
}

var _ window.Operations = (*RemoteWindows)(nil)

func (r *RemoteWindows) OpenWindow(ctx context.Context, label, url string, width, height int) error {
	return r.call(ctx, OpOpenWindow, Args{Name: label, URL: url, Width: width, Height: height})
}

func (r *RemoteWindows) OpenFullWindow(ctx context.Context, label, url string) error {
	return r.call(ctx, OpOpenFull, Args{Name: label, URL: url})
}

func (r *RemoteWindows) OpenSmallWindow(ctx context.Context, label, url string) error {
	return r.call(ctx, OpOpenSmall, Args{Name: label, URL: url})
}

func (r *RemoteWindows) Lock(ctx context.Context, labels ...string) error {
	return r.call(ctx, OpLock, Args{Labels: labels})
}

func (r *RemoteWindows) Unlock(ctx context.Context, labels ...string) error {
	return r.call(ctx, OpUnlock, Args{Labels: labels})
}

func (r *RemoteWindows) Close(ctx context.Context, label string) error {
	return r.call(ctx, OpClose, Args{Name: label})
}

func (r *RemoteWindows) ShowToolbar(ctx context.Context) error {
	return r.call(ctx, OpShowToolbar, Args{})
}

func (r *RemoteWindows) ToggleToolbar(ctx context.Context) error {
	return r.call(ctx, OpToggleToolbar, Args{})
}

func (r *RemoteWindows) call(ctx context.Context, op string, args Args) error {
	_, err := r.inv.Invoke(ctx, op, args)
	return err
}

// ServeOperations answers forwarded window operations with ops.
func ServeOperations(ops window.Operations) InvokeFunc {
	return func(ctx context.Context, from, op string, args Args) (Args, error) {
		log.Printf("[Bridge] %s requested by %q", op, from)

		var err error
		switch op {
		case OpOpenWindow:
			err = ops.OpenWindow(ctx, args.Name, args.URL, args.Width, args.Height)
		case OpOpenFull:
			err = ops.OpenFullWindow(ctx, args.Name, args.URL)
		case OpOpenSmall:
			err = ops.OpenSmallWindow(ctx, args.Name, args.URL)
		case OpLock:
			err = ops.Lock(ctx, args.Labels...)
		case OpUnlock:
			err = ops.Unlock(ctx, args.Labels...)
		case OpClose:
			err = ops.Close(ctx, args.Name)
		case OpShowToolbar:
			err = ops.ShowToolbar(ctx)
		case OpToggleToolbar:
			err = ops.ToggleToolbar(ctx)
		default:
			return Args{}, fmt.Errorf("unknown operation %q", op)
		}
		return Args{}, err
	}
}
