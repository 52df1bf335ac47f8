//go:build linux

package shortcut

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// x11Registrar grabs keys on the X11 root window.
type x11Registrar struct {
	mu   sync.Mutex
	xu   *xgbutil.XUtil
	root xproto.Window
}

// NewRegistrar connects to the X server named by $DISPLAY and starts its
// event loop. Wayland sessions without XWayland get ErrUnsupported.
func NewRegistrar() (Registrar, error) {
	if os.Getenv("DISPLAY") == "" {
		return unsupported{}, ErrUnsupported
	}
	xu, err := xgbutil.NewConn()
	if err != nil {
		return unsupported{}, fmt.Errorf("connect to X server: %w", err)
	}
	keybind.Initialize(xu)
	configureIgnoreMods(xu)

	r := &x11Registrar{xu: xu, root: xu.RootWin()}
	go xevent.Main(xu)
	return r, nil
}

func (r *x11Registrar) Register(a Accelerator, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return keybind.KeyPressFun(func(*xgbutil.XUtil, xevent.KeyPressEvent) {
		fn()
	}).Connect(r.xu, r.root, a.X11(), true)
}

func (r *x11Registrar) UnregisterAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	keybind.Detach(r.xu, r.root)
	return nil
}

func (r *x11Registrar) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	xevent.Quit(r.xu)
	r.xu.Conn().Close()
}

// configureIgnoreMods makes bindings fire regardless of CapsLock and
// NumLock state.
func configureIgnoreMods(xu *xgbutil.XUtil) {
	caps := uint16(xproto.ModMaskLock)
	numLock := modMaskForKeysym(xu, "Num_Lock")

	ignore := []uint16{0, caps}
	if numLock != 0 && numLock != caps {
		ignore = append(ignore, numLock, numLock|caps)
	}
	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
