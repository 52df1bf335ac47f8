package window

import "math"

const (
	defaultWidth         = 840
	defaultHeight        = 725
	defaultHeightWindows = 755

	smallWidth  = 800
	smallHeight = 500

	fullHeightInsetWindows = 100

	cascadeStep = 20
)

// Monitor is a display in physical pixels.
type Monitor struct {
	Name    string
	Primary bool
	X       int
	Y       int
	Width   int
	Height  int
	Scale   float64
}

// Rect is a position and size.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Logical converts the monitor to logical units using its scale factor.
func (m Monitor) Logical() Monitor {
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	return Monitor{
		Name:    m.Name,
		Primary: m.Primary,
		X:       int(math.Round(float64(m.X) / scale)),
		Y:       int(math.Round(float64(m.Y) / scale)),
		Width:   int(math.Round(float64(m.Width) / scale)),
		Height:  int(math.Round(float64(m.Height) / scale)),
		Scale:   1,
	}
}

// PickMonitor returns the primary monitor, else the first one.
func PickMonitor(mons []Monitor) (Monitor, error) {
	for _, m := range mons {
		if m.Primary {
			return m, nil
		}
	}
	if len(mons) == 0 {
		return Monitor{}, ErrNoMonitor
	}
	return mons[0], nil
}

// DefaultSize is the size used by OpenWindow when none is given.
func DefaultSize(goos string) (int, int) {
	if goos == "windows" {
		return defaultWidth, defaultHeightWindows
	}
	return defaultWidth, defaultHeight
}

// CascadeOffset shifts the n-th window so stacked windows stay visible.
// Odd counts move up and left, even counts down and right.
func CascadeOffset(count int) int {
	offset := count * cascadeStep
	if count%2 != 0 {
		return -offset
	}
	return offset
}

// Centered returns the top-left corner that centres a w x h window on mon.
func Centered(mon Monitor, w, h int) (int, int) {
	return mon.X + (mon.Width-w)/2, mon.Y + (mon.Height-h)/2
}

// FullSize is the size of a window covering the logical monitor. Windows
// keeps room for the taskbar.
func FullSize(mon Monitor, goos string) (int, int) {
	l := mon.Logical()
	h := l.Height
	if goos == "windows" {
		h -= fullHeightInsetWindows
	}
	return l.Width, h
}
