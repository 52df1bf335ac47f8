// Package winhost runs secondary windows as child processes of the shell
// and drives them over a loopback websocket bridge.
package winhost

import (
	"github.com/bytedance/sonic"
)

// Message types on the bridge.
const (
	TypeHello    = "hello"    // child -> host, first frame after connect
	TypeCommand  = "command"  // host -> child
	TypeReply    = "reply"    // answers a command or invoke by ID
	TypeEvent    = "event"    // child -> host, unsolicited
	TypeShutdown = "shutdown" // child -> host, window is going away
	TypeInvoke   = "invoke"   // child -> host, window operation requested by a page
)

// Commands understood by a child window.
const (
	CmdShow        = "show"
	CmdHide        = "hide"
	CmdFocus       = "focus"
	CmdCenter      = "center"
	CmdSetPosition = "set_position"
	CmdSetSize     = "set_size"
	CmdGetSize     = "get_size"
	CmdAlwaysOnTop = "always_on_top"
	CmdSetClosable = "set_closable"
	CmdIsVisible   = "is_visible"
	CmdClose       = "close"
)

// Window operations a child forwards to the host.
const (
	OpOpenWindow    = "open_window"
	OpOpenFull      = "open_full_window"
	OpOpenSmall     = "open_small_window"
	OpLock          = "lock_windows"
	OpUnlock        = "unlock_windows"
	OpClose         = "close_window"
	OpShowToolbar   = "show_toolbar"
	OpToggleToolbar = "toggle_toolbar"
)

// Message is a single bridge frame.
type Message struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Label   string `json:"label,omitempty"`
	Command string `json:"command,omitempty"`
	Args    Args   `json:"args"`
	Result  Args   `json:"result"`
	Error   string `json:"error,omitempty"`
	PID     int    `json:"pid,omitempty"`
}

// Args carries command arguments and results.
type Args struct {
	X       int  `json:"x,omitempty"`
	Y       int  `json:"y,omitempty"`
	Width   int  `json:"width,omitempty"`
	Height  int  `json:"height,omitempty"`
	Enabled bool `json:"enabled,omitempty"`

	Name   string   `json:"name,omitempty"`
	URL    string   `json:"url,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// Encode serialises m for the wire.
func Encode(m *Message) ([]byte, error) {
	return sonic.Marshal(m)
}

// Decode parses a wire frame.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
