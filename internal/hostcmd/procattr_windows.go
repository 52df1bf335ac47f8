//go:build windows

package hostcmd

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// HideWindow keeps console tools such as tasklist from flashing a window.
func HideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
