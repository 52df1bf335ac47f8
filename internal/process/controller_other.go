//go:build !unix && !windows

package process

import "github.com/awsl-project/deskshell/internal/hostcmd"

// NewController reports that this platform has no termination primitive.
func NewController(_ hostcmd.Runner) (Controller, error) {
	return nil, ErrUnsupportedPlatform
}
