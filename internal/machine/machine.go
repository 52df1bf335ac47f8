// Package machine answers questions about the host: CPU architecture, a
// stable anonymous machine identifier, and sandboxing.
package machine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/awsl-project/deskshell/internal/hostcmd"
	"github.com/google/uuid"
)

// uidNamespace scopes derived identifiers to this application.
var uidNamespace = uuid.MustParse("6f1c2a1e-8a54-4f4b-9a53-3f0c3e2b7d10")

// ErrNoMachineID is returned when the host exposes no machine identifier.
var ErrNoMachineID = errors.New("machine identifier not available")

// Arch maps a GOARCH value to the names used by release downloads.
func Arch(goarch string) string {
	switch goarch {
	case "arm64":
		return "arm64"
	case "amd64":
		return "amd64"
	case "386":
		return "386"
	default:
		return "unknown"
	}
}

// HostArch is Arch for the running binary.
func HostArch() string {
	return Arch(runtime.GOARCH)
}

// Identifier reads the OS machine ID.
type Identifier struct {
	runner   hostcmd.Runner
	goos     string
	readFile func(string) ([]byte, error)
}

// NewIdentifier creates an Identifier for goos.
func NewIdentifier(runner hostcmd.Runner, goos string) *Identifier {
	return &Identifier{runner: runner, goos: goos, readFile: os.ReadFile}
}

var (
	ioregUUID   = regexp.MustCompile(`"IOPlatformUUID"\s*=\s*"([^"]+)"`)
	machineGUID = regexp.MustCompile(`MachineGuid\s+REG_SZ\s+(\S+)`)
)

// UID returns the machine ID hashed into a name-based UUID, so the raw OS
// identifier is never handed out.
func (id *Identifier) UID(ctx context.Context) (string, error) {
	raw, err := id.rawID(ctx)
	if err != nil {
		return "", err
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", ErrNoMachineID
	}
	return uuid.NewSHA1(uidNamespace, []byte(raw)).String(), nil
}

func (id *Identifier) rawID(ctx context.Context) (string, error) {
	switch id.goos {
	case "darwin":
		res, err := id.runner.Run(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
		if err != nil {
			return "", fmt.Errorf("ioreg: %w", err)
		}
		if m := ioregUUID.FindStringSubmatch(res.Stdout); m != nil {
			return m[1], nil
		}
		return "", ErrNoMachineID

	case "windows":
		res, err := id.runner.Run(ctx, "reg", "query", `HKLM\SOFTWARE\Microsoft\Cryptography`, "/v", "MachineGuid")
		if err != nil {
			return "", fmt.Errorf("reg query: %w", err)
		}
		if m := machineGUID.FindStringSubmatch(res.Stdout); m != nil {
			return m[1], nil
		}
		return "", ErrNoMachineID

	default:
		for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id", "/etc/hostid"} {
			b, err := id.readFile(path)
			if err == nil && strings.TrimSpace(string(b)) != "" {
				return string(b), nil
			}
		}
		return "", ErrNoMachineID
	}
}

// IsFlatpak reports whether the process runs inside a Flatpak sandbox.
func IsFlatpak(getenv func(string) string, stat func(string) (os.FileInfo, error)) bool {
	if getenv("FLATPAK_ID") != "" {
		return true
	}
	_, err := stat("/.flatpak-info")
	return err == nil
}
