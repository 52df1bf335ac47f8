//go:build !linux

package shortcut

// NewRegistrar returns a backend that rejects registration on platforms
// without a global shortcut implementation.
func NewRegistrar() (Registrar, error) {
	return unsupported{}, ErrUnsupported
}
