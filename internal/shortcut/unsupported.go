package shortcut

// unsupported accepts unregistration and rejects registration.
type unsupported struct{}

func (unsupported) Register(Accelerator, func()) error { return ErrUnsupported }
func (unsupported) UnregisterAll() error               { return nil }
func (unsupported) Close()                             {}
