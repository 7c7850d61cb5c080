package launcher

import "context"

// Window is the desktop shell collaborator behind the file picker and the
// always-on-top toggle.
type Window interface {
	// PickRuntimeExecutable asks the user for a runtime executable.
	// A nil path means the dialog was canceled.
	PickRuntimeExecutable(ctx context.Context) (*string, error)
	// SetAlwaysOnTop pins or unpins the window.
	SetAlwaysOnTop(ctx context.Context, enabled bool) error
}

// Headless is the Window used without a desktop shell: picking always
// cancels and pinning is acknowledged without effect.
type Headless struct{}

// PickRuntimeExecutable reports a canceled dialog.
func (Headless) PickRuntimeExecutable(context.Context) (*string, error) {
	return nil, nil //nolint:nilnil // Nil path means canceled.
}

// SetAlwaysOnTop does nothing.
func (Headless) SetAlwaysOnTop(context.Context, bool) error {
	return nil
}
