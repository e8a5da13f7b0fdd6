package fake

import "context"

// Wake is a mock wake-word engine: it never fires on its own. Tests and the
// demo harness trigger a detection externally (the harness's "w" terminal
// command calls satellite.WakeDetection directly).
type Wake struct {
	name string
}

// NewWake builds a mock wake component advertising name (the reference
// harness's test component used the literal name "test").
func NewWake(name string) *Wake {
	if name == "" {
		name = "test"
	}
	return &Wake{name: name}
}

func (w *Wake) Name() string                  { return w.name }
func (w *Wake) Init(ctx context.Context) error    { return nil }
func (w *Wake) Destroy(ctx context.Context) error { return nil }
