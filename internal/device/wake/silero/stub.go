//go:build !silero

package silero

import (
	"context"
	"fmt"

	"github.com/nadzzz/wyosat/internal/satellite"
)

// Adapter is the default-build stand-in: it carries configuration but
// fails Init, so a deployment that wires wake.backend: "silero" without
// building the "silero" tag gets a clear error instead of a silently
// inert wake component.
type Adapter struct {
	phrase string
}

// New builds a stub Adapter; see silero.go for the real implementation.
func New(sat *satellite.Satellite, modelPath, libPath string, threshold float32, phrase string) *Adapter {
	if phrase == "" {
		phrase = "hey_jarvis"
	}
	return &Adapter{phrase: phrase}
}

func (a *Adapter) Name() string { return a.phrase }

func (a *Adapter) Init(ctx context.Context) error {
	return fmt.Errorf("silero: binary built without the 'silero' tag (onnxruntime support)")
}

func (a *Adapter) Destroy(ctx context.Context) error { return nil }

// Feed is a no-op in the stub build.
func (a *Adapter) Feed(pcm []byte) {}
