//go:build !portaudio

package portaudio

import (
	"context"
	"fmt"

	"github.com/nadzzz/wyosat/internal/satellite"
)

// Microphone is the default-build stand-in: real hardware capture requires
// cgo and the "portaudio" build tag.
type Microphone struct {
	rate int
}

// NewMicrophone builds a stub microphone; see microphone.go (portaudio
// build tag) for the real implementation.
func NewMicrophone(sink Sink, rate, deviceIndex int) *Microphone { return &Microphone{rate: rate} }

// Sink mirrors the real build's sink contract.
type Sink interface {
	MicWriteData(buf []byte)
}

func (m *Microphone) Rate() uint32    { return uint32(m.rate) }
func (m *Microphone) Width() uint8    { return 2 }
func (m *Microphone) Channels() uint8 { return 1 }

func (m *Microphone) Init(ctx context.Context) error {
	return fmt.Errorf("portaudio: binary built without the 'portaudio' build tag")
}
func (m *Microphone) Destroy(ctx context.Context) error { return nil }
func (m *Microphone) StartStream() error                { return nil }
func (m *Microphone) StopStream() error                 { return nil }

// Sound is the default-build stand-in for PortAudio-backed playback.
type Sound struct{}

// NewSound builds a stub sound device; see sound.go (portaudio build tag)
// for the real implementation.
func NewSound(deviceIndex int) *Sound { return &Sound{} }

func (s *Sound) Init(ctx context.Context) error {
	return fmt.Errorf("portaudio: binary built without the 'portaudio' build tag")
}
func (s *Sound) Destroy(ctx context.Context) error { return nil }
func (s *Sound) HandleSysEvent(evtType satellite.SysEventType, data any) {}
