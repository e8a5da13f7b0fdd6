//go:build portaudio

// Package portaudio implements satellite.Microphone and satellite.Sound
// against real audio hardware via PortAudio, grounded in the pack's own
// capture/playback stream lifecycle (open input/output streams sized to a
// fixed frame, start them, pump buffers on a dedicated goroutine, tear down
// in reverse order).
package portaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const frameSize = 1024 // samples per buffer, ~64ms at 16kHz

// Sink receives captured microphone buffers; satellite.Satellite's
// MicWriteData method satisfies it.
type Sink interface {
	MicWriteData(buf []byte)
}

// Microphone captures mono s16le PCM from the default (or configured)
// input device and forwards it to Sink.
type Microphone struct {
	sink            Sink
	rate            int
	deviceIndex     int // -1 selects the default input device
	mu              sync.Mutex
	stream          *portaudio.Stream
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewMicrophone builds a PortAudio-backed microphone at the given sample
// rate (mono, 16-bit). deviceIndex selects a specific input device, or -1
// for the system default.
func NewMicrophone(sink Sink, rate, deviceIndex int) *Microphone {
	return &Microphone{sink: sink, rate: rate, deviceIndex: deviceIndex}
}

func (m *Microphone) Rate() uint32    { return uint32(m.rate) }
func (m *Microphone) Width() uint8    { return 2 }
func (m *Microphone) Channels() uint8 { return 1 }

func (m *Microphone) Init(ctx context.Context) error {
	return portaudio.Initialize()
}

func (m *Microphone) Destroy(ctx context.Context) error {
	_ = m.StopStream()
	return portaudio.Terminate()
}

func (m *Microphone) StartStream() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		return nil
	}

	dev, err := m.resolveDevice()
	if err != nil {
		return fmt.Errorf("portaudio microphone: %w", err)
	}

	buf := make([]int16, frameSize)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(m.rate),
		FramesPerBuffer: frameSize,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return fmt.Errorf("portaudio microphone: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("portaudio microphone: start stream: %w", err)
	}

	m.stream = stream
	m.stopCh = make(chan struct{})
	m.wg.Add(1)
	go m.captureLoop(stream, buf, m.stopCh)
	return nil
}

func (m *Microphone) StopStream() error {
	m.mu.Lock()
	stream := m.stream
	stopCh := m.stopCh
	m.stream = nil
	m.stopCh = nil
	m.mu.Unlock()

	if stream == nil {
		return nil
	}
	close(stopCh)
	m.wg.Wait()
	stream.Stop()
	return stream.Close()
}

func (m *Microphone) captureLoop(stream *portaudio.Stream, buf []int16, stopCh chan struct{}) {
	defer m.wg.Done()
	out := make([]byte, len(buf)*2)
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		if err := stream.Read(); err != nil {
			return
		}
		for i, s := range buf {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
		}
		m.sink.MicWriteData(out)
	}
}

func (m *Microphone) resolveDevice() (*portaudio.DeviceInfo, error) {
	if m.deviceIndex < 0 {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if m.deviceIndex >= len(devices) {
		return nil, fmt.Errorf("input device index %d out of range", m.deviceIndex)
	}
	return devices[m.deviceIndex], nil
}
