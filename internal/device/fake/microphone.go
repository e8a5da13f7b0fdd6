// Package fake provides mock device adapters — microphone, sound, wake —
// for exercising the satellite core without real audio hardware, grounded
// in the reference implementation's own test harness (the terminal-driven
// "l"/"q"/"w" commands over a fixed capture loop).
package fake

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const captureInterval = 64 * time.Millisecond
const captureBufferSize = 2048

// Sink receives captured microphone buffers; satellite.Satellite's
// MicWriteData method satisfies it.
type Sink interface {
	MicWriteData(buf []byte)
}

// Microphone is a mock capture device: a timer loop pushing silent buffers,
// optionally replaced with bytes read from a fixed test-audio file while
// PlayTestAudio is active.
type Microphone struct {
	sink Sink

	rate, width, channels int
	audioPath             string

	playAudio atomic.Bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewMicrophone builds a mock microphone pushing buffers to sink in the
// given format. audioPath, if non-empty, names a raw PCM file played back
// once PlayTestAudio is called.
func NewMicrophone(sink Sink, rate int, width, channels int, audioPath string) *Microphone {
	return &Microphone{sink: sink, rate: rate, width: width, channels: channels, audioPath: audioPath}
}

func (m *Microphone) Rate() uint32    { return uint32(m.rate) }
func (m *Microphone) Width() uint8    { return uint8(m.width) }
func (m *Microphone) Channels() uint8 { return uint8(m.channels) }

func (m *Microphone) Init(ctx context.Context) error { return nil }

func (m *Microphone) Destroy(ctx context.Context) error {
	return m.StopStream()
}

// PlayTestAudio starts streaming audioPath's contents instead of silence,
// the mock equivalent of the reference harness's "l" terminal command.
func (m *Microphone) PlayTestAudio() {
	m.playAudio.Store(true)
}

func (m *Microphone) StartStream() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.wg.Add(1)
	go m.captureLoop(m.stopCh)
	return nil
}

func (m *Microphone) StopStream() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}

func (m *Microphone) captureLoop(stopCh chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(captureInterval)
	defer ticker.Stop()

	var audioFile *os.File
	defer func() {
		if audioFile != nil {
			audioFile.Close()
		}
	}()

	buf := make([]byte, captureBufferSize)
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			for i := range buf {
				buf[i] = 0
			}
			if m.playAudio.Load() && m.audioPath != "" {
				if audioFile == nil {
					f, err := os.Open(m.audioPath)
					if err == nil {
						audioFile = f
					} else {
						m.playAudio.Store(false)
					}
				}
				if audioFile != nil {
					n, err := audioFile.Read(buf)
					if n <= 0 || err != nil {
						m.playAudio.Store(false)
						audioFile.Close()
						audioFile = nil
					}
				}
			}
			m.sink.MicWriteData(buf)
		}
	}
}
