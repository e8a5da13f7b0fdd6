//go:build portaudio

package portaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/nadzzz/wyosat/internal/satellite"
)

// Sound plays s16le PCM to the default (or configured) output device,
// opening a stream on audio-start (sized to the server-declared format)
// and closing it on audio-stop.
type Sound struct {
	deviceIndex int

	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
}

// NewSound builds a PortAudio-backed playback device. deviceIndex selects
// a specific output device, or -1 for the system default.
func NewSound(deviceIndex int) *Sound {
	return &Sound{deviceIndex: deviceIndex}
}

func (s *Sound) Init(ctx context.Context) error {
	return portaudio.Initialize()
}

func (s *Sound) Destroy(ctx context.Context) error {
	s.closeStream()
	return portaudio.Terminate()
}

func (s *Sound) HandleSysEvent(evtType satellite.SysEventType, data any) {
	switch evtType {
	case satellite.SysSndAudioStart:
		params, _ := data.(satellite.SndAudioStartParams)
		s.openStream(params)
	case satellite.SysSndAudioData:
		params, _ := data.(satellite.SndAudioDataParams)
		s.write(params.Data)
	case satellite.SysSndAudioEnd:
		s.closeStream()
	}
}

func (s *Sound) openStream(params satellite.SndAudioStartParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeStreamLocked()

	dev, err := s.resolveDevice()
	if err != nil {
		return
	}

	channels := int(params.Channels)
	if channels == 0 {
		channels = 1
	}
	s.buf = make([]int16, 256*channels)
	streamParams := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(params.Rate),
		FramesPerBuffer: len(s.buf) / channels,
	}
	stream, err := portaudio.OpenStream(streamParams, s.buf)
	if err != nil {
		return
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return
	}
	s.stream = stream
}

func (s *Sound) write(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return
	}
	n := len(data) / 2
	if n > len(s.buf) {
		n = len(s.buf)
	}
	for i := 0; i < n; i++ {
		s.buf[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	for i := n; i < len(s.buf); i++ {
		s.buf[i] = 0
	}
	_ = s.stream.Write()
}

func (s *Sound) closeStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeStreamLocked()
}

func (s *Sound) closeStreamLocked() {
	if s.stream == nil {
		return
	}
	s.stream.Stop()
	s.stream.Close()
	s.stream = nil
}

func (s *Sound) resolveDevice() (*portaudio.DeviceInfo, error) {
	if s.deviceIndex < 0 {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if s.deviceIndex >= len(devices) {
		return nil, fmt.Errorf("output device index %d out of range", s.deviceIndex)
	}
	return devices[s.deviceIndex], nil
}
