package fake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nadzzz/wyosat/internal/satellite"
)

// Sound is a mock playback device: each audio-start/audio-data/audio-stop
// sequence is written to its own file under dir, named after the reference
// harness's snd_<n>_<rate>_<width>_<channels>.bin convention.
type Sound struct {
	dir string

	mu      sync.Mutex
	file    *os.File
	counter int
}

// NewSound builds a mock sound device writing playback captures under dir.
func NewSound(dir string) *Sound {
	return &Sound{dir: dir}
}

func (s *Sound) Init(ctx context.Context) error {
	return os.MkdirAll(s.dir, 0o755)
}

func (s *Sound) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFileLocked()
}

func (s *Sound) HandleSysEvent(evtType satellite.SysEventType, data any) {
	switch evtType {
	case satellite.SysSndAudioStart:
		params, _ := data.(satellite.SndAudioStartParams)
		s.startFile(params)
	case satellite.SysSndAudioData:
		params, _ := data.(satellite.SndAudioDataParams)
		s.writeChunk(params.Data)
	case satellite.SysSndAudioEnd:
		s.mu.Lock()
		_ = s.closeFileLocked()
		s.mu.Unlock()
	}
}

func (s *Sound) startFile(params satellite.SndAudioStartParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.closeFileLocked()

	name := fmt.Sprintf("snd_%d_%d_%d_%d.bin", s.counter, params.Rate, params.Width, params.Channels)
	s.counter++
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return
	}
	s.file = f
}

func (s *Sound) writeChunk(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	_, _ = s.file.Write(data)
}

func (s *Sound) closeFileLocked() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
