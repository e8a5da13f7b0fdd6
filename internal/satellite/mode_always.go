package satellite

import (
	"sync"

	"github.com/nadzzz/wyosat/internal/event"
)

// AlwaysStreamMode is the simpler of the two mode state machines: a single
// streaming-gate boolean. run-satellite starts streaming, pause-satellite
// or a disconnect stops it; microphone data is forwarded only while
// streaming.
type AlwaysStreamMode struct {
	mu         sync.Mutex
	isStreaming bool
}

func NewAlwaysStreamMode() *AlwaysStreamMode {
	return &AlwaysStreamMode{}
}

func (m *AlwaysStreamMode) Kind() ComponentKind { return KindMode }

func (m *AlwaysStreamMode) Init(s *Satellite) error {
	m.mu.Lock()
	m.isStreaming = false
	m.mu.Unlock()
	return nil
}

func (m *AlwaysStreamMode) Destroy(s *Satellite) error { return nil }

func (m *AlwaysStreamMode) HandleSysEvent(s *Satellite, evtType SysEventType, data any) {
	switch evtType {
	case SysSatDisconnect:
		m.mu.Lock()
		m.isStreaming = false
		m.mu.Unlock()
	case SysMicData:
		m.mu.Lock()
		streaming := m.isStreaming
		m.mu.Unlock()
		if !streaming {
			return
		}
		params, _ := data.(MicDataParams)
		if err := s.sendAudioChunk(params.Data); err != nil {
			s.logSendFailure("audio-chunk", err)
		}
	}
}

func (m *AlwaysStreamMode) HandleEvent(s *Satellite, eventType string, hdr *event.Header, data map[string]any, payload []byte) bool {
	// The default handler runs regardless, matching the reference
	// implementation's packet_handle, which calls the default handler
	// unconditionally before applying mode-specific side effects.
	handled := s.handleDefault(eventType, hdr, data, payload)

	switch eventType {
	case TypeRunSatellite:
		m.mu.Lock()
		m.isStreaming = true
		m.mu.Unlock()
		if err := s.sendRunPipeline(""); err != nil {
			s.logSendFailure("run-pipeline", err)
		}
		return true
	case TypePauseSatellite:
		m.mu.Lock()
		m.isStreaming = false
		m.mu.Unlock()
		return true
	}
	return handled
}
