package satellite

import (
	"sync"

	"github.com/nadzzz/wyosat/internal/event"
)

// WakeStreamMode gates streaming on an on-device wake-word detection:
// idle -> streaming on WAKE_DETECTION, streaming -> idle on
// transcript/error, and a separate paused state that blocks both wake
// detection and microphone forwarding until run-satellite resumes it.
type WakeStreamMode struct {
	mu          sync.Mutex
	isStreaming bool
	isPaused    bool
}

func NewWakeStreamMode() *WakeStreamMode {
	return &WakeStreamMode{}
}

func (m *WakeStreamMode) Kind() ComponentKind { return KindMode }

func (m *WakeStreamMode) Init(s *Satellite) error {
	m.mu.Lock()
	m.isStreaming = false
	m.isPaused = false
	m.mu.Unlock()
	return nil
}

func (m *WakeStreamMode) Destroy(s *Satellite) error { return nil }

func (m *WakeStreamMode) HandleSysEvent(s *Satellite, evtType SysEventType, data any) {
	switch evtType {
	case SysSatDisconnect:
		m.mu.Lock()
		m.isStreaming = false
		m.isPaused = false
		m.mu.Unlock()

	case SysMicData:
		m.mu.Lock()
		streaming, paused := m.isStreaming, m.isPaused
		m.mu.Unlock()
		if paused {
			return
		}
		params, _ := data.(MicDataParams)
		if streaming {
			if err := s.sendAudioChunk(params.Data); err != nil {
				s.logSendFailure("audio-chunk", err)
			}
		}
		// else: idle and unpaused. The source forwards to the wake
		// detector here; that is out of this core's scope, the wake
		// adapter owns its own microphone feed if it needs one.

	case SysWakeDetection:
		m.mu.Lock()
		streaming, paused := m.isStreaming, m.isPaused
		if !streaming && !paused {
			m.isStreaming = true
		}
		m.mu.Unlock()
		if streaming || paused {
			return
		}
		if err := s.sendDetection(); err != nil {
			s.logSendFailure("detection", err)
			return
		}
		if err := s.sendRunPipeline(""); err != nil {
			s.logSendFailure("run-pipeline", err)
		}
	}
}

func (m *WakeStreamMode) HandleEvent(s *Satellite, eventType string, hdr *event.Header, data map[string]any, payload []byte) bool {
	handled := s.handleDefault(eventType, hdr, data, payload)

	switch eventType {
	case TypeRunSatellite:
		m.mu.Lock()
		m.isStreaming = false
		m.isPaused = false
		m.mu.Unlock()
		return true
	case TypePauseSatellite:
		m.mu.Lock()
		m.isStreaming = false
		m.isPaused = true
		m.mu.Unlock()
		return true
	case TypeTranscript:
		m.mu.Lock()
		m.isStreaming = false
		m.mu.Unlock()
		if text, ok := data["text"].(string); ok {
			s.notifyTranscript(text)
		}
		return true
	case TypeError:
		m.mu.Lock()
		m.isStreaming = false
		m.mu.Unlock()
		return true
	}
	return handled
}
