package satellite

import (
	"log/slog"

	"github.com/nadzzz/wyosat/internal/event"
)

// Known protocol event type strings. The dispatcher maps these via a fixed
// table rather than a generic lookup, keeping the type-to-behavior surface
// auditable the way the source's linear string table does.
const (
	TypeDescribe       = "describe"
	TypePing           = "ping"
	TypeRunSatellite   = "run-satellite"
	TypePauseSatellite = "pause-satellite"
	TypeAudioStart     = "audio-start"
	TypeAudioChunk     = "audio-chunk"
	TypeAudioStop      = "audio-stop"
	TypeDetection      = "detection"
	TypeVoiceStopped   = "voice-stopped"
	TypeError          = "error"
	TypeTranscript     = "transcript"
)

// dispatch routes one decoded record to the active mode first, falling
// back to the default handler table, logging unhandled events. Every
// record carries the event's shared header/data; an event with a payload
// is dispatched once per payload record, each with its own chunk.
func (s *Satellite) dispatch(rec *event.Record) {
	hdr := rec.Header
	if hdr == nil {
		return
	}
	data := rec.Data

	handled := false
	if s.mode != nil {
		handled = s.mode.HandleEvent(s, hdr.Type, hdr, data, rec.Payload)
	}
	if !handled {
		handled = s.handleDefault(hdr.Type, hdr, data, rec.Payload)
	}
	if !handled {
		s.logger.Debug("unhandled packet",
			slog.String("type", hdr.Type),
			slog.Any("data", data),
		)
		s.notifyUnhandled(hdr.Type, data)
	}
}

// handleDefault implements the fixed default handler table: describe,
// ping, audio-start, audio-chunk, audio-stop, error, voice-stopped.
// run-satellite, pause-satellite, detection and transcript have no
// default behavior; they are mode-only.
func (s *Satellite) handleDefault(eventType string, hdr *event.Header, data map[string]any, payload []byte) bool {
	switch eventType {
	case TypeDescribe:
		s.handleDescribe()
		return true
	case TypePing:
		s.handlePing(data)
		return true
	case TypeAudioStart:
		s.handleAudioStart(data)
		return true
	case TypeAudioChunk:
		s.handleAudioChunk(payload)
		return true
	case TypeAudioStop:
		s.handleAudioStop()
		return true
	case TypeError:
		s.handleError(data)
		return true
	case TypeVoiceStopped:
		s.handleVoiceStopped(data)
		return true
	default:
		return false
	}
}

// handleVoiceStopped acknowledges the voice-stopped event. The source
// never assigns it a behavior; rather than let it fall through to
// unhandled (and get published to the notifier as if it were a surprise),
// it's recognized here and logged at debug level only.
func (s *Satellite) handleVoiceStopped(data map[string]any) {
	s.logger.Debug("voice-stopped", slog.Any("data", data))
}

func (s *Satellite) handlePing(data map[string]any) {
	out := map[string]any{}
	hasText := false
	if data != nil {
		if text, ok := data["text"].(string); ok {
			out["text"] = text
			hasText = true
		}
	}
	var payloadData map[string]any
	if hasText {
		payloadData = out
	}
	if err := s.sendEvent(event.Event{Type: "pong", Version: "1.7.2", Data: payloadData}); err != nil {
		s.logger.Warn("failed to send pong", slog.Any("error", err))
	}
}

func (s *Satellite) handleAudioStart(data map[string]any) {
	if s.sound == nil || data == nil {
		return
	}
	params := SndAudioStartParams{
		Rate:     uint32(floatField(data, "rate")),
		Width:    uint8(floatField(data, "width")),
		Channels: uint8(floatField(data, "channels")),
	}
	s.sound.HandleSysEvent(SysSndAudioStart, params)
}

func (s *Satellite) handleAudioChunk(payload []byte) {
	if s.sound == nil {
		return
	}
	s.sound.HandleSysEvent(SysSndAudioData, SndAudioDataParams{Data: payload})
}

func (s *Satellite) handleAudioStop() {
	if s.sound == nil {
		return
	}
	s.sound.HandleSysEvent(SysSndAudioEnd, nil)
}

func (s *Satellite) handleError(data map[string]any) {
	text, _ := data["text"].(string)
	code, _ := data["code"].(string)
	s.logger.Error("satellite server returned error", slog.String("text", text), slog.String("code", code))
	s.notifyError(text, code)
}

func floatField(data map[string]any, key string) float64 {
	if v, ok := data[key].(float64); ok {
		return v
	}
	return 0
}
