package satellite

import (
	"log/slog"
	"time"

	"github.com/nadzzz/wyosat/internal/event"
)

// sendRunPipeline emits the run-pipeline outbound event. The distilled
// core spec's own prose and its own literal dispatch test contradict each
// other on start_stage/restart_on_end for each mode; this implementation
// follows the reference implementation's actual behavior, which is also
// what the spec's own test exercises (see DESIGN.md): wake-stream starts
// at "asr" without restart (on-device detection already gated entry),
// always-stream starts at "wake" and restarts after each turn (there is no
// local gate, so the remote pipeline re-arms wake detection itself).
func (s *Satellite) sendRunPipeline(pipelineName string) error {
	startStage := "wake"
	restartOnEnd := true
	if s.isWakeStream {
		startStage = "asr"
		restartOnEnd = false
	}

	endStage := "handle"
	if s.sound != nil {
		endStage = "tts"
	}

	data := map[string]any{
		"start_stage":    startStage,
		"end_stage":      endStage,
		"restart_on_end": restartOnEnd,
	}
	if pipelineName != "" {
		data["name"] = pipelineName
	}

	return s.sendEvent(event.Event{Type: "run-pipeline", Version: "1.5.2", Data: data})
}

// sendAudioChunk forwards one microphone buffer to the connected server as
// an audio-chunk event, stamped with the microphone's configured format.
// The source hard-codes the timestamp; this implementation uses wall-clock
// microseconds since the Unix epoch, the resolution recorded in DESIGN.md.
func (s *Satellite) sendAudioChunk(data []byte) error {
	if s.mic == nil {
		return nil
	}
	evtData := map[string]any{
		"rate":      s.mic.Rate(),
		"width":     s.mic.Width(),
		"channels":  s.mic.Channels(),
		"timestamp": time.Now().UnixMicro(),
	}
	return s.sendEvent(event.Event{Type: "audio-chunk", Version: "1.5.2", Data: evtData, Payload: data})
}

// sendDetection emits the detection event a wake-stream mode sends when
// its wake component fires.
func (s *Satellite) sendDetection() error {
	name := ""
	if s.wake != nil {
		name = s.wake.Name()
	}
	ts := time.Now().UnixMicro()
	data := map[string]any{
		"name":      name,
		"timestamp": ts,
	}
	s.notifyDetection(name, ts)
	return s.sendEvent(event.Event{Type: "detection", Version: "1.5.2", Data: data})
}

func (s *Satellite) sendEventAny(eventType, version string, data map[string]any) error {
	return s.sendEvent(event.Event{Type: eventType, Version: version, Data: data})
}

func (s *Satellite) logSendFailure(kind string, err error) {
	if err != nil {
		s.logger.Warn("failed to send event", slog.String("event", kind), slog.Any("error", err))
	}
}
