package satellite

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/nadzzz/wyosat/internal/event"
)

const DefaultPort = 10700

// Notifier is an optional observability side-channel: it receives a copy
// of interesting protocol traffic for offline inspection, independent of
// the single TCP client connection. Publish failures must never be fatal
// to the satellite; implementations should log and continue.
type Notifier interface {
	PublishDetection(name string, timestampMicros int64)
	PublishTranscript(text string)
	PublishError(text, code string)
	PublishUnhandled(eventType string, data map[string]any)
}

// Config holds the satellite's own tunables. Ambient concerns (logging
// format, MQTT broker address, admin port) live in internal/config; this
// is just what the core itself needs.
type Config struct {
	Port int
	Info SatelliteInfo
	Wake WakeInfo
}

// Satellite is the process-global handle encapsulating the connection
// state, device fabric, and active mode. The reference implementation
// hardwires a single package-level instance; this type is the Go
// substitution the distilled spec explicitly permits (§5, "Single-
// satellite contract").
type Satellite struct {
	cfg    Config
	logger *slog.Logger

	mode         Mode
	isWakeStream bool
	sound        Sound
	mic          Microphone
	wake         Wake

	info     SatelliteInfo
	wakeInfo WakeInfo
	notifier Notifier

	ctx    context.Context
	cancel context.CancelFunc

	stateMu       sync.Mutex
	listener      *net.TCPListener
	conn          net.Conn
	stopRequested bool

	sendMu sync.Mutex

	decoder *event.Decoder
}

// New builds a Satellite. The mode is selected later, by Run: wake-stream
// iff a wake component was supplied, else always-stream.
func New(cfg Config, logger *slog.Logger) *Satellite {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	s := &Satellite{
		cfg:     cfg,
		logger:  logger,
		info:    cfg.Info,
		wakeInfo: cfg.Wake,
		decoder: event.NewDecoder(),
	}
	return s
}

// SetNotifier registers an optional side-channel notifier.
func (s *Satellite) SetNotifier(n Notifier) { s.notifier = n }

// SetMicrophone registers the microphone adapter. Must be called before Run.
func (s *Satellite) SetMicrophone(m Microphone) { s.mic = m }

// SetSound registers the speaker adapter. Must be called before Run.
func (s *Satellite) SetSound(snd Sound) { s.sound = snd }

// SetWake registers the wake-word adapter. Must be called before Run.
// Presence of a wake component selects wake-stream mode; its absence
// selects always-stream mode.
func (s *Satellite) SetWake(w Wake) { s.wake = w }

// MicWriteData is invoked by the microphone adapter from its own capture
// goroutine whenever it has a new buffer. It routes straight to the
// active mode, mirroring the source's direct
// mode->component.sys_event_handle_fn call (there is no separate
// broadcast step).
func (s *Satellite) MicWriteData(buf []byte) {
	s.routeMicData(buf)
}

// WakeDetection is invoked by the wake adapter when it fires.
func (s *Satellite) WakeDetection() {
	s.routeWakeDetection()
}

// Stop requests a graceful shutdown; it does not block for completion.
func (s *Satellite) Stop() {
	s.stateMu.Lock()
	s.stopRequested = true
	s.stateMu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Satellite) isStopRequested() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.stopRequested
}

// Run selects the mode, initializes components in fabric order, and
// enters the accept/read connection loop. It blocks until ctx is
// cancelled or Stop is called, returning nil on graceful stop.
func (s *Satellite) Run(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()
	go func() {
		<-s.ctx.Done()
		s.stateMu.Lock()
		s.stopRequested = true
		s.stateMu.Unlock()
	}()

	if s.wake != nil {
		s.mode = NewWakeStreamMode()
		s.isWakeStream = true
	} else {
		s.mode = NewAlwaysStreamMode()
		s.isWakeStream = false
	}

	if err := s.initComponents(); err != nil {
		return err
	}
	defer s.destroyComponents(allComponentNames(s))

	return s.serve()
}

func allComponentNames(s *Satellite) []string {
	names := []string{"mode"}
	if s.sound != nil {
		names = append(names, "sound")
	}
	if s.mic != nil {
		names = append(names, "microphone")
	}
	if s.wake != nil {
		names = append(names, "wake")
	}
	return names
}

func (s *Satellite) notifyUnhandled(eventType string, data map[string]any) {
	if s.notifier != nil {
		s.notifier.PublishUnhandled(eventType, data)
	}
}

func (s *Satellite) notifyError(text, code string) {
	if s.notifier != nil {
		s.notifier.PublishError(text, code)
	}
}

func (s *Satellite) notifyTranscript(text string) {
	if s.notifier != nil {
		s.notifier.PublishTranscript(text)
	}
}

func (s *Satellite) notifyDetection(name string, ts int64) {
	if s.notifier != nil {
		s.notifier.PublishDetection(name, ts)
	}
}
