package satellite

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nadzzz/wyosat/internal/event"
)

// fakeMic is a minimal Microphone for tests; it never actually captures.
type fakeMic struct {
	rate, width, channels int
}

func (m *fakeMic) Rate() uint32              { return uint32(m.rate) }
func (m *fakeMic) Width() uint8              { return uint8(m.width) }
func (m *fakeMic) Channels() uint8           { return uint8(m.channels) }
func (m *fakeMic) Init(ctx context.Context) error    { return nil }
func (m *fakeMic) Destroy(ctx context.Context) error { return nil }
func (m *fakeMic) StartStream() error                { return nil }
func (m *fakeMic) StopStream() error                 { return nil }

type fakeWake struct{ name string }

func (w fakeWake) Name() string                  { return w.name }
func (w fakeWake) Init(ctx context.Context) error    { return nil }
func (w fakeWake) Destroy(ctx context.Context) error { return nil }

type fakeNotifier struct {
	unhandled   []string
	errors      []string
	transcripts []string
}

func (n *fakeNotifier) PublishDetection(name string, ts int64)  {}
func (n *fakeNotifier) PublishTranscript(text string)           { n.transcripts = append(n.transcripts, text) }
func (n *fakeNotifier) PublishError(text, code string)          { n.errors = append(n.errors, text) }
func (n *fakeNotifier) PublishUnhandled(eventType string, data map[string]any) {
	n.unhandled = append(n.unhandled, eventType)
}

// newTestSatellite returns a Satellite whose conn is the server half of an
// in-memory pipe, and the client half for the test to read/write against.
func newTestSatellite(t *testing.T) (*Satellite, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	s := New(Config{Port: 0}, nil)
	s.conn = server
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return s, client
}

// recvEvent reads one assembled record off client using the package's own
// decoder, doubling as a round-trip check of the encoder it exercises.
func recvEvent(t *testing.T, client net.Conn) event.Record {
	t.Helper()
	dec := event.NewDecoder()
	deadline := time.Now().Add(2 * time.Second)
	for {
		buf := dec.BufferGet()
		if len(buf) == 0 {
			t.Fatal("decoder buffer full without producing a record")
		}
		if err := client.SetReadDeadline(deadline); err != nil {
			t.Fatalf("set read deadline: %v", err)
		}
		n, err := client.Read(buf)
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		dec.BufferAdvance(n)
		if rec, ok := dec.Next(); ok {
			return rec
		}
	}
}

func TestAlwaysStreamMode_RunSatelliteStartsStreamingAndSendsPipeline(t *testing.T) {
	s, client := newTestSatellite(t)
	m := NewAlwaysStreamMode()
	if err := m.Init(s); err != nil {
		t.Fatalf("init: %v", err)
	}
	s.mode = m

	done := make(chan bool, 1)
	go func() {
		done <- m.HandleEvent(s, TypeRunSatellite, &event.Header{Type: TypeRunSatellite}, nil, nil)
	}()

	rec := recvEvent(t, client)
	if rec.Header.Type != "run-pipeline" {
		t.Fatalf("type = %q, want run-pipeline", rec.Header.Type)
	}
	if rec.Data["start_stage"] != "wake" {
		t.Fatalf("start_stage = %v, want wake", rec.Data["start_stage"])
	}
	if rec.Data["restart_on_end"] != true {
		t.Fatalf("restart_on_end = %v, want true", rec.Data["restart_on_end"])
	}

	if !<-done {
		t.Fatal("expected HandleEvent to report handled")
	}
	m.mu.Lock()
	streaming := m.isStreaming
	m.mu.Unlock()
	if !streaming {
		t.Fatal("expected isStreaming = true after run-satellite")
	}
}

func TestAlwaysStreamMode_MicDataForwardedOnlyWhileStreaming(t *testing.T) {
	s, client := newTestSatellite(t)
	s.mic = &fakeMic{rate: 16000, width: 2, channels: 1}
	m := NewAlwaysStreamMode()
	_ = m.Init(s)
	s.mode = m

	// Not streaming yet: MIC_DATA must not attempt a send (which would
	// block forever on the unread pipe and fail the test via timeout).
	notSent := make(chan struct{})
	go func() {
		m.HandleSysEvent(s, SysMicData, MicDataParams{Data: []byte{1, 2, 3}})
		close(notSent)
	}()
	select {
	case <-notSent:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("HandleSysEvent blocked, implying it tried to send while idle")
	}

	m.mu.Lock()
	m.isStreaming = true
	m.mu.Unlock()

	go m.HandleSysEvent(s, SysMicData, MicDataParams{Data: []byte{9, 9, 9}})

	rec := recvEvent(t, client)
	if rec.Header.Type != "audio-chunk" {
		t.Fatalf("type = %q, want audio-chunk", rec.Header.Type)
	}
	if string(rec.Payload) != "\x09\x09\x09" {
		t.Fatalf("payload = %v, want [9 9 9]", rec.Payload)
	}
	if rec.Data["rate"] != float64(16000) {
		t.Fatalf("rate = %v, want 16000", rec.Data["rate"])
	}
}

func TestAlwaysStreamMode_PauseStopsStreaming(t *testing.T) {
	s, _ := newTestSatellite(t)
	m := NewAlwaysStreamMode()
	_ = m.Init(s)
	m.mu.Lock()
	m.isStreaming = true
	m.mu.Unlock()

	handled := m.HandleEvent(s, TypePauseSatellite, &event.Header{Type: TypePauseSatellite}, nil, nil)
	if !handled {
		t.Fatal("expected handled = true")
	}
	m.mu.Lock()
	streaming := m.isStreaming
	m.mu.Unlock()
	if streaming {
		t.Fatal("expected isStreaming = false after pause-satellite")
	}
}

func TestWakeStreamMode_DetectionSendsDetectionThenRunPipelineASR(t *testing.T) {
	s, client := newTestSatellite(t)
	s.wake = fakeWake{name: "hey_jarvis"}
	s.isWakeStream = true
	m := NewWakeStreamMode()
	_ = m.Init(s)
	s.mode = m

	go m.HandleSysEvent(s, SysWakeDetection, nil)

	detect := recvEvent(t, client)
	if detect.Header.Type != "detection" {
		t.Fatalf("first event type = %q, want detection", detect.Header.Type)
	}
	if detect.Data["name"] != "hey_jarvis" {
		t.Fatalf("detection name = %v, want hey_jarvis", detect.Data["name"])
	}

	pipeline := recvEvent(t, client)
	if pipeline.Header.Type != "run-pipeline" {
		t.Fatalf("second event type = %q, want run-pipeline", pipeline.Header.Type)
	}
	if pipeline.Data["start_stage"] != "asr" {
		t.Fatalf("start_stage = %v, want asr", pipeline.Data["start_stage"])
	}
	if pipeline.Data["restart_on_end"] != false {
		t.Fatalf("restart_on_end = %v, want false", pipeline.Data["restart_on_end"])
	}

	m.mu.Lock()
	streaming := m.isStreaming
	m.mu.Unlock()
	if !streaming {
		t.Fatal("expected isStreaming = true after detection")
	}
}

func TestWakeStreamMode_PausedBlocksDetectionAndMicData(t *testing.T) {
	s, _ := newTestSatellite(t)
	s.wake = fakeWake{name: "hey_jarvis"}
	m := NewWakeStreamMode()
	_ = m.Init(s)
	m.mu.Lock()
	m.isPaused = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.HandleSysEvent(s, SysWakeDetection, nil)
		m.HandleSysEvent(s, SysMicData, MicDataParams{Data: []byte{1}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("HandleSysEvent blocked while paused, implying it tried to send")
	}

	m.mu.Lock()
	streaming, paused := m.isStreaming, m.isPaused
	m.mu.Unlock()
	if streaming {
		t.Fatal("expected isStreaming = false while paused")
	}
	if !paused {
		t.Fatal("expected isPaused to remain true")
	}
}

func TestWakeStreamMode_TranscriptEndsStreamingAndNotifies(t *testing.T) {
	s, _ := newTestSatellite(t)
	notifier := &fakeNotifier{}
	s.notifier = notifier
	m := NewWakeStreamMode()
	_ = m.Init(s)
	m.mu.Lock()
	m.isStreaming = true
	m.mu.Unlock()
	s.mode = m

	handled := m.HandleEvent(s, TypeTranscript, &event.Header{Type: TypeTranscript}, map[string]any{"text": "turn on the lights"}, nil)
	if !handled {
		t.Fatal("expected handled = true")
	}
	m.mu.Lock()
	streaming := m.isStreaming
	m.mu.Unlock()
	if streaming {
		t.Fatal("expected isStreaming = false after transcript")
	}
	if len(notifier.transcripts) != 1 || notifier.transcripts[0] != "turn on the lights" {
		t.Fatalf("transcripts = %v, want [turn on the lights]", notifier.transcripts)
	}
	if len(notifier.unhandled) != 0 {
		t.Fatalf("unexpected unhandled notifications: %v", notifier.unhandled)
	}
}
