package satellite

import (
	"testing"

	"github.com/nadzzz/wyosat/internal/event"
)

func TestDispatch_PingRepliesWithPongAndEchoesText(t *testing.T) {
	s, client := newTestSatellite(t)
	m := NewAlwaysStreamMode()
	_ = m.Init(s)
	s.mode = m

	rec := &event.Record{
		Flags:  event.FlagBegin | event.FlagEnd,
		Header: &event.Header{Type: TypePing},
		Data:   map[string]any{"text": "hello"},
	}
	go s.dispatch(rec)

	pong := recvEvent(t, client)
	if pong.Header.Type != "pong" {
		t.Fatalf("type = %q, want pong", pong.Header.Type)
	}
	if pong.Header.Version != "1.7.2" {
		t.Fatalf("version = %q, want 1.7.2", pong.Header.Version)
	}
	if pong.Data["text"] != "hello" {
		t.Fatalf("text = %v, want hello", pong.Data["text"])
	}
}

func TestDispatch_DescribeIncludesNamedWakeModel(t *testing.T) {
	s, client := newTestSatellite(t)
	s.wake = fakeWake{name: "hey_jarvis"}
	m := NewAlwaysStreamMode()
	_ = m.Init(s)
	s.mode = m

	rec := &event.Record{
		Flags:  event.FlagBegin | event.FlagEnd,
		Header: &event.Header{Type: TypeDescribe},
	}
	go s.dispatch(rec)

	info := recvEvent(t, client)
	if info.Header.Type != "info" {
		t.Fatalf("type = %q, want info", info.Header.Type)
	}
	wakeList, ok := info.Data["wake"].([]any)
	if !ok || len(wakeList) != 1 {
		t.Fatalf("wake = %v, want one entry", info.Data["wake"])
	}
	wakeEntry, ok := wakeList[0].(map[string]any)
	if !ok {
		t.Fatalf("wake[0] = %v, not an object", wakeList[0])
	}
	models, ok := wakeEntry["models"].([]any)
	if !ok || len(models) != 1 {
		t.Fatalf("wake[0].models = %v, want one entry", wakeEntry["models"])
	}
	model, ok := models[0].(map[string]any)
	if !ok {
		t.Fatalf("models[0] = %v, not an object", models[0])
	}
	if model["name"] != "hey_jarvis" {
		t.Fatalf("models[0].name = %v, want hey_jarvis", model["name"])
	}
	if model["phrase"] != "hey_jarvis" {
		t.Fatalf("models[0].phrase = %v, want hey_jarvis", model["phrase"])
	}
}

func TestDispatch_VoiceStoppedIsAcknowledgedNotUnhandled(t *testing.T) {
	s, _ := newTestSatellite(t)
	notifier := &fakeNotifier{}
	s.notifier = notifier
	m := NewAlwaysStreamMode()
	_ = m.Init(s)
	s.mode = m

	rec := &event.Record{
		Flags:  event.FlagBegin | event.FlagEnd,
		Header: &event.Header{Type: TypeVoiceStopped},
	}
	s.dispatch(rec)

	if len(notifier.unhandled) != 0 {
		t.Fatalf("unexpected unhandled notifications: %v", notifier.unhandled)
	}
}

func TestDispatch_UnknownEventNotifiesUnhandled(t *testing.T) {
	s, _ := newTestSatellite(t)
	notifier := &fakeNotifier{}
	s.notifier = notifier
	m := NewAlwaysStreamMode()
	_ = m.Init(s)
	s.mode = m

	rec := &event.Record{
		Flags:  event.FlagBegin | event.FlagEnd,
		Header: &event.Header{Type: "some-future-event"},
	}
	s.dispatch(rec)

	if len(notifier.unhandled) != 1 || notifier.unhandled[0] != "some-future-event" {
		t.Fatalf("unhandled = %v, want [some-future-event]", notifier.unhandled)
	}
}

func TestDispatch_ErrorNotifiesWithTextAndCode(t *testing.T) {
	s, _ := newTestSatellite(t)
	notifier := &fakeNotifier{}
	s.notifier = notifier
	m := NewAlwaysStreamMode()
	_ = m.Init(s)
	s.mode = m

	rec := &event.Record{
		Flags:  event.FlagBegin | event.FlagEnd,
		Header: &event.Header{Type: TypeError},
		Data:   map[string]any{"text": "asr failed", "code": "asr-error"},
	}
	s.dispatch(rec)

	if len(notifier.errors) != 1 || notifier.errors[0] != "asr failed" {
		t.Fatalf("errors = %v, want [asr failed]", notifier.errors)
	}
}
