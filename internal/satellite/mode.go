package satellite

import "github.com/nadzzz/wyosat/internal/event"

// Mode is the top-level streaming policy: always-stream or wake-stream.
// It is itself a fabric component (it has lifecycle hooks and a
// system-event handler) plus a protocol-event handler that the dispatcher
// consults before falling back to the default handler table.
//
// Handlers take the owning *Satellite as a borrowed handle rather than
// embedding a back-reference to it, avoiding the cyclic mode<->fabric
// pointer the source's design notes call out.
type Mode interface {
	Kind() ComponentKind
	Init(s *Satellite) error
	Destroy(s *Satellite) error

	// HandleSysEvent processes a routed system event (MIC_DATA,
	// WAKE_DETECTION, SAT_CONNECT, SAT_DISCONNECT).
	HandleSysEvent(s *Satellite, evtType SysEventType, data any)

	// HandleEvent offers a decoded protocol event to the mode. ok reports
	// whether the mode fully handled it; the dispatcher falls back to the
	// default handler table when ok is false.
	HandleEvent(s *Satellite, eventType string, hdr *event.Header, data map[string]any, payload []byte) bool
}
