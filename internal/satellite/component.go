// Package satellite implements the voice-satellite core: the component
// fabric, mode state machines, event dispatcher, and the single-client
// connection loop that ties them to the wire protocol in internal/event.
package satellite

import "context"

// ComponentKind identifies which slot of the fabric a component occupies.
type ComponentKind int

const (
	KindMode ComponentKind = iota
	KindMicrophone
	KindSound
	KindWake
)

func (k ComponentKind) String() string {
	switch k {
	case KindMode:
		return "mode"
	case KindMicrophone:
		return "microphone"
	case KindSound:
		return "sound"
	case KindWake:
		return "wake"
	default:
		return "unknown"
	}
}

// SysEventType is an in-process typed notification routed among fabric
// components, distinct from protocol events carried on the wire.
type SysEventType int

const (
	SysSatConnect SysEventType = iota
	SysSatDisconnect
	SysMicData
	SysSndAudioStart
	SysSndAudioData
	SysSndAudioEnd
	SysWakeDetection
)

// MicDataParams carries a captured microphone buffer.
type MicDataParams struct {
	Data []byte
}

// SndAudioStartParams carries the format of audio about to be played.
type SndAudioStartParams struct {
	Rate     uint32
	Width    uint8
	Channels uint8
}

// SndAudioDataParams carries a chunk of audio to play.
type SndAudioDataParams struct {
	Data []byte
}

// Component is the generic shape of a fabric member: a kind tag, optional
// lifecycle hooks, and a system-event handler. The fabric's own members
// do not implement it: the mode has the Mode interface, and the devices
// have Microphone, Sound and Wake below.
type Component interface {
	Kind() ComponentKind
	Init(ctx context.Context) error
	Destroy(ctx context.Context) error
	HandleSysEvent(evtType SysEventType, data any)
}

// Microphone is the device-side contract the core consumes; it never
// implements capture itself.
type Microphone interface {
	Rate() uint32
	Width() uint8
	Channels() uint8
	// The fabric calls Init and then StartStream when Run starts, and
	// Destroy when Run ends; capture runs for the whole of Run and the
	// modes decide which buffers are forwarded.
	Init(ctx context.Context) error
	Destroy(ctx context.Context) error
	StartStream() error
	StopStream() error
}

// Sound is the device-side playback contract.
type Sound interface {
	Init(ctx context.Context) error
	Destroy(ctx context.Context) error
	HandleSysEvent(evtType SysEventType, data any)
}

// Wake is the device-side wake-word detection contract. A pure
// callback-driven implementation (calling Satellite.WakeDetection from its
// own goroutine) is sufficient; the fabric never calls into Wake beyond
// lifecycle hooks.
type Wake interface {
	Name() string
	Init(ctx context.Context) error
	Destroy(ctx context.Context) error
}
