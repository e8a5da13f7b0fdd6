// Package event implements the wire event model used to talk to a
// Wyoming-style voice-assistant server: a streaming decoder that turns a
// raw byte stream into framed events, and a codec that does the reverse.
package event

const (
	// BufferSize is the fixed staging-buffer capacity for both the
	// decoder's read buffer and its payload buffer (B in the design).
	BufferSize = 4096

	// MaxPayloadLength is the largest payload_length a header may declare.
	MaxPayloadLength = 128 * 1024
)

// Flags marks which part of an event a Record represents.
type Flags uint8

const (
	FlagBegin Flags = 1 << iota
	FlagPayload
	FlagEnd
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

func (f Flags) String() string {
	s := ""
	if f.Has(FlagBegin) {
		s += "BEGIN|"
	}
	if f.Has(FlagPayload) {
		s += "PAYLOAD|"
	}
	if f.Has(FlagEnd) {
		s += "END|"
	}
	if s == "" {
		return "NONE"
	}
	return s[:len(s)-1]
}

// Header is the always-present JSON object at the front of an event.
type Header struct {
	Type          string          `json:"type"`
	Version       string          `json:"version,omitempty"`
	DataLength    int             `json:"data_length,omitempty"`
	PayloadLength int             `json:"payload_length,omitempty"`
	Data          map[string]any  `json:"data,omitempty"`
	Raw           map[string]any  `json:"-"`
}

// Record is one decoder output. A header-only or header+data event is
// exactly one Record carrying BEGIN|END. A payload-bearing event is one or
// more Records: first BEGIN (possibly BEGIN|END), middle ones PAYLOAD only,
// last one END. Header and Data are shared by reference across every
// record of the same event, including PAYLOAD-only ones, so a consumer
// driven per-chunk (forwarding audio as it streams in) never loses track
// of which event it belongs to; consumers must not retain them past the
// END-bearing record without copying.
type Record struct {
	Flags  Flags
	Header *Header
	Data   map[string]any

	// Payload is a view into the decoder's internal staging buffer. It is
	// valid only until the next call to Next; copy it to retain it.
	Payload []byte
	Offset  int
	Size    int
}

// Free releases the resources owned by r. It is a no-op unless r carries
// the END flag, mirroring the source's deferred-free-on-END contract.
func (r *Record) Free() {
	if r == nil || !r.Flags.Has(FlagEnd) {
		return
	}
	r.Header = nil
	r.Data = nil
	r.Payload = nil
}
