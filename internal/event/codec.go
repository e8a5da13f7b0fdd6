package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is an outbound event value: a header carrying a type and optional
// version, an optional data object, and an optional binary payload.
type Event struct {
	Type    string
	Version string
	Data    map[string]any
	Payload []byte
}

type headerOut struct {
	Type          string `json:"type"`
	Version       string `json:"version,omitempty"`
	DataLength    int    `json:"data_length,omitempty"`
	PayloadLength int    `json:"payload_length,omitempty"`
}

// Encode serializes e into the wire format: a JSON header line terminated
// by '\n', followed by the data JSON (if any, with no separator), followed
// by the raw payload bytes (if any). The header's data_length and
// payload_length are computed from e and always reflect what follows,
// overriding anything the caller may have set.
func Encode(e Event) ([]byte, error) {
	var dataJSON []byte
	if e.Data != nil {
		var err error
		dataJSON, err = marshalCompact(e.Data)
		if err != nil {
			return nil, fmt.Errorf("event: encode data: %w", err)
		}
	}

	h := headerOut{
		Type:          e.Type,
		Version:       e.Version,
		DataLength:    len(dataJSON),
		PayloadLength: len(e.Payload),
	}
	headerJSON, err := marshalCompact(h)
	if err != nil {
		return nil, fmt.Errorf("event: encode header: %w", err)
	}

	out := make([]byte, 0, len(headerJSON)+1+len(dataJSON)+len(e.Payload))
	out = append(out, headerJSON...)
	out = append(out, '\n')
	out = append(out, dataJSON...)
	out = append(out, e.Payload...)
	return out, nil
}

// marshalCompact marshals v without HTML-escaping and without the trailing
// newline json.Encoder otherwise appends, so callers control framing
// exactly.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
