package event

import (
	"bytes"
	"encoding/json"
)

type decoderState int

const (
	stateHeader decoderState = iota
	stateData
	statePayload
)

// wipEvent tracks the event currently being assembled across one or more
// Next calls (header -> optional data -> optional payload chunks).
type wipEvent struct {
	header          *Header
	data            map[string]any
	dataLength      int
	payloadLength   int
	payloadReceived int
	beginEmitted    bool
}

// Decoder is a streaming, allocation-light parser for the event wire
// format: a JSON header line, an optional JSON data object of a declared
// length, and an optional binary payload of a declared length, all
// possibly delivered across many reads with junk interleaved between
// events. It never blocks and never allocates a payload buffer per event;
// payload bytes are copied into a fixed internal buffer and handed to the
// caller in chunks no larger than BufferSize.
//
// A Decoder is not safe for concurrent use. One Decoder serves one
// connection and is reset between connections.
type Decoder struct {
	buf    []byte // capacity BufferSize; buf[:length] holds unconsumed bytes
	length int

	payload []byte // capacity BufferSize, reused across PAYLOAD records

	state decoderState
	wip   wipEvent
}

// NewDecoder returns a decoder ready to consume bytes from a fresh
// connection.
func NewDecoder() *Decoder {
	d := &Decoder{
		buf:     make([]byte, BufferSize),
		payload: make([]byte, BufferSize),
	}
	d.Reset()
	return d
}

// Reset drops any buffered bytes and any in-progress event, returning the
// decoder to its initial HEADER state. Call once per new connection.
func (d *Decoder) Reset() {
	d.state = stateHeader
	d.length = 0
	d.wip = wipEvent{}
}

// BufferGet returns the writable tail of the staging buffer. The transport
// reads incoming bytes into this slice.
func (d *Decoder) BufferGet() []byte {
	return d.buf[d.length:]
}

// BufferAdvance commits n bytes freshly written into the slice returned by
// the prior BufferGet call.
func (d *Decoder) BufferAdvance(n int) {
	d.length += n
}

func (d *Decoder) compact(n int) {
	if n <= 0 {
		return
	}
	copy(d.buf, d.buf[n:d.length])
	d.length -= n
}

// scratchEverything implements the decoder's one unrecoverable failure
// mode: data that doesn't parse as the declared JSON object can't be
// safely resynced mid-stream, so the whole staging buffer and any
// in-progress event are sacrificed.
func (d *Decoder) scratchEverything() {
	d.length = 0
	d.wip = wipEvent{}
	d.state = stateHeader
}

var headerMarker = []byte(`{"`)
var headerTerminator = []byte("}\n")

// Next attempts to produce the next decoded record from whatever bytes are
// currently staged. It returns ok == false when no record can be produced
// without more input; callers should read more bytes via BufferGet /
// BufferAdvance and call Next again, draining it (calling until ok is
// false) after every read.
func (d *Decoder) Next() (Record, bool) {
	for {
		var rec Record
		var produced, needMore bool
		switch d.state {
		case stateHeader:
			rec, produced, needMore = d.nextHeader()
		case stateData:
			rec, produced, needMore = d.nextData()
		default:
			rec, produced, needMore = d.nextPayload()
		}
		if needMore {
			return Record{}, false
		}
		if produced {
			return rec, true
		}
		// Header/data discarded or consumed without producing a record;
		// loop and retry against whatever bytes remain.
	}
}

func (d *Decoder) nextHeader() (rec Record, produced, needMore bool) {
	data := d.buf[:d.length]

	start := bytes.Index(data, headerMarker)
	if start < 0 {
		if d.length > 0 && data[d.length-1] == '{' {
			d.compact(d.length - 1)
		} else {
			d.length = 0
		}
		return Record{}, false, true
	}
	if start > 0 {
		d.compact(start)
		data = d.buf[:d.length]
	}

	end := bytes.Index(data, headerTerminator)
	if end < 0 {
		if d.length == BufferSize {
			// Header never terminates within the buffer bound; it can
			// never be completed. Discard it entirely rather than OOM.
			d.length = 0
		}
		return Record{}, false, true
	}

	headerEnd := end + 1 // index of '\n'
	jsonSlice := data[:end+1]
	lineLen := headerEnd + 1

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(jsonSlice))
	if err := dec.Decode(&raw); err != nil || dec.InputOffset() != int64(len(jsonSlice)) {
		d.compact(lineLen)
		return Record{}, false, false
	}

	typ, ok := raw["type"].(string)
	if !ok {
		d.compact(lineLen)
		return Record{}, false, false
	}

	dataLength, ok := intField(raw, "data_length")
	if !ok || dataLength < 0 || dataLength > BufferSize {
		d.compact(lineLen)
		return Record{}, false, false
	}
	payloadLength, ok := intField(raw, "payload_length")
	if !ok || payloadLength < 0 || payloadLength > MaxPayloadLength {
		d.compact(lineLen)
		return Record{}, false, false
	}

	header := &Header{
		Type:          typ,
		DataLength:    dataLength,
		PayloadLength: payloadLength,
		Raw:           raw,
	}
	if v, ok := raw["version"].(string); ok {
		header.Version = v
	}
	if v, ok := raw["data"].(map[string]any); ok {
		header.Data = v
	}

	d.compact(lineLen)

	if dataLength == 0 && payloadLength == 0 {
		return Record{Flags: FlagBegin | FlagEnd, Header: header}, true, false
	}

	d.wip = wipEvent{header: header, dataLength: dataLength, payloadLength: payloadLength}
	if dataLength > 0 {
		d.state = stateData
	} else {
		d.state = statePayload
	}
	return Record{}, false, false
}

// intField reads an optional numeric field out of a decoded JSON object. A
// missing field reads as 0/ok; a present field of the wrong type reads as
// not-ok so callers can treat it like an oversize/invalid declaration.
func intField(raw map[string]any, key string) (int, bool) {
	v, present := raw[key]
	if !present {
		return 0, true
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func (d *Decoder) nextData() (rec Record, produced, needMore bool) {
	if d.length < d.wip.dataLength {
		return Record{}, false, true
	}
	candidate := d.buf[:d.wip.dataLength]

	if len(candidate) > 0 && (candidate[0] != '{' || candidate[len(candidate)-1] != '}') {
		d.scratchEverything()
		return Record{}, false, false
	}

	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(candidate))
	if err := dec.Decode(&data); err != nil || dec.InputOffset() != int64(len(candidate)) {
		d.compact(d.wip.dataLength)
		d.wip = wipEvent{}
		d.state = stateHeader
		return Record{}, false, false
	}

	d.compact(d.wip.dataLength)

	header := d.wip.header
	if d.wip.payloadLength == 0 {
		d.wip = wipEvent{}
		d.state = stateHeader
		return Record{Flags: FlagBegin | FlagEnd, Header: header, Data: data}, true, false
	}

	// Data is carried on the payload records; the first of them has BEGIN.
	d.wip.data = data
	d.state = statePayload
	return Record{}, false, false
}

func (d *Decoder) nextPayload() (rec Record, produced, needMore bool) {
	if d.length == 0 {
		return Record{}, false, true
	}

	remaining := d.wip.payloadLength - d.wip.payloadReceived
	take := remaining
	if take > d.length {
		take = d.length
	}
	if take > BufferSize {
		take = BufferSize
	}

	offset := d.wip.payloadReceived
	copy(d.payload[:take], d.buf[:take])
	d.compact(take)
	d.wip.payloadReceived = offset + take

	flags := FlagPayload
	if offset == 0 && !d.wip.beginEmitted {
		flags |= FlagBegin
		d.wip.beginEmitted = true
	}
	done := d.wip.payloadReceived == d.wip.payloadLength
	if done {
		flags |= FlagEnd
	}

	header := d.wip.header
	data := d.wip.data
	rec = Record{
		Flags:   flags,
		Header:  header,
		Data:    data,
		Payload: d.payload[:take],
		Offset:  offset,
		Size:    take,
	}

	if done {
		d.wip = wipEvent{}
		d.state = stateHeader
	}
	return rec, true, false
}
