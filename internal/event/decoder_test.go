package event

import (
	"bytes"
	"testing"
)

// feed writes chunk into the decoder's staging buffer and drains every
// record it yields before returning, mirroring how the connection loop
// calls BufferGet/BufferAdvance then Next-until-false after every read.
func feed(t *testing.T, d *Decoder, chunk []byte) []Record {
	t.Helper()
	buf := d.BufferGet()
	if len(chunk) > len(buf) {
		t.Fatalf("chunk of %d bytes exceeds available buffer space %d", len(chunk), len(buf))
	}
	n := copy(buf, chunk)
	d.BufferAdvance(n)

	var records []Record
	for {
		rec, ok := d.Next()
		if !ok {
			break
		}
		// Payload is a view into decoder-owned storage; copy it like a
		// real consumer must, since it is invalidated by the next call.
		if rec.Payload != nil {
			cp := make([]byte, len(rec.Payload))
			copy(cp, rec.Payload)
			rec.Payload = cp
		}
		records = append(records, rec)
	}
	return records
}

func feedAll(t *testing.T, d *Decoder, chunks ...[]byte) []Record {
	t.Helper()
	var all []Record
	for _, c := range chunks {
		all = append(all, feed(t, d, c)...)
	}
	return all
}

func TestDecoder_JunkThenHeader(t *testing.T) {
	d := NewDecoder()
	recs := feedAll(t, d, []byte("zxzzc{\"type\":\"t\",\"something\":true}\n"))
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Flags != FlagBegin|FlagEnd {
		t.Errorf("flags = %v, want BEGIN|END", recs[0].Flags)
	}
	if recs[0].Header.Type != "t" {
		t.Errorf("type = %q, want t", recs[0].Header.Type)
	}
	if d.length != 0 {
		t.Errorf("buffer not drained, length=%d", d.length)
	}
}

func TestDecoder_SplitHeaderStart(t *testing.T) {
	d := NewDecoder()
	recs := feedAll(t, d, []byte("{"), []byte("\"type\":\"split\"}\n"))
	if len(recs) != 1 || recs[0].Header.Type != "split" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestDecoder_TwoHeadersBackToBack(t *testing.T) {
	d := NewDecoder()
	recs := feedAll(t, d, []byte("{\"type\":\"first\"}\n{\"type\":\"second\"}\n"))
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Header.Type != "first" || recs[1].Header.Type != "second" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestDecoder_InvalidThenValidType(t *testing.T) {
	d := NewDecoder()
	recs := feedAll(t, d, []byte("{\"type\":123}\n{\"type\":\"good\"}\n"))
	if len(recs) != 1 || recs[0].Header.Type != "good" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestDecoder_HeaderDataPayloadChunked(t *testing.T) {
	d := NewDecoder()
	header := []byte("{\"type\":\"x\",\"data_length\":7,\"payload_length\":4}\n")
	recs := feedAll(t, d, header, []byte("{\"a\":1}"), []byte{1, 2, 3, 4})
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 (payload fits one chunk): %+v", len(recs), recs)
	}
	r := recs[0]
	if r.Flags != FlagBegin|FlagPayload|FlagEnd {
		t.Errorf("flags = %v, want BEGIN|PAYLOAD|END", r.Flags)
	}
	if r.Data["a"] != float64(1) {
		t.Errorf("data.a = %v, want 1", r.Data["a"])
	}
	if !bytes.Equal(r.Payload, []byte{1, 2, 3, 4}) {
		t.Errorf("payload = %v, want [1 2 3 4]", r.Payload)
	}
}

func TestDecoder_OversizeDataLengthRejected(t *testing.T) {
	d := NewDecoder()
	header := []byte("{\"type\":\"x\",\"data_length\":4097}\n")
	recs := feedAll(t, d, header)
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0", len(recs))
	}
	if d.state != stateHeader || d.length != 0 {
		t.Errorf("decoder not reset to empty HEADER state: state=%v length=%d", d.state, d.length)
	}
}

func TestDecoder_PayloadSplitAcrossChunks(t *testing.T) {
	d := NewDecoder()
	header := []byte("{\"type\":\"audio-chunk\",\"payload_length\":9}\n")
	recs := feedAll(t, d, header, []byte{1, 2}, []byte{3, 4, 5}, []byte{6, 7, 8, 9})
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3: %+v", len(recs), recs)
	}
	if recs[0].Flags != FlagBegin|FlagPayload {
		t.Errorf("first flags = %v, want BEGIN|PAYLOAD", recs[0].Flags)
	}
	if recs[1].Flags != FlagPayload {
		t.Errorf("middle flags = %v, want PAYLOAD", recs[1].Flags)
	}
	if recs[2].Flags != FlagPayload|FlagEnd {
		t.Errorf("last flags = %v, want PAYLOAD|END", recs[2].Flags)
	}
	var got []byte
	for _, r := range recs {
		if r.Offset != len(got) {
			t.Errorf("offset = %d, want %d", r.Offset, len(got))
		}
		got = append(got, r.Payload...)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Errorf("reassembled payload = %v", got)
	}
}

func TestDecoder_FullPacketSplitAtBufferSize(t *testing.T) {
	d := NewDecoder()
	payload := make([]byte, 5056)
	for i := range payload {
		payload[i] = byte(i)
	}
	header := []byte("{\"type\":\"audio-chunk\",\"payload_length\":5056}\n")
	recs := feedAll(t, d, header, payload[:BufferSize], payload[BufferSize:])
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2: flags=%v,%v sizes=%d,%d", len(recs),
			recs[0].Flags, recsFlagsSafe(recs, 1), recs[0].Size, sizeSafe(recs, 1))
	}
	if recs[0].Offset != 0 || recs[0].Size != BufferSize || recs[0].Flags != FlagBegin|FlagPayload {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].Offset != BufferSize || recs[1].Size != 5056-BufferSize || recs[1].Flags != FlagPayload|FlagEnd {
		t.Errorf("second record = %+v", recs[1])
	}
}

func recsFlagsSafe(recs []Record, i int) Flags {
	if i < len(recs) {
		return recs[i].Flags
	}
	return 0
}

func sizeSafe(recs []Record, i int) int {
	if i < len(recs) {
		return recs[i].Size
	}
	return -1
}

func TestDecoder_SkipInvalidHeaderParseNext(t *testing.T) {
	d := NewDecoder()
	recs := feedAll(t, d, []byte("{\"wannabejson\"}\n{\"type\":\"good\"}\n"))
	if len(recs) != 1 || recs[0].Header.Type != "good" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestDecoder_HeaderDataInOneBuffer(t *testing.T) {
	d := NewDecoder()
	recs := feedAll(t, d, []byte("{\"type\":\"x\",\"data_length\":10}\n{\"x\":1234}"))
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Flags != FlagBegin|FlagEnd {
		t.Errorf("flags = %v, want BEGIN|END", recs[0].Flags)
	}
	if recs[0].Data["x"] != float64(1234) {
		t.Errorf("data.x = %v, want 1234", recs[0].Data["x"])
	}
}

func TestDecoder_HeaderPayloadInOneBuffer(t *testing.T) {
	d := NewDecoder()
	recs := feedAll(t, d, []byte("{\"type\":\"x\",\"payload_length\":4}\n"), []byte{1, 2, 3, 4})
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(recs), recs)
	}
	if recs[0].Flags != FlagBegin|FlagPayload|FlagEnd {
		t.Errorf("flags = %v", recs[0].Flags)
	}
	if !bytes.Equal(recs[0].Payload, []byte{1, 2, 3, 4}) {
		t.Errorf("payload = %v", recs[0].Payload)
	}
}

func TestDecoder_HeaderDataPayloadInOneBuffer(t *testing.T) {
	d := NewDecoder()
	full := []byte("{\"type\":\"x\",\"data_length\":7,\"payload_length\":4}\n{\"a\":1}")
	full = append(full, 21, 22, 23, 24)
	recs := feedAll(t, d, full)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(recs), recs)
	}
	r := recs[0]
	if r.Flags != FlagBegin|FlagPayload|FlagEnd {
		t.Errorf("flags = %v", r.Flags)
	}
	if r.Data["a"] != float64(1) {
		t.Errorf("data.a = %v", r.Data["a"])
	}
	if !bytes.Equal(r.Payload, []byte{21, 22, 23, 24}) {
		t.Errorf("payload = %v", r.Payload)
	}
}

func TestDecoder_DataSplitAcrossChunksWithNextHeaderPreserved(t *testing.T) {
	d := NewDecoder()
	recs := feedAll(t, d,
		[]byte("{\"type\":\"x\",\"data_length\":10}\n"),
		[]byte("{\"x\":12"),
		[]byte("34}{\"type\":\"y\"}\n"),
	)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(recs), recs)
	}
	if recs[0].Data["x"] != float64(1234) {
		t.Errorf("first data.x = %v", recs[0].Data["x"])
	}
	if recs[1].Header.Type != "y" {
		t.Errorf("second type = %q", recs[1].Header.Type)
	}
}

func TestDecoder_DataNotObjectScratchesEverything(t *testing.T) {
	d := NewDecoder()
	// data_length=5 but the 5 bytes aren't object-framed: scratch-everything
	// discards the buffer (including whatever junk trails) and returns to
	// HEADER rather than trying to resync mid-object.
	recs := feedAll(t, d, []byte("{\"type\":\"x\",\"data_length\":5}\n12345{\"type\":\"z\"}\n"))
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0 (scratched): %+v", len(recs), recs)
	}
	if d.length != 0 {
		t.Errorf("buffer not scratched, length=%d", d.length)
	}
}

func TestDecoder_BoundNeverExceedsBufferSize(t *testing.T) {
	d := NewDecoder()
	junk := bytes.Repeat([]byte("x"), BufferSize*2)
	recs := feedAll(t, d, junk[:BufferSize], junk[BufferSize:])
	if len(recs) != 0 {
		t.Fatalf("got %d records from pure junk", len(recs))
	}
	if d.length > BufferSize {
		t.Fatalf("decoder retained %d bytes, want <= %d", d.length, BufferSize)
	}
}

func TestDecoder_Idempotence(t *testing.T) {
	stream := []byte("{\"type\":\"a\",\"data_length\":7}\n{\"n\":1}{\"type\":\"b\"}\n")

	whole := NewDecoder()
	recsWhole := feedAll(t, whole, stream)

	bytewise := NewDecoder()
	var chunks [][]byte
	for _, b := range stream {
		chunks = append(chunks, []byte{b})
	}
	recsByte := feedAll(t, bytewise, chunks...)

	if len(recsWhole) != len(recsByte) {
		t.Fatalf("record count differs: whole=%d byte-by-byte=%d", len(recsWhole), len(recsByte))
	}
	for i := range recsWhole {
		if recsWhole[i].Header.Type != recsByte[i].Header.Type || recsWhole[i].Flags != recsByte[i].Flags {
			t.Errorf("record %d differs: whole=%+v byte=%+v", i, recsWhole[i], recsByte[i])
		}
	}
}

func TestDecoder_CodecRoundTrip(t *testing.T) {
	ev := Event{
		Type:    "audio-chunk",
		Version: "1.5.2",
		Data:    map[string]any{"rate": float64(16000), "width": float64(2), "channels": float64(1)},
		Payload: []byte{9, 8, 7, 6, 5},
	}
	wire, err := Encode(ev)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	d := NewDecoder()
	recs := feedAll(t, d, wire)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Header.Type != ev.Type {
		t.Errorf("type = %q, want %q", r.Header.Type, ev.Type)
	}
	if r.Data["rate"] != ev.Data["rate"] {
		t.Errorf("data.rate = %v, want %v", r.Data["rate"], ev.Data["rate"])
	}
	if !bytes.Equal(r.Payload, ev.Payload) {
		t.Errorf("payload = %v, want %v", r.Payload, ev.Payload)
	}
}
