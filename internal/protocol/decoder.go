package protocol

import (
	"bytes"
	"encoding/json"

	"agentwire/internal/logging"
)

// Decoder turns a raw byte stream into typed frames. Feed it chunks as they
// arrive; it buffers the trailing partial line (including a split mid-way
// through a multi-byte character) until the rest shows up.
//
// Splitting on '\n' at the byte level is safe: UTF-8 guarantees that ASCII
// bytes never appear inside a multi-byte sequence, so a newline byte is
// always a real frame boundary. A chunk that ends mid-character simply leaves
// the incomplete bytes in the buffer.
type Decoder struct {
	buf []byte

	// stats, useful when debugging a noisy transport
	framesOut    int
	linesDropped int
}

// NewDecoder returns a decoder with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk to the buffer and returns every frame completed by it,
// in arrival order. Malformed lines are dropped silently; decoding never
// fails.
func (d *Decoder) Feed(chunk []byte) []Frame {
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]

		if f, ok := d.decodeLine(line); ok {
			frames = append(frames, f)
			d.framesOut++
		}
	}
	return frames
}

// Finish discards any unterminated trailing fragment and reports whether one
// was dropped. A stream must end on a frame boundary; a partial tail is not a
// completeness guarantee the decoder can satisfy.
func (d *Decoder) Finish() bool {
	dropped := len(d.buf) > 0
	if dropped {
		logging.StreamDebug("discarding %d-byte unterminated tail", len(d.buf))
	}
	d.buf = nil
	return dropped
}

// FramesDecoded returns the number of frames produced so far.
func (d *Decoder) FramesDecoded() int {
	return d.framesOut
}

// LinesDropped returns the number of non-blank lines dropped as malformed.
func (d *Decoder) LinesDropped() int {
	return d.linesDropped
}

// decodeLine parses a single complete line into a frame. Blank lines are
// skipped; anything else that fails to parse is counted and dropped.
func (d *Decoder) decodeLine(line []byte) (Frame, bool) {
	// Tolerate CRLF transports.
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(line) == 0 {
		return Frame{}, false
	}

	// One-character tag, colon, payload.
	if len(line) < 2 || line[1] != ':' {
		d.drop(line, "missing tag separator")
		return Frame{}, false
	}

	kind, ok := tagTable[line[0]]
	if !ok {
		d.drop(line, "unknown tag")
		return Frame{}, false
	}
	payload := line[2:]

	switch kind {
	case KindTextDelta:
		var text string
		if err := json.Unmarshal(payload, &text); err != nil {
			d.drop(line, "bad text payload")
			return Frame{}, false
		}
		return Frame{Kind: KindTextDelta, Text: text}, true

	case KindToolCall:
		var call ToolCall
		if err := json.Unmarshal(payload, &call); err != nil || call.ID == "" || call.Name == "" {
			d.drop(line, "bad tool-call payload")
			return Frame{}, false
		}
		return Frame{Kind: KindToolCall, Call: &call}, true

	case KindToolResult:
		res, ok := decodeToolResult(payload)
		if !ok {
			d.drop(line, "bad tool-result payload")
			return Frame{}, false
		}
		return Frame{Kind: KindToolResult, Result: res}, true

	case KindError:
		msg, ok := decodeErrorMessage(payload)
		if !ok {
			d.drop(line, "bad error payload")
			return Frame{}, false
		}
		return Frame{Kind: KindError, Text: msg}, true

	case KindDone:
		if !json.Valid(payload) {
			d.drop(line, "bad done payload")
			return Frame{}, false
		}
		return Frame{Kind: KindDone}, true
	}

	return Frame{}, false
}

func (d *Decoder) drop(line []byte, reason string) {
	d.linesDropped++
	logging.StreamDebug("dropped line (%s): %.80q", reason, line)
}

// decodeToolResult handles the result frame's wire shape. The id may be JSON
// null (some producers omit it), and a missing ok flag means success - the
// backend only sets it explicitly on failure.
func decodeToolResult(payload []byte) (*ToolResult, bool) {
	var aux struct {
		ID     *string        `json:"id"`
		Name   string         `json:"toolName"`
		Result map[string]any `json:"result"`
		OK     *bool          `json:"ok"`
	}
	if err := json.Unmarshal(payload, &aux); err != nil {
		return nil, false
	}

	res := &ToolResult{
		Name:   aux.Name,
		Result: aux.Result,
		OK:     true,
	}
	if aux.ID != nil {
		res.ID = *aux.ID
	}
	if aux.OK != nil {
		res.OK = *aux.OK
	}
	return res, true
}

// decodeErrorMessage accepts either {"message": "..."} or a bare JSON string.
func decodeErrorMessage(payload []byte) (string, bool) {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil && obj.Message != "" {
		return obj.Message, true
	}

	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s, true
	}
	return "", false
}
