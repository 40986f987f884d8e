// Package protocol decodes the line-framed agent event stream emitted by the
// model-serving backend. The wire format is one frame per line:
//
//	<tag>:<json-payload>\n
//
// where the tag is a single backend-defined character. The decoder is
// push-based: byte chunks go in as they arrive off the network, complete
// frames come out. Malformed input is dropped, never surfaced as an error -
// the stream keeps flowing.
package protocol

// FrameKind identifies the variant of a decoded frame.
type FrameKind string

const (
	KindTextDelta  FrameKind = "text-delta"
	KindToolCall   FrameKind = "tool-call"
	KindToolResult FrameKind = "tool-result"
	KindError      FrameKind = "error"
	KindDone       FrameKind = "done"
)

// ToolCall is a request from the backend for a tool invocation.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"toolName"`
	Args map[string]any `json:"args"`
}

// ToolResult carries the outcome of a tool invocation. ID is empty when the
// producer omitted it; the correlator then falls back to oldest-pending
// resolution.
type ToolResult struct {
	ID     string
	Name   string
	Result map[string]any
	OK     bool
}

// Frame is the atomic decoded unit of the stream. Exactly one of Call and
// Result is set, depending on Kind; Text carries the payload for text-delta
// and error frames.
type Frame struct {
	Kind   FrameKind
	Text   string
	Call   *ToolCall
	Result *ToolResult
}

// wire tags, backend-defined constants. Treated as an opaque lookup table;
// the decoder logic never depends on particular tag values.
var tagTable = map[byte]FrameKind{
	'0': KindTextDelta,
	'9': KindToolCall,
	'a': KindToolResult,
	'e': KindError,
	'd': KindDone,
}
