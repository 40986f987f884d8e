// Package transcript holds the append-only record of one assistant turn:
// accumulated text plus the ordered list of tool-call records, with result
// correlation. The transcript has a single writer - the turn controller's
// processing loop - but snapshots may be read from any goroutine.
package transcript

import (
	"sync"

	"agentwire/internal/logging"
	"agentwire/internal/protocol"
)

// State is the lifecycle state of a turn's transcript.
type State string

const (
	StateStreaming State = "streaming"
	StateDone      State = "done"
	StateAborted   State = "aborted"
	StateFailed    State = "failed"
)

// CallStatus tracks a tool call from observation to resolution.
type CallStatus string

const (
	CallPending CallStatus = "pending"
	CallDone    CallStatus = "done"
	CallError   CallStatus = "error"
)

// ToolCallRecord is one observed tool-call frame. Name and Args are immutable
// after creation; Status transitions out of pending exactly once.
type ToolCallRecord struct {
	ID     string
	Name   string
	Args   map[string]any
	Status CallStatus
	Result map[string]any

	// TextOffset is the length of accumulated text at the moment this call
	// was observed. Used to interleave the call marker at the right position
	// when the transcript is rendered as text with embedded markers.
	TextOffset int
}

// Snapshot is an immutable copy of the transcript, safe to hand to a
// renderer.
type Snapshot struct {
	TurnID string
	Text   string
	Calls  []ToolCallRecord
	State  State
}

// Call returns the record with the given id, if present.
func (s Snapshot) Call(id string) (ToolCallRecord, bool) {
	for _, c := range s.Calls {
		if c.ID == id {
			return c, true
		}
	}
	return ToolCallRecord{}, false
}

// Transcript accumulates one turn. Mutations go through Apply (and the
// terminal Mark* transitions); everything else is read-only.
type Transcript struct {
	mu      sync.Mutex
	turnID  string
	text    []byte
	calls   []*ToolCallRecord
	byID    map[string]*ToolCallRecord
	state   State
	watches []chan Snapshot
}

// New creates an empty transcript in the streaming state.
func New(turnID string) *Transcript {
	return &Transcript{
		turnID: turnID,
		byID:   make(map[string]*ToolCallRecord),
		state:  StateStreaming,
	}
}

// TurnID returns the id of the turn this transcript records.
func (t *Transcript) TurnID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.turnID
}

// CurrentText returns the text accumulated so far.
func (t *Transcript) CurrentText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.text)
}

// ToolCalls returns a copy of the tool-call records in observation order.
func (t *Transcript) ToolCalls() []ToolCallRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyCalls()
}

// State returns the current lifecycle state.
func (t *Transcript) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot returns an immutable copy of the whole transcript.
func (t *Transcript) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Watch returns a channel that receives a snapshot after every mutation.
// Delivery is conflating: a slow receiver sees the latest snapshot, not
// every intermediate one, and the mutation path never blocks on it.
func (t *Transcript) Watch() <-chan Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Snapshot, 1)
	t.watches = append(t.watches, ch)
	return ch
}

// Apply advances the transcript by one frame. It is the only mutation path
// for frame-driven state; terminal transitions go through MarkDone/
// MarkAborted/MarkFailed.
func (t *Transcript) Apply(f protocol.Frame) {
	t.mu.Lock()

	mutated := false
	switch f.Kind {
	case protocol.KindTextDelta:
		// Text is frozen once the turn leaves the streaming state.
		if t.state == StateStreaming && f.Text != "" {
			t.text = append(t.text, f.Text...)
			mutated = true
		}

	case protocol.KindToolCall:
		mutated = t.appendCallLocked(f.Call)

	case protocol.KindToolResult:
		// Late results are applied even after the turn has finished: text is
		// frozen but call status may still update.
		mutated = t.resolveLocked(f.Result)

	case protocol.KindError:
		// Recoverable; surfaced as a visible inline annotation, state
		// unchanged.
		if t.state == StateStreaming && f.Text != "" {
			t.text = append(t.text, "\n[error: "...)
			t.text = append(t.text, f.Text...)
			t.text = append(t.text, "]\n"...)
			mutated = true
		}

	case protocol.KindDone:
		if t.state == StateStreaming {
			t.state = StateDone
			mutated = true
		}
	}

	if !mutated {
		t.mu.Unlock()
		return
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snap)
}

// MarkDone forces the done state if the turn is still streaming. Used when
// the source closes without ever emitting a done frame.
func (t *Transcript) MarkDone() {
	t.markTerminal(StateDone)
}

// MarkAborted records a user-initiated stop. Already-applied text and
// tool-call state are preserved.
func (t *Transcript) MarkAborted() {
	t.markTerminal(StateAborted)
}

// MarkFailed records a transport-level failure. All accumulated state is
// preserved for display.
func (t *Transcript) MarkFailed() {
	t.markTerminal(StateFailed)
}

func (t *Transcript) markTerminal(s State) {
	t.mu.Lock()
	if t.state != StateStreaming {
		t.mu.Unlock()
		return
	}
	t.state = s
	snap := t.snapshotLocked()
	t.mu.Unlock()

	logging.Transcript("turn %s -> %s (%d bytes text, %d calls)", snap.TurnID, s, len(snap.Text), len(snap.Calls))
	t.notify(snap)
}

// appendCallLocked records a new tool call. Duplicate ids are rejected - the
// calling id space is call-site-unique within a turn.
func (t *Transcript) appendCallLocked(call *protocol.ToolCall) bool {
	if call == nil || call.ID == "" {
		return false
	}
	if _, dup := t.byID[call.ID]; dup {
		logging.TranscriptDebug("ignoring duplicate tool-call id %s", call.ID)
		return false
	}

	rec := &ToolCallRecord{
		ID:         call.ID,
		Name:       call.Name,
		Args:       call.Args,
		Status:     CallPending,
		TextOffset: len(t.text),
	}
	t.calls = append(t.calls, rec)
	t.byID[call.ID] = rec
	return true
}

func (t *Transcript) snapshotLocked() Snapshot {
	return Snapshot{
		TurnID: t.turnID,
		Text:   string(t.text),
		Calls:  t.copyCalls(),
		State:  t.state,
	}
}

func (t *Transcript) copyCalls() []ToolCallRecord {
	calls := make([]ToolCallRecord, len(t.calls))
	for i, c := range t.calls {
		calls[i] = *c
	}
	return calls
}

// notify pushes a snapshot to every watcher without blocking. If a watcher's
// mailbox is full the stale snapshot is replaced by the newer one.
func (t *Transcript) notify(snap Snapshot) {
	t.mu.Lock()
	watches := t.watches
	t.mu.Unlock()

	for _, ch := range watches {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
