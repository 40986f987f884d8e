package transcript

import (
	"agentwire/internal/logging"
	"agentwire/internal/protocol"
)

// resolveLocked matches a tool-result frame to the record it completes.
//
// Primary rule: a non-empty id resolves to the pending record with that id.
// Fallback rule: an id-less result resolves to the earliest record still
// pending, in insertion order. This assumes results arrive in the order their
// calls were issued, which holds for this protocol's producer but is not a
// contractual guarantee; if the backend ever reorders id-less results this
// resolves to the wrong call.
//
// Unmatched results (duplicate or out-of-band) are dropped; correlation
// failure never escalates to a turn-level error.
func (t *Transcript) resolveLocked(res *protocol.ToolResult) bool {
	if res == nil {
		return false
	}

	var rec *ToolCallRecord
	if res.ID != "" {
		rec = t.byID[res.ID]
		if rec == nil || rec.Status != CallPending {
			logging.TranscriptDebug("dropping unmatched tool-result id=%s", res.ID)
			return false
		}
	} else {
		for _, c := range t.calls {
			if c.Status == CallPending {
				rec = c
				break
			}
		}
		if rec == nil {
			logging.TranscriptDebug("dropping id-less tool-result: no pending call")
			return false
		}
	}

	if res.OK {
		rec.Status = CallDone
	} else {
		rec.Status = CallError
	}
	rec.Result = res.Result

	logging.TranscriptDebug("resolved call %s (%s) -> %s", rec.ID, rec.Name, rec.Status)
	return true
}
