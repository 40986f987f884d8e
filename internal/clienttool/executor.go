package clienttool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"agentwire/internal/logging"
	"agentwire/internal/protocol"
	"agentwire/internal/repo"
)

// Completion is the outcome of one client tool execution: a synthesized
// tool-result frame, plus whether the repository was mutated. Completions are
// queued for the turn controller to drain on its own loop - the executor
// never touches the transcript directly, preserving single-writer discipline.
type Completion struct {
	Frame   protocol.Frame
	Mutated bool
	Elapsed time.Duration
}

// Executor runs allow-listed tool calls against the file repository,
// concurrently with stream consumption. It serves a single turn: dispatch is
// idempotent per tool-call id, and Finish seals the completion queue once the
// turn stops dispatching.
type Executor struct {
	reg        *Registry
	repository repo.Repository
	projectID  string

	// onFilesChanged is fired at most once per successful mutating call, from
	// the worker goroutine. A boundary event, not core state.
	onFilesChanged func(projectID string)

	completions chan Completion
	g           errgroup.Group

	mu         sync.Mutex
	dispatched map[string]bool
	finished   bool
}

// NewExecutor creates a single-turn executor. onFilesChanged may be nil.
func NewExecutor(reg *Registry, repository repo.Repository, projectID string, onFilesChanged func(string)) *Executor {
	return &Executor{
		reg:            reg,
		repository:     repository,
		projectID:      projectID,
		onFilesChanged: onFilesChanged,
		completions:    make(chan Completion, 16),
		dispatched:     make(map[string]bool),
	}
}

// Handles reports whether a tool name is in the client allow-list.
func (e *Executor) Handles(name string) bool {
	return e.reg.Has(name)
}

// Completions returns the queue of synthesized result frames. It is closed by
// Finish after all in-flight executions drain.
func (e *Executor) Completions() <-chan Completion {
	return e.completions
}

// Dispatch starts an asynchronous execution for the call and returns
// immediately; the result arrives later on the completions queue. At most one
// execution is dispatched per tool-call id. Returns false if the call was a
// duplicate or the executor is already finished.
func (e *Executor) Dispatch(ctx context.Context, call *protocol.ToolCall) bool {
	if call == nil || call.ID == "" {
		return false
	}

	e.mu.Lock()
	if e.finished || e.dispatched[call.ID] {
		e.mu.Unlock()
		logging.ToolsDebug("skipping dispatch for %s: duplicate or executor finished", call.ID)
		return false
	}
	e.dispatched[call.ID] = true
	e.mu.Unlock()

	logging.Tools("dispatching %s (id=%s)", call.Name, call.ID)

	e.g.Go(func() error {
		start := time.Now()
		payload, mutates, err := e.execute(ctx, call)
		elapsed := time.Since(start)

		frame := protocol.Frame{
			Kind: protocol.KindToolResult,
			Result: &protocol.ToolResult{
				ID:     call.ID,
				Name:   call.Name,
				OK:     err == nil,
				Result: payload,
			},
		}
		if err != nil {
			// A broken tool must not abort the turn; the failure travels as
			// data in the result frame.
			frame.Result.Result = map[string]any{"error": err.Error()}
			logging.ToolsError("%s (id=%s) failed after %v: %v", call.Name, call.ID, elapsed, err)
		} else {
			logging.Tools("%s (id=%s) completed in %v", call.Name, call.ID, elapsed)
		}

		mutated := mutates && err == nil
		if mutated && e.onFilesChanged != nil {
			e.onFilesChanged(e.projectID)
		}

		e.completions <- Completion{Frame: frame, Mutated: mutated, Elapsed: elapsed}
		return nil
	})
	return true
}

// Finish waits for every in-flight execution and then closes the completions
// queue. No Dispatch may follow. Safe to call once per turn.
func (e *Executor) Finish() {
	e.mu.Lock()
	e.finished = true
	e.mu.Unlock()

	e.g.Wait() // workers never return errors; failures become result frames
	close(e.completions)
}

// execute resolves and runs the tool, converting panics and unknown names
// into plain errors.
func (e *Executor) execute(ctx context.Context, call *protocol.ToolCall) (payload map[string]any, mutates bool, err error) {
	tool, err := e.reg.Get(call.Name)
	if err != nil {
		// Unknown names are rejected explicitly so the allow-list stays
		// auditable.
		return nil, false, err
	}
	mutates = tool.Mutates

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
		}
	}()

	payload, err = tool.Run(ctx, e.repository, call.Args)
	return payload, mutates, err
}
