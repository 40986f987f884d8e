// Package turn owns the lifecycle of a single assistant run: it pulls byte
// chunks from the source, drives decoded frames through the transcript store,
// routes qualifying tool calls to the client tool executor, and drains
// executor completions back into the transcript on its own loop. It is the
// only component aware of cancellation and terminal state.
package turn

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"agentwire/internal/clienttool"
	"agentwire/internal/logging"
	"agentwire/internal/protocol"
	"agentwire/internal/transcript"
)

// Controller runs one turn. States: idle -> streaming -> {done, aborted,
// failed}. Construct a fresh controller (and executor) per turn.
type Controller struct {
	id   string
	tr   *transcript.Transcript
	exec *clienttool.Executor
	dec  *protocol.Decoder

	startOnce  sync.Once
	cancelOnce sync.Once
	cancelCh   chan struct{}
	doneCh     chan struct{}

	mu      sync.Mutex
	src     io.ReadCloser
	started bool
	runErr  error
}

// New creates an idle controller for a single turn. The transcript exists
// from construction so observers can subscribe before Start.
func New(exec *clienttool.Executor) *Controller {
	id := uuid.NewString()
	return &Controller{
		id:       id,
		tr:       transcript.New(id),
		exec:     exec,
		dec:      protocol.NewDecoder(),
		cancelCh: make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// ID returns the turn identifier.
func (c *Controller) ID() string {
	return c.id
}

// Transcript returns the turn's transcript for snapshots and watching.
func (c *Controller) Transcript() *transcript.Transcript {
	return c.tr
}

// Err returns the transport error that failed the turn, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runErr
}

// Start begins consuming the byte source. Non-blocking; use Wait for the
// final snapshot. Subsequent calls are no-ops.
func (c *Controller) Start(ctx context.Context, src io.ReadCloser) {
	c.startOnce.Do(func() {
		c.mu.Lock()
		c.src = src
		c.started = true
		c.mu.Unlock()

		logging.Turn("turn %s started", c.id)
		go c.run(ctx, src)
	})
}

// Cancel signals the byte source to stop producing and stops frame
// processing. Already-applied state is preserved; in-flight tool executions
// are allowed to complete and still apply their results.
func (c *Controller) Cancel() {
	c.cancelOnce.Do(func() {
		close(c.cancelCh)

		// Closing the source unblocks a pending Read; the reader goroutine
		// owns no other resources.
		c.mu.Lock()
		src := c.src
		c.mu.Unlock()
		if src != nil {
			src.Close()
		}
		logging.Turn("turn %s cancel requested", c.id)
	})
}

// Wait blocks until the turn reaches a terminal state and every dispatched
// tool execution has applied its result, then returns the final snapshot.
func (c *Controller) Wait() transcript.Snapshot {
	<-c.doneCh
	return c.tr.Snapshot()
}

// Run is Start followed by Wait. The returned error is the transport failure
// when the turn failed, nil otherwise - cancellation is not an error, the
// snapshot's state distinguishes it.
func (c *Controller) Run(ctx context.Context, src io.ReadCloser) (transcript.Snapshot, error) {
	c.Start(ctx, src)
	snap := c.Wait()
	return snap, c.Err()
}

func (c *Controller) run(ctx context.Context, src io.ReadCloser) {
	defer close(c.doneCh)

	// The reader goroutine pulls chunks so the processing loop can also
	// watch cancellation and executor completions. loopDone keeps it from
	// leaking if the loop stops receiving.
	chunkCh := make(chan []byte)
	readErrCh := make(chan error, 1)
	loopDone := make(chan struct{})
	defer close(loopDone)

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunkCh <- chunk:
				case <-loopDone:
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					readErrCh <- err
				}
				close(chunkCh)
				return
			}
		}
	}()

	comps := c.exec.Completions()

	streaming := true
	for streaming {
		select {
		case <-ctx.Done():
			c.Cancel()
			c.tr.MarkAborted()
			streaming = false

		case <-c.cancelCh:
			c.tr.MarkAborted()
			streaming = false

		case chunk, ok := <-chunkCh:
			if !ok {
				// Source closed: end-of-stream or transport failure.
				c.dec.Finish()
				select {
				case err := <-readErrCh:
					c.mu.Lock()
					c.runErr = err
					c.mu.Unlock()
					logging.TurnWarn("turn %s transport failure: %v", c.id, err)
					c.tr.MarkFailed()
				default:
					// A missing done frame is not an error; force done.
					c.tr.MarkDone()
				}
				streaming = false
				break
			}
			for _, f := range c.dec.Feed(chunk) {
				c.tr.Apply(f)
				if f.Kind == protocol.KindToolCall && c.exec.Handles(f.Call.Name) {
					c.exec.Dispatch(ctx, f.Call)
				}
			}

		case comp, ok := <-comps:
			if !ok {
				comps = nil
				continue
			}
			c.tr.Apply(comp.Frame)
		}
	}

	// Stop the producer side regardless of how the loop ended.
	src.Close()

	// Drain in-flight executions: their results still apply, even to a
	// transcript that has already left the streaming state.
	go c.exec.Finish()
	for comp := range c.exec.Completions() {
		c.tr.Apply(comp.Frame)
	}

	snap := c.tr.Snapshot()
	logging.Turn("turn %s finished: state=%s text=%dB calls=%d frames=%d dropped=%d",
		c.id, snap.State, len(snap.Text), len(snap.Calls), c.dec.FramesDecoded(), c.dec.LinesDropped())
}
