package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Correlator implements the Request Correlator (spec.md §4.4): it hands out
// monotonic request ids, tracks one pending entry per outstanding request it
// originated, routes responses/errors back to the waiting caller, and keeps
// a weak index from progress token to pending entry so
// notifications/progress can be delivered without touching completion.
//
// Grounded on the teacher's pendingReqs map + nextRequestID counter
// (client.go), generalized to own progress-token indexing and
// timeout/cancellation completion instead of leaving that to callers.
type Correlator struct {
	clock Clock

	mu              sync.Mutex
	nextID          int64
	pending         map[string]*pendingCall
	byProgressToken map[string]string // progress token string -> request id string
}

// NewCorrelator creates a Correlator using clock as its time source for
// timeouts. Pass a FakeClock in tests for deterministic timeout behavior.
func NewCorrelator(clock Clock) *Correlator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Correlator{
		clock:           clock,
		pending:         make(map[string]*pendingCall),
		byProgressToken: make(map[string]string),
	}
}

// AllocateID returns the next monotonically increasing request id.
func (c *Correlator) AllocateID() RequestID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return NewRequestID(c.nextID)
}

// NewProgressToken mints an opaque progress token for a request that wants
// progress notifications, using a UUID so tokens collide across restarts as
// rarely as the id space allows.
func NewProgressToken() ProgressToken {
	return ProgressToken{Value: uuid.NewString()}
}

// pendingResult is what Resolve/Cancel/CancelAll deliver to Wait: either a
// wire Message (the normal response/error path) or a direct Go error, used
// for locally-synthesized completions (cancellation) that have no wire
// Error object of their own.
type pendingResult struct {
	msg Message
	err error
}

// pendingCall is one outstanding request's bookkeeping.
type pendingCall struct {
	id       RequestID
	method   string
	resultCh chan pendingResult

	mu         sync.Mutex
	onProgress func(ParamsValue)
	done       bool
}

// PendingCall is the caller-facing handle for an in-flight request.
type PendingCall struct {
	c    *Correlator
	call *pendingCall
}

// CallOptions configures a registered pending request.
type CallOptions struct {
	// ProgressToken, if non-nil, indexes this call so Progress() can route
	// notifications/progress back to OnProgress.
	ProgressToken *ProgressToken

	// OnProgress is invoked, on the goroutine that calls Progress (the
	// Engine's inbound notification handling), for every
	// notifications/progress delivered against ProgressToken.
	OnProgress func(ParamsValue)

	// Timeout is not read by Register. The Engine passes it to Wait, using
	// its own configured request timeout when Timeout is zero.
	Timeout time.Duration
}

// Register begins tracking id/method as an in-flight request and returns a
// handle to wait on its completion.
func (c *Correlator) Register(id RequestID, method string, opts CallOptions) *PendingCall {
	pc := &pendingCall{
		id:         id,
		method:     method,
		resultCh:   make(chan pendingResult, 1),
		onProgress: opts.OnProgress,
	}

	c.mu.Lock()
	c.pending[id.String()] = pc
	if opts.ProgressToken != nil {
		c.byProgressToken[opts.ProgressToken.String()] = id.String()
	}
	c.mu.Unlock()

	return &PendingCall{c: c, call: pc}
}

// Resolve delivers a response/error message to its matching pending call.
// It reports whether msg.ID matched a registered request; an unmatched
// response is a protocol anomaly the Engine should log and drop.
func (c *Correlator) Resolve(msg Message) bool {
	if msg.ID == nil {
		return false
	}
	key := msg.ID.String()

	c.mu.Lock()
	pc, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
		c.removeProgressIndexLocked(key)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	pc.mu.Lock()
	pc.done = true
	pc.mu.Unlock()

	pc.resultCh <- pendingResult{msg: msg}
	return true
}

// Progress routes a notifications/progress payload to the pending call
// registered under token, if any. Reports whether a match was found.
func (c *Correlator) Progress(token ProgressToken, params ParamsValue) bool {
	c.mu.Lock()
	key, ok := c.byProgressToken[token.String()]
	var pc *pendingCall
	if ok {
		pc, ok = c.pending[key]
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	pc.mu.Lock()
	cb := pc.onProgress
	done := pc.done
	pc.mu.Unlock()
	if done || cb == nil {
		return false
	}
	cb(params)
	return true
}

// Cancel marks the pending call canceled and completes Wait with a
// CanceledError, matching the notifications/cancelled behavior of spec.md
// §4.4 (a cancellation is advisory — the peer may still reply, and a
// later Resolve for the same id is simply ignored since the entry is
// already removed).
func (c *Correlator) Cancel(id RequestID, reason string) bool {
	key := id.String()
	c.mu.Lock()
	pc, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
		c.removeProgressIndexLocked(key)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	pc.mu.Lock()
	pc.done = true
	pc.mu.Unlock()

	pc.resultCh <- pendingResult{err: NewCanceledError(reason)}
	return true
}

// CancelAll completes every pending call with a CanceledError, used when a
// session tears down (spec.md §4.3's Closed state) so no caller blocks
// forever on a transport that will never answer.
func (c *Correlator) CancelAll(reason string) {
	c.mu.Lock()
	calls := make([]*pendingCall, 0, len(c.pending))
	for _, pc := range c.pending {
		calls = append(calls, pc)
	}
	c.pending = make(map[string]*pendingCall)
	c.byProgressToken = make(map[string]string)
	c.mu.Unlock()

	for _, pc := range calls {
		pc.mu.Lock()
		already := pc.done
		pc.done = true
		pc.mu.Unlock()
		if already {
			continue
		}
		pc.resultCh <- pendingResult{err: NewCanceledError(reason)}
	}
}

func (c *Correlator) removeProgressIndexLocked(requestKey string) {
	for token, key := range c.byProgressToken {
		if key == requestKey {
			delete(c.byProgressToken, token)
		}
	}
}

// Wait blocks until the request completes, timeout elapses (returning a
// TimeoutError; zero means no timer), or ctx is canceled. A response
// carrying a JSON-RPC error object is returned as an *RPCError, not a
// transport-level error.
func (pc *PendingCall) Wait(ctx context.Context, timeout time.Duration) (json.RawMessage, error) {
	var timerCh <-chan time.Time
	var stop func() bool
	if timeout > 0 {
		timerCh, stop = pc.c.clock.NewTimer(timeout)
		defer stop()
	}

	select {
	case res := <-pc.call.resultCh:
		if res.err != nil {
			return nil, res.err
		}
		if res.msg.Err != nil {
			return nil, NewRPCError(res.msg.Err)
		}
		return res.msg.Result, nil
	case <-timerCh:
		pc.c.mu.Lock()
		_, stillPending := pc.c.pending[pc.call.id.String()]
		if stillPending {
			delete(pc.c.pending, pc.call.id.String())
			pc.c.removeProgressIndexLocked(pc.call.id.String())
		}
		pc.c.mu.Unlock()
		return nil, NewTimeoutError(fmt.Sprintf("request %s (%s) timed out after %s", pc.call.id.String(), pc.call.method, timeout))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

