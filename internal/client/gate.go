package client

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
)

const (
	contPending int32 = iota
	contClaimed
	contAbandoned
)

type replayResult struct {
	resp *http.Response
	err  error
}

// continuation is a request that failed with 401 and waits for a refresh.
// Exactly one of claim or abandon wins.
type continuation struct {
	ctx    context.Context
	run    func(context.Context) (*http.Response, error)
	state  atomic.Int32
	result chan replayResult
}

func newContinuation(ctx context.Context, run func(context.Context) (*http.Response, error)) *continuation {
	return &continuation{ctx: ctx, run: run, result: make(chan replayResult, 1)}
}

func (c *continuation) claim() bool {
	return c.state.CompareAndSwap(contPending, contClaimed)
}

func (c *continuation) abandon() bool {
	return c.state.CompareAndSwap(contPending, contAbandoned)
}

func (c *continuation) replay() {
	if !c.claim() {
		return
	}
	resp, err := c.run(c.ctx)
	c.result <- replayResult{resp: resp, err: err}
}

func (c *continuation) fail(err error) {
	if !c.claim() {
		return
	}
	c.result <- replayResult{err: err}
}

// refreshGate lets one refresh run at a time and queues the requests that
// arrive while it does.
type refreshGate struct {
	mu       sync.Mutex
	inflight bool
	queue    []*continuation
}

// acquireOrWait queues cont and reports whether the caller must start the
// refresh.
func (g *refreshGate) acquireOrWait(cont *continuation) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, cont)
	if g.inflight {
		return false
	}
	g.inflight = true
	return true
}

// release clears the in-flight flag and returns the queue in arrival order.
func (g *refreshGate) release() []*continuation {
	g.mu.Lock()
	defer g.mu.Unlock()
	q := g.queue
	g.queue = nil
	g.inflight = false
	return q
}
