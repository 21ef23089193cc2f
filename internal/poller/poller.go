// Package poller runs a function on a fixed interval with an explicit
// start/stop/restart handle.
package poller

import (
	"context"
	"sync"
	"time"
)

// Poller calls fn every interval until stopped. Each Start gets its own
// context, so a stopped loop can never tick again even if a later Start
// happens before it has fully exited.
type Poller struct {
	interval time.Duration
	fn       func(ctx context.Context)

	mu      sync.Mutex
	parent  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	gen     uint64
	pending *time.Timer
}

// New creates a stopped poller.
func New(interval time.Duration, fn func(ctx context.Context)) *Poller {
	return &Poller{interval: interval, fn: fn}
}

// Interval returns the tick interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start launches the loop bound to ctx. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked(ctx)
}

func (p *Poller) startLocked(ctx context.Context) {
	if p.cancel != nil {
		return
	}
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	p.parent = ctx
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.gen++

	go func() {
		defer close(done)
		p.run(loopCtx)
	}()
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.fn(ctx)
		}
	}
}

// Stop cancels the loop without waiting for an in-flight tick. It is safe
// to call from inside fn.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	p.gen++
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
}

// Restart stops the loop and starts it again after delay, reusing the
// context of the last Start. A Stop or Start issued meanwhile wins.
func (p *Poller) Restart(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restartLocked(p.parent, delay)
}

// StartAfter stops the loop and starts it bound to ctx after delay. It
// works on a poller that was never started.
func (p *Poller) StartAfter(ctx context.Context, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restartLocked(ctx, delay)
}

func (p *Poller) restartLocked(parent context.Context, delay time.Duration) {
	p.stopLocked()
	if parent == nil || parent.Err() != nil {
		return
	}
	if delay <= 0 {
		p.startLocked(parent)
		return
	}
	gen := p.gen
	p.pending = time.AfterFunc(delay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.gen != gen || p.cancel != nil || parent.Err() != nil {
			return
		}
		p.pending = nil
		p.startLocked(parent)
	})
}

// Running reports whether a loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Wait blocks until the most recently started loop has exited.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
