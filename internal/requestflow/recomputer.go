package requestflow

import (
	"context"
	"sync"
	"time"
)

// recomputer is a single-slot job queue. Scheduling a job cancels whatever
// is pending or running, and only the newest generation is reported current.
type recomputer struct {
	delay time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type recomputeJob func(ctx context.Context, gen uint64)

func newRecomputer(delay time.Duration) *recomputer {
	return &recomputer{delay: delay}
}

func (r *recomputer) next() (context.Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	return ctx, r.gen
}

// schedule runs job after the configured delay, or inline when the delay is
// zero.
func (r *recomputer) schedule(job recomputeJob) uint64 {
	if r.delay <= 0 {
		return r.runNow(job)
	}
	ctx, gen := r.next()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTimer(r.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		job(ctx, gen)
	}()
	return gen
}

// runNow supersedes any pending job and runs job on the caller's goroutine.
func (r *recomputer) runNow(job recomputeJob) uint64 {
	ctx, gen := r.next()
	job(ctx, gen)
	return gen
}

func (r *recomputer) current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen == r.gen
}

// wait blocks until no delayed job is pending or running.
func (r *recomputer) wait() {
	r.wg.Wait()
}

// stop cancels pending work and invalidates every generation handed out.
func (r *recomputer) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
}
