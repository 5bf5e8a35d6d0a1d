// SPDX-License-Identifier: MIT
package worker

import (
	"errors"
	"sync"

	"spectro/internal/config"
)

// ErrPoolFull reports that the concurrent worker cap has been reached.
// It is not fatal: the caller is expected to retry once another worker
// stops.
var ErrPoolFull = errors.New("worker pool is full")

// Pool bounds the number of concurrently running workers.
type Pool struct {
	mu     sync.Mutex
	max    int
	active int
	wg     sync.WaitGroup
}

// NewPool creates a pool capped at max concurrent workers. A non-positive
// max falls back to the default cap.
func NewPool(max int) *Pool {
	if max <= 0 {
		max = config.DefaultMaxWorkers
	}
	return &Pool{max: max}
}

// Start runs w on its own goroutine, or returns ErrPoolFull when the cap
// is reached.
func (p *Pool) Start(w *Worker) error {
	p.mu.Lock()
	if p.active >= p.max {
		p.mu.Unlock()
		return ErrPoolFull
	}
	p.active++
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.release()
		w.Run()
	}()
	return nil
}

func (p *Pool) release() {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
}

// Active returns the number of workers currently running.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Cap returns the maximum number of concurrent workers.
func (p *Pool) Cap() int {
	return p.max
}

// Wait blocks until every started worker has terminated.
func (p *Pool) Wait() {
	p.wg.Wait()
}
