// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package scheduler

import (
	"sync"

	"github.com/juju/collections/deque"
	"github.com/juju/errors"
	"gopkg.in/tomb.v2"
)

// PoolConfig contains the configuration parameters required for a
// NewPool.
type PoolConfig struct {
	// Workers is the number of goroutines servicing scheduled tasks.
	Workers int

	// Logger is used to control where the log messages go. Optional.
	Logger Logger
}

// Validate ensures that all the values that have to be set are set.
func (config PoolConfig) Validate() error {
	if config.Workers <= 0 {
		return errors.NotValidf("non-positive Workers")
	}
	return nil
}

// Pool is a fixed-size worker pool. Schedule never blocks: tasks are
// appended to an unbounded queue and picked up by the next free worker in
// submission order.
type Pool struct {
	tomb   tomb.Tomb
	logger Logger

	mu    sync.Mutex
	tasks *deque.Deque

	// wake has a single-entry buffer; a pending signal means "the queue
	// may be non-empty", and a woken worker drains until it is not.
	wake chan struct{}
}

// NewPool returns a running Pool using the supplied configuration.
func NewPool(config PoolConfig) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Annotate(err, "new pool invalid config")
	}
	logger := config.Logger
	if logger == nil {
		logger = noOpLogger{}
	}
	p := &Pool{
		logger: logger,
		tasks:  deque.New(),
		wake:   make(chan struct{}, 1),
	}
	for i := 0; i < config.Workers; i++ {
		p.tomb.Go(p.loop)
	}
	return p, nil
}

// Schedule appends the task for execution by the pool. A task scheduled
// after the pool has been killed is discarded.
func (p *Pool) Schedule(task func()) {
	select {
	case <-p.tomb.Dying():
		p.logger.Tracef("discarding task scheduled after pool shutdown")
		return
	default:
	}
	p.mu.Lock()
	p.tasks.PushBack(task)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
		// A signal is already pending; whoever takes it drains the
		// queue.
	}
}

// Kill is part of the worker.Worker interface.
func (p *Pool) Kill() {
	p.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (p *Pool) Wait() error {
	return p.tomb.Wait()
}

func (p *Pool) loop() error {
	for {
		select {
		case <-p.tomb.Dying():
			return tomb.ErrDying
		case <-p.wake:
		}
		for {
			p.mu.Lock()
			head, ok := p.tasks.PopFront()
			p.mu.Unlock()
			if !ok {
				break
			}
			p.runTask(head.(func()))
		}
	}
}

// runTask keeps a panicking task from taking the whole pool down with it.
func (p *Pool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Criticalf("scheduled task panicked: %v", r)
		}
	}()
	task()
}
