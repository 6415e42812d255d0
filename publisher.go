// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package datapub

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/deque"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"gopkg.in/retry.v1"

	"github.com/juju/datapub/datatype"
)

// waitIdleStrategy determines how long WaitIdle delays between polls of
// the dispatch state. It must not be changed while publishers are active.
var waitIdleStrategy retry.Strategy = retry.Exponential{
	Initial:  time.Millisecond,
	Factor:   1.6,
	MaxDelay: 10 * time.Millisecond,
}

// publishRequest is one unit of work for the dispatch loop: deliver the
// affected types, in order, either to the single target observer or to
// every current subscriber of each type. A request is created at enqueue
// time, consumed exactly once by the loop, and then discarded.
type publishRequest struct {
	// target, when set, receives the notifications instead of the
	// registry's subscribers. Used for initial replay notifications.
	target Observer

	typeIDs []datatype.ID
}

// PublisherConfig contains the configuration parameters required for a
// NewPublisher.
type PublisherConfig struct {
	// Resolver maps logical type names to identifiers and identifiers
	// to the descriptors delivered to observers.
	Resolver datatype.Resolver

	// Scheduler runs the dispatch loop. At most one loop is handed to
	// it at a time.
	Scheduler Scheduler

	// Logger is used to control where the log messages go. Optional.
	Logger Logger

	// Clock is used for WaitIdle timing. Optional.
	Clock clock.Clock

	// Metrics collects dispatch metrics. Optional; an unregistered
	// collector is created if unset.
	Metrics *Collector
}

// Validate ensures that all the values that have to be set are set.
func (config PublisherConfig) Validate() error {
	if config.Resolver == nil {
		return errors.NotValidf("missing Resolver")
	}
	if config.Scheduler == nil {
		return errors.NotValidf("missing Scheduler")
	}
	return nil
}

// Publisher notifies observers about changes to the data types they
// subscribed to. Publish requests are processed strictly in the order
// publishing was requested, by at most one dispatch loop at a time.
type Publisher struct {
	resolver  datatype.Resolver
	scheduler Scheduler
	logger    Logger
	clock     clock.Clock
	metrics   *Collector

	observers *registry

	// mu guards the queue, the running flag and the counters below.
	// It is held only for O(1) bookkeeping, never across resolution or
	// observer invocation.
	mu      sync.Mutex
	queue   *deque.Deque
	running bool

	requestCount uint64
	notifyCount  uint64
	failureCount uint64
}

// NewPublisher returns a Publisher using the supplied configuration.
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Annotate(err, "new publisher invalid config")
	}
	logger := config.Logger
	if logger == nil {
		logger = loggo.GetLogger("juju.datapub")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = NewMetricsCollector()
	}
	return &Publisher{
		resolver:  config.Resolver,
		scheduler: config.Scheduler,
		logger:    logger,
		clock:     clk,
		metrics:   metrics,
		observers: newRegistry(),
		queue:     deque.New(),
	}, nil
}

// Subscribe adds the observer to the subscribers of the named type.
// Subscribing an observer that is already subscribed is a no-op, so it
// still receives a single notification per change.
func (p *Publisher) Subscribe(o Observer, typeName string) error {
	if o == nil {
		return errors.NotValidf("nil observer")
	}
	id, err := p.resolver.TypeID(typeName)
	if err != nil {
		return errors.Trace(err)
	}
	p.observers.add(id, o)
	return nil
}

// SubscribeAll adds the observer to the subscribers of every type known
// at the time of the call. Types registered later are not retroactively
// subscribed.
func (p *Publisher) SubscribeAll(o Observer) error {
	if o == nil {
		return errors.NotValidf("nil observer")
	}
	for _, id := range p.resolver.AllTypeIDs() {
		p.observers.add(id, o)
	}
	return nil
}

// Unsubscribe removes the observer, matched by identity, from the
// subscribers of the named type. The observer receives no notification
// for any request dequeued after this call returns; delivery for a
// request already being dispatched may still occur.
func (p *Publisher) Unsubscribe(o Observer, typeName string) error {
	if o == nil {
		return errors.NotValidf("nil observer")
	}
	id, err := p.resolver.TypeID(typeName)
	if err != nil {
		return errors.Trace(err)
	}
	p.observers.remove(id, o)
	return nil
}

// UnsubscribeAll removes the observer from the subscribers of every type
// known at the time of the call.
func (p *Publisher) UnsubscribeAll(o Observer) error {
	if o == nil {
		return errors.NotValidf("nil observer")
	}
	for _, id := range p.resolver.AllTypeIDs() {
		p.observers.remove(id, o)
	}
	return nil
}

// Publish enqueues a broadcast notification for the affected types: every
// observer currently subscribed to one of the types will be notified, in
// the order the types are given. This is the entry point for the engine's
// transaction-committed signal.
//
// Publish is non-blocking; it never waits for delivery.
func (p *Publisher) Publish(affected ...datatype.ID) {
	p.metrics.requests.WithLabelValues(requestKindBroadcast).Inc()
	p.enqueue(publishRequest{typeIDs: affected})
}

// PublishTo enqueues a notification for the named type targeted at the
// single given observer, bypassing the registry. It is used to replay an
// initial notification to a newly subscribed observer without waiting for
// the next real change.
func (p *Publisher) PublishTo(o Observer, typeName string) error {
	if o == nil {
		return errors.NotValidf("nil observer")
	}
	id, err := p.resolver.TypeID(typeName)
	if err != nil {
		return errors.Trace(err)
	}
	p.metrics.requests.WithLabelValues(requestKindTargeted).Inc()
	p.enqueue(publishRequest{target: o, typeIDs: []datatype.ID{id}})
	return nil
}

// PublishAllTo enqueues a notification for every type known at the time
// of the call, targeted at the single given observer.
func (p *Publisher) PublishAllTo(o Observer) error {
	if o == nil {
		return errors.NotValidf("nil observer")
	}
	p.metrics.requests.WithLabelValues(requestKindTargeted).Inc()
	p.enqueue(publishRequest{target: o, typeIDs: p.resolver.AllTypeIDs()})
	return nil
}

// enqueue appends the request and, if no dispatch loop is active, flips
// the running flag and hands a loop to the scheduler. The flag flip is
// atomic with the append, so two loops can never start concurrently; the
// scheduler call itself happens outside the lock so that an inline test
// scheduler can run the loop without deadlocking on the queue mutex.
func (p *Publisher) enqueue(request publishRequest) {
	p.mu.Lock()
	p.queue.PushBack(request)
	p.requestCount++
	p.metrics.queueDepth.Set(float64(p.queue.Len()))
	schedule := !p.running
	if schedule {
		p.running = true
	}
	p.mu.Unlock()

	if schedule {
		p.scheduler.Schedule(p.run)
	}
}

// run is the dispatch loop. It pops requests one at a time, fully
// delivering each before dequeuing the next, and declares itself idle
// only after re-checking the queue under the lock, so a request enqueued
// just as the loop is about to exit is never lost.
func (p *Publisher) run() {
	defer func() {
		// An escaped panic would otherwise leave the running flag
		// stuck at true, and every future publish would queue forever
		// with no active drainer.
		if r := recover(); r != nil {
			p.logger.Criticalf("dispatch loop exited abnormally: %v", r)
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
		}
	}()
	for {
		p.mu.Lock()
		head, ok := p.queue.PopFront()
		if !ok {
			p.running = false
			p.mu.Unlock()
			return
		}
		p.metrics.queueDepth.Set(float64(p.queue.Len()))
		p.mu.Unlock()

		p.dispatch(head.(publishRequest))
	}
}

// dispatch delivers one request: each affected type in the order listed,
// to the target observer if one is named, otherwise to the current
// subscribers of the type.
func (p *Publisher) dispatch(request publishRequest) {
	p.logger.Tracef("dispatching %d affected types (targeted=%v)", len(request.typeIDs), request.target != nil)
	for _, id := range request.typeIDs {
		var observers []Observer
		if request.target != nil {
			observers = []Observer{request.target}
		} else {
			observers = p.observers.observers(id)
		}
		if len(observers) == 0 {
			// No observers for this type.
			continue
		}

		descriptor, err := p.resolver.Descriptor(id)
		if err != nil {
			// The engine no longer recognises the id; the store state
			// changed after the request was enqueued. Skip this type,
			// the rest of the request is still deliverable.
			p.logger.Errorf("resolving type id %d: %v", id, err)
			p.countFailure()
			p.metrics.failures.WithLabelValues(failureReasonResolution).Inc()
			continue
		}
		for _, o := range observers {
			if err := p.notify(o, descriptor); err != nil {
				// Reported, never rethrown: the producer has long
				// since returned, and the remaining observers still
				// get their notification.
				p.logger.Errorf("observer failed while processing data for %s: %v", descriptor, err)
				p.countFailure()
				p.metrics.failures.WithLabelValues(failureReasonObserver).Inc()
				continue
			}
			p.countNotify()
			p.metrics.notifications.Inc()
		}
	}
}

// notify invokes a single observer, converting a panic into an error so
// that one misbehaving observer cannot take down the dispatch loop.
func (p *Publisher) notify(o Observer, descriptor datatype.Descriptor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("observer panic: %v", r)
		}
	}()
	return o.OnData(descriptor)
}

// IsIdle reports whether the queue is empty and no dispatch loop is
// active.
func (p *Publisher) IsIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.running && p.queue.Len() == 0
}

// WaitIdle polls until the publisher is idle, or the timeout elapses, in
// which case it returns an error satisfying errors.Timeout.
func (p *Publisher) WaitIdle(timeout time.Duration) error {
	strategy := retry.LimitTime(timeout, waitIdleStrategy)
	for a := retry.Start(strategy, p.clock); a.Next(); {
		if p.IsIdle() {
			return nil
		}
	}
	return errors.Timeoutf("publisher still draining after %v", timeout)
}

// Report returns runtime details of the publisher, for engine
// introspection.
func (p *Publisher) Report() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{
		"queue-len":     p.queue.Len(),
		"running":       p.running,
		"subscriptions": p.observers.count(),
		"requests":      p.requestCount,
		"notifications": p.notifyCount,
		"failures":      p.failureCount,
	}
}

func (p *Publisher) countNotify() {
	p.mu.Lock()
	p.notifyCount++
	p.mu.Unlock()
}

func (p *Publisher) countFailure() {
	p.mu.Lock()
	p.failureCount++
	p.mu.Unlock()
}
