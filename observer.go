// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package datapub

import (
	"github.com/juju/datapub/datatype"
)

// Observer is notified about changes to the data types it subscribed to.
// Observers are compared by identity for subscription bookkeeping, so an
// implementation must be a comparable type; a pointer is the usual choice.
type Observer interface {
	// OnData is called with the descriptor of a type whose data changed.
	// It is always called on a scheduler-owned goroutine, never on the
	// producer's call stack. Calling back into the publisher from OnData
	// is legal, but subscription changes only affect requests dequeued
	// afterwards.
	//
	// A returned error is reported and counted, and does not prevent
	// delivery to other observers or of later notifications.
	OnData(t datatype.Descriptor) error
}

// Scheduler hands units of work to some worker-execution facility. The
// publisher schedules at most one unit at a time: the dispatch loop that
// drains the request queue.
type Scheduler interface {
	// Schedule arranges for task to run on a worker goroutine.
	// Production implementations must not run the task synchronously on
	// the caller's stack, so that publishing stays non-blocking; tests
	// may run it inline for determinism.
	Schedule(task func())
}

// Logger represents the logging methods called by the publisher.
type Logger interface {
	Criticalf(message string, args ...interface{})
	Errorf(message string, args ...interface{})
	Tracef(message string, args ...interface{})
}
