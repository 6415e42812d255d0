// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package scheduler provides the worker-execution backends that run the
// publisher's dispatch work. Production code wires a Pool; tests wire the
// Synchronous runner for determinism.
package scheduler

// Logger represents the logging methods called by the schedulers.
type Logger interface {
	Criticalf(message string, args ...interface{})
	Tracef(message string, args ...interface{})
}

type noOpLogger struct{}

func (noOpLogger) Criticalf(message string, args ...interface{}) {}
func (noOpLogger) Tracef(message string, args ...interface{})    {}

// Synchronous runs every scheduled task inline on the caller's stack. It
// is intended for tests, where deterministic delivery matters more than a
// non-blocking producer.
type Synchronous struct{}

// Schedule runs the task immediately.
func (Synchronous) Schedule(task func()) {
	task()
}
