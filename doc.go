// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package datapub implements the serialized data-change publisher of the
// persistence engine. Observers subscribe to logical data types and are
// notified when those types change, most commonly after a transaction
// commit. Publish requests are processed on a single worker, one at a
// time, in the order publishing was requested, so no observer ever sees
// two requests' deliveries interleaved.
//
// Producers never block on delivery: a publish call appends the request
// to an unbounded queue and, if no dispatch loop is active, hands one to
// the configured Scheduler. Observer failures are isolated and reported;
// they never stop the loop or starve later requests.
package datapub
