// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package commitstream connects the engine's transaction-committed signal
// to the change publisher: every commit publishes the set of affected
// type identifiers on a hub topic, and the Notifier forwards them as a
// broadcast publish.
package commitstream

import (
	"github.com/juju/errors"
	"github.com/juju/pubsub/v2"
	"gopkg.in/tomb.v2"

	"github.com/juju/datapub/datatype"
)

// Topic is the hub topic on which transaction commits are announced.
const Topic = "transaction.committed"

// Committed is the payload published on Topic for each commit.
type Committed struct {
	// Affected lists the identifiers of the types whose data the
	// transaction changed, in the order the engine reported them.
	Affected []datatype.ID
}

// Broadcaster is the publish entry point the notifier forwards commits
// to.
type Broadcaster interface {
	// Publish enqueues a broadcast notification for the affected types.
	Publish(affected ...datatype.ID)
}

// Logger represents the logging methods called by the notifier.
type Logger interface {
	Criticalf(message string, args ...interface{})
	Tracef(message string, args ...interface{})
}

// NotifierConfig contains the configuration parameters required for a
// NewNotifier.
type NotifierConfig struct {
	// Hub carries the engine's transaction-committed events.
	Hub *pubsub.SimpleHub

	// Broadcaster receives the affected types of each commit.
	Broadcaster Broadcaster

	// Logger is used to control where the log messages go.
	Logger Logger
}

// Validate ensures that all the values that have to be set are set.
func (config NotifierConfig) Validate() error {
	if config.Hub == nil {
		return errors.NotValidf("missing Hub")
	}
	if config.Broadcaster == nil {
		return errors.NotValidf("missing Broadcaster")
	}
	if config.Logger == nil {
		return errors.NotValidf("missing Logger")
	}
	return nil
}

// Notifier subscribes to the transaction-committed topic and republishes
// the affected types to the broadcaster. It is a worker; killing it
// unsubscribes from the hub.
type Notifier struct {
	tomb   tomb.Tomb
	config NotifierConfig
}

// NewNotifier returns a running Notifier using the supplied
// configuration.
func NewNotifier(config NotifierConfig) (*Notifier, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Annotate(err, "new notifier invalid config")
	}
	n := &Notifier{config: config}
	unsub := config.Hub.Subscribe(Topic, n.onCommit)
	n.tomb.Go(func() error {
		<-n.tomb.Dying()
		unsub()
		return nil
	})
	return n, nil
}

// Kill is part of the worker.Worker interface.
func (n *Notifier) Kill() {
	n.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (n *Notifier) Wait() error {
	return n.tomb.Wait()
}

func (n *Notifier) onCommit(topic string, data interface{}) {
	committed, ok := data.(Committed)
	if !ok {
		n.config.Logger.Criticalf("programming error: topic data expected Committed, got %T", data)
		return
	}
	n.config.Logger.Tracef("commit affected %d types", len(committed.Affected))
	n.config.Broadcaster.Publish(committed.Affected...)
}
