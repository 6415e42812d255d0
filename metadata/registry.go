// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package metadata provides an in-memory model registry mapping logical
// type names to stable identifiers. It is the reference implementation of
// the datatype.Resolver contract used by the change publisher.
package metadata

import (
	"sync"

	"github.com/juju/collections/set"
	"github.com/juju/collections/transform"
	"github.com/juju/errors"

	"github.com/juju/datapub/datatype"
)

// Registry assigns stable identifiers to logical type names. Identifiers
// are never reused, even after a type has been deregistered.
type Registry struct {
	mu      sync.RWMutex
	nextID  datatype.ID
	byName  map[string]datatype.ID
	byID    map[datatype.ID]datatype.Descriptor
	knownID set.Ints
}

// NewRegistry returns an empty model registry.
func NewRegistry() *Registry {
	return &Registry{
		nextID:  1,
		byName:  make(map[string]datatype.ID),
		byID:    make(map[datatype.ID]datatype.Descriptor),
		knownID: set.NewInts(),
	}
}

// Register records the named type and returns its identifier. Registering
// a name that is already present returns the existing identifier.
func (r *Registry) Register(name string) (datatype.ID, error) {
	if name == "" {
		return 0, errors.NotValidf("empty type name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		return id, nil
	}
	id := r.nextID
	r.nextID++
	r.byName[name] = id
	r.byID[id] = datatype.Descriptor{ID: id, Name: name}
	r.knownID.Add(int(id))
	return id, nil
}

// Deregister withdraws the named type. Subsequent resolution of the name
// or its identifier fails with datatype.ErrUnknownType. The identifier is
// retired, not recycled.
func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[name]
	if !ok {
		return errors.WithType(errors.Errorf("type %q not registered", name), datatype.ErrUnknownType)
	}
	delete(r.byName, name)
	delete(r.byID, id)
	r.knownID.Remove(int(id))
	return nil
}

// TypeID is part of the datatype.Resolver interface.
func (r *Registry) TypeID(name string) (datatype.ID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return 0, errors.WithType(errors.Errorf("type %q not registered", name), datatype.ErrUnknownType)
	}
	return id, nil
}

// Descriptor is part of the datatype.Resolver interface.
func (r *Registry) Descriptor(id datatype.ID) (datatype.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.byID[id]
	if !ok {
		return datatype.Descriptor{}, errors.WithType(errors.Errorf("type id %d not registered", id), datatype.ErrUnknownType)
	}
	return desc, nil
}

// AllTypeIDs is part of the datatype.Resolver interface. Identifiers are
// returned in ascending order.
func (r *Registry) AllTypeIDs() []datatype.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return transform.Slice(r.knownID.SortedValues(), func(id int) datatype.ID {
		return datatype.ID(id)
	})
}
