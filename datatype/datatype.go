// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package datatype defines the identifiers and descriptors for the logical
// data types tracked by the persistence engine, along with the resolver
// contract the engine supplies to the change publisher.
package datatype

import (
	"fmt"

	"github.com/juju/errors"
)

// ErrUnknownType describes a logical type that the engine does not
// recognise, either because it was never registered or because it has
// since been withdrawn.
const ErrUnknownType = errors.ConstError("unknown data type")

// ID is the opaque identifier of a logical data type. An ID is stable for
// the lifetime of the process.
type ID int

// Descriptor carries the resolved details of a logical data type. It is
// the payload delivered to observers of data changes.
type Descriptor struct {
	// ID is the stable identifier of the type.
	ID ID

	// Name is the logical name of the type, unique within the engine.
	Name string
}

// String is used in log messages.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%d)", d.Name, d.ID)
}

// Resolver resolves logical type names to their stable identifiers and
// identifiers back to their descriptors. Implementations must be safe for
// concurrent use.
type Resolver interface {
	// TypeID returns the identifier for the named type, or an error
	// satisfying ErrUnknownType if the name is not registered.
	TypeID(name string) (ID, error)

	// Descriptor returns the descriptor for the given identifier, or an
	// error satisfying ErrUnknownType if the identifier is not (or no
	// longer) recognised.
	Descriptor(id ID) (Descriptor, error)

	// AllTypeIDs returns a snapshot of every registered type identifier
	// at the time of the call.
	AllTypeIDs() []ID
}
