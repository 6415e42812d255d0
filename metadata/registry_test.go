// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package metadata_test

import (
	"sync"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/datapub/datatype"
	"github.com/juju/datapub/metadata"
)

type registrySuite struct{}

var _ = gc.Suite(&registrySuite{})

func (s *registrySuite) TestRegisterAssignsSequentialIDs(c *gc.C) {
	r := metadata.NewRegistry()

	machineID, err := r.Register("machine")
	c.Assert(err, jc.ErrorIsNil)
	unitID, err := r.Register("unit")
	c.Assert(err, jc.ErrorIsNil)

	c.Check(machineID, gc.Equals, datatype.ID(1))
	c.Check(unitID, gc.Equals, datatype.ID(2))
	c.Check(r.AllTypeIDs(), jc.DeepEquals, []datatype.ID{1, 2})
}

func (s *registrySuite) TestRegisterIsIdempotentPerName(c *gc.C) {
	r := metadata.NewRegistry()

	first, err := r.Register("machine")
	c.Assert(err, jc.ErrorIsNil)
	second, err := r.Register("machine")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(second, gc.Equals, first)
	c.Check(r.AllTypeIDs(), gc.HasLen, 1)
}

func (s *registrySuite) TestRegisterEmptyName(c *gc.C) {
	r := metadata.NewRegistry()
	_, err := r.Register("")
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *registrySuite) TestResolution(c *gc.C) {
	r := metadata.NewRegistry()
	id, err := r.Register("machine")
	c.Assert(err, jc.ErrorIsNil)

	resolved, err := r.TypeID("machine")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(resolved, gc.Equals, id)

	descriptor, err := r.Descriptor(id)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(descriptor, jc.DeepEquals, datatype.Descriptor{ID: id, Name: "machine"})
}

func (s *registrySuite) TestUnknownName(c *gc.C) {
	r := metadata.NewRegistry()
	_, err := r.TypeID("machine")
	c.Check(err, jc.ErrorIs, datatype.ErrUnknownType)
}

func (s *registrySuite) TestUnknownID(c *gc.C) {
	r := metadata.NewRegistry()
	_, err := r.Descriptor(42)
	c.Check(err, jc.ErrorIs, datatype.ErrUnknownType)
}

func (s *registrySuite) TestDeregister(c *gc.C) {
	r := metadata.NewRegistry()
	id, err := r.Register("machine")
	c.Assert(err, jc.ErrorIsNil)

	c.Assert(r.Deregister("machine"), jc.ErrorIsNil)

	_, err = r.TypeID("machine")
	c.Check(err, jc.ErrorIs, datatype.ErrUnknownType)
	_, err = r.Descriptor(id)
	c.Check(err, jc.ErrorIs, datatype.ErrUnknownType)
	c.Check(r.AllTypeIDs(), gc.HasLen, 0)

	c.Check(r.Deregister("machine"), jc.ErrorIs, datatype.ErrUnknownType)
}

func (s *registrySuite) TestIDsAreNotReused(c *gc.C) {
	r := metadata.NewRegistry()
	first, err := r.Register("machine")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(r.Deregister("machine"), jc.ErrorIsNil)

	second, err := r.Register("machine")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(second, gc.Not(gc.Equals), first)
}

func (s *registrySuite) TestConcurrentAccess(c *gc.C) {
	r := metadata.NewRegistry()
	_, err := r.Register("machine")
	c.Assert(err, jc.ErrorIsNil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, _ = r.TypeID("machine")
				_ = r.AllTypeIDs()
				_, _ = r.Register("unit")
			}
		}()
	}
	wg.Wait()

	c.Check(r.AllTypeIDs(), gc.HasLen, 2)
}
