// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package scheduler_test

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	jujutesting "github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/juju/datapub/internal/testhelpers"
	"github.com/juju/datapub/scheduler"
)

type poolSuite struct {
	jujutesting.IsolationSuite
}

var _ = gc.Suite(&poolSuite{})

func (s *poolSuite) TestValidateConfig(c *gc.C) {
	_, err := scheduler.NewPool(scheduler.PoolConfig{})
	c.Check(err, jc.ErrorIs, errors.NotValid)

	_, err = scheduler.NewPool(scheduler.PoolConfig{Workers: -1})
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *poolSuite) TestRunsScheduledTasks(c *gc.C) {
	pool, err := scheduler.NewPool(scheduler.PoolConfig{Workers: 4})
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, pool)

	const tasks = 100
	var done sync.WaitGroup
	var ran int64
	done.Add(tasks)
	for i := 0; i < tasks; i++ {
		pool.Schedule(func() {
			atomic.AddInt64(&ran, 1)
			done.Done()
		})
	}

	waitGroupDone(c, &done)
	c.Check(atomic.LoadInt64(&ran), gc.Equals, int64(tasks))
}

func (s *poolSuite) TestSingleWorkerRunsInOrder(c *gc.C) {
	pool, err := scheduler.NewPool(scheduler.PoolConfig{Workers: 1})
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, pool)

	const tasks = 50
	var mu sync.Mutex
	var order []int
	var done sync.WaitGroup
	done.Add(tasks)
	for i := 0; i < tasks; i++ {
		i := i
		pool.Schedule(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			done.Done()
		})
	}

	waitGroupDone(c, &done)
	mu.Lock()
	defer mu.Unlock()
	c.Assert(order, gc.HasLen, tasks)
	for i, got := range order {
		c.Assert(got, gc.Equals, i)
	}
}

func (s *poolSuite) TestScheduleDoesNotBlock(c *gc.C) {
	pool, err := scheduler.NewPool(scheduler.PoolConfig{Workers: 1})
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, pool)

	// Occupy the only worker.
	release := make(chan struct{})
	started := make(chan struct{})
	pool.Schedule(func() {
		close(started)
		<-release
	})
	select {
	case <-started:
	case <-time.After(testhelpers.LongWait):
		c.Fatal("timed out waiting for task to start")
	}

	// Further submissions queue without blocking the caller.
	var ran sync.WaitGroup
	ran.Add(10)
	submitted := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			pool.Schedule(func() { ran.Done() })
		}
		close(submitted)
	}()
	select {
	case <-submitted:
	case <-time.After(testhelpers.LongWait):
		c.Fatal("Schedule blocked with a busy worker")
	}

	close(release)
	waitGroupDone(c, &ran)
}

func (s *poolSuite) TestPanickingTaskDoesNotKillPool(c *gc.C) {
	pool, err := scheduler.NewPool(scheduler.PoolConfig{Workers: 1})
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, pool)

	pool.Schedule(func() { panic("task boom") })

	done := make(chan struct{})
	pool.Schedule(func() { close(done) })
	select {
	case <-done:
	case <-time.After(testhelpers.LongWait):
		c.Fatal("pool did not survive a panicking task")
	}

	workertest.CheckAlive(c, pool)
}

func (s *poolSuite) TestScheduleAfterKillIsDropped(c *gc.C) {
	pool, err := scheduler.NewPool(scheduler.PoolConfig{Workers: 1})
	c.Assert(err, jc.ErrorIsNil)
	workertest.CleanKill(c, pool)

	ran := make(chan struct{})
	pool.Schedule(func() { close(ran) })
	select {
	case <-ran:
		c.Fatal("task ran after pool shutdown")
	case <-time.After(testhelpers.ShortWait):
	}
}

func waitGroupDone(c *gc.C, wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testhelpers.LongWait):
		c.Fatal("timed out waiting for tasks")
	}
}

type synchronousSuite struct{}

var _ = gc.Suite(&synchronousSuite{})

func (s *synchronousSuite) TestRunsInline(c *gc.C) {
	var ran bool
	scheduler.Synchronous{}.Schedule(func() { ran = true })
	// No synchronisation: the task completed on this goroutine before
	// Schedule returned.
	c.Check(ran, jc.IsTrue)
}
