// Package utils holds small pieces of supervised-concurrency plumbing
// shared across the simulation.
package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultTaskChanSize = 100

// WorkerFunction processes one task. Returning a non-nil error kills the
// owning tomb.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool bounds the number of concurrently-running tasks to n,
// supervised by a tomb so the pool shuts down cleanly alongside the rest
// of the process. It is used by the broadcaster to cap concurrent
// subscriber sessions: each worker runs one upgraded connection for its
// whole lifetime.
type WorkerPool struct {
	n     int
	tasks chan any
}

// NewWorkerPool constructs a pool that runs up to size tasks concurrently.
func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		n:     size,
		tasks: make(chan any, defaultTaskChanSize),
	}
}

// AddTask enqueues a task for the next free worker. Blocks if the queue is
// full; callers that must not block should select on a context/deadline
// around this call.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup starts exactly n worker goroutines, each pulling tasks off the
// shared queue until the tomb is dying. Unlike the pool this is adapted
// from, workers block on the tasks channel instead of busy-spinning a
// select/default loop to find free capacity.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", pool.n).Msg("starting worker pool")
	for i := 0; i < pool.n; i++ {
		t.Go(func() error {
			return pool.runWorker(t, work)
		})
	}
}

func (pool *WorkerPool) runWorker(t *tomb.Tomb, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
