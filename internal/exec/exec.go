// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package exec provides the bulk-execution backends used to fan analysis
// work out over panel slices. Callers declare how many workers they want and
// receive a backend with the matching capability, so computation code never
// branches on the runtime environment.
package exec

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work scheduled on a Backend.
type Task func(ctx context.Context) error

// Backend runs a batch of tasks and returns the first error encountered.
type Backend interface {
	Run(ctx context.Context, tasks []Task) error
	// Workers reports the degree of parallelism of the backend.
	Workers() int
}

// New returns a backend for the requested number of workers: a serial
// backend for one or fewer, a bounded parallel backend otherwise.
func New(workers int) Backend {
	if workers <= 1 {
		return serialBackend{}
	}
	return parallelBackend{workers: workers}
}

type serialBackend struct{}

func (serialBackend) Workers() int { return 1 }

func (serialBackend) Run(ctx context.Context, tasks []Task) error {
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := task(ctx); err != nil {
			return err
		}
	}
	return nil
}

type parallelBackend struct {
	workers int
}

func (b parallelBackend) Workers() int { return b.workers }

func (b parallelBackend) Run(ctx context.Context, tasks []Task) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.workers)

	for _, task := range tasks {
		group.Go(func() error {
			return task(groupCtx)
		})
	}
	return group.Wait()
}
