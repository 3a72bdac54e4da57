// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, New(0).Workers())
	assert.Equal(t, 1, New(1).Workers())
	assert.Equal(t, 8, New(8).Workers())
}

func TestBackendsRunAllTasks(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		backend := New(workers)
		t.Run(backendName(workers), func(t *testing.T) {
			t.Parallel()

			var counter atomic.Int64
			tasks := make([]Task, 10)
			for i := range tasks {
				tasks[i] = func(context.Context) error {
					counter.Add(1)
					return nil
				}
			}

			require.NoError(t, backend.Run(context.Background(), tasks))
			assert.EqualValues(t, 10, counter.Load())
		})
	}
}

func TestBackendsPropagateErrors(t *testing.T) {
	t.Parallel()

	expectedErr := errors.New("query failed")
	for _, workers := range []int{1, 4} {
		backend := New(workers)
		t.Run(backendName(workers), func(t *testing.T) {
			t.Parallel()

			err := backend.Run(context.Background(), []Task{
				func(context.Context) error { return nil },
				func(context.Context) error { return expectedErr },
			})
			assert.ErrorIs(t, err, expectedErr)
		})
	}
}

func TestSerialBackendStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := New(1).Run(ctx, []Task{
		func(context.Context) error {
			ran = true
			return nil
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func backendName(workers int) string {
	if workers == 1 {
		return "serial"
	}
	return "parallel"
}
