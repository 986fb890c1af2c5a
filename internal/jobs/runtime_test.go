package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntime_SubmitAndCompletes(t *testing.T) {
	r := NewRuntime(zerolog.Nop(), 4)
	defer r.Shutdown()

	id, err := r.Submit(func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, _ := r.Get(id)
		return job.Status == StatusCompleted
	}, time.Second, time.Millisecond)

	job, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 42, job.Result)
}

func TestRuntime_CancelStopsCooperativeWork(t *testing.T) {
	r := NewRuntime(zerolog.Nop(), 4)
	defer r.Shutdown()

	started := make(chan struct{})
	id, err := r.Submit(func(ctx context.Context) (any, error) {
		close(started)
		for i := 0; i < 1000; i++ {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			time.Sleep(time.Millisecond)
		}
		return "done", nil
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, r.Cancel(id))

	require.Eventually(t, func() bool {
		job, _ := r.Get(id)
		return job.Status == StatusCancelled
	}, time.Second, time.Millisecond)
}

func TestRuntime_GetUnknownJobIsNotFound(t *testing.T) {
	r := NewRuntime(zerolog.Nop(), 1)
	defer r.Shutdown()
	_, err := r.Get("does-not-exist")
	assert.Error(t, err)
}
