package utils_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kamalbuilds/movetracer/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottler(t *testing.T) {
	throttledRes := utils.NewThrottler(2, new(int)).WithMaxQueueLen(2)
	waitOn := make(chan struct{})

	var runCount int64
	doer := func(_ context.Context, ptr *int) error {
		if ptr == nil {
			return errors.New("nilptr")
		}
		<-waitOn
		atomic.AddInt64(&runCount, 1)
		return nil
	}

	var wg sync.WaitGroup
	do := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, throttledRes.Do(context.Background(), doer))
		}()
		time.Sleep(5 * time.Millisecond)
	}

	do()
	assert.Equal(t, 0, throttledRes.QueueLen())
	do()
	assert.Equal(t, 0, throttledRes.QueueLen())
	assert.Equal(t, 2, throttledRes.JobsRunning())

	do() // should be queued
	assert.Equal(t, 1, throttledRes.QueueLen())
	do() // should be queued
	assert.Equal(t, 2, throttledRes.QueueLen())

	require.ErrorIs(t, throttledRes.Do(context.Background(), doer), utils.ErrResourceBusy)

	waitOn <- struct{}{} // release one of the slots
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, throttledRes.QueueLen())
	waitOn <- struct{}{} // release another slot, queue should be empty
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 0, throttledRes.QueueLen())

	// release the jobs waiting
	waitOn <- struct{}{}
	waitOn <- struct{}{}
	wg.Wait()
	assert.Equal(t, int64(4), runCount)
}

func TestThrottlerQueuedCallerCancelled(t *testing.T) {
	throttledRes := utils.NewThrottler(1, new(int))
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, throttledRes.Do(context.Background(), func(context.Context, *int) error {
			<-release
			return nil
		}))
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := throttledRes.Do(ctx, func(context.Context, *int) error {
		t.Fatal("doer must not run")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, throttledRes.QueueLen())

	close(release)
	wg.Wait()
}
