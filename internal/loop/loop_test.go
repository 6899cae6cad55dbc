package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	t.Parallel()

	l := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(ctx, func() {}))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopNeverRunsTasksConcurrently(t *testing.T) {
	t.Parallel()

	l := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	var final int
	require.NoError(t, l.Do(ctx, func() { final = counter }))
	assert.Equal(t, 1000, final)
}

func TestLoopRecoversFromPanics(t *testing.T) {
	t.Parallel()

	l := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	l.Post(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Do(ctx, func() { ran = true }))
	assert.True(t, ran)
}

func TestLoopRejectsWorkAfterStop(t *testing.T) {
	t.Parallel()

	l := New(4)
	go l.Run(context.Background())
	l.Stop()

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not exit")
	}

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}

func TestLoopDrainsOnContextCancel(t *testing.T) {
	t.Parallel()

	l := New(4)
	ran := make(chan struct{}, 1)
	require.True(t, l.Post(func() { ran <- struct{}{} }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Run(ctx)

	select {
	case <-ran:
	default:
		t.Fatalf("queued task was not drained")
	}
}
