package poller_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/setlistd/internal/poller"
	"github.com/stretchr/testify/require"
)

func TestPoller_TicksUntilStopped(t *testing.T) {
	var ticks atomic.Int32
	p := poller.New(5*time.Millisecond, func(context.Context) { ticks.Add(1) })

	p.Start(context.Background())
	require.True(t, p.Running())
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	p.Stop()
	p.Wait()
	require.False(t, p.Running())

	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, after, ticks.Load())
}

func TestPoller_StopFromInsideTick(t *testing.T) {
	var ticks atomic.Int32
	var p *poller.Poller
	p = poller.New(2*time.Millisecond, func(context.Context) {
		ticks.Add(1)
		p.Stop()
	})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)
	p.Wait()
	require.Equal(t, int32(1), ticks.Load())
}

func TestPoller_RestartResumesAfterDelay(t *testing.T) {
	var ticks atomic.Int32
	p := poller.New(2*time.Millisecond, func(context.Context) { ticks.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	p.Restart(10 * time.Millisecond)
	require.False(t, p.Running())
	require.Eventually(t, p.Running, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)
	p.Stop()
}

func TestPoller_StopCancelsPendingRestart(t *testing.T) {
	p := poller.New(time.Millisecond, func(context.Context) {})
	p.Start(context.Background())
	p.Restart(5 * time.Millisecond)
	p.Stop()

	time.Sleep(20 * time.Millisecond)
	require.False(t, p.Running())
}

func TestPoller_ParentCancellationEndsLoop(t *testing.T) {
	p := poller.New(time.Millisecond, func(context.Context) {})
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
	p.Wait()

	p.Restart(0)
	require.False(t, p.Running())
}

func TestPoller_StartAfterOnStoppedPoller(t *testing.T) {
	var ticks atomic.Int32
	p := poller.New(2*time.Millisecond, func(context.Context) { ticks.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Restart needs a previous Start; StartAfter does not.
	p.Restart(0)
	require.False(t, p.Running())

	p.StartAfter(ctx, 5*time.Millisecond)
	require.False(t, p.Running())
	require.Eventually(t, p.Running, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)
	p.Stop()
}
