package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNop() *zap.Logger { return zap.NewNop() }

func TestAddTicker_Fires(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddTicker("tick", 20*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count1, count2 int32
	s.AddTicker("task", 20*time.Millisecond, func(context.Context) error { atomic.AddInt32(&count1, 1); return nil })
	time.Sleep(30 * time.Millisecond)
	s.AddTicker("task", 20*time.Millisecond, func(context.Context) error { atomic.AddInt32(&count2, 1); return nil })
	time.Sleep(80 * time.Millisecond)

	// Old ticker should have stopped, new one should be running
	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old ticker must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestAddDelay_FiresOnce(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddDelay("once", 30*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestAddDelay_ReplacesCancelsOld(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	// Schedule with long delay, then replace immediately
	s.AddDelay("d", 500*time.Millisecond, func(context.Context) error { atomic.AddInt32(&count, 1); return nil })
	s.AddDelay("d", 30*time.Millisecond, func(context.Context) error { atomic.AddInt32(&count, 10); return nil })
	time.Sleep(100 * time.Millisecond)
	// Only the second delay should have fired (value 10), not both
	v := atomic.LoadInt32(&count)
	assert.Equal(t, int32(10), v)
}

func TestRemove_Ticker(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddTicker("task", 20*time.Millisecond, func(context.Context) error { atomic.AddInt32(&count, 1); return nil })
	time.Sleep(50 * time.Millisecond)
	s.Remove("task")
	snap := atomic.LoadInt32(&count)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&count), "ticker must stop after Remove")
}

func TestRemove_Delay(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddDelay("d", 100*time.Millisecond, func(context.Context) error { atomic.AddInt32(&count, 1); return nil })
	s.Remove("d")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestRemove_NonExistent(t *testing.T) {
	s := New(newNop())
	defer s.Stop()
	// Must not panic
	s.Remove("nope")
}

func TestStop_StopsAllTickers(t *testing.T) {
	s := New(newNop())

	var c1, c2 int32
	s.AddTicker("a", 20*time.Millisecond, func(context.Context) error { atomic.AddInt32(&c1, 1); return nil })
	s.AddTicker("b", 20*time.Millisecond, func(context.Context) error { atomic.AddInt32(&c2, 1); return nil })
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	// Give goroutines time to observe the stop signal before snapping counts.
	time.Sleep(30 * time.Millisecond)
	snap1, snap2 := atomic.LoadInt32(&c1), atomic.LoadInt32(&c2)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&c1))
	assert.Equal(t, snap2, atomic.LoadInt32(&c2))
}

func TestStop_Idempotent(t *testing.T) {
	s := New(newNop())
	s.Stop()
	s.Stop() // must not panic on double-stop
}

func TestListTickers(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	require.Empty(t, s.ListTickers())
	s.AddTicker("alpha", time.Hour, func(context.Context) error { return nil })
	s.AddTicker("beta", time.Hour, func(context.Context) error { return nil })
	names := s.ListTickers()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "alpha")
	assert.Contains(t, names, "beta")
}

func TestListTickers_AfterRemove(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	s.AddTicker("x", time.Hour, func(context.Context) error { return nil })
	s.AddTicker("y", time.Hour, func(context.Context) error { return nil })
	s.Remove("x")
	assert.Equal(t, []string{"y"}, s.ListTickers())
}

func TestTicker_PanicRecovery(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	s.AddTicker("panic", 20*time.Millisecond, func(context.Context) error {
		panic("oops")
	})
	// the goroutine survives and keeps counting runs
	require.Eventually(t, func() bool {
		tasks := s.Tasks()
		return len(tasks) == 1 && tasks[0].Failures >= 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, errPanicked.Error(), s.Tasks()[0].LastErr)
}

func TestTasks_RecordsRunsAndErrors(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var n int32
	s.AddTicker("flaky", 15*time.Millisecond, func(context.Context) error {
		if atomic.AddInt32(&n, 1)%2 == 1 {
			return errors.New("redis down")
		}
		return nil
	})
	require.Eventually(t, func() bool { return s.Tasks()[0].Runs >= 4 }, time.Second, 5*time.Millisecond)
	info := s.Tasks()[0]
	assert.Equal(t, "flaky", info.Name)
	assert.Equal(t, 15*time.Millisecond, info.Interval)
	assert.GreaterOrEqual(t, info.Failures, int64(2))
	assert.False(t, info.LastRun.IsZero())
}

func TestAddTicker_NonPositiveIntervalDisabled(t *testing.T) {
	s := New(newNop())
	defer s.Stop()
	s.AddTicker("off", 0, func(context.Context) error { return nil })
	assert.Empty(t, s.ListTickers())
}

func TestStop_CancelsTaskContext(t *testing.T) {
	s := New(newNop())
	started := make(chan struct{})
	cancelled := make(chan struct{})
	s.AddDelay("long", time.Millisecond, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	<-started
	s.Stop()
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled by Stop")
	}
}

func TestAddAfterStop_Ignored(t *testing.T) {
	s := New(newNop())
	s.Stop()
	s.AddTicker("late", time.Millisecond, func(context.Context) error { return nil })
	assert.Empty(t, s.ListTickers())
}
