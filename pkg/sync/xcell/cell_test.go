package xcell

import (
	"bytes"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcell/pkg/observability/xmetrics"
)

func TestCell_LockExclusiveReadWrite(t *testing.T) {
	c := NewCell(5)

	g := c.LockExclusive()
	assert.Equal(t, 5, *g.Value())
	*g.Value() -= 1
	require.NoError(t, g.Release())

	s := c.LockShared()
	assert.Equal(t, 4, s.Value())
	require.NoError(t, s.Release())
}

func TestCell_SharedGuardsCoexist(t *testing.T) {
	c := NewCell("v")

	g1 := c.LockShared()
	g2, ok := c.TryLockShared()
	require.True(t, ok)
	assert.Equal(t, int64(2), c.Readers())

	_, ok = c.TryLockExclusive()
	assert.False(t, ok, "exclusive lock must fail while readers are registered")
	assert.False(t, c.Locked(), "failed try must roll back the flag")

	require.NoError(t, g1.Release())
	require.NoError(t, g2.Release())

	g, ok := c.TryLockExclusive()
	require.True(t, ok)
	require.NoError(t, g.Release())
}

func TestCell_ExclusiveExcludesAll(t *testing.T) {
	c := NewCell(0)
	g := c.LockExclusive()

	_, ok := c.TryLockShared()
	assert.False(t, ok)
	_, ok = c.TryLockExclusive()
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Readers(), "failed shared try must roll back the counter")

	acquired := make(chan int)
	go func() {
		s := c.LockShared()
		defer s.Release() //nolint:errcheck
		acquired <- s.Value()
	}()

	select {
	case <-acquired:
		t.Fatal("shared lock acquired while exclusive guard is live")
	case <-time.After(20 * time.Millisecond):
	}

	g.Set(42)
	require.NoError(t, g.Release())
	assert.Equal(t, 42, <-acquired)
}

func TestCell_ExclusiveWaitsForReaders(t *testing.T) {
	c := NewCell(0)
	s := c.LockShared()

	done := make(chan struct{})
	go func() {
		g := c.LockExclusive()
		g.Set(1)
		_ = g.Release()
		close(done)
	}()

	// 写者抢到标记后会阻止新读者进入。
	require.Eventually(t, c.Locked, time.Second, time.Millisecond)
	_, ok := c.TryLockShared()
	assert.False(t, ok)

	select {
	case <-done:
		t.Fatal("exclusive lock acquired while a reader is registered")
	case <-time.After(20 * time.Millisecond):
	}

	assert.Equal(t, 0, s.Value())
	require.NoError(t, s.Release())
	<-done

	c.Borrow(func(v int) { assert.Equal(t, 1, v) })
}

func TestCell_NoConcurrentExclusiveGuards(t *testing.T) {
	const (
		workers    = 8
		iterations = 2000
	)
	c := NewCell(0)

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iterations {
				g := c.LockExclusive()
				n := active.Add(1)
				for {
					cur := maxActive.Load()
					if n <= cur || maxActive.CompareAndSwap(cur, n) {
						break
					}
				}
				// 非原子读改写：若互斥失效，-race 与最终计数都会暴露问题。
				v := *g.Value()
				runtime.Gosched()
				*g.Value() = v + 1
				active.Add(-1)
				_ = g.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	c.Borrow(func(v int) { assert.Equal(t, workers*iterations, v) })
}

func TestCell_ReadersNeverObservePartialWrite(t *testing.T) {
	type pair struct{ a, b int }
	c := NewCell(pair{})

	var wg sync.WaitGroup
	var torn atomic.Int32
	stop := make(chan struct{})

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				g := c.LockShared()
				p := g.Value()
				if p.a != p.b {
					torn.Add(1)
				}
				_ = g.Release()
			}
		}()
	}

	for i := range 2000 {
		g := c.LockExclusive()
		g.Value().a = i
		runtime.Gosched()
		g.Value().b = i
		_ = g.Release()
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, torn.Load())
}

func TestCell_Borrow(t *testing.T) {
	c := NewCell([]int{1, 2})
	var got []int
	c.Borrow(func(v []int) { got = append(got, v...) })
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, int64(0), c.Readers(), "borrow must release its reader slot")
}

func TestCell_UnlockWithoutLockPanics(t *testing.T) {
	c := NewCell(0)
	assert.PanicsWithValue(t, msgUnlockUnlocked, func() { c.unlockExclusive() })
	assert.PanicsWithValue(t, msgUnlockNoReaders, func() { c.unlockShared() })
}

func TestCell_Observer(t *testing.T) {
	obs := newRecordingObserver()
	c := NewCell(0, WithObserver(obs))

	g := c.LockExclusive()
	require.NoError(t, g.Release())
	s := c.LockShared()
	require.NoError(t, s.Release())
	ts, ok := c.TryLockShared()
	require.True(t, ok)
	require.NoError(t, ts.Release())

	assert.Equal(t, 1, obs.acquired(xmetrics.ModeExclusive))
	assert.Equal(t, 2, obs.acquired(xmetrics.ModeShared))
	assert.Equal(t, 1, obs.released(xmetrics.ModeExclusive))
	assert.Equal(t, 2, obs.released(xmetrics.ModeShared))
}

func TestCell_ObserverRecordsSpins(t *testing.T) {
	obs := newRecordingObserver()
	c := NewCell(0, WithObserver(obs), WithSpinConfig(SpinConfig{ActiveSpins: 0, MaxBackoff: 1}))

	g := c.LockExclusive()
	done := make(chan struct{})
	go func() {
		defer close(done)
		g2 := c.LockExclusive()
		_ = g2.Release()
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, g.Release())
	<-done

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Positive(t, obs.maxSpins)
}

func TestCell_SlowAcquisitionLogged(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := NewCell(0,
		WithLogger(logger),
		WithName("orders"),
		WithSpinConfig(SpinConfig{ActiveSpins: 4, MaxBackoff: 8, SlowThreshold: time.Millisecond}),
	)

	g := c.LockExclusive()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s := c.LockShared()
		_ = s.Release()
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, g.Release())
	<-done

	out := buf.String()
	assert.Contains(t, out, "xcell: slow lock acquisition")
	assert.Contains(t, out, "name=orders")
	assert.Contains(t, out, "mode=shared")
}

func TestCell_FastPathNotLogged(t *testing.T) {
	var buf syncBuffer
	c := NewCell(0,
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithSpinConfig(SpinConfig{MaxBackoff: 1, SlowThreshold: time.Nanosecond}),
	)
	g := c.LockExclusive()
	require.NoError(t, g.Release())
	assert.Empty(t, buf.String())
}

// syncBuffer 是并发安全的 bytes.Buffer，供日志断言使用。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
