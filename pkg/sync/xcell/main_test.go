package xcell

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/omeyang/xcell/pkg/observability/xmetrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingObserver 记录锁事件，供测试断言。
type recordingObserver struct {
	mu       sync.Mutex
	acquires map[xmetrics.Mode]int
	releases map[xmetrics.Mode]int
	unwraps  map[xmetrics.Outcome]int
	maxSpins int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		acquires: make(map[xmetrics.Mode]int),
		releases: make(map[xmetrics.Mode]int),
		unwraps:  make(map[xmetrics.Outcome]int),
	}
}

func (o *recordingObserver) ObserveAcquire(mode xmetrics.Mode, spins int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.acquires[mode]++
	o.maxSpins = max(o.maxSpins, spins)
}

func (o *recordingObserver) ObserveRelease(mode xmetrics.Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.releases[mode]++
}

func (o *recordingObserver) ObserveUnwrap(outcome xmetrics.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unwraps[outcome]++
}

func (o *recordingObserver) acquired(mode xmetrics.Mode) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.acquires[mode]
}

func (o *recordingObserver) released(mode xmetrics.Mode) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.releases[mode]
}

func (o *recordingObserver) unwrapped(outcome xmetrics.Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unwraps[outcome]
}
