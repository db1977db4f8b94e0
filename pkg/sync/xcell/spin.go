package xcell

import (
	"runtime"
	"time"
)

// spinner 记录一次锁获取过程中的等待状态，只在栈上使用。
//
// 前 ActiveSpins 次轮询为纯忙等，之后每轮让出 backoff 次处理器，
// backoff 指数增长到 MaxBackoff 为止。
type spinner struct {
	cfg     *SpinConfig
	spins   int
	backoff int
	start   time.Time
}

func newSpinner(cfg *SpinConfig) spinner {
	return spinner{cfg: cfg, backoff: 1}
}

// wait 执行一次等待。首次调用时记录开始时间，无竞争路径不调用 time.Now。
func (s *spinner) wait() {
	if s.spins == 0 {
		s.start = time.Now()
	}
	s.spins++
	if s.spins <= s.cfg.ActiveSpins {
		return
	}
	for range s.backoff {
		runtime.Gosched()
	}
	if s.backoff < s.cfg.MaxBackoff {
		s.backoff = min(s.backoff*2, s.cfg.MaxBackoff)
	}
}

// waited 返回累计等待时长；未发生等待时为 0。
func (s *spinner) waited() time.Duration {
	if s.spins == 0 {
		return 0
	}
	return time.Since(s.start)
}
