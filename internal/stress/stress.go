package stress

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xcell/pkg/sync/xcell"
)

// ctxCheckInterval 每隔多少次迭代检查一次 ctx。
const ctxCheckInterval = 256

// Result 是一次压测的结果。
type Result struct {
	Elapsed    time.Duration
	Writes     int64
	Checks     int64
	Expected   []int
	Final      []int
	MaxWriters int64
	TornReads  int64
	Digest     uint64
}

type counters struct {
	active     atomic.Int64
	maxWriters atomic.Int64
	writes     atomic.Int64
	checks     atomic.Int64
	torn       atomic.Int64
}

func (c *counters) enter() {
	n := c.active.Add(1)
	for {
		m := c.maxWriters.Load()
		if n <= m || c.maxWriters.CompareAndSwap(m, n) {
			return
		}
	}
}

// NewVector 创建长度为 size、元素为 0..size-1 的向量 Handle。
func NewVector(size int, opts ...xcell.Option) *xcell.Handle[[]int] {
	v := make([]int, size)
	for i := range v {
		v[i] = i
	}
	return xcell.New(v, opts...)
}

// Run 在 h 上执行压测。h 的所有权仍归调用方，Run 只使用其 Clone。
// ctx 取消时尽快返回 ctx 的错误。
func Run(ctx context.Context, cfg Config, h *xcell.Handle[[]int]) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if h == nil {
		return Result{}, xcell.ErrNilHandle
	}

	var initial []int
	h.Read(func(v []int) { initial = slices.Clone(v) })

	var c counters
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for range cfg.Workers {
		clone := h.Clone()
		g.Go(func() error {
			defer clone.Release() //nolint:errcheck // 首次 Release 必然成功
			return work(ctx, cfg, clone, initial, &c)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)

	var final []int
	h.Read(func(v []int) { final = slices.Clone(v) })

	expected := make([]int, len(initial))
	for i, v := range initial {
		expected[i] = v + cfg.Total()
	}
	return Result{
		Elapsed:    elapsed,
		Writes:     c.writes.Load(),
		Checks:     c.checks.Load(),
		Expected:   expected,
		Final:      final,
		MaxWriters: c.maxWriters.Load(),
		TornReads:  c.torn.Load(),
		Digest:     Digest(final),
	}, nil
}

func work(ctx context.Context, cfg Config, h *xcell.Handle[[]int], initial []int, c *counters) error {
	for i := range cfg.Iterations {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		g := h.Lock()
		c.enter()
		v := *g.Value()
		for j := range v {
			v[j] += cfg.Amount
		}
		c.active.Add(-1)
		_ = g.Release()
		c.writes.Add(1)

		if cfg.CheckEvery > 0 && (i+1)%cfg.CheckEvery == 0 {
			c.checks.Add(1)
			h.Read(func(v []int) {
				if !sameOffsets(v, initial) {
					c.torn.Add(1)
				}
			})
		}
	}
	return nil
}

// sameOffsets 报告 v 中每个元素相对初始值的增量是否相同。
func sameOffsets(v, initial []int) bool {
	if len(v) != len(initial) || len(v) == 0 {
		return len(v) == len(initial)
	}
	d := v[0] - initial[0]
	for i := range v {
		if v[i]-initial[i] != d {
			return false
		}
	}
	return true
}

// Digest 返回向量的 xxhash 摘要，相同配置的两次运行应得到相同结果。
func Digest(v []int) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 8)
	for _, x := range v {
		buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(x))
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}

// Verify 检查结果是否满足互斥与无丢失更新。
func Verify(res Result) error {
	if res.MaxWriters > 1 {
		return fmt.Errorf("%w: %d concurrent exclusive holders", ErrMutualExclusion, res.MaxWriters)
	}
	if res.TornReads > 0 {
		return fmt.Errorf("%w: %d of %d checks", ErrTornRead, res.TornReads, res.Checks)
	}
	if len(res.Final) != len(res.Expected) {
		return fmt.Errorf("%w: length %d, want %d", ErrLostUpdate, len(res.Final), len(res.Expected))
	}
	for i := range res.Final {
		if res.Final[i] != res.Expected[i] {
			return fmt.Errorf("%w: element %d = %d, want %d", ErrLostUpdate, i, res.Final[i], res.Expected[i])
		}
	}
	return nil
}
