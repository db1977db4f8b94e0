package xcell

import (
	"errors"
	"testing"
	"time"
)

// FuzzHandleOps 按字节序列驱动 Clone/Release/Update/TryUnwrap，校验引用计数与值的一致性。
func FuzzHandleOps(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3})
	f.Add([]byte{0, 0, 0, 1, 1, 1, 3})
	f.Add([]byte{2, 2, 2, 3})

	f.Fuzz(func(t *testing.T, ops []byte) {
		root := New(0)
		live := []*Handle[int]{root}
		want := 0

		for i, op := range ops {
			if len(live) == 0 {
				break
			}
			h := live[i%len(live)]
			switch op % 4 {
			case 0:
				live = append(live, h.Clone())
			case 1:
				if len(live) > 1 {
					if err := h.Release(); err != nil {
						t.Fatalf("release: %v", err)
					}
					live = remove(live, h)
				}
			case 2:
				h.Update(func(v *int) { *v++ })
				want++
			case 3:
				v, err := h.TryUnwrap()
				if len(live) == 1 {
					if err != nil {
						t.Fatalf("sole owner unwrap: %v", err)
					}
					if v != want {
						t.Fatalf("unwrap value = %d, want %d", v, want)
					}
					return
				}
				if !errors.Is(err, ErrShared) {
					t.Fatalf("shared unwrap error = %v", err)
				}
			}
			if got := root.RefCount(); got != int64(len(live)) {
				t.Fatalf("refcount = %d, want %d", got, len(live))
			}
		}
		for _, h := range live {
			h.Read(func(v int) {
				if v != want {
					t.Fatalf("value = %d, want %d", v, want)
				}
			})
		}
	})
}

func remove(hs []*Handle[int], h *Handle[int]) []*Handle[int] {
	out := hs[:0]
	for _, x := range hs {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}

// FuzzSpinConfig 校验 normalize 之后的配置总能通过 Validate。
func FuzzSpinConfig(f *testing.F) {
	f.Add(16, 128, int64(0))
	f.Add(-1, 0, int64(-5))
	f.Add(1<<20, 1<<20, int64(1e9))

	f.Fuzz(func(t *testing.T, spins, backoff int, threshold int64) {
		cfg := SpinConfig{ActiveSpins: spins, MaxBackoff: backoff, SlowThreshold: time.Duration(threshold)}
		if err := cfg.normalize().Validate(); err != nil {
			t.Fatalf("normalized config invalid: %v", err)
		}
	})
}
