package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelMapKeepsOrderAndPartialErrors(t *testing.T) {
	items := []int{1, 2, 3, 4}
	boom := errors.New("boom")
	results, errs := ParallelMap(context.Background(), items, func(v int) (int, error) {
		if v == 3 {
			return 0, boom
		}
		return v * 10, nil
	}, 2)

	if len(results) != len(items) || len(errs) != len(items) {
		t.Fatalf("expected %d results and errors, got %d/%d", len(items), len(results), len(errs))
	}
	for i, v := range []int{10, 20, 0, 40} {
		if results[i] != v {
			t.Fatalf("result[%d] = %d, want %d", i, results[i], v)
		}
	}
	if !errors.Is(errs[2], boom) {
		t.Fatalf("expected boom at index 2, got %v", errs[2])
	}
	if errs[0] != nil || errs[1] != nil || errs[3] != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestParallelMapCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, errs := ParallelMap(ctx, []int{1, 2}, func(v int) (int, error) {
		return v, nil
	}, 1)
	cancelled := false
	for _, err := range errs {
		if errors.Is(err, context.Canceled) {
			cancelled = true
		}
	}
	if !cancelled {
		t.Fatalf("expected at least one context.Canceled, got %v", errs)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	wp := NewWorkerPool(2)
	var active, peak int32
	err := ParallelForEach(context.Background(), []int{1, 2, 3, 4, 5}, func(int) error {
		return wp.Do(context.Background(), func() error {
			cur := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
					break
				}
			}
			atomic.AddInt32(&active, -1)
			return nil
		})
	}, 5)
	if err != nil {
		t.Fatalf("ParallelForEach: %v", err)
	}
	if atomic.LoadInt32(&peak) > 2 {
		t.Fatalf("worker pool exceeded bound: peak %d", peak)
	}
}
