package runtime

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSchedulerRunsAllTasks(t *testing.T) {
	s := newScheduler(4, ParallelismConfig{RowsPerTask: 1})
	defer s.close()

	var count atomic.Int64
	tasks := make([]func(), 100)
	for i := range tasks {
		tasks[i] = func() { count.Add(1) }
	}
	tasks[50] = nil // nil tasks are skipped

	s.runTasksThreshold(tasks, 2)
	if got := count.Load(); got != 99 {
		t.Errorf("ran %d tasks, expected 99", got)
	}
	if n := s.workerCount(); n != 4 {
		t.Errorf("workerCount = %d, expected 4", n)
	}
}

func TestSchedulerSingleWorkerIsSerial(t *testing.T) {
	s := newScheduler(1, ParallelismConfig{RowsPerTask: 1})
	defer s.close()
	if s.workerCount() != 0 {
		t.Error("newScheduler(1) should not start a pool")
	}
	ran := 0
	s.forRows(5, 1, func(start, end int) { ran += end - start })
	if ran != 5 {
		t.Errorf("serial forRows covered %d rows, expected 5", ran)
	}
}

func TestSchedulerConcurrentCallers(t *testing.T) {
	s := newScheduler(4, ParallelismConfig{RowsPerTask: 2})
	defer s.close()

	var wg sync.WaitGroup
	var total atomic.Int64
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iter := 0; iter < 50; iter++ {
				s.forRows(10, 1, func(start, end int) {
					total.Add(int64(end - start))
				})
			}
		}()
	}
	wg.Wait()
	if got := total.Load(); got != 8*50*10 {
		t.Errorf("covered %d rows, expected %d", got, 8*50*10)
	}
}

func TestSchedulerNilRunsSerially(t *testing.T) {
	var s *scheduler
	order := make([]int, 0, 3)
	s.runTasksThreshold([]func(){
		func() { order = append(order, 0) },
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}, 1)
	if len(order) != 3 || order[0] != 0 || order[2] != 2 {
		t.Errorf("serial order = %v, expected [0 1 2]", order)
	}
	if s.workerCount() != 0 {
		t.Error("nil scheduler reports workers")
	}
	s.close()
}

func TestSchedulerForRowsCoversRange(t *testing.T) {
	par := ParallelismConfig{RowsPerTask: 3}
	s := newScheduler(4, par)
	defer s.close()

	for _, rows := range []int{0, 1, 2, 3, 7, 31} {
		seen := make([]atomic.Int32, rows)
		s.forRows(rows, 1, func(start, end int) {
			for i := start; i < end; i++ {
				seen[i].Add(1)
			}
		})
		for i := range seen {
			if n := seen[i].Load(); n != 1 {
				t.Errorf("rows=%d: row %d visited %d times", rows, i, n)
			}
		}
	}
}

func TestSchedulerCloseFallsBackToSerial(t *testing.T) {
	s := newScheduler(4, ParallelismConfig{RowsPerTask: 1})
	s.close()
	s.close()

	var count atomic.Int64
	s.runTasksThreshold([]func(){func() { count.Add(1) }, func() { count.Add(1) }}, 1)
	if count.Load() != 2 {
		t.Errorf("ran %d tasks after close, expected 2", count.Load())
	}
}

func TestDefaultParallelismConfig(t *testing.T) {
	par := DefaultParallelismConfig(NewLayerConfig(64, 4))
	if par.MinHeadsForAttentionParallel < 1 || par.MinRowsForNormParallel < 1 ||
		par.MinRowsForActivationParallel < 1 || par.RowsPerTask < 1 {
		t.Errorf("thresholds must be positive: %+v", par)
	}
	wide := DefaultParallelismConfig(NewLayerConfig(1024, 16))
	if wide.MinRowsForNormParallel > 8 {
		t.Errorf("wide layer norm threshold = %d, expected <= 8", wide.MinRowsForNormParallel)
	}
}

// BenchmarkSchedulerDispatch measures the dispatch overhead of the worker pool
func BenchmarkSchedulerDispatch(b *testing.B) {
	workerCount := runtime.GOMAXPROCS(0)
	if workerCount < 2 {
		b.Skip("Worker pool requires GOMAXPROCS > 1")
	}
	s := newScheduler(workerCount, ParallelismConfig{RowsPerTask: 1})
	defer s.close()

	noop := func() {
		_ = 1 + 1
	}

	b.Run("FourTasks", func(b *testing.B) {
		tasks := []func(){noop, noop, noop, noop}
		for i := 0; i < b.N; i++ {
			s.runTasksThreshold(tasks, 2)
		}
	})

	b.Run("Rows64", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			s.forRows(64, 1, func(start, end int) {})
		}
	})
}
