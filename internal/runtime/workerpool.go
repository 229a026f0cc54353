package runtime

import (
	"sync"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
)

// scheduler owns the pool lifecycle and decides per call whether a batch of
// independent tasks is worth dispatching. A nil scheduler runs everything
// serially.
//
// The pool is persistent: its goroutines are spawned once per layer and
// reused by every Forward until close.
type scheduler struct {
	mu   sync.RWMutex // held for reading while work is in flight
	pool *workerpool.Pool
	par  ParallelismConfig
}

func newScheduler(workerCount int, par ParallelismConfig) *scheduler {
	s := &scheduler{par: par}
	if workerCount > 1 {
		s.pool = workerpool.New(workerCount)
	}
	return s
}

// runTasksThreshold parallelizes tasks only if count >= minTasks threshold.
// Below it the dispatch/sync cost exceeds the serial execution time.
// Nil tasks are skipped.
func (s *scheduler) runTasksThreshold(tasks []func(), minTasks int) {
	if len(tasks) == 0 {
		return
	}
	run := func(i int) {
		if tasks[i] != nil {
			tasks[i]()
		}
	}
	if s != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	if s == nil || s.pool == nil || len(tasks) < 2 || len(tasks) < minTasks {
		for i := range tasks {
			run(i)
		}
		return
	}
	s.pool.ParallelForAtomic(len(tasks), run)
}

// forRows splits [0, rows) into batches of RowsPerTask and runs fn on each
// batch, in parallel once rows >= minRows.
func (s *scheduler) forRows(rows, minRows int, fn func(start, end int)) {
	if rows <= 0 {
		return
	}
	if s == nil || rows < minRows {
		fn(0, rows)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		fn(0, rows)
		return
	}
	s.pool.ParallelForAtomicBatched(rows, max(s.par.RowsPerTask, 1), fn)
}

// workerCount reports the number of pool goroutines, 0 when serial.
func (s *scheduler) workerCount() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return 0
	}
	return s.pool.NumWorkers()
}

// close stops the pool. Later calls run serially. Safe to call twice.
func (s *scheduler) close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}
