package runtime

import "runtime"

// ParallelismConfig controls adaptive thresholds for serial vs parallel execution.
// These thresholds determine when parallelization overhead is justified by the workload size.
type ParallelismConfig struct {
	// MinHeadsForAttentionParallel: Parallelize attention across heads if nHeads >= threshold.
	// Heads share nothing but the read-only Q/K/V projections, so each head is one task.
	MinHeadsForAttentionParallel int

	// MinRowsForNormParallel: Parallelize LayerNorm across rows when seqLen reaches
	// this threshold. Each row is normalized independently.
	MinRowsForNormParallel int

	// MinRowsForActivationParallel: Parallelize the feed-forward activation across
	// rows when seqLen reaches this threshold. The hidden rows are d_ff wide, so
	// the threshold is lower than the norm threshold.
	MinRowsForActivationParallel int

	// RowsPerTask groups consecutive rows into one task to amortize dispatch cost.
	RowsPerTask int
}

// DefaultParallelismConfig returns thresholds tuned to the current runtime
// (GOMAXPROCS) and the layer width. Wide layers and many-core machines start
// fanning out earlier; narrow layers on small machines stay serial longer.
func DefaultParallelismConfig(cfg LayerConfig) ParallelismConfig {
	workerCount := runtime.GOMAXPROCS(0)
	if workerCount < 1 {
		workerCount = 1
	}

	minRows := 32
	switch {
	case workerCount >= 16:
		minRows = 8
	case workerCount >= 8:
		minRows = 12
	case workerCount >= 4:
		minRows = 16
	}
	if cfg.DModel >= 1024 && minRows > 8 {
		minRows = 8
	}

	minActRows := minRows / 2
	if minActRows < 4 {
		minActRows = 4
	}

	// Attention head parallelism: relax threshold as soon as head count permits.
	minHeads := 4
	if workerCount >= 8 {
		minHeads = 2
	}

	rowsPerTask := 4
	if cfg.DModel >= 512 {
		rowsPerTask = 2
	}

	return ParallelismConfig{
		MinHeadsForAttentionParallel: minHeads,
		MinRowsForNormParallel:       minRows,
		MinRowsForActivationParallel: minActRows,
		RowsPerTask:                  rowsPerTask,
	}
}
