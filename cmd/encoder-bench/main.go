// Command encoder-bench measures encoder layer forward-pass latency and
// throughput for a given width, head count and sequence length.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/headlands-org/go-encoder/matrix"
	"github.com/headlands-org/go-encoder/pkg/encoderlayer"
)

var (
	dModel   = flag.Int("dmodel", 256, "Model width (d_model)")
	heads    = flag.Int("heads", 8, "Number of attention heads")
	ffDim    = flag.Int("ffdim", 0, "Feed-forward width (0 = 4×d_model)")
	seqLen   = flag.Int("seq", 64, "Sequence length (rows per forward call)")
	mode     = flag.String("mode", "latency", "Benchmark mode: latency or throughput")
	duration = flag.Int("duration", 5, "Benchmark duration in seconds")
	callers  = flag.Int("callers", runtime.NumCPU(), "Concurrent callers in throughput mode")
	threads  = flag.Int("threads", 0, "Layer worker pool size (0 = GOMAXPROCS, 1 = serial)")
	seed     = flag.Uint64("seed", 1, "Weight and input seed")
	verbose  = flag.Bool("verbose", false, "Log layer configuration")

	cpuProfile = flag.String("cpuprofile", "", "Write CPU profile to file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Benchmark encoder layer forward passes.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample commands:\n")
		fmt.Fprintf(os.Stderr, "  %s -dmodel 512 -heads 8 -seq 128 -mode latency\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dmodel 256 -heads 4 -mode throughput -callers 8 -threads 1\n", os.Args[0])
	}
	flag.Parse()

	if *mode != "latency" && *mode != "throughput" {
		fmt.Fprintf(os.Stderr, "Error: -mode must be 'latency' or 'throughput'\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if *duration <= 0 || *seqLen <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -duration and -seq must be greater than 0\n\n")
		flag.Usage()
		os.Exit(1)
	}

	cleanup := setupProfiling()
	defer cleanup()

	opts := []encoderlayer.Option{
		encoderlayer.WithSeed(*seed),
		encoderlayer.WithThreads(*threads),
		encoderlayer.WithVerbose(*verbose),
	}
	if *ffDim > 0 {
		opts = append(opts, encoderlayer.WithFeedForwardDim(*ffDim))
	}

	startBuild := time.Now()
	layer, err := encoderlayer.New(*dModel, *heads, opts...)
	if err != nil {
		log.Fatalf("Failed to build layer: %v", err)
	}
	defer layer.Close()
	log.Printf("Layer built in %v (d_model=%d heads=%d d_ff=%d)", time.Since(startBuild), layer.DModel(), layer.NumHeads(), layer.FFDim())

	input := randomInput(*seqLen, *dModel, *seed)

	// Warm up once and sanity-check the output.
	out, err := layer.Forward(input)
	if err != nil {
		log.Fatalf("Forward failed: %v", err)
	}
	if !matrix.AllFinite(out) {
		log.Fatalf("Forward produced non-finite values")
	}

	log.Printf("Running %s mode for %d seconds...", *mode, *duration)
	switch *mode {
	case "latency":
		runLatency(layer, input)
	case "throughput":
		runThroughput(layer, input)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Fprintf(os.Stderr, "\n=== Memory Statistics ===\n")
	fmt.Fprintf(os.Stderr, "HeapAlloc: %.2f MB\n", float64(m.HeapAlloc)/1024/1024)
	fmt.Fprintf(os.Stderr, "TotalAlloc: %.2f MB\n", float64(m.TotalAlloc)/1024/1024)
	fmt.Fprintf(os.Stderr, "NumGC: %d\n", m.NumGC)
}

func randomInput(rows, cols int, seed uint64) *matrix.Matrix {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed + 1)}
	m := matrix.Zeros(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, dist.Rand())
		}
	}
	return m
}

// runLatency calls Forward back to back on one goroutine.
func runLatency(layer *encoderlayer.Layer, input *matrix.Matrix) {
	deadline := time.Now().Add(time.Duration(*duration) * time.Second)
	var latencies []time.Duration

	cpuStart := readCPUUsage()
	wallStart := time.Now()
	for time.Now().Before(deadline) {
		start := time.Now()
		if _, err := layer.Forward(input); err != nil {
			log.Fatalf("Forward failed: %v", err)
		}
		latencies = append(latencies, time.Since(start))
	}
	wall := time.Since(wallStart)
	cpu := readCPUUsage().sub(cpuStart)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Fprintf(os.Stderr, "\n=== Latency Results ===\n")
	fmt.Fprintf(os.Stderr, "Calls: %d\n", len(latencies))
	fmt.Fprintf(os.Stderr, "P50: %v\n", percentile(latencies, 0.50))
	fmt.Fprintf(os.Stderr, "P95: %v\n", percentile(latencies, 0.95))
	fmt.Fprintf(os.Stderr, "P99: %v\n", percentile(latencies, 0.99))
	reportCPU(wall, cpu)
}

// runThroughput drives Forward from several goroutines sharing one layer.
func runThroughput(layer *encoderlayer.Layer, input *matrix.Matrix) {
	deadline := time.Now().Add(time.Duration(*duration) * time.Second)
	var calls atomic.Int64
	var wg sync.WaitGroup

	cpuStart := readCPUUsage()
	wallStart := time.Now()
	for w := 0; w < *callers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if _, err := layer.Forward(input); err != nil {
					log.Printf("Forward failed: %v", err)
					return
				}
				calls.Add(1)
			}
		}()
	}
	wg.Wait()
	wall := time.Since(wallStart)
	cpu := readCPUUsage().sub(cpuStart)

	total := calls.Load()
	fmt.Fprintf(os.Stderr, "\n=== Throughput Results ===\n")
	fmt.Fprintf(os.Stderr, "Callers: %d\n", *callers)
	fmt.Fprintf(os.Stderr, "Calls: %d\n", total)
	fmt.Fprintf(os.Stderr, "Throughput: %.2f calls/sec\n", float64(total)/wall.Seconds())
	fmt.Fprintf(os.Stderr, "Rows/sec: %.0f\n", float64(total*int64(*seqLen))/wall.Seconds())
	reportCPU(wall, cpu)
}

func reportCPU(wall time.Duration, cpu cpuUsage) {
	fmt.Fprintf(os.Stderr, "Wall time: %v\n", wall)
	if total := cpu.total(); total > 0 {
		fmt.Fprintf(os.Stderr, "CPU time: %v (user %v, sys %v)\n", total, cpu.user, cpu.sys)
		fmt.Fprintf(os.Stderr, "Cores busy: %.2f\n", total.Seconds()/wall.Seconds())
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// setupProfiling initializes profiling based on command-line flags
func setupProfiling() func() {
	if *cpuProfile == "" {
		return func() {}
	}
	f, err := os.Create(*cpuProfile)
	if err != nil {
		log.Printf("Warning: could not create CPU profile: %v", err)
		return func() {}
	}
	log.Printf("CPU profiling enabled, writing to %s", *cpuProfile)
	if err := pprof.StartCPUProfile(f); err != nil {
		log.Printf("Warning: could not start CPU profile: %v", err)
		f.Close()
		return func() {}
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
		log.Printf("CPU profile written to %s", *cpuProfile)
	}
}
