// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one item: either Meta or Err is set. Elapsed
// covers the item's full pipeline including file I/O.
type BatchResult struct {
	Path    string
	Meta    *Metadata
	Err     error
	Elapsed time.Duration
}

// BatchSummary aggregates a completed batch. Results is keyed by path so
// callers needing submission order can index back into it; collection order
// is completion order and carries no guarantee. Duplicate submitted paths
// keep one entry in Results, last completion wins, but every job counts
// toward Total, SuccessCount, ErrorCount and AvgLatency.
type BatchSummary struct {
	Total        int
	SuccessCount int
	ErrorCount   int
	Elapsed      time.Duration
	FilesPerSec  float64
	AvgLatency   time.Duration
	Results      map[string]BatchResult
}

// SuccessRate returns the fraction of items that succeeded, in [0, 1].
func (s BatchSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.Total)
}

// WriteOp is one item for WriteBatch: read InPath, replace its metadata with
// Fields, write the result to OutPath.
type WriteOp struct {
	InPath  string
	OutPath string
	Fields  *Metadata
}

// ReadBatch extracts metadata from every path using a fixed-size worker
// pool. One item's failure never aborts the batch; it is recorded in the
// summary and processing continues. workers <= 0 means GOMAXPROCS.
func ReadBatch(paths []string, workers int) BatchSummary {
	return runBatch(len(paths), workers, func(jobs chan<- func() BatchResult) {
		for _, path := range paths {
			jobs <- func() BatchResult {
				start := time.Now()
				m, err := ReadFile(path)
				return BatchResult{Path: path, Meta: m, Err: err, Elapsed: time.Since(start)}
			}
		}
	})
}

// WriteBatch runs every write operation with the same pool and isolation
// semantics as ReadBatch.
func WriteBatch(ops []WriteOp, workers int) BatchSummary {
	return runBatch(len(ops), workers, func(jobs chan<- func() BatchResult) {
		for _, op := range ops {
			jobs <- func() BatchResult {
				start := time.Now()
				err := WriteFile(op.InPath, op.OutPath, op.Fields)
				return BatchResult{Path: op.InPath, Err: err, Elapsed: time.Since(start)}
			}
		}
	})
}

// runBatch fans jobs out to the pool and folds completed results into the
// summary. The results map is the only shared state; the mutex guards it.
func runBatch(total, workers int, submit func(chan<- func() BatchResult)) BatchSummary {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	results := make(map[string]BatchResult, total)
	var (
		mu           sync.Mutex
		succ, failed int
		latency      time.Duration
	)

	jobs := make(chan func() BatchResult)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for job := range jobs {
				r := job()
				mu.Lock()
				// Duplicate paths collapse in the map; the counters and
				// latency sum still see every job.
				results[r.Path] = r
				if r.Err != nil {
					failed++
				} else {
					succ++
				}
				latency += r.Elapsed
				mu.Unlock()
			}
			return nil
		})
	}
	submit(jobs)
	close(jobs)
	// Workers never return errors; per-item failures live in results.
	_ = g.Wait()

	s := BatchSummary{
		Total:        total,
		SuccessCount: succ,
		ErrorCount:   failed,
		Elapsed:      time.Since(start),
		Results:      results,
	}
	if total > 0 {
		s.AvgLatency = latency / time.Duration(total)
	}
	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.FilesPerSec = float64(total) / secs
	}
	return s
}
