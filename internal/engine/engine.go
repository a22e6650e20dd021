// Package engine locates compressed audio logs, streams each through gzip
// decompression with a size guard, and publishes outputs atomically.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/vgmkit/unvgz/internal/event"
	"github.com/vgmkit/unvgz/internal/stats"
)

// Config describes a decompression run.
type Config struct {
	Src          string
	Dst          string
	Flatten      bool
	SkipExisting bool
	MaxBytes     int64 // decompressed-size ceiling, 0 = unlimited
	Workers      int
	ScanWorkers  int
	DryRun       bool
	Verify       bool
	NoTimes      bool
	BWLimit      int64 // aggregate write throughput cap, 0 = unlimited
	Events       chan<- event.Event
	Stats        *stats.Collector
	Log          *slog.Logger
}

// Result is the outcome of a run. Err is set only for configuration-level
// failures; per-file failures are contained and counted in Stats.
type Result struct {
	Stats stats.Snapshot
	Err   error
}

// Run executes a decompression run, blocking until complete.
func Run(ctx context.Context, cfg Config) Result {
	info, err := os.Stat(cfg.Src)
	if err != nil {
		return Result{Err: fmt.Errorf("input directory: %w", err)}
	}
	if !info.IsDir() {
		return Result{Err: fmt.Errorf("input %s is not a directory", cfg.Src)}
	}

	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), 8)
	}

	if err := os.MkdirAll(cfg.Dst, 0o755); err != nil {
		return Result{Err: fmt.Errorf("create output directory: %w", err)}
	}

	dec := &Decompressor{
		MaxBytes:      cfg.MaxBytes,
		SkipExisting:  cfg.SkipExisting,
		PreserveTimes: !cfg.NoTimes,
	}
	if cfg.BWLimit > 0 {
		dec.Limiter = NewBWLimiter(cfg.BWLimit)
	}

	scanner := NewScanner(ScannerConfig{Root: cfg.Src, Workers: cfg.ScanWorkers})
	resolver := NewResolver(cfg.Src, cfg.Dst, cfg.Flatten, cfg.SkipExisting)
	pool := NewWorkerPool(WorkerConfig{
		NumWorkers:   cfg.Workers,
		DryRun:       cfg.DryRun,
		Verify:       cfg.Verify,
		Decompressor: dec,
		Stats:        cfg.Stats,
		Events:       cfg.Events,
		Log:          cfg.Log,
	})
	defer pool.Close()

	emit(cfg.Events, event.Event{Type: event.ScanStarted, Path: cfg.Src})

	paths, scanErrs := scanner.Scan(ctx)

	// Scan errors (unreadable directories) are contained: log and walk on.
	go func() {
		for err := range scanErrs {
			cfg.Log.Error("scan error", "error", err)
		}
	}()

	// Resolve stage: map each candidate to its final destination and hand
	// it to the pool. Flat-mode collision claims are serialized inside the
	// resolver.
	jobs := make(chan Job, cfg.Workers*4)
	go func() {
		defer close(jobs)
		for p := range paths {
			cfg.Stats.AddFilesScanned(1)

			dst, skip, err := resolver.Resolve(p)
			if err != nil {
				cfg.Stats.AddFilesFailed(1)
				cfg.Log.Error("failed to resolve destination", "src", p, "error", err)
				emit(cfg.Events, event.Event{Type: event.FileFailed, Path: p, Error: err})
				continue
			}
			if skip {
				cfg.Stats.AddFilesSkipped(1)
				cfg.Log.Info("skipping (exists)", "dst", dst)
				emit(cfg.Events, event.Event{Type: event.FileSkipped, Path: dst})
				continue
			}

			select {
			case jobs <- Job{SrcPath: p, DstPath: dst}:
			case <-ctx.Done():
				return
			}
		}
		cfg.Stats.SetFilesTotal(cfg.Stats.Snapshot().FilesScanned)
		emit(cfg.Events, event.Event{
			Type:  event.ScanComplete,
			Total: cfg.Stats.Snapshot().FilesScanned,
		})
	}()

	pool.Run(ctx, jobs)

	return Result{Stats: cfg.Stats.Snapshot()}
}

func emit(events chan<- event.Event, ev event.Event) {
	if events == nil {
		return
	}
	ev.Timestamp = time.Now()
	events <- ev
}
