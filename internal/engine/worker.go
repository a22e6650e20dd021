package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vgmkit/unvgz/internal/event"
	"github.com/vgmkit/unvgz/internal/stats"
)

// WorkerConfig controls worker pool behavior.
type WorkerConfig struct {
	NumWorkers   int
	DryRun       bool
	Verify       bool
	Decompressor *Decompressor
	Stats        *stats.Collector
	Events       chan<- event.Event
	Log          *slog.Logger
}

// WorkerPool fans decompression jobs out to a fixed set of workers.
type WorkerPool struct {
	cfg WorkerConfig
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(cfg WorkerConfig) *WorkerPool {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &WorkerPool{cfg: cfg}
}

// Run starts workers that consume jobs. It blocks until all jobs are
// processed or the context is cancelled.
func (wp *WorkerPool) Run(ctx context.Context, jobs <-chan Job) {
	var wg sync.WaitGroup
	for id := 0; id < wp.cfg.NumWorkers; id++ {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				wp.processJob(ctx, id, job)
			}
		}()
	}
	wg.Wait()
}

// Close sweeps any provisional files left by aborted jobs.
func (wp *WorkerPool) Close() {
	CleanupTmpFiles()
}

func (wp *WorkerPool) processJob(ctx context.Context, workerID int, job Job) {
	if wp.cfg.DryRun {
		wp.cfg.Log.Info("would decompress", "src", job.SrcPath, "dst", job.DstPath)
		return
	}

	wp.emit(event.Event{Type: event.FileStarted, Path: job.SrcPath, WorkerID: workerID})

	res := wp.cfg.Decompressor.Decompress(ctx, job)

	switch res.Outcome {
	case OutcomeCreated:
		wp.cfg.Stats.AddFilesDecompressed(1)
		wp.cfg.Stats.AddBytesWritten(res.Bytes)
		wp.cfg.Log.Debug("decompressed", "src", job.SrcPath, "dst", job.DstPath, "bytes", res.Bytes)
		wp.emit(event.Event{
			Type:     event.FileDecompressed,
			Path:     job.DstPath,
			Size:     res.Bytes,
			WorkerID: workerID,
		})
		if wp.cfg.Verify {
			wp.verifyOutput(job, res, workerID)
		}

	case OutcomeSkipped:
		wp.cfg.Stats.AddFilesSkipped(1)
		wp.cfg.Log.Info("skipping (exists)", "dst", job.DstPath)
		wp.emit(event.Event{Type: event.FileSkipped, Path: job.DstPath, WorkerID: workerID})

	case OutcomeSizeExceeded:
		wp.cfg.Stats.AddFilesDiscarded(1)
		wp.cfg.Log.Info("discarded (size ceiling)",
			"src", job.SrcPath,
			"limit", wp.cfg.Decompressor.MaxBytes,
		)
		wp.emit(event.Event{
			Type:     event.FileDiscarded,
			Path:     job.SrcPath,
			Size:     res.Bytes,
			WorkerID: workerID,
		})

	case OutcomeFailed:
		wp.cfg.Stats.AddFilesFailed(1)
		wp.cfg.Log.Error("failed to decompress", "src", job.SrcPath, "error", res.Err)
		wp.emit(event.Event{
			Type:     event.FileFailed,
			Path:     job.SrcPath,
			Error:    res.Err,
			WorkerID: workerID,
		})
	}
}

func (wp *WorkerPool) verifyOutput(job Job, res JobResult, workerID int) {
	if err := VerifyOutput(job.DstPath, res.Digest); err != nil {
		wp.cfg.Stats.AddFilesVerifyFailed(1)
		wp.cfg.Log.Error("verify failed", "dst", job.DstPath, "error", err)
		wp.emit(event.Event{Type: event.VerifyFailed, Path: job.DstPath, Error: err, WorkerID: workerID})
		return
	}
	wp.cfg.Stats.AddFilesVerified(1)
	wp.emit(event.Event{Type: event.VerifyOK, Path: job.DstPath, WorkerID: workerID})
}

func (wp *WorkerPool) emit(ev event.Event) {
	if wp.cfg.Events == nil {
		return
	}
	ev.Timestamp = time.Now()
	wp.cfg.Events <- ev
}
