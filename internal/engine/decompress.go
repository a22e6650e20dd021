package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// chunkSize bounds peak memory per job regardless of total decompressed
// size, which may vastly exceed the compressed size for this format.
const chunkSize = 64 * 1024

// PartSuffix marks a provisional output file that has not been published.
const PartSuffix = ".part"

// Decompressor performs guarded streaming decompression of single files.
// It is safe for concurrent use: per-job state lives on the stack, and
// provisional file names derive from the final destination, which is unique
// after collision resolution.
type Decompressor struct {
	// MaxBytes is the decompressed-size ceiling. 0 means unlimited.
	// A stream of exactly MaxBytes is accepted; one more byte aborts.
	MaxBytes int64
	// SkipExisting short-circuits jobs whose destination already exists.
	SkipExisting bool
	// PreserveTimes carries the source mtime onto the published output.
	PreserveTimes bool
	// Limiter, when non-nil, throttles aggregate write throughput.
	Limiter *rate.Limiter
}

// Decompress streams job.SrcPath through gzip into job.DstPath via a
// provisional .part file, publishing atomically on success. Any failure is
// contained in the returned JobResult; the destination is never left
// partially written.
func (d *Decompressor) Decompress(ctx context.Context, job Job) JobResult {
	if d.SkipExisting {
		if _, err := os.Stat(job.DstPath); err == nil {
			return JobResult{Outcome: OutcomeSkipped}
		}
	}

	if err := os.MkdirAll(filepath.Dir(job.DstPath), 0o755); err != nil {
		return JobResult{Outcome: OutcomeFailed, Err: fmt.Errorf("create parent dir: %w", err)}
	}

	src, err := os.Open(job.SrcPath)
	if err != nil {
		return JobResult{Outcome: OutcomeFailed, Err: fmt.Errorf("open %s: %w", job.SrcPath, err)}
	}
	defer src.Close()

	zr, err := gzip.NewReader(src)
	if err != nil {
		return JobResult{Outcome: OutcomeFailed, Err: fmt.Errorf("gzip %s: %w", job.SrcPath, err)}
	}
	defer zr.Close()

	// Truncate any stale leftover from a crashed run.
	tmpPath := job.DstPath + PartSuffix
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return JobResult{Outcome: OutcomeFailed, Err: fmt.Errorf("create %s: %w", tmpPath, err)}
	}
	RegisterTmp(tmpPath)

	// Cleanup is best-effort: a secondary removal failure is swallowed,
	// the primary failure has already been captured.
	abort := func(outcome Outcome, written int64, err error) JobResult {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		DeregisterTmp(tmpPath)
		return JobResult{Outcome: outcome, Bytes: written, Err: err}
	}

	var w io.Writer = tmp
	if d.Limiter != nil {
		w = &rateLimitedWriter{w: tmp, limiter: d.Limiter, ctx: ctx}
	}

	hash := blake3.New()
	buf := make([]byte, chunkSize)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return abort(OutcomeFailed, written, ctx.Err())
		default:
		}

		n, rerr := zr.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return abort(OutcomeFailed, written, fmt.Errorf("write %s: %w", tmpPath, werr))
			}
			_, _ = hash.Write(buf[:n])
			written += int64(n)

			if d.MaxBytes > 0 && written > d.MaxBytes {
				return abort(OutcomeSizeExceeded, written, nil)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return abort(OutcomeFailed, written, fmt.Errorf("read %s: %w", job.SrcPath, rerr))
		}
	}

	if d.PreserveTimes {
		setModTime(tmp, job.SrcPath)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		DeregisterTmp(tmpPath)
		return JobResult{Outcome: OutcomeFailed, Bytes: written, Err: fmt.Errorf("close %s: %w", tmpPath, err)}
	}

	// Atomic publish. The only point where an existing destination is
	// overwritten.
	if err := os.Rename(tmpPath, job.DstPath); err != nil {
		_ = os.Remove(tmpPath)
		DeregisterTmp(tmpPath)
		return JobResult{Outcome: OutcomeFailed, Bytes: written, Err: fmt.Errorf("rename %s -> %s: %w", tmpPath, job.DstPath, err)}
	}
	DeregisterTmp(tmpPath)

	return JobResult{
		Outcome: OutcomeCreated,
		Bytes:   written,
		Digest:  hex.EncodeToString(hash.Sum(nil)),
	}
}

// setModTime copies the source mtime onto the open provisional file.
// Best-effort: outputs remain valid without timestamps.
func setModTime(f *os.File, srcPath string) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return
	}
	ts := unix.NsecToTimespec(info.ModTime().UnixNano())
	times := []unix.Timespec{ts, ts}
	if err := unix.UtimesNanoAt(int(f.Fd()), "", times, unix.AT_EMPTY_PATH); err != nil {
		// Fallback: some systems don't support AT_EMPTY_PATH.
		_ = unix.UtimesNanoAt(unix.AT_FDCWD, f.Name(), times, 0)
	}
}
