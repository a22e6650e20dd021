package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Reader provides read access to collected counters.
type Reader interface {
	Snapshot() Snapshot
}

// ReadTicker is a Reader that also samples throughput for rate display.
type ReadTicker interface {
	Reader
	Tick()
	RollingSpeed(seconds int) float64
}

// Collector tracks decompression run statistics using lock-free atomic counters.
type Collector struct {
	filesScanned      atomic.Int64
	filesDecompressed atomic.Int64
	filesSkipped      atomic.Int64
	filesDiscarded    atomic.Int64
	filesFailed       atomic.Int64
	filesVerified     atomic.Int64
	filesVerifyFailed atomic.Int64
	bytesWritten      atomic.Int64
	filesTotal        atomic.Int64
	startTime         time.Time

	// Ring buffer state. Written only by the presenter's Tick(), not workers.
	mu         sync.Mutex
	throughput [ringSize]int64 // decompressed bytes delta per second
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetFilesTotal records the candidate count once scanning completes.
func (c *Collector) SetFilesTotal(n int64) { c.filesTotal.Store(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesScanned      int64
	FilesDecompressed int64
	FilesSkipped      int64
	FilesDiscarded    int64
	FilesFailed       int64
	FilesVerified     int64
	FilesVerifyFailed int64
	BytesWritten      int64
	FilesTotal        int64
	Elapsed           time.Duration
}

func (c *Collector) AddFilesScanned(n int64)      { c.filesScanned.Add(n) }
func (c *Collector) AddFilesDecompressed(n int64) { c.filesDecompressed.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)      { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesDiscarded(n int64)    { c.filesDiscarded.Add(n) }
func (c *Collector) AddFilesFailed(n int64)       { c.filesFailed.Add(n) }
func (c *Collector) AddFilesVerified(n int64)     { c.filesVerified.Add(n) }
func (c *Collector) AddFilesVerifyFailed(n int64) { c.filesVerifyFailed.Add(n) }
func (c *Collector) AddBytesWritten(n int64)      { c.bytesWritten.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesScanned:      c.filesScanned.Load(),
		FilesDecompressed: c.filesDecompressed.Load(),
		FilesSkipped:      c.filesSkipped.Load(),
		FilesDiscarded:    c.filesDiscarded.Load(),
		FilesFailed:       c.filesFailed.Load(),
		FilesVerified:     c.filesVerified.Load(),
		FilesVerifyFailed: c.filesVerifyFailed.Load(),
		BytesWritten:      c.bytesWritten.Load(),
		FilesTotal:        c.filesTotal.Load(),
		Elapsed:           c.Elapsed(),
	}
}

// Tick snapshots the bytes-written delta into the ring buffer. Called 1/sec
// by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesWritten.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	delta := currentBytes - c.lastBytes
	c.lastBytes = currentBytes

	c.throughput[c.ringIdx] = delta
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average decompressed bytes/sec over the last n
// seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := seconds
	if count > c.ringCount {
		count = c.ringCount
	}
	if count == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < count; i++ {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d decompressed=%d skipped=%d discarded=%d failed=%d bytes=%d",
		s.FilesScanned, s.FilesDecompressed, s.FilesSkipped,
		s.FilesDiscarded, s.FilesFailed, s.BytesWritten,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
