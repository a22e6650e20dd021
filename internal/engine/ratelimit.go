package engine

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps aggregate decompressed
// throughput to bytesPerSec. The burst is set to 1 MB so natural chunk-size
// writes pass through without unnecessary blocking.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20 // 1 MB
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedWriter wraps an io.Writer and enforces a shared rate limit.
type rateLimitedWriter struct {
	w       io.Writer
	limiter *rate.Limiter
	ctx     context.Context
}

func (rw *rateLimitedWriter) Write(p []byte) (int, error) {
	// WaitN rejects requests larger than the burst outright, and limits
	// below the chunk size produce exactly such requests. Feed the bucket
	// in burst-sized pieces instead.
	burst := rw.limiter.Burst()
	var written int
	for len(p) > 0 {
		n := min(len(p), burst)
		if err := rw.limiter.WaitN(rw.ctx, n); err != nil {
			return written, err
		}
		m, err := rw.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}
