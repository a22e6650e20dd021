package engine

// Outcome classifies the terminal state of a decompression job.
type Outcome int

const (
	// OutcomeCreated means the destination file was published.
	OutcomeCreated Outcome = iota + 1
	// OutcomeSkipped means the destination already existed and
	// skip-existing was requested. Not an error.
	OutcomeSkipped
	// OutcomeSizeExceeded means the decompressed stream crossed the
	// configured ceiling and the output was discarded.
	OutcomeSizeExceeded
	// OutcomeFailed means the source could not be read or the output
	// could not be written.
	OutcomeFailed
)

var outcomeNames = [...]string{
	OutcomeCreated:      "created",
	OutcomeSkipped:      "skipped",
	OutcomeSizeExceeded: "size-exceeded",
	OutcomeFailed:       "failed",
}

func (o Outcome) String() string {
	if o > 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Job describes a single decompression operation. The destination path is
// final: collision resolution has already happened by the time a Job exists.
type Job struct {
	SrcPath string
	DstPath string
}

// JobResult is the explicit per-job outcome, so callers and tests can
// assert on results without parsing log text.
type JobResult struct {
	Outcome Outcome
	Bytes   int64  // decompressed bytes written (Created only)
	Digest  string // hex BLAKE3 of the decompressed stream (Created only)
	Err     error  // set for Failed
}
