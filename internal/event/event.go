package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileStarted
	FileDecompressed
	FileSkipped
	FileDiscarded
	FileFailed
	VerifyOK
	VerifyFailed
)

var typeNames = [...]string{
	ScanStarted:      "ScanStarted",
	ScanComplete:     "ScanComplete",
	FileStarted:      "FileStarted",
	FileDecompressed: "FileDecompressed",
	FileSkipped:      "FileSkipped",
	FileDiscarded:    "FileDiscarded",
	FileFailed:       "FileFailed",
	VerifyOK:         "VerifyOK",
	VerifyFailed:     "VerifyFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // source path for scan/failure events, destination otherwise
	Size      int64  // decompressed bytes written
	Total     int64  // total candidate files (ScanComplete)
	Error     error
	WorkerID  int
}
