package ui

import "github.com/vgmkit/unvgz/internal/event"

// Event aliases the engine event type for presenter signatures.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanStarted      = event.ScanStarted
	ScanComplete     = event.ScanComplete
	FileStarted      = event.FileStarted
	FileDecompressed = event.FileDecompressed
	FileSkipped      = event.FileSkipped
	FileDiscarded    = event.FileDiscarded
	FileFailed       = event.FileFailed
	VerifyOK         = event.VerifyOK
	VerifyFailed     = event.VerifyFailed
)
