package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/vgmkit/unvgz/internal/stats"
)

// plainPresenter outputs one line per processed file to stdout, and
// periodic progress to stderr when not a TTY.
type plainPresenter struct {
	w        io.Writer
	errW     io.Writer
	stats    stats.ReadTicker
	dstRoot  string
	progress bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.stats.Tick()
			tick++
			if p.progress && tick%5 == 0 {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	path := StripRoot(p.dstRoot, ev.Path)
	switch ev.Type {
	case FileDecompressed:
		speed := p.stats.RollingSpeed(5)
		fmt.Fprintf(p.w, "%s  %s  %s\n", path, FormatBytes(ev.Size), FormatRate(speed))
	case FileSkipped:
		fmt.Fprintf(p.w, "%s  skipped\n", path)
	case FileDiscarded:
		fmt.Fprintf(p.w, "%s  discarded (size limit)\n", path)
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s\n", path, errMsg)
	case VerifyFailed:
		fmt.Fprintf(p.w, "MISMATCH: %s\n", path)
	case VerifyOK:
		// silent in plain mode
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "progress: %s files, %s written, %s\n",
		FormatCount(snap.FilesDecompressed),
		FormatBytes(snap.BytesWritten),
		FormatRate(p.stats.RollingSpeed(10)),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
