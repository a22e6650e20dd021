package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// SrcSuffix is the compressed input extension the scanner matches.
const SrcSuffix = ".vgz"

// DstSuffix is the extension published outputs carry.
const DstSuffix = ".vgm"

// ScannerConfig controls scanner behavior.
type ScannerConfig struct {
	Root    string
	Suffix  string // defaults to SrcSuffix
	Workers int
}

// Scanner traverses a directory tree in parallel and emits candidate file
// paths whose name ends with the configured suffix.
type Scanner struct {
	cfg   ScannerConfig
	paths chan string
	errs  chan error
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScannerConfig) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), 8)
	}
	if cfg.Suffix == "" {
		cfg.Suffix = SrcSuffix
	}
	return &Scanner{
		cfg:   cfg,
		paths: make(chan string, cfg.Workers*4),
		errs:  make(chan error, cfg.Workers*4),
	}
}

// Scan starts the scanner and returns channels for candidate paths and
// errors. The caller must consume from both channels until they close.
// Traversal order is unspecified; each Scan re-walks the filesystem.
func (s *Scanner) Scan(ctx context.Context) (<-chan string, <-chan error) {
	go func() {
		defer close(s.paths)
		defer close(s.errs)
		s.scanTree(ctx)
	}()

	return s.paths, s.errs
}

func (s *Scanner) scanTree(ctx context.Context) {
	workQueue := make(chan string, s.cfg.Workers*2)
	var outstanding sync.WaitGroup // tracks directories queued but not yet processed

	var workerWg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for dirPath := range workQueue {
				s.scanDir(ctx, dirPath, workQueue, &outstanding)
				outstanding.Done()
			}
		}()
	}

	// Seed with root.
	outstanding.Add(1)
	workQueue <- s.cfg.Root

	// Wait for all directory work to finish, then close the work queue
	// so workers exit their range loop.
	outstanding.Wait()
	close(workQueue)
	workerWg.Wait()
}

func (s *Scanner) scanDir(ctx context.Context, dirPath string, workQueue chan<- string, outstanding *sync.WaitGroup) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		s.sendErr(fmt.Errorf("readdir %s: %w", dirPath, err))
		return
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entryPath := filepath.Join(dirPath, entry.Name())

		switch {
		case entry.IsDir():
			outstanding.Add(1)
			select {
			case workQueue <- entryPath:
			case <-ctx.Done():
				outstanding.Done()
				return
			default:
				// The queue is full and every worker may be blocked on
				// this same send. Hand the enqueue to a goroutine so
				// workers keep draining; directory count bounds how many
				// of these exist at once.
				go func() {
					select {
					case workQueue <- entryPath:
					case <-ctx.Done():
						outstanding.Done()
					}
				}()
			}

		case entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), s.cfg.Suffix):
			select {
			case s.paths <- entryPath:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Scanner) sendErr(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
