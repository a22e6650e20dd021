package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectScan(t *testing.T, root string) ([]string, []error) {
	t.Helper()

	s := NewScanner(ScannerConfig{Root: root, Workers: 4})
	pathCh, errCh := s.Scan(context.Background())

	var paths []string
	var errs []error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for err := range errCh {
			errs = append(errs, err)
		}
	}()
	for p := range pathCh {
		paths = append(paths, p)
	}
	<-done
	return paths, errs
}

func TestScanner_FindsSuffixAtAnyDepth(t *testing.T) {
	root := t.TempDir()

	writeVGZ(t, filepath.Join(root, "top.vgz"), []byte("a"))
	writeVGZ(t, filepath.Join(root, "sub", "mid.vgz"), []byte("b"))
	writeVGZ(t, filepath.Join(root, "sub", "deep", "leaf.vgz"), []byte("c"))

	// Non-matching files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "song.vgm"), []byte("x"), 0o644))

	paths, errs := collectScan(t, root)
	assert.Empty(t, errs)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "top.vgz"),
		filepath.Join(root, "sub", "mid.vgz"),
		filepath.Join(root, "sub", "deep", "leaf.vgz"),
	}, paths)
}

func TestScanner_WideTreeDoesNotStall(t *testing.T) {
	// A single worker walking a root with more subdirectories than the
	// queue buffer holds must still finish: pending enqueues may not
	// block the only goroutine that drains the queue.
	root := t.TempDir()

	const artists = 12
	want := make([]string, 0, artists*3)
	for i := 0; i < artists; i++ {
		artist := filepath.Join(root, fmt.Sprintf("artist-%02d", i))
		for j := 0; j < 3; j++ {
			p := filepath.Join(artist, fmt.Sprintf("album-%d", j), "track.vgz")
			writeVGZ(t, p, []byte("x"))
			want = append(want, p)
		}
	}

	s := NewScanner(ScannerConfig{Root: root, Workers: 1})

	var paths []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		pathCh, errCh := s.Scan(context.Background())
		go func() {
			//nolint:revive // empty-block: intentionally draining error channel
			for range errCh {
			}
		}()
		for p := range pathCh {
			paths = append(paths, p)
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not complete: workers stalled enqueueing subdirectories")
	}
	assert.ElementsMatch(t, want, paths)
}

func TestScanner_EmptyTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755))

	paths, errs := collectScan(t, root)
	assert.Empty(t, errs)
	assert.Empty(t, paths)
}

func TestScanner_ReportsUnreadableDirAndWalksOn(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	writeVGZ(t, filepath.Join(root, "ok.vgz"), []byte("a"))

	locked := filepath.Join(root, "locked")
	require.NoError(t, os.MkdirAll(locked, 0o755))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	paths, errs := collectScan(t, root)
	assert.NotEmpty(t, errs)
	assert.ElementsMatch(t, []string{filepath.Join(root, "ok.vgz")}, paths)
}
