package engine

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_TreeMode(t *testing.T) {
	r := NewResolver("/in", "/out", false, false)

	dst, skip, err := r.Resolve("/in/sub/deep/song.vgz")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, filepath.Join("/out", "sub", "deep", "song.vgm"), dst)

	dst, _, err = r.Resolve("/in/top.vgz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "top.vgm"), dst)
}

func TestResolver_FlatMode(t *testing.T) {
	out := t.TempDir()
	r := NewResolver("/in", out, true, false)

	dst, skip, err := r.Resolve("/in/sub/deep/song.vgz")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, filepath.Join(out, "song.vgm"), dst)
}

func TestResolver_FlatCollisionNumbering(t *testing.T) {
	out := t.TempDir()
	r := NewResolver("/in", out, true, false)

	first, _, err := r.Resolve("/in/a/song.vgz")
	require.NoError(t, err)
	second, _, err := r.Resolve("/in/b/song.vgz")
	require.NoError(t, err)
	third, _, err := r.Resolve("/in/c/deep/song.vgz")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "song.vgm"), first)
	assert.Equal(t, filepath.Join(out, "song-1.vgm"), second)
	assert.Equal(t, filepath.Join(out, "song-2.vgm"), third)
}

func TestResolver_FlatCollisionWithExistingFile(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "song.vgm"), []byte("x"), 0o644))

	// Without skip-existing an on-disk file is never overwritten silently;
	// the new output is disambiguated past it.
	r := NewResolver("/in", out, true, false)
	dst, skip, err := r.Resolve("/in/song.vgz")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, filepath.Join(out, "song-1.vgm"), dst)
}

func TestResolver_FlatSkipExisting(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "song.vgm"), []byte("x"), 0o644))

	r := NewResolver("/in", out, true, true)
	_, skip, err := r.Resolve("/in/song.vgz")
	require.NoError(t, err)
	assert.True(t, skip)
}

func TestResolver_FlatSkipExistingChecksPlainNameOnly(t *testing.T) {
	// A second same-named source in the same run is still processed and
	// disambiguated under skip-existing; only a plain name present before
	// the run triggers the skip.
	out := t.TempDir()
	r := NewResolver("/in", out, true, true)

	first, skip, err := r.Resolve("/in/a/song.vgz")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, filepath.Join(out, "song.vgm"), first)

	second, skip, err := r.Resolve("/in/b/song.vgz")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, filepath.Join(out, "song-1.vgm"), second)
}

func TestResolver_ConcurrentClaimsAreUnique(t *testing.T) {
	out := t.TempDir()
	r := NewResolver("/in", out, true, false)

	const n = 32
	results := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			dst, _, err := r.Resolve(filepath.Join("/in", string(rune('a'+i%26)), "song.vgz"))
			assert.NoError(t, err)
			results[i] = dst
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, dst := range results {
		_, dup := seen[dst]
		assert.False(t, dup, "duplicate claim: %s", dst)
		seen[dst] = struct{}{}
	}
	assert.Len(t, seen, n)
}
