package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Resolver computes destination paths for discovered sources. In flattened
// mode it owns the collision check-and-claim step, which is serialized so
// concurrent workers never claim the same output name.
type Resolver struct {
	SrcRoot      string
	DstRoot      string
	Flatten      bool
	SkipExisting bool
	SrcSuffix    string // defaults to SrcSuffix
	DstSuffix    string // defaults to DstSuffix

	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewResolver creates a resolver for one run.
func NewResolver(srcRoot, dstRoot string, flatten, skipExisting bool) *Resolver {
	return &Resolver{
		SrcRoot:      srcRoot,
		DstRoot:      dstRoot,
		Flatten:      flatten,
		SkipExisting: skipExisting,
		SrcSuffix:    SrcSuffix,
		DstSuffix:    DstSuffix,
		claimed:      make(map[string]struct{}),
	}
}

// Resolve returns the destination path for srcPath. In flattened mode with
// skip-existing set, skip is true when the plain (non-disambiguated)
// candidate name already existed before this run; the caller must not
// process the job. The skip check looks at the plain name only: a second
// same-named source in the same run is still disambiguated and processed,
// even under skip-existing.
func (r *Resolver) Resolve(srcPath string) (dst string, skip bool, err error) {
	if !r.Flatten {
		rel, err := filepath.Rel(r.SrcRoot, srcPath)
		if err != nil {
			return "", false, fmt.Errorf("rel path for %s: %w", srcPath, err)
		}
		return filepath.Join(r.DstRoot, r.replaceSuffix(rel)), false, nil
	}

	plain := filepath.Join(r.DstRoot, r.replaceSuffix(filepath.Base(srcPath)))

	r.mu.Lock()
	defer r.mu.Unlock()

	// A claim means the plain name belongs to this run, not a previous
	// one; that collides (below) instead of skipping.
	if r.SkipExisting && !r.claimedName(plain) && fileExists(plain) {
		return plain, true, nil
	}

	// Claim the first free name: plain, then name-1, name-2, ...
	candidate := plain
	ext := filepath.Ext(plain)
	stem := strings.TrimSuffix(plain, ext)
	for i := 1; r.taken(candidate); i++ {
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	r.claimed[candidate] = struct{}{}
	return candidate, false, nil
}

// taken reports whether path exists on disk or has been claimed this run.
// Claims stand in for files whose publish is still in flight.
func (r *Resolver) taken(path string) bool {
	return r.claimedName(path) || fileExists(path)
}

func (r *Resolver) claimedName(path string) bool {
	_, ok := r.claimed[path]
	return ok
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r *Resolver) replaceSuffix(name string) string {
	return strings.TrimSuffix(name, r.SrcSuffix) + r.DstSuffix
}
