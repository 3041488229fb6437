// Package scan enumerates files under a root directory whose extension belongs
// to a wanted set.
package scan

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/extension"
)

// ErrRootNotFound is returned when the scan root does not exist under the
// Fail policy.
var ErrRootNotFound = errors.New("scan root not found")

// MissingRootPolicy selects what happens when the root is absent.
type MissingRootPolicy int

const (
	// Fail returns ErrRootNotFound.
	Fail MissingRootPolicy = iota
	// Warn reports a single warning and yields nothing.
	Warn
)

// ParsePolicy converts "fail" or "warn" to a policy.
func ParsePolicy(s string) (MissingRootPolicy, error) {
	switch s {
	case "", "fail":
		return Fail, nil
	case "warn":
		return Warn, nil
	}
	return Fail, errors.Newf("unknown missing-root policy %q (valid: fail, warn)", s)
}

func (p MissingRootPolicy) String() string {
	if p == Warn {
		return "warn"
	}
	return "fail"
}

// Request describes one scan. It is not modified by Scan.
type Request struct {
	Root       string
	Extensions extension.Set
	Recursive  bool

	MissingRoot MissingRootPolicy

	// MaxPathLength skips paths whose length reaches the limit. Zero disables.
	MaxPathLength int

	// Reporter receives human readable warnings. May be nil.
	Reporter func(string)
}

func (r Request) report(format string, args ...any) {
	if r.Reporter != nil {
		r.Reporter(fmt.Sprintf(format, args...))
	}
}

// Scan validates the root and returns a lazy sequence of matching file paths.
// Listing errors below the root are reported and skipped. The sequence walks
// the tree anew each time it is ranged over, so callers should range once.
func Scan(req Request) (iter.Seq[string], error) {
	info, err := os.Stat(req.Root)
	if err == nil && !info.IsDir() {
		err = errors.Newf("%s is not a directory", req.Root)
	}
	if err != nil {
		if req.MissingRoot == Warn {
			req.report("WARN source not found, skipping: %s", req.Root)
			return empty, nil
		}
		return nil, errors.Mark(errors.Wrapf(err, "scan %s", req.Root), ErrRootNotFound)
	}

	if req.Recursive {
		return req.walk, nil
	}
	return req.children, nil
}

func empty(func(string) bool) {}

func (r Request) accept(path string) bool {
	if !r.Extensions.Matches(path) {
		return false
	}
	if r.MaxPathLength > 0 && len(path) >= r.MaxPathLength {
		r.report("WARN path too long, skipped: %s", path)
		return false
	}
	return true
}

func (r Request) children(yield func(string) bool) {
	entries, err := os.ReadDir(r.Root)
	if err != nil {
		r.report("WARN cannot list %s: %v", r.Root, err)
	}
	// ReadDir returns the entries it read before failing.
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(r.Root, e.Name())
		if r.accept(path) && !yield(path) {
			return
		}
	}
}

func (r Request) walk(yield func(string) bool) {
	_ = filepath.WalkDir(r.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.report("WARN cannot read %s: %v", path, err)
			if d != nil && d.IsDir() && path != r.Root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if r.accept(path) && !yield(path) {
			return fs.SkipAll
		}
		return nil
	})
}
