package copier

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vhugoxx/backup-app/internal/archive"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/extension"
	"github.com/vhugoxx/backup-app/internal/logging"
	"github.com/vhugoxx/backup-app/internal/stats"
)

// ErrOutsideSource is returned when a file does not live under the source root.
var ErrOutsideSource = errors.New("path is outside the source root")

// Status is the result class of one copy.
type Status int

const (
	// Copied means new content was durably written.
	Copied Status = iota
	// Duplicate means identical content already existed at the destination.
	Duplicate
	// Denied means the source or destination was not accessible.
	Denied
	// Failed means any other error.
	Failed
)

func (s Status) String() string {
	switch s {
	case Copied:
		return "copied"
	case Duplicate:
		return "duplicate"
	case Denied:
		return "denied"
	default:
		return "failed"
	}
}

// Outcome describes one copy. Destination is the final path for Copied and
// the existing twin for Duplicate.
type Outcome struct {
	Status      Status
	Bytes       int64
	Destination string
	Err         error
}

// Processed reports whether the file counts towards progress.
func (o Outcome) Processed() bool {
	return o.Status == Copied || o.Status == Duplicate
}

// Recorder receives the statistics of each copy. *stats.Stats implements it.
//
// Scanned is called once per CopyFile or CopyEntry with the size that was
// read, which is never less than the bytes reported to Copied.
type Recorder interface {
	Scanned(size int64)
	Copied(f stats.CopiedFile)
	Duplicate()
	Denied(path string, err error)
	Failed(path string, err error)
}

// Naming selects how conflicting names are made unique.
type Naming string

const (
	// NamingCounter appends _1, _2, ... before the extension.
	NamingCounter Naming = "counter"
	// NamingUUID appends a random UUID before the extension.
	NamingUUID Naming = "uuid"
)

// ParseNaming validates a naming strategy name. Empty means NamingCounter.
func ParseNaming(s string) (Naming, error) {
	switch Naming(strings.ToLower(s)) {
	case "", NamingCounter:
		return NamingCounter, nil
	case NamingUUID:
		return NamingUUID, nil
	}
	return "", errors.Newf("unknown naming strategy %q (valid: counter, uuid)", s)
}

// Copier copies files and archive entries into the destination tree.
type Copier struct {
	naming  Naming
	log     func(string)
	logger  *slog.Logger
	newUUID func() string
	dirs    sync.Map
}

// Option configures a Copier.
type Option func(*Copier)

// WithNaming sets the conflict naming strategy.
func WithNaming(n Naming) Option {
	return func(c *Copier) { c.naming = n }
}

// WithLog sets the human readable line sink.
func WithLog(fn func(string)) Option {
	return func(c *Copier) { c.log = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Copier) { c.logger = l }
}

// New returns a Copier using counter naming and no output.
func New(opts ...Option) *Copier {
	c := &Copier{
		naming:  NamingCounter,
		log:     func(string) {},
		logger:  logging.NewDiscard(),
		newUUID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Copier) logf(format string, args ...any) {
	c.log(fmt.Sprintf(format, args...))
}

// Destination computes where src belongs under baseDst. With preserve the
// directories of src relative to baseSrc are kept, otherwise only the name.
func Destination(src, baseSrc, baseDst, bucket string, preserve bool) (string, error) {
	if !preserve {
		return filepath.Join(baseDst, bucket, filepath.Base(src)), nil
	}
	rel, err := filepath.Rel(baseSrc, src)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "relative path of %s", src), ErrOutsideSource)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrOutsideSource, "%s not under %s", src, baseSrc)
	}
	return filepath.Join(baseDst, bucket, rel), nil
}

// payload is the content being placed, from disk or from an archive.
type payload struct {
	label       string
	ext         string
	fromArchive bool
	size        int64
	mode        fs.FileMode
	modTime     time.Time
	open        func() (io.ReadCloser, error)
	digest      func() ([]byte, error)
}

// CopyFile copies the file at src. Statistics go to rec, which may be nil.
func (c *Copier) CopyFile(src, baseSrc, baseDst string, preserve bool, rec Recorder) Outcome {
	info, err := os.Stat(src)
	if err != nil {
		return account(rec, 0, c.fail(src, errors.Wrap(err, "stat source"), rec))
	}
	bucket := extension.Bucket(src)
	dst, err := Destination(src, baseSrc, baseDst, bucket, preserve)
	if err != nil {
		return account(rec, info.Size(), c.fail(src, err, rec))
	}
	p := payload{
		label:   src,
		ext:     bucket,
		size:    info.Size(),
		mode:    info.Mode().Perm(),
		modTime: info.ModTime(),
		open:    func() (io.ReadCloser, error) { return os.Open(src) },
		digest:  func() ([]byte, error) { return hashFile(src) },
	}
	return account(rec, p.size, c.place(p, dst, rec))
}

// CopyEntry copies an archive entry as if it were located at
// dir(archivePath)/<entry name>. The bucket is the entry's own extension.
func (c *Copier) CopyEntry(archivePath string, e archive.Entry, baseSrc, baseDst string, preserve bool, rec Recorder) Outcome {
	label := archivePath + "!" + e.Name
	virtual := filepath.Join(filepath.Dir(archivePath), filepath.FromSlash(e.Name))
	bucket := extension.Bucket(e.Name)
	dst, err := Destination(virtual, baseSrc, baseDst, bucket, preserve)
	if err != nil {
		return account(rec, int64(len(e.Data)), c.fail(label, err, rec))
	}
	modTime := e.ModTime
	if modTime.IsZero() {
		if info, err := os.Stat(archivePath); err == nil {
			modTime = info.ModTime()
		}
	}
	p := payload{
		label:       label,
		ext:         bucket,
		fromArchive: true,
		size:        int64(len(e.Data)),
		mode:        0o644,
		modTime:     modTime,
		open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(e.Data)), nil },
		digest:      func() ([]byte, error) { return hashBytes(e.Data), nil },
	}
	return account(rec, p.size, c.place(p, dst, rec))
}

// account records the scanned size of one candidate. A file that grew
// between stat and copy counts with the bytes actually written.
func account(rec Recorder, size int64, out Outcome) Outcome {
	if rec != nil {
		rec.Scanned(max(size, out.Bytes))
	}
	return out
}

func (c *Copier) place(p payload, dst string, rec Recorder) Outcome {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return c.fail(p.label, errors.Wrap(err, "creating destination directory"), rec)
	}

	unlock := c.lockDir(dir)
	defer unlock()

	target := dst
	if _, err := os.Lstat(dst); err == nil {
		same, err := sameContent(p, dst)
		switch {
		case err != nil:
			c.logger.Debug("digest failed, renaming", "src", p.label, "dst", dst, "error", err)
		case same:
			if rec != nil {
				rec.Duplicate()
			}
			c.logf("duplicate, skipped: %s (same as %s)", p.label, dst)
			return Outcome{Status: Duplicate, Destination: dst}
		}
		target = c.freeName(dst)
	}

	n, err := writeDurable(target, p)
	if err != nil {
		return c.fail(p.label, err, rec)
	}
	if rec != nil {
		rec.Copied(stats.CopiedFile{
			Path:        p.label,
			Destination: target,
			Extension:   p.ext,
			Bytes:       n,
			FromArchive: p.fromArchive,
		})
	}
	if target != dst {
		c.logf("conflict, renamed: %s -> %s", p.label, target)
	} else {
		c.logf("copied: %s -> %s", p.label, target)
	}
	c.logger.Debug("copied", "src", p.label, "dst", target, "bytes", n)
	return Outcome{Status: Copied, Bytes: n, Destination: target}
}

func (c *Copier) fail(label string, err error, rec Recorder) Outcome {
	if errors.Is(err, fs.ErrPermission) {
		if rec != nil {
			rec.Denied(label, err)
		}
		c.logf("WARN access denied: %s (%v)", label, err)
		return Outcome{Status: Denied, Err: err}
	}
	if rec != nil {
		rec.Failed(label, err)
	}
	c.logf("ERROR copy failed: %s: %v", label, err)
	return Outcome{Status: Failed, Err: err}
}

// lockDir serializes conflict decisions inside one destination directory.
func (c *Copier) lockDir(dir string) func() {
	v, _ := c.dirs.LoadOrStore(dir, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// freeName returns the first unused sibling name of dst.
func (c *Copier) freeName(dst string) string {
	dir, base := filepath.Split(dst)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}
	for i := 1; ; i++ {
		suffix := fmt.Sprint(i)
		if c.naming == NamingUUID {
			suffix = c.newUUID()
		}
		candidate := filepath.Join(dir, stem+"_"+suffix+ext)
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
}
