// Package archive classifies archive files by suffix and lazily yields the
// wanted regular-file entries they contain.
//
// Decoding is dispatched through a Registry keyed by file suffix. A suffix
// with no registered decoder yields nothing, which lets callers treat a
// missing format the same as an empty archive.
package archive

import (
	"io"
	"iter"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/extension"
)

// Archive kinds accepted by IsArchive and the --archive-types flag.
const (
	KindZip = "zip"
	KindTar = "tar"
	KindRar = "rar"
	Kind7z  = "7z"
)

// Kinds maps each archive kind to the file suffixes it covers.
var Kinds = map[string][]string{
	KindZip: {".zip"},
	KindTar: {
		".tar",
		".tgz", ".tar.gz",
		".tbz", ".tbz2", ".tar.bz2",
		".txz", ".tar.xz",
		".tzst", ".tar.zst",
	},
	KindRar: {".rar"},
	Kind7z:  {".7z"},
}

// KindNames returns the known kinds in lexical order.
func KindNames() []string {
	names := make([]string, 0, len(Kinds))
	for k := range Kinds {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// ValidateKinds returns an error naming the first unknown kind.
func ValidateKinds(kinds []string) error {
	for _, k := range kinds {
		if _, ok := Kinds[strings.ToLower(k)]; !ok {
			return errors.Newf("unknown archive type %q (valid: %s)", k, strings.Join(KindNames(), ", "))
		}
	}
	return nil
}

func suffixes(kinds []string) []string {
	if len(kinds) == 0 {
		kinds = KindNames()
	}
	var out []string
	for _, k := range kinds {
		out = append(out, Kinds[strings.ToLower(k)]...)
	}
	return out
}

// IsArchive reports whether path ends in a suffix of one of kinds.
// An empty kinds list accepts every known kind.
func IsArchive(p string, kinds []string) bool {
	lower := strings.ToLower(p)
	for _, s := range suffixes(kinds) {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// ScanExtensions returns the final-segment extensions a filesystem scan must
// match to find archives of the given kinds. Results still need IsArchive:
// "gz" also matches plain gzip files.
func ScanExtensions(kinds []string) extension.Set {
	set := extension.NewSet()
	for _, s := range suffixes(kinds) {
		set.Add(extension.Of("x" + s))
	}
	return set
}

// Entry is one wanted file inside an archive, fully buffered.
type Entry struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

// File is a regular file inside an archive as seen by a Decoder.
// Open is only valid during the callback that received the File.
type File struct {
	Name    string
	ModTime time.Time
	Open    func() (io.ReadCloser, error)
}

// Decoder walks the regular files of an archive until fn returns false.
type Decoder interface {
	Walk(path string, fn func(File) bool) error
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(path string, fn func(File) bool) error

// Walk calls f.
func (f DecoderFunc) Walk(path string, fn func(File) bool) error {
	return f(path, fn)
}

// Registry maps lower-case suffixes to decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with decoders for every kind in Kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Kinds[KindZip], DecoderFunc(walkZip))
	r.Register(Kinds[KindTar], DecoderFunc(walkTar))
	r.Register(Kinds[KindRar], DecoderFunc(walkRar))
	r.Register(Kinds[Kind7z], DecoderFunc(walkSevenZip))
	return r
}

// Register binds dec to each suffix, replacing any previous binding.
func (r *Registry) Register(suffixes []string, dec Decoder) {
	for _, s := range suffixes {
		r.decoders[strings.ToLower(s)] = dec
	}
}

// Unregister removes the decoders bound to suffixes.
func (r *Registry) Unregister(suffixes ...string) {
	for _, s := range suffixes {
		delete(r.decoders, strings.ToLower(s))
	}
}

// Supports reports whether a decoder is registered for p.
func (r *Registry) Supports(p string) bool {
	return r.lookup(p) != nil
}

// lookup picks the decoder with the longest matching suffix.
func (r *Registry) lookup(p string) Decoder {
	if r == nil {
		return nil
	}
	lower := strings.ToLower(p)
	var (
		best    Decoder
		bestLen int
	)
	for s, dec := range r.decoders {
		if len(s) > bestLen && strings.HasSuffix(lower, s) {
			best, bestLen = dec, len(s)
		}
	}
	return best
}

// Entries lazily yields the regular-file entries of the archive at p whose
// extension is in want. Entry names are passed through CleanName. A decode
// error is yielded once as the final element. Archives without a decoder
// yield nothing.
func (r *Registry) Entries(p string, want extension.Set) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		dec := r.lookup(p)
		if dec == nil {
			return
		}
		var (
			stopped bool
			failure error
		)
		err := dec.Walk(p, func(f File) bool {
			name := CleanName(f.Name)
			if name == "" || !want.Matches(name) {
				return true
			}
			data, err := readAll(f)
			if err != nil {
				failure = errors.Wrapf(err, "read %s in %s", f.Name, p)
				return false
			}
			if !yield(Entry{Name: name, Data: data, ModTime: f.ModTime}, nil) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		if failure == nil && err != nil {
			failure = errors.Wrapf(err, "decode %s", p)
		}
		if failure != nil {
			yield(Entry{}, failure)
		}
	}
}

func readAll(f File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	return data, err
}

// CleanName turns an inner archive name into a safe relative slash path.
// Backslashes become slashes, volume names and leading slashes are dropped
// and "." or ".." elements are removed. It returns "" for names that do not
// name a file.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if len(name) >= 2 && name[1] == ':' {
		name = name[2:]
	}
	parts := make([]string, 0, strings.Count(name, "/")+1)
	for part := range strings.SplitSeq(name, "/") {
		switch part {
		case "", ".", "..":
			continue
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return ""
	}
	return path.Join(parts...)
}
