// Package extension normalizes file extensions and groups them into sets and
// presets. Extensions are always lower-case and carry no leading dot.
package extension

import (
	"path/filepath"
	"slices"
	"strings"
)

// NoExtensionBucket is the destination folder for files without an extension.
const NoExtensionBucket = "_no_ext"

// Normalize lower-cases s, trims surrounding spaces and strips leading dots.
func Normalize(s string) string {
	return strings.TrimLeft(strings.ToLower(strings.TrimSpace(s)), ".")
}

// Of returns the normalized extension of the final element of path,
// or "" when it has none. Dotfiles such as ".bashrc" have no extension.
func Of(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return Normalize(base[i+1:])
}

// Bucket returns the destination folder name for path.
func Bucket(path string) string {
	if ext := Of(path); ext != "" {
		return ext
	}
	return NoExtensionBucket
}

// Set is a set of normalized extensions.
type Set map[string]struct{}

// NewSet builds a Set, normalizing every element and dropping empty ones.
func NewSet(exts ...string) Set {
	s := make(Set, len(exts))
	for _, e := range exts {
		s.Add(e)
	}
	return s
}

// ParseList splits a user-supplied list on commas and whitespace.
func ParseList(list string) Set {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	return NewSet(fields...)
}

// Add inserts the normalized form of ext.
func (s Set) Add(ext string) {
	if n := Normalize(ext); n != "" {
		s[n] = struct{}{}
	}
}

// Merge adds every element of other.
func (s Set) Merge(other Set) {
	for e := range other {
		s[e] = struct{}{}
	}
}

// Contains reports whether ext (in any case, with or without dot) is in the set.
func (s Set) Contains(ext string) bool {
	_, ok := s[Normalize(ext)]
	return ok
}

// Matches reports whether path's extension is in the set.
func (s Set) Matches(path string) bool {
	ext := Of(path)
	if ext == "" {
		return false
	}
	_, ok := s[ext]
	return ok
}

// Sorted returns the elements in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// String renders the set as a comma separated list.
func (s Set) String() string {
	return strings.Join(s.Sorted(), ",")
}
