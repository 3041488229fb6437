package backup

import (
	"path/filepath"
	"strings"

	"github.com/vhugoxx/backup-app/internal/errors"
)

// resolveRoots returns the absolute source and destination directories.
func resolveRoots(source, destination string) (string, string, error) {
	src, err := filepath.Abs(source)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolving source %s", source)
	}
	dst, err := filepath.Abs(destination)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolving destination %s", destination)
	}
	if samePath(src, dst) {
		return "", "", errors.Wrapf(ErrDestinationIsSource, "%s", src)
	}
	return src, dst, nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if filepath.Separator == '\\' {
		return strings.EqualFold(a, b)
	}
	return a == b
}
