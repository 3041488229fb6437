package copier

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vhugoxx/backup-app/internal/errors"
)

const hashBufferSize = 4 << 20

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, hashBufferSize)
		return &b
	},
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	buf := bufPool.Get().(*[]byte)
	defer bufPool.Put(buf)

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, *buf); err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	return h.Sum(nil), nil
}

func hashBytes(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// sameContent compares the digest of p with the file at dst.
func sameContent(p payload, dst string) (bool, error) {
	info, err := os.Stat(dst)
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	if info.Size() != p.size {
		return false, nil
	}
	want, err := p.digest()
	if err != nil {
		return false, err
	}
	got, err := hashFile(dst)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}

// writeDurable streams p into a temp file next to dst, syncs it, applies
// mode and mtime and renames it to dst.
func writeDurable(dst string, p payload) (n int64, err error) {
	src, err := p.open()
	if err != nil {
		return 0, errors.Wrap(err, "opening source")
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".backup-app-*.tmp")
	if err != nil {
		return 0, errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpName)
		}
	}()

	buf := bufPool.Get().(*[]byte)
	n, err = io.CopyBuffer(tmp, src, *buf)
	bufPool.Put(buf)
	if err != nil {
		tmp.Close()
		return 0, errors.Wrap(err, "copying content")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, errors.Wrap(err, "syncing temp file")
	}
	if err := tmp.Chmod(p.mode); err != nil {
		tmp.Close()
		return 0, errors.Wrap(err, "setting permissions")
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Wrap(err, "closing temp file")
	}
	if !p.modTime.IsZero() {
		if err := os.Chtimes(tmpName, p.modTime, p.modTime); err != nil {
			return 0, errors.Wrap(err, "setting modification time")
		}
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, errors.Wrap(err, "renaming temp file")
	}
	renamed = true
	return n, nil
}
