package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"io"
	"os"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/nwaples/rardecode/v2"
	"github.com/ulikunitz/xz"

	"github.com/vhugoxx/backup-app/internal/errors"
)

func walkZip(p string, fn func(File) bool) error {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !f.Mode().IsRegular() {
			continue
		}
		if !fn(File{Name: f.Name, ModTime: f.Modified, Open: f.Open}) {
			return nil
		}
	}
	return nil
}

func walkTar(p string, fn func(File) bool) error {
	fh, err := os.Open(p)
	if err != nil {
		return err
	}
	defer fh.Close()

	r, closeFn, err := decompress(p, fh)
	if err != nil {
		return err
	}
	defer closeFn()

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		f := File{
			Name:    hdr.Name,
			ModTime: hdr.ModTime,
			Open:    func() (io.ReadCloser, error) { return io.NopCloser(tr), nil },
		}
		if !fn(f) {
			return nil
		}
	}
}

// decompress wraps r with the decompressor implied by the suffix of p.
func decompress(p string, r io.Reader) (io.Reader, func(), error) {
	lower := strings.ToLower(p)
	has := func(suffixes ...string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(lower, s) {
				return true
			}
		}
		return false
	}
	nop := func() {}

	switch {
	case has(".tgz", ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nop, errors.Wrap(err, "gzip")
		}
		return gz, func() { _ = gz.Close() }, nil
	case has(".tbz", ".tbz2", ".bz2"):
		return bzip2.NewReader(r), nop, nil
	case has(".txz", ".xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nop, errors.Wrap(err, "xz")
		}
		return xr, nop, nil
	case has(".tzst", ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nop, errors.Wrap(err, "zstd")
		}
		return zr, zr.Close, nil
	}
	return r, nop, nil
}

func walkRar(p string, fn func(File) bool) error {
	rr, err := rardecode.OpenReader(p)
	if err != nil {
		return err
	}
	defer rr.Close()

	for {
		hdr, err := rr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.IsDir {
			continue
		}
		f := File{
			Name:    hdr.Name,
			ModTime: hdr.ModificationTime,
			Open:    func() (io.ReadCloser, error) { return io.NopCloser(rr), nil },
		}
		if !fn(f) {
			return nil
		}
	}
}

func walkSevenZip(p string, fn func(File) bool) error {
	sr, err := sevenzip.OpenReader(p)
	if err != nil {
		return err
	}
	defer sr.Close()

	for _, f := range sr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !fn(File{Name: f.Name, ModTime: f.Modified, Open: f.Open}) {
			return nil
		}
	}
	return nil
}
