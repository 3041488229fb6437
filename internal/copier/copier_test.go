package copier

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhugoxx/backup-app/internal/archive"
	"github.com/vhugoxx/backup-app/internal/stats"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func skipIfPermissionsIgnored(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
}

func TestDestination(t *testing.T) {
	src := filepath.Join("/data", "photos", "2024", "Foto.JPG")
	tests := []struct {
		name     string
		src      string
		preserve bool
		want     string
		wantErr  bool
	}{
		{"preserve", src, true, filepath.Join("/backup", "jpg", "photos", "2024", "Foto.JPG"), false},
		{"flat", src, false, filepath.Join("/backup", "jpg", "Foto.JPG"), false},
		{"outside source", filepath.Join("/elsewhere", "x.jpg"), true, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Destination(tt.src, "/data", "/backup", "jpg", tt.preserve)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCopyFile_RoundTrip(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(src, "sub", "Report.PDF")
	writeFile(t, file, "pdf content")
	mtime := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, os.Chtimes(file, mtime, mtime))

	st := stats.New()
	out := New().CopyFile(file, src, dst, true, st)
	require.NoError(t, out.Err)
	assert.Equal(t, Copied, out.Status)
	assert.EqualValues(t, len("pdf content"), out.Bytes)

	want := filepath.Join(dst, "pdf", "sub", "Report.PDF")
	assert.Equal(t, want, out.Destination)
	assert.Equal(t, "pdf content", readFile(t, want))
	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))

	s := st.Summary()
	assert.EqualValues(t, 1, s.FilesCopied)
	assert.Equal(t, stats.ExtStats{Count: 1, Bytes: 11}, s.Extensions["pdf"])
	assert.EqualValues(t, 1, s.FilesScanned)
	assert.EqualValues(t, 11, s.BytesScanned)
	assert.Equal(t, []stats.CopiedFile{
		{Path: file, Destination: want, Extension: "pdf", Bytes: 11},
	}, s.Copied)

	leftovers, err := filepath.Glob(filepath.Join(dst, "pdf", "sub", ".backup-app-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

type scanRecorder struct {
	*stats.Stats
	sizes []int64
}

func (r *scanRecorder) Scanned(size int64) {
	r.sizes = append(r.sizes, size)
	r.Stats.Scanned(size)
}

func TestAccount_NeverBelowWritten(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		written int64
		want    int64
	}{
		{"unchanged", 10, 10, 10},
		{"grew during copy", 10, 25, 25},
		{"not written", 10, 0, 10},
		{"stat failed", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &scanRecorder{Stats: stats.New()}
			out := account(rec, tt.size, Outcome{Bytes: tt.written})
			assert.Equal(t, tt.written, out.Bytes)
			assert.Equal(t, []int64{tt.want}, rec.sizes)
		})
	}

	assert.NotPanics(t, func() { account(nil, 1, Outcome{}) })
}

func TestCopyFile_ScannedOncePerCall(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(src, "a.txt")
	writeFile(t, file, "twelve bytes")

	rec := &scanRecorder{Stats: stats.New()}
	c := New()
	c.CopyFile(file, src, dst, true, rec)
	c.CopyFile(file, src, dst, true, rec)
	c.CopyFile(filepath.Join(src, "missing.txt"), src, dst, true, rec)

	assert.Equal(t, []int64{12, 12, 0}, rec.sizes)
	s := rec.Summary()
	assert.EqualValues(t, 3, s.FilesScanned)
	assert.EqualValues(t, 1, s.FilesCopied)
	assert.EqualValues(t, 1, s.FilesDuplicate)
	assert.EqualValues(t, 1, s.FilesFailed)
	assert.LessOrEqual(t, s.BytesCopied, s.BytesScanned)
}

func TestCopyFile_NoExtension(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(src, "Makefile")
	writeFile(t, file, "all:")

	out := New().CopyFile(file, src, dst, false, nil)
	assert.Equal(t, Copied, out.Status)
	assert.Equal(t, filepath.Join(dst, "_no_ext", "Makefile"), out.Destination)
}

func TestCopyFile_ConflictKeepsBoth(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(src, "foto.jpg")
	writeFile(t, file, "new")
	writeFile(t, filepath.Join(dst, "jpg", "foto.jpg"), "old")

	var lines []string
	st := stats.New()
	c := New(WithLog(func(s string) { lines = append(lines, s) }))
	out := c.CopyFile(file, src, dst, true, st)

	assert.Equal(t, Copied, out.Status)
	assert.Equal(t, "old", readFile(t, filepath.Join(dst, "jpg", "foto.jpg")))
	assert.Equal(t, "new", readFile(t, filepath.Join(dst, "jpg", "foto_1.jpg")))
	assert.EqualValues(t, 1, st.Summary().FilesCopied)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "renamed")

	writeFile(t, file, "newer")
	out = c.CopyFile(file, src, dst, true, st)
	assert.Equal(t, filepath.Join(dst, "jpg", "foto_2.jpg"), out.Destination)
}

func TestCopyFile_IdenticalIsDuplicate(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(src, "a", "doc.txt")
	writeFile(t, file, "same bytes")

	c := New()
	st := stats.New()
	first := c.CopyFile(file, src, dst, true, st)
	require.Equal(t, Copied, first.Status)

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(first.Destination, old, old))

	second := c.CopyFile(file, src, dst, true, st)
	assert.Equal(t, Duplicate, second.Status)
	assert.True(t, second.Processed())
	assert.Equal(t, first.Destination, second.Destination)
	assert.Zero(t, second.Bytes)

	info, err := os.Stat(first.Destination)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old))

	s := st.Summary()
	assert.EqualValues(t, 1, s.FilesCopied)
	assert.EqualValues(t, 1, s.FilesDuplicate)
	assert.EqualValues(t, len("same bytes"), s.BytesCopied)

	entries, err := os.ReadDir(filepath.Dir(first.Destination))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyFile_UUIDNaming(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(src, "foto.jpg")
	writeFile(t, file, "new")
	writeFile(t, filepath.Join(dst, "jpg", "foto.jpg"), "old")

	c := New(WithNaming(NamingUUID))
	c.newUUID = func() string { return "0000-fixed" }
	out := c.CopyFile(file, src, dst, false, nil)
	assert.Equal(t, filepath.Join(dst, "jpg", "foto_0000-fixed.jpg"), out.Destination)
}

func TestCopyFile_UnreadableDestinationFallsBackToRename(t *testing.T) {
	skipIfPermissionsIgnored(t)
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(src, "foto.jpg")
	writeFile(t, file, "abc")
	existing := filepath.Join(dst, "jpg", "foto.jpg")
	writeFile(t, existing, "abc")
	require.NoError(t, os.Chmod(existing, 0o000))
	t.Cleanup(func() { _ = os.Chmod(existing, 0o644) })

	out := New().CopyFile(file, src, dst, true, nil)
	assert.Equal(t, Copied, out.Status)
	assert.Equal(t, filepath.Join(dst, "jpg", "foto_1.jpg"), out.Destination)
}

func TestCopyFile_PermissionDenied(t *testing.T) {
	skipIfPermissionsIgnored(t)
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(src, "secret.pdf")
	writeFile(t, file, "x")
	require.NoError(t, os.Chmod(file, 0o000))
	t.Cleanup(func() { _ = os.Chmod(file, 0o644) })

	var lines []string
	st := stats.New()
	out := New(WithLog(func(s string) { lines = append(lines, s) })).CopyFile(file, src, dst, true, st)
	assert.Equal(t, Denied, out.Status)
	assert.False(t, out.Processed())

	s := st.Summary()
	assert.EqualValues(t, 1, s.FilesDenied)
	assert.Zero(t, s.FilesCopied)
	require.Len(t, s.Failures, 1)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "WARN")
}

func TestCopyFile_MissingSourceFails(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	st := stats.New()
	out := New().CopyFile(filepath.Join(src, "gone.txt"), src, dst, true, st)
	assert.Equal(t, Failed, out.Status)
	assert.Error(t, out.Err)
	assert.EqualValues(t, 1, st.Summary().FilesFailed)
}

func TestCopyEntry(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	zipPath := filepath.Join(src, "sub", "bundle.zip")
	writeFile(t, zipPath, "placeholder")

	mod := time.Date(2022, 2, 2, 2, 2, 2, 0, time.UTC)
	entry := archive.Entry{Name: "docs/Inner.PDF", Data: []byte("inner pdf"), ModTime: mod}

	st := stats.New()
	out := New().CopyEntry(zipPath, entry, src, dst, true, st)
	require.Equal(t, Copied, out.Status)
	want := filepath.Join(dst, "pdf", "sub", "docs", "Inner.PDF")
	assert.Equal(t, want, out.Destination)
	assert.Equal(t, "inner pdf", readFile(t, want))

	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mod))

	s := st.Summary()
	assert.Equal(t, map[string]int64{"pdf": 9}, s.ArchiveBytes)

	again := New().CopyEntry(zipPath, entry, src, dst, true, st)
	assert.Equal(t, Duplicate, again.Status)
}

func TestCopyFile_ParallelConflictsGetDistinctNames(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	const n = 12
	files := make([]string, n)
	for i := range n {
		files[i] = filepath.Join(src, fmt.Sprintf("d%02d", i), "foto.jpg")
		writeFile(t, files[i], fmt.Sprintf("content %d", i))
	}

	c := New()
	st := stats.New()
	var wg sync.WaitGroup
	for _, f := range files {
		wg.Go(func() { c.CopyFile(f, src, dst, false, st) })
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(dst, "jpg"))
	require.NoError(t, err)
	assert.Len(t, entries, n)
	assert.EqualValues(t, n, st.Summary().FilesCopied)

	seen := map[string]bool{}
	for _, e := range entries {
		seen[readFile(t, filepath.Join(dst, "jpg", e.Name()))] = true
	}
	assert.Len(t, seen, n)
}

func TestParseNaming(t *testing.T) {
	n, err := ParseNaming("")
	require.NoError(t, err)
	assert.Equal(t, NamingCounter, n)
	n, err = ParseNaming("UUID")
	require.NoError(t, err)
	assert.Equal(t, NamingUUID, n)
	_, err = ParseNaming("random")
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "copied", Copied.String())
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "denied", Denied.String())
	assert.Equal(t, "failed", Failed.String())
}
