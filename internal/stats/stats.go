// Package stats accumulates the counters of one backup run.
//
// A Stats value is safe for concurrent use. Every mutation is a commutative
// addition, so totals do not depend on the order files are processed in.
package stats

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// ExtStats counts copied files and bytes for one extension.
type ExtStats struct {
	Count int64 `json:"count" yaml:"count" toml:"count"`
	Bytes int64 `json:"bytes" yaml:"bytes" toml:"bytes"`
}

// SnapshotInfo records the outcome of the snapshot phase.
type SnapshotInfo struct {
	Requested bool   `json:"requested" yaml:"requested" toml:"requested"`
	Succeeded bool   `json:"succeeded" yaml:"succeeded" toml:"succeeded"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
	ID        string `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
}

// Failure is one entry of the per-file error ledger.
type Failure struct {
	Path  string `json:"path" yaml:"path" toml:"path"`
	Error string `json:"error" yaml:"error" toml:"error"`
}

// CopiedFile is one entry of the copy ledger. Path is the source file, or
// archive!entry for a file extracted from an archive.
type CopiedFile struct {
	Path        string `json:"path" yaml:"path" toml:"path"`
	Destination string `json:"destination" yaml:"destination" toml:"destination"`
	Extension   string `json:"extension" yaml:"extension" toml:"extension"`
	Bytes       int64  `json:"bytes" yaml:"bytes" toml:"bytes"`
	FromArchive bool   `json:"from_archive,omitempty" yaml:"from_archive,omitempty" toml:"from_archive,omitempty"`
}

// Summary is a point-in-time copy of the run counters.
type Summary struct {
	FilesScanned   int64 `json:"files_scanned" yaml:"files_scanned" toml:"files_scanned"`
	FilesFound     int64 `json:"files_found" yaml:"files_found" toml:"files_found"`
	FilesCopied    int64 `json:"files_copied" yaml:"files_copied" toml:"files_copied"`
	FilesDenied    int64 `json:"files_denied" yaml:"files_denied" toml:"files_denied"`
	FilesDuplicate int64 `json:"files_duplicate" yaml:"files_duplicate" toml:"files_duplicate"`
	FilesFailed    int64 `json:"files_failed" yaml:"files_failed" toml:"files_failed"`
	BytesScanned   int64 `json:"bytes_scanned" yaml:"bytes_scanned" toml:"bytes_scanned"`
	BytesCopied    int64 `json:"bytes_copied" yaml:"bytes_copied" toml:"bytes_copied"`

	Extensions   map[string]ExtStats `json:"extensions" yaml:"extensions" toml:"extensions"`
	ArchiveBytes map[string]int64    `json:"archive_bytes" yaml:"archive_bytes" toml:"archive_bytes"`

	ArchivesScanned int64 `json:"archives_scanned" yaml:"archives_scanned" toml:"archives_scanned"`
	ArchiveErrors   int64 `json:"archive_errors" yaml:"archive_errors" toml:"archive_errors"`

	Snapshot SnapshotInfo `json:"snapshot" yaml:"snapshot" toml:"snapshot"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at" toml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at" toml:"finished_at"`

	// Duration is the wall time of the run in seconds.
	Duration  float64 `json:"duration" yaml:"duration" toml:"duration"`
	Cancelled bool    `json:"cancelled" yaml:"cancelled" toml:"cancelled"`

	Copied   []CopiedFile `json:"copied" yaml:"copied" toml:"copied"`
	Failures []Failure    `json:"failures" yaml:"failures" toml:"failures"`
}

// Stats is the mutable accumulator behind a Summary.
type Stats struct {
	mu    sync.Mutex
	s     Summary
	clock func() time.Time
}

// New returns an accumulator whose start time is now.
func New() *Stats {
	return newWithClock(time.Now)
}

func newWithClock(clock func() time.Time) *Stats {
	return &Stats{
		clock: clock,
		s: Summary{
			Extensions:   make(map[string]ExtStats),
			ArchiveBytes: make(map[string]int64),
			StartedAt:    clock().UTC(),
		},
	}
}

func (st *Stats) update(fn func(s *Summary)) {
	st.mu.Lock()
	fn(&st.s)
	st.mu.Unlock()
}

// Scanned counts one candidate file of the given size.
func (st *Stats) Scanned(size int64) {
	st.update(func(s *Summary) {
		s.FilesScanned++
		s.BytesScanned += size
	})
}

// Found counts one candidate that matched the wanted extensions.
func (st *Stats) Found() {
	st.update(func(s *Summary) { s.FilesFound++ })
}

// Copied counts a file durably written to the destination and appends it
// to the copy ledger.
func (st *Stats) Copied(f CopiedFile) {
	st.update(func(s *Summary) {
		s.FilesCopied++
		s.BytesCopied += f.Bytes
		e := s.Extensions[f.Extension]
		e.Count++
		e.Bytes += f.Bytes
		s.Extensions[f.Extension] = e
		if f.FromArchive {
			s.ArchiveBytes[f.Extension] += f.Bytes
		}
		s.Copied = append(s.Copied, f)
	})
}

// Duplicate counts a file skipped because identical content already exists.
func (st *Stats) Duplicate() {
	st.update(func(s *Summary) { s.FilesDuplicate++ })
}

// Denied counts a permission failure and records it in the ledger.
func (st *Stats) Denied(path string, err error) {
	st.update(func(s *Summary) {
		s.FilesDenied++
		s.Failures = append(s.Failures, Failure{Path: path, Error: errString(err)})
	})
}

// Failed counts any other per-file failure and records it in the ledger.
func (st *Stats) Failed(path string, err error) {
	st.update(func(s *Summary) {
		s.FilesFailed++
		s.Failures = append(s.Failures, Failure{Path: path, Error: errString(err)})
	})
}

// ArchiveScanned counts one archive opened during the archive pass.
func (st *Stats) ArchiveScanned() {
	st.update(func(s *Summary) { s.ArchivesScanned++ })
}

// ArchiveError records an archive that could not be fully decoded.
func (st *Stats) ArchiveError(path string, err error) {
	st.update(func(s *Summary) {
		s.ArchiveErrors++
		s.Failures = append(s.Failures, Failure{Path: path, Error: errString(err)})
	})
}

// SetSnapshot stores the snapshot outcome.
func (st *Stats) SetSnapshot(info SnapshotInfo) {
	st.update(func(s *Summary) { s.Snapshot = info })
}

// SetCancelled marks the run as stopped early.
func (st *Stats) SetCancelled() {
	st.update(func(s *Summary) { s.Cancelled = true })
}

// Finish stamps the end time and duration.
func (st *Stats) Finish() {
	st.update(func(s *Summary) {
		s.FinishedAt = st.clock().UTC()
		s.Duration = s.FinishedAt.Sub(s.StartedAt).Seconds()
	})
}

// Summary returns a deep copy of the current counters.
func (st *Stats) Summary() *Summary {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := st.s
	out.Extensions = maps.Clone(st.s.Extensions)
	out.ArchiveBytes = maps.Clone(st.s.ArchiveBytes)
	out.Copied = slices.Clone(st.s.Copied)
	out.Failures = slices.Clone(st.s.Failures)
	return &out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

const mib = 1024 * 1024

// Fill writes the summary fields into sink using their serialized names,
// plus mb_scanned and mb_copied in mebibytes.
func (s *Summary) Fill(sink map[string]any) {
	if sink == nil {
		return
	}
	sink["files_scanned"] = s.FilesScanned
	sink["files_found"] = s.FilesFound
	sink["files_copied"] = s.FilesCopied
	sink["files_denied"] = s.FilesDenied
	sink["files_duplicate"] = s.FilesDuplicate
	sink["files_failed"] = s.FilesFailed
	sink["bytes_scanned"] = s.BytesScanned
	sink["bytes_copied"] = s.BytesCopied
	sink["mb_scanned"] = float64(s.BytesScanned) / mib
	sink["mb_copied"] = float64(s.BytesCopied) / mib
	sink["extensions"] = maps.Clone(s.Extensions)
	sink["archive_bytes"] = maps.Clone(s.ArchiveBytes)
	sink["archives_scanned"] = s.ArchivesScanned
	sink["archive_errors"] = s.ArchiveErrors
	sink["snapshot"] = s.Snapshot
	sink["started_at"] = s.StartedAt
	sink["finished_at"] = s.FinishedAt
	sink["duration"] = s.Duration
	sink["cancelled"] = s.Cancelled
	sink["copied"] = slices.Clone(s.Copied)
	sink["failures"] = slices.Clone(s.Failures)
}
