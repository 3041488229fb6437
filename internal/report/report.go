// Package report persists the outcome of a backup run next to the backed up
// files, as backup_log_<UTC timestamp>.<format>.
package report

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/stats"
	"github.com/vhugoxx/backup-app/pkg/fileutil"
)

// Format is a report serialization.
type Format string

// Supported formats. FormatNone disables the report.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatNone Format = "none"
)

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatTOML, FormatNone:
		return f, nil
	}
	return "", errors.Newf("unknown report format %q (valid: json, yaml, toml, none)", s)
}

// stampLayout is UTC and free of characters Windows forbids in file names.
const stampLayout = "2006-01-02T15-04-05"

// Settings records the options the run was started with.
type Settings struct {
	Recursive         bool     `json:"recursive" yaml:"recursive" toml:"recursive"`
	PreserveStructure bool     `json:"preserve_structure" yaml:"preserve_structure" toml:"preserve_structure"`
	IncludeArchives   bool     `json:"include_archives" yaml:"include_archives" toml:"include_archives"`
	ArchiveKinds      []string `json:"archive_types,omitempty" yaml:"archive_types,omitempty" toml:"archive_types,omitempty"`
	UseSnapshot       bool     `json:"use_snapshot" yaml:"use_snapshot" toml:"use_snapshot"`
	Workers           int      `json:"workers" yaml:"workers" toml:"workers"`
	Naming            string   `json:"naming" yaml:"naming" toml:"naming"`
}

// Report is the persisted run log. Statistics carries the per-file copy
// ledger and the failure ledger.
type Report struct {
	Version     string         `json:"version" yaml:"version" toml:"version"`
	Timestamp   time.Time      `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	Source      string         `json:"source" yaml:"source" toml:"source"`
	Destination string         `json:"dest" yaml:"dest" toml:"dest"`
	Types       []string       `json:"types" yaml:"types" toml:"types"`
	Settings    Settings       `json:"settings" yaml:"settings" toml:"settings"`
	Statistics  *stats.Summary `json:"statistics" yaml:"statistics" toml:"statistics"`
}

// FileName returns the report file name for a run finished at t.
func FileName(t time.Time, f Format) string {
	return "backup_log_" + t.UTC().Format(stampLayout) + "." + string(f)
}

// Write stores r in dir and returns the file path. FormatNone writes nothing
// and returns "".
func Write(dir string, f Format, r *Report) (string, error) {
	if f == FormatNone {
		return "", nil
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	path := filepath.Join(dir, FileName(r.Timestamp, f))

	var err error
	switch f {
	case FormatJSON, "":
		err = fileutil.AtomicWriteJSON(path, r)
	case FormatYAML:
		err = fileutil.AtomicWriteYAML(path, r)
	case FormatTOML:
		err = fileutil.AtomicWriteTOML(path, r)
	default:
		return "", errors.Newf("unknown report format %q", f)
	}
	if err != nil {
		return "", errors.Wrapf(err, "writing report %s", path)
	}
	return path, nil
}
