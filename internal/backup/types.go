package backup

import (
	"log/slog"
	"sync/atomic"

	"github.com/vhugoxx/backup-app/internal/archive"
	"github.com/vhugoxx/backup-app/internal/copier"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/extension"
	"github.com/vhugoxx/backup-app/internal/scan"
	"github.com/vhugoxx/backup-app/internal/snapshot"
)

// Sentinel errors for invalid run options.
var (
	// ErrSourceRequired indicates Options.Source was empty.
	ErrSourceRequired = errors.New("source directory is required")

	// ErrDestinationRequired indicates Options.Destination was empty.
	ErrDestinationRequired = errors.New("destination directory is required")

	// ErrDestinationIsSource indicates source and destination are the same directory.
	ErrDestinationIsSource = errors.New("destination must differ from source")
)

// Options describes one backup run.
type Options struct {
	// Source is the directory tree to back up.
	Source string

	// Destination is the root of the extension-partitioned output.
	Destination string

	// Extensions selects the files to copy, including archive entries.
	Extensions extension.Set

	// Recursive descends into subdirectories of Source.
	Recursive bool

	// PreserveStructure keeps the source directories below the extension
	// folder. When false only the file name is kept.
	PreserveStructure bool

	// IncludeArchives enables the archive pass.
	IncludeArchives bool

	// ArchiveKinds restricts the archive pass to these kinds
	// (see archive.Kinds). Empty means all kinds.
	ArchiveKinds []string

	// UseSnapshot requests a point-in-time snapshot of the source volume.
	UseSnapshot bool

	// Workers is the number of parallel copies. Values below 2 copy sequentially.
	Workers int

	// Naming selects the conflict naming strategy. Defaults to counter naming.
	Naming copier.Naming

	// MissingRoot decides whether a missing Source fails the run.
	MissingRoot scan.MissingRootPolicy

	// MaxPathLength skips source paths at or over this length. Zero disables.
	MaxPathLength int

	// Progress receives +1 for each file copied or skipped as duplicate.
	Progress func(int)

	// Log receives human readable lines for notable events.
	Log func(string)

	// Cancel is polled before each file. Returning true stops the run.
	Cancel func() bool

	// Sink, when non-nil, is filled with the final statistics.
	Sink map[string]any

	// Snapshots overrides the platform snapshot provider.
	Snapshots snapshot.Provider

	// Archives overrides the archive decoder registry.
	Archives *archive.Registry

	// Logger receives structured debug events.
	Logger *slog.Logger
}

func (o Options) validate() error {
	if o.Source == "" {
		return ErrSourceRequired
	}
	if o.Destination == "" {
		return ErrDestinationRequired
	}
	if len(o.Extensions) == 0 {
		return errors.ErrNoExtensions
	}
	if err := archive.ValidateKinds(o.ArchiveKinds); err != nil {
		return err
	}
	if _, err := copier.ParseNaming(string(o.Naming)); err != nil {
		return err
	}
	return nil
}

func (o Options) withDefaults(logger *slog.Logger) Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Naming == "" {
		o.Naming = copier.NamingCounter
	}
	if o.Snapshots == nil {
		o.Snapshots = snapshot.Default(logger)
	}
	if o.Archives == nil {
		o.Archives = archive.DefaultRegistry()
	}
	return o
}

// Token is a cancellation flag shared between a run and its controller.
// The zero value is ready to use.
type Token struct {
	flag atomic.Bool
}

// Cancel requests the run to stop.
func (t *Token) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether Cancel was called. It can be used as
// Options.Cancel.
func (t *Token) Cancelled() bool {
	return t != nil && t.flag.Load()
}
