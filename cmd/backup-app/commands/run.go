package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vhugoxx/backup-app/cmd"
	"github.com/vhugoxx/backup-app/internal/archive"
	"github.com/vhugoxx/backup-app/internal/backup"
	"github.com/vhugoxx/backup-app/internal/config"
	"github.com/vhugoxx/backup-app/internal/copier"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/extension"
	"github.com/vhugoxx/backup-app/internal/logging"
	"github.com/vhugoxx/backup-app/internal/paths"
	"github.com/vhugoxx/backup-app/internal/report"
	"github.com/vhugoxx/backup-app/internal/scan"
	"github.com/vhugoxx/backup-app/internal/stats"
)

// runFlags holds the run command flags. Unset flags fall back to the config.
type runFlags struct {
	source       string
	dest         string
	exts         []string
	presets      []string
	pick         bool
	noRecursive  bool
	flat         bool
	archives     bool
	archiveTypes []string
	snapshot     bool
	workers      int
	naming       string
	report       string
	missingRoot  string
	maxPath      int
}

// pickFn is replaced in tests.
var pickFn picker = fuzzyPicker

func newRunCmd(g *globalOptions) *cobra.Command {
	f := &runFlags{}

	c := &cobra.Command{
		Use:   "run",
		Short: "Run a backup",
		Long: `Copy every file of the selected extensions from the source tree into
<dest>/<extension>/..., optionally looking inside archives.

Files already present with identical content are skipped. A different file
with the same name is stored as name_1.ext, name_2.ext, ... (or name_<uuid>.ext
with --naming uuid). Press Ctrl-C to stop after the file being copied.

A report named backup_log_<UTC time>.<format> is written to the destination.`,
		Example: `  # Photos and PDFs, keeping the folder structure
  backup-app run --source ~/Pictures --dest /mnt/usb/backup --ext jpg,png,pdf

  # Everything from the documents preset, including files inside archives
  backup-app run -s D:\Work -d E:\Backup --preset documents --archives --snapshot

  # Choose extensions interactively
  backup-app run -s ~/src -d /backup --pick

See Also: backup-app presets, backup-app doctor`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := g.settings()
			if err != nil {
				return err
			}
			opts, format, err := f.options(c, cfg)
			if err != nil {
				return err
			}
			return executeRun(c, opts, format)
		},
	}

	fl := c.Flags()
	fl.StringVarP(&f.source, "source", "s", "", "directory to back up")
	fl.StringVarP(&f.dest, "dest", "d", "", "destination directory")
	fl.StringSliceVarP(&f.exts, "ext", "e", nil, "extensions to copy, comma separated (jpg,pdf)")
	fl.StringSliceVar(&f.presets, "preset", nil, "extension presets: "+strings.Join(extension.PresetNames(), ", "))
	fl.BoolVar(&f.pick, "pick", false, "choose extensions interactively")
	fl.BoolVar(&f.noRecursive, "no-recursive", false, "only copy files directly inside the source")
	fl.BoolVar(&f.flat, "flat", false, "drop source folders below the extension folder")
	fl.BoolVar(&f.archives, "archives", false, "also copy matching files found inside archives")
	fl.StringSliceVar(&f.archiveTypes, "archive-types", nil, "archive types to open: "+strings.Join(archive.KindNames(), ", "))
	fl.BoolVar(&f.snapshot, "snapshot", false, "read the source through a volume snapshot (Windows, elevated)")
	fl.IntVarP(&f.workers, "workers", "w", 1, "parallel copies")
	fl.StringVar(&f.naming, "naming", string(copier.NamingCounter), "conflict names: counter, uuid")
	fl.StringVar(&f.report, "report", string(report.FormatJSON), "run report format: json, yaml, toml, none")
	fl.StringVar(&f.missingRoot, "missing-root", scan.Fail.String(), "missing source: fail, warn")
	fl.IntVar(&f.maxPath, "max-path", 0, "skip paths of at least this many characters (0 disables)")
	return c
}

// options merges flags over cfg into backup options.
func (f *runFlags) options(c *cobra.Command, cfg *config.Config) (backup.Options, report.Format, error) {
	changed := c.Flags().Changed

	source, dest := cfg.Source, cfg.Destination
	if changed("source") {
		source = f.source
	}
	if changed("dest") {
		dest = f.dest
	}
	if source == "" {
		return backup.Options{}, "", errors.NewUserError(backup.ErrSourceRequired,
			"pass --source or run: backup-app config set source <dir>")
	}
	if dest == "" {
		return backup.Options{}, "", errors.NewUserError(backup.ErrDestinationRequired,
			"pass --dest or run: backup-app config set destination <dir>")
	}
	source, dest = paths.ExpandHome(source), paths.ExpandHome(dest)

	exts, presets := cfg.Extensions, cfg.Presets
	if changed("ext") || changed("preset") {
		exts, presets = f.exts, f.presets
	}
	want, err := extension.Resolve(exts, presets)
	if err != nil {
		return backup.Options{}, "", errors.NewUserError(err, "run: backup-app presets")
	}
	if f.pick {
		if want, err = pickExtensions(pickFn, want); err != nil {
			return backup.Options{}, "", err
		}
	}
	if len(want) == 0 {
		return backup.Options{}, "", errors.NewUserError(errors.ErrNoExtensions, "pass --ext, --preset or --pick")
	}

	o := backup.Options{
		Source:            source,
		Destination:       dest,
		Extensions:        want,
		Recursive:         cfg.Recursive,
		PreserveStructure: cfg.PreserveStructure,
		IncludeArchives:   cfg.IncludeArchives,
		ArchiveKinds:      cfg.ArchiveTypes,
		UseSnapshot:       cfg.UseSnapshot,
		Workers:           cfg.Workers,
		MaxPathLength:     cfg.MaxPathLength,
	}
	if changed("no-recursive") {
		o.Recursive = !f.noRecursive
	}
	if changed("flat") {
		o.PreserveStructure = !f.flat
	}
	if changed("archives") {
		o.IncludeArchives = f.archives
	}
	if changed("archive-types") {
		o.ArchiveKinds = f.archiveTypes
		o.IncludeArchives = o.IncludeArchives || !changed("archives")
	}
	if changed("snapshot") {
		o.UseSnapshot = f.snapshot
	}
	if changed("workers") {
		o.Workers = f.workers
	}
	if changed("max-path") {
		o.MaxPathLength = f.maxPath
	}
	if err := archive.ValidateKinds(o.ArchiveKinds); err != nil {
		return backup.Options{}, "", errors.NewUserError(err, "")
	}

	naming, reportName, missing := cfg.Naming, cfg.Report, cfg.MissingRoot
	if changed("naming") {
		naming = f.naming
	}
	if changed("report") {
		reportName = f.report
	}
	if changed("missing-root") {
		missing = f.missingRoot
	}
	if o.Naming, err = copier.ParseNaming(naming); err != nil {
		return backup.Options{}, "", errors.NewUserError(err, "")
	}
	if o.MissingRoot, err = scan.ParsePolicy(missing); err != nil {
		return backup.Options{}, "", errors.NewUserError(err, "")
	}
	format, err := report.ParseFormat(reportName)
	if err != nil {
		return backup.Options{}, "", errors.NewUserError(err, "")
	}
	return o, format, nil
}

// executeRun runs the backup with Ctrl-C wired to cancellation, then prints
// the summary and writes the report.
func executeRun(c *cobra.Command, opts backup.Options, format report.Format) error {
	logger := logging.FromContext(c.Context())
	out, errOut := c.OutOrStdout(), c.ErrOrStderr()

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt)
	defer stop()

	var token backup.Token
	go func() {
		<-ctx.Done()
		token.Cancel()
	}()

	var processed atomic.Int64
	live := logging.IsTTY(errOut)
	opts.Cancel = token.Cancelled
	opts.Logger = logger
	opts.Log = logging.Lines(logger, slog.LevelInfo)
	opts.Progress = func(n int) {
		total := processed.Add(int64(n))
		if live {
			fmt.Fprintf(errOut, "\r%d files processed", total)
		}
	}

	fmt.Fprintf(out, "Backing up %s -> %s (%s)\n", opts.Source, opts.Destination, opts.Extensions)
	summary, runErr := backup.Run(ctx, opts)
	if live && processed.Load() > 0 {
		fmt.Fprintln(errOut)
	}
	if summary == nil {
		return errors.NewUserError(runErr, "")
	}

	reportPath := ""
	if runErr == nil {
		var err error
		reportPath, err = writeReport(context.WithoutCancel(ctx), opts, format, summary)
		if err != nil {
			logger.Warn("writing run report failed", "error", err)
		}
	}
	printSummary(out, summary, reportPath)

	switch {
	case errors.Is(runErr, scan.ErrRootNotFound):
		return errors.NewUserError(runErr, "check --source, or pass --missing-root warn")
	case runErr != nil:
		return errors.NewSystemError(runErr, "check that the destination is writable")
	case summary.Cancelled:
		return errors.NewUserError(errors.ErrCancelled, "the backup stopped early, run it again to finish")
	}
	return nil
}

func writeReport(ctx context.Context, opts backup.Options, format report.Format, s *stats.Summary) (string, error) {
	r := &report.Report{
		Version:     cmd.Version,
		Timestamp:   s.FinishedAt,
		Source:      opts.Source,
		Destination: opts.Destination,
		Types:       opts.Extensions.Sorted(),
		Settings: report.Settings{
			Recursive:         opts.Recursive,
			PreserveStructure: opts.PreserveStructure,
			IncludeArchives:   opts.IncludeArchives,
			ArchiveKinds:      opts.ArchiveKinds,
			UseSnapshot:       opts.UseSnapshot,
			Workers:           opts.Workers,
			Naming:            string(opts.Naming),
		},
		Statistics: s,
	}
	path, err := report.Write(opts.Destination, format, r)
	if err == nil && path != "" {
		logging.FromContext(ctx).Debug("run report written", "path", path)
	}
	return path, err
}

func printSummary(w io.Writer, s *stats.Summary, reportPath string) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	fmt.Fprintln(w)
	switch {
	case s.Cancelled:
		yellow.Fprintln(w, "Backup cancelled")
	case s.FilesFailed+s.FilesDenied+s.ArchiveErrors > 0:
		yellow.Fprintln(w, "Backup finished with errors")
	default:
		green.Fprintln(w, "Backup finished")
	}

	fmt.Fprintf(w, "  scanned:    %d files (%s)\n", s.FilesScanned, megabytes(s.BytesScanned))
	fmt.Fprintf(w, "  matched:    %d files\n", s.FilesFound)
	fmt.Fprintf(w, "  copied:     %s (%s)\n", green.Sprintf("%d files", s.FilesCopied), megabytes(s.BytesCopied))
	fmt.Fprintf(w, "  duplicates: %d skipped\n", s.FilesDuplicate)
	if s.FilesDenied > 0 {
		fmt.Fprintf(w, "  denied:     %s\n", yellow.Sprintf("%d files", s.FilesDenied))
	}
	if s.FilesFailed > 0 {
		fmt.Fprintf(w, "  failed:     %s\n", red.Sprintf("%d files", s.FilesFailed))
	}
	if s.ArchivesScanned > 0 || s.ArchiveErrors > 0 {
		fmt.Fprintf(w, "  archives:   %d opened, %d unreadable\n", s.ArchivesScanned, s.ArchiveErrors)
	}
	if s.Snapshot.Requested {
		if s.Snapshot.Succeeded {
			fmt.Fprintf(w, "  snapshot:   %s\n", s.Snapshot.ID)
		} else {
			fmt.Fprintf(w, "  snapshot:   %s\n", yellow.Sprint("unavailable: "+s.Snapshot.Reason))
		}
	}
	fmt.Fprintf(w, "  duration:   %.1fs\n", s.Duration)

	if len(s.Extensions) > 0 {
		bold.Fprintln(w, "\nPer extension:")
		for _, ext := range slices.Sorted(maps.Keys(s.Extensions)) {
			e := s.Extensions[ext]
			fmt.Fprintf(w, "  %-10s %6d files  %s\n", ext, e.Count, megabytes(e.Bytes))
		}
	}
	if reportPath != "" {
		fmt.Fprintf(w, "\nReport: %s\n", reportPath)
	}
}

func megabytes(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}
