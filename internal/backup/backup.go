package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sourcegraph/conc/pool"

	"github.com/vhugoxx/backup-app/internal/archive"
	"github.com/vhugoxx/backup-app/internal/copier"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/logging"
	"github.com/vhugoxx/backup-app/internal/scan"
	"github.com/vhugoxx/backup-app/internal/snapshot"
	"github.com/vhugoxx/backup-app/internal/stats"
)

// Run performs one backup and returns its final statistics.
//
// The only error returned after the options are accepted is a missing source
// root under the strict policy, or a destination that cannot be created. In
// that case the partial statistics are returned alongside the error.
func Run(ctx context.Context, opts Options) (*stats.Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	opts = opts.withDefaults(logger)

	src, dst, err := resolveRoots(opts.Source, opts.Destination)
	if err != nil {
		return nil, err
	}

	h := &hooks{progress: opts.Progress, log: opts.Log, cancel: opts.Cancel, logger: logger}

	r := &runner{
		opts:   opts,
		src:    src,
		dst:    dst,
		stats:  stats.New(),
		hooks:  h,
		logger: logger,
		copier: copier.New(
			copier.WithNaming(opts.Naming),
			copier.WithLog(h.line),
			copier.WithLogger(logger),
		),
	}

	err = r.execute(ctx)
	return r.finalize(), err
}

type runner struct {
	opts   Options
	src    string
	dst    string
	stats  *stats.Stats
	hooks  *hooks
	copier *copier.Copier
	logger *slog.Logger

	// skip holds the destination and, during a snapshot run, its image on
	// the snapshot device. Scanned paths under either are ignored.
	skip []string

	// jobs is nil for sequential runs.
	jobs *pool.Pool
}

func (r *runner) skipped(path string) bool {
	for _, dir := range r.skip {
		if within(path, dir) {
			return true
		}
	}
	return false
}

func (r *runner) logf(format string, args ...any) {
	r.hooks.line(fmt.Sprintf(format, args...))
}

// execute runs every phase between Init and Finalize. The snapshot, if one
// was created, is released before execute returns.
func (r *runner) execute(ctx context.Context) error {
	if err := os.MkdirAll(r.dst, 0o755); err != nil {
		return errors.Wrapf(err, "creating destination %s", r.dst)
	}

	snap := r.acquireSnapshot(ctx)
	if snap != nil {
		defer r.releaseSnapshot(ctx, snap)
	}

	root := r.src
	r.skip = []string{r.dst}
	if snap != nil {
		root = snap.Translate(r.src)
		if image := snap.Translate(r.dst); image != r.dst {
			r.skip = append(r.skip, image)
		}
		r.logger.Debug("scanning snapshot", "root", root, "skip", r.skip)
	}

	if r.opts.Workers > 1 {
		r.jobs = pool.New().WithMaxGoroutines(r.opts.Workers)
	}

	err := r.copyFiles(ctx, root)
	if err == nil && r.opts.IncludeArchives && !r.stopped(ctx) {
		r.copyArchives(ctx, root)
	}
	if r.jobs != nil {
		r.jobs.Wait()
	}
	return err
}

func (r *runner) acquireSnapshot(ctx context.Context) *snapshot.Snapshot {
	if !r.opts.UseSnapshot {
		return nil
	}
	info := stats.SnapshotInfo{Requested: true}
	volume := snapshot.VolumeOf(r.src)

	ok, reason := r.opts.Snapshots.CheckPrerequisites(ctx, volume)
	if !ok {
		info.Reason = reason
		r.stats.SetSnapshot(info)
		r.logf("WARN snapshot unavailable: %s; continuing without snapshot", reason)
		return nil
	}

	r.logf("creating snapshot of %s", volume)
	snap, err := r.opts.Snapshots.Create(ctx, volume)
	if err != nil {
		info.Reason = err.Error()
		r.stats.SetSnapshot(info)
		r.logf("WARN snapshot failed: %v; continuing without snapshot", err)
		return nil
	}

	info.Succeeded = true
	info.ID = snap.ID
	info.Reason = reason
	r.stats.SetSnapshot(info)
	r.logf("snapshot created: %s at %s", snap.ID, snap.DevicePath)
	return snap
}

func (r *runner) releaseSnapshot(ctx context.Context, snap *snapshot.Snapshot) {
	r.opts.Snapshots.Delete(context.WithoutCancel(ctx), snap)
	r.logf("snapshot released: %s", snap.ID)
}

// stopped reports whether the run should stop before the next item.
func (r *runner) stopped(ctx context.Context) bool {
	if ctx.Err() != nil || r.hooks.cancelled() {
		r.stats.SetCancelled()
		return true
	}
	return false
}

// submit runs job inline or on the worker pool.
func (r *runner) submit(job func()) {
	if r.jobs == nil {
		job()
		return
	}
	r.jobs.Go(job)
}

func (r *runner) copyFiles(ctx context.Context, root string) error {
	files, err := scan.Scan(scan.Request{
		Root:          root,
		Extensions:    r.opts.Extensions,
		Recursive:     r.opts.Recursive,
		MissingRoot:   r.opts.MissingRoot,
		MaxPathLength: r.opts.MaxPathLength,
		Reporter:      r.hooks.line,
	})
	if err != nil {
		r.logf("ERROR %v", err)
		return err
	}

	for path := range files {
		if r.stopped(ctx) {
			r.logf("cancelled")
			return nil
		}
		if r.skipped(path) {
			continue
		}
		r.stats.Found()

		r.submit(func() {
			out := r.copier.CopyFile(path, root, r.dst, r.opts.PreserveStructure, r.stats)
			if out.Processed() {
				r.hooks.tick(1)
			}
		})
	}
	return nil
}

func (r *runner) copyArchives(ctx context.Context, root string) {
	r.logf("searching inside archives")
	candidates, err := scan.Scan(scan.Request{
		Root:          root,
		Extensions:    archive.ScanExtensions(r.opts.ArchiveKinds),
		Recursive:     r.opts.Recursive,
		MissingRoot:   scan.Warn,
		MaxPathLength: r.opts.MaxPathLength,
		Reporter:      r.hooks.line,
	})
	if err != nil {
		r.logf("ERROR %v", err)
		return
	}

	for path := range candidates {
		if r.stopped(ctx) {
			r.logf("cancelled")
			return
		}
		if !archive.IsArchive(path, r.opts.ArchiveKinds) || r.skipped(path) {
			continue
		}
		if !r.opts.Archives.Supports(path) {
			r.logger.Debug("no decoder, skipping archive", "path", path)
			continue
		}
		r.stats.ArchiveScanned()
		if !r.copyEntries(ctx, root, path) {
			return
		}
	}
}

// copyEntries copies the wanted entries of one archive. It returns false
// when the run was cancelled.
func (r *runner) copyEntries(ctx context.Context, root, path string) bool {
	for entry, err := range r.opts.Archives.Entries(path, r.opts.Extensions) {
		if err != nil {
			r.stats.ArchiveError(path, err)
			r.logf("ERROR cannot extract %s: %v", path, err)
			return true
		}
		if r.stopped(ctx) {
			r.logf("cancelled")
			return false
		}

		r.stats.Found()
		r.submit(func() {
			out := r.copier.CopyEntry(path, entry, root, r.dst, r.opts.PreserveStructure, r.stats)
			if out.Processed() {
				r.hooks.tick(1)
			}
		})
	}
	return true
}

func (r *runner) finalize() *stats.Summary {
	r.stats.Finish()
	summary := r.stats.Summary()
	summary.Fill(r.opts.Sink)
	r.logger.Debug("run finished",
		"copied", summary.FilesCopied,
		"duplicates", summary.FilesDuplicate,
		"denied", summary.FilesDenied,
		"failed", summary.FilesFailed,
		"cancelled", summary.Cancelled,
		"duration", summary.Duration,
	)
	return summary
}
