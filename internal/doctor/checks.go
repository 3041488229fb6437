package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vhugoxx/backup-app/internal/archive"
	"github.com/vhugoxx/backup-app/internal/config"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/logging"
	"github.com/vhugoxx/backup-app/internal/snapshot"
	"github.com/vhugoxx/backup-app/pkg/fileutil"
)

// ConfigCheck parses and validates the configuration file at Path.
type ConfigCheck struct {
	Path string
}

var _ Check = (*ConfigCheck)(nil)

// Name returns the unique identifier for this check.
func (c *ConfigCheck) Name() string { return "config-file" }

// Category returns the grouping for this check.
func (c *ConfigCheck) Category() string { return "config" }

// Run executes the check.
func (c *ConfigCheck) Run(context.Context) *CheckResult {
	res := &CheckResult{Name: c.Name(), Category: c.Category()}
	data, err := fileutil.ReadFileWithLimit(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		res.Status = SeverityInfo
		res.Message = "no config file, built-in defaults apply"
		res.FixHint = "backup-app init"
		return res
	}
	if err != nil {
		res.Status = SeverityError
		res.Message = fmt.Sprintf("cannot read config file: %v", err)
		return res
	}

	cfg, err := config.Parse(data)
	if err != nil {
		res.Status = SeverityError
		res.Message = err.Error()
		res.FixHint = "backup-app config edit"
		return res
	}
	res.Status = SeverityPass
	res.Message = "config file is valid"
	res.Details = map[string]any{"path": c.Path, "workers": cfg.Workers, "naming": cfg.Naming}
	return res
}

// SourceCheck verifies the source directory exists and can be listed.
type SourceCheck struct {
	Path string
}

var _ Check = (*SourceCheck)(nil)

// Name returns the unique identifier for this check.
func (c *SourceCheck) Name() string { return "source-readable" }

// Category returns the grouping for this check.
func (c *SourceCheck) Category() string { return "paths" }

// Run executes the check.
func (c *SourceCheck) Run(context.Context) *CheckResult {
	res := &CheckResult{Name: c.Name(), Category: c.Category()}
	if c.Path == "" {
		res.Status = SeverityInfo
		res.Message = "no source configured, pass --source when running"
		return res
	}
	res.Details = map[string]any{"path": c.Path}

	info, err := os.Stat(c.Path)
	switch {
	case err != nil:
		res.Status = SeverityError
		res.Message = fmt.Sprintf("source not accessible: %v", err)
		return res
	case !info.IsDir():
		res.Status = SeverityError
		res.Message = "source is not a directory"
		return res
	}
	if _, err := os.ReadDir(c.Path); err != nil {
		res.Status = SeverityError
		res.Message = fmt.Sprintf("source cannot be listed: %v", err)
		res.FixHint = "check permissions on " + c.Path
		return res
	}
	res.Status = SeverityPass
	res.Message = "source is readable"
	return res
}

// DestinationCheck verifies the destination, or its nearest existing
// ancestor, accepts new files.
type DestinationCheck struct {
	Path   string
	Source string
}

var _ Check = (*DestinationCheck)(nil)

// Name returns the unique identifier for this check.
func (c *DestinationCheck) Name() string { return "destination-writable" }

// Category returns the grouping for this check.
func (c *DestinationCheck) Category() string { return "paths" }

// Run executes the check.
func (c *DestinationCheck) Run(context.Context) *CheckResult {
	res := &CheckResult{Name: c.Name(), Category: c.Category()}
	if c.Path == "" {
		res.Status = SeverityInfo
		res.Message = "no destination configured, pass --dest when running"
		return res
	}
	res.Details = map[string]any{"path": c.Path}

	dir, exists, err := nearestDir(c.Path)
	if err != nil {
		res.Status = SeverityError
		res.Message = err.Error()
		return res
	}
	if err := probeWritable(dir); err != nil {
		res.Status = SeverityError
		res.Message = fmt.Sprintf("%s is not writable: %v", dir, err)
		res.FixHint = "chmod u+w " + dir
		return res
	}

	switch {
	case c.Source != "" && within(c.Path, c.Source):
		res.Status = SeverityWarning
		res.Message = "destination is inside the source, it is skipped while scanning"
	case !exists:
		res.Status = SeverityPass
		res.Message = "destination will be created under " + dir
	default:
		res.Status = SeverityPass
		res.Message = "destination is writable"
	}
	return res
}

// nearestDir returns path or its closest existing ancestor, and whether
// path itself exists.
func nearestDir(path string) (string, bool, error) {
	dir := filepath.Clean(path)
	for first := true; ; first = false {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return "", false, errors.Newf("%s is not a directory", dir)
			}
			return dir, first, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", false, errors.Wrapf(err, "checking %s", dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, errors.Newf("no existing parent for %s", path)
		}
		dir = parent
	}
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".backup-app-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func within(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// SnapshotCheck asks Provider whether the source volume can be snapshotted.
type SnapshotCheck struct {
	Provider snapshot.Provider
	Source   string
}

var _ Check = (*SnapshotCheck)(nil)

// Name returns the unique identifier for this check.
func (c *SnapshotCheck) Name() string { return "snapshot-prerequisites" }

// Category returns the grouping for this check.
func (c *SnapshotCheck) Category() string { return "snapshot" }

// Run executes the check. An unavailable snapshot is a warning: runs fall
// back to reading the live files.
func (c *SnapshotCheck) Run(ctx context.Context) *CheckResult {
	res := &CheckResult{Name: c.Name(), Category: c.Category()}
	volume := snapshot.VolumeOf(c.Source)
	if volume == "" {
		res.Status = SeverityInfo
		res.Message = "source has no drive letter, snapshots are not used"
		return res
	}
	res.Details = map[string]any{"volume": volume}

	provider := c.Provider
	if provider == nil {
		provider = snapshot.Default(logging.FromContext(ctx))
	}
	ok, reason := provider.CheckPrerequisites(ctx, volume)
	res.Message = reason
	if ok {
		res.Status = SeverityPass
		return res
	}
	res.Status = SeverityWarning
	res.FixHint = "run from an elevated prompt with the VSS service running"
	return res
}

// ArchiveCheck reports which of the configured archive kinds have a decoder.
type ArchiveCheck struct {
	Registry *archive.Registry
	Kinds    []string
}

var _ Check = (*ArchiveCheck)(nil)

// Name returns the unique identifier for this check.
func (c *ArchiveCheck) Name() string { return "archive-decoders" }

// Category returns the grouping for this check.
func (c *ArchiveCheck) Category() string { return "archives" }

// Run executes the check.
func (c *ArchiveCheck) Run(context.Context) *CheckResult {
	res := &CheckResult{Name: c.Name(), Category: c.Category()}
	if err := archive.ValidateKinds(c.Kinds); err != nil {
		res.Status = SeverityError
		res.Message = err.Error()
		return res
	}

	kinds := c.Kinds
	if len(kinds) == 0 {
		kinds = archive.KindNames()
	}
	var missing []string
	for _, k := range kinds {
		for _, suffix := range archive.Kinds[strings.ToLower(k)] {
			if !c.Registry.Supports("probe" + suffix) {
				missing = append(missing, suffix)
			}
		}
	}
	res.Details = map[string]any{"kinds": kinds}
	if len(missing) > 0 {
		res.Status = SeverityWarning
		res.Message = "no decoder for " + strings.Join(missing, ", ") + ", those archives are skipped"
		res.Details["missing"] = missing
		return res
	}
	res.Status = SeverityPass
	res.Message = fmt.Sprintf("decoders available for %s", strings.Join(kinds, ", "))
	return res
}
