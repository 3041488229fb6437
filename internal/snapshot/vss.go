package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/logging"
)

var (
	shadowIDRe     = regexp.MustCompile(`Shadow Copy ID:\s*(\{[0-9A-Fa-f\-]+\})`)
	shadowVolumeRe = regexp.MustCompile(`Shadow Copy Volume:\s*(\S.*)`)
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// VSSProvider drives the Windows Volume Shadow Copy Service through
// vssadmin, sc and fsutil.
type VSSProvider struct {
	runner   Runner
	elevated func() bool
	goos     string
	logger   *slog.Logger
}

// VSSOption configures a VSSProvider.
type VSSOption func(*VSSProvider)

// WithRunner replaces the command runner.
func WithRunner(r Runner) VSSOption {
	return func(p *VSSProvider) { p.runner = r }
}

// WithElevation replaces the privilege check.
func WithElevation(fn func() bool) VSSOption {
	return func(p *VSSProvider) { p.elevated = fn }
}

// WithGOOS overrides the platform the provider believes it runs on.
func WithGOOS(goos string) VSSOption {
	return func(p *VSSProvider) { p.goos = goos }
}

// WithLogger sets the logger used for command diagnostics.
func WithLogger(l *slog.Logger) VSSOption {
	return func(p *VSSProvider) { p.logger = l }
}

// NewVSSProvider returns a provider that executes the real tools.
func NewVSSProvider(opts ...VSSOption) *VSSProvider {
	p := &VSSProvider{
		runner:   execRunner{},
		elevated: IsElevated,
		goos:     runtime.GOOS,
		logger:   logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *VSSProvider) run(ctx context.Context, name string, args ...string) string {
	out, err := p.runner.Run(ctx, name, args...)
	if err != nil {
		p.logger.Debug("snapshot tool failed", "cmd", name, "args", args, "error", err)
	}
	return string(out)
}

// CheckPrerequisites verifies in order: elevated privileges, a running VSS
// service, volume eligibility and an NTFS file system. The first failing
// check determines the reason.
func (p *VSSProvider) CheckPrerequisites(ctx context.Context, volume string) (bool, string) {
	if p.goos != "windows" {
		return false, "snapshots require Windows (running on " + p.goos + ")"
	}
	if volume == "" {
		return false, "source path has no drive letter"
	}
	if !p.elevated() {
		return false, "administrator privileges required"
	}

	out := p.run(ctx, "sc", "query", "vss")
	switch {
	case !strings.Contains(out, "STATE"):
		return false, "VSS service unavailable"
	case strings.Contains(out, "STOPPED"):
		return false, "VSS service is stopped"
	case !strings.Contains(out, "RUNNING"):
		return false, "VSS service in unknown state"
	}

	out = p.run(ctx, "vssadmin", "list", "volumes")
	if !strings.Contains(strings.ToUpper(out), strings.ToUpper(strings.TrimRight(volume, `\`))) {
		return false, fmt.Sprintf("volume %s is not eligible for shadow copies", volume)
	}

	out = p.run(ctx, "fsutil", "fsinfo", "volumeinfo", volume)
	for line := range strings.Lines(out) {
		if !strings.Contains(line, "File System Name") {
			continue
		}
		_, fs, _ := strings.Cut(line, ":")
		fs = strings.TrimSpace(fs)
		if !strings.EqualFold(fs, "NTFS") {
			return false, fmt.Sprintf("volume %s has unsupported file system %s", volume, fs)
		}
		break
	}

	return true, "VSS ready (elevated, service running, NTFS volume eligible)"
}

// Create runs "vssadmin create shadow" and parses the identifier and device
// path from its output.
func (p *VSSProvider) Create(ctx context.Context, volume string) (*Snapshot, error) {
	if p.goos != "windows" {
		return nil, errors.Wrapf(ErrCreateFailed, "unsupported platform %s", p.goos)
	}
	out := p.run(ctx, "vssadmin", "create", "shadow", "/for="+volume)
	snap, ok := parseCreateOutput(out)
	if !ok {
		return nil, errors.Wrapf(ErrCreateFailed, "vssadmin output: %s", strings.TrimSpace(out))
	}
	snap.Volume = volume
	return snap, nil
}

func parseCreateOutput(out string) (*Snapshot, bool) {
	id := shadowIDRe.FindStringSubmatch(out)
	vol := shadowVolumeRe.FindStringSubmatch(out)
	if id == nil || vol == nil {
		return nil, false
	}
	return &Snapshot{ID: id[1], DevicePath: strings.TrimSpace(vol[1])}, true
}

// Delete runs "vssadmin delete shadows" for snap. Errors are logged at debug.
func (p *VSSProvider) Delete(ctx context.Context, snap *Snapshot) {
	if snap == nil || snap.ID == "" || p.goos != "windows" {
		return
	}
	p.run(ctx, "vssadmin", "delete", "shadows", "/shadow="+snap.ID, "/quiet")
}
