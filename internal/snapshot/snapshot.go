// Package snapshot creates point-in-time copies of a source volume so a
// backup can read files consistently while they change.
//
// Snapshots are best effort. A Provider reports why a snapshot cannot be
// taken instead of failing the run, and Delete never returns an error.
package snapshot

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/vhugoxx/backup-app/internal/errors"
)

// ErrCreateFailed is returned when the snapshot tool did not report both an
// identifier and a device path.
var ErrCreateFailed = errors.New("snapshot creation failed")

// Snapshot is a live read-only image of Volume exposed at DevicePath.
type Snapshot struct {
	ID         string `json:"id"`
	DevicePath string `json:"device_path"`
	Volume     string `json:"volume"`
}

// Translate maps a path on the live volume onto the snapshot device.
// Paths on other volumes are returned unchanged.
func (s *Snapshot) Translate(path string) string {
	if s == nil || s.Volume == "" || s.DevicePath == "" {
		return path
	}
	if len(path) < len(s.Volume) || !strings.EqualFold(path[:len(s.Volume)], s.Volume) {
		return path
	}
	rest := strings.TrimLeft(path[len(s.Volume):], `\/`)
	device := strings.TrimRight(s.DevicePath, `\/`)
	if rest == "" {
		return device + `\`
	}
	return device + `\` + rest
}

// Provider creates and deletes snapshots of a volume.
type Provider interface {
	// CheckPrerequisites reports whether a snapshot of volume can be taken,
	// with a human readable reason either way.
	CheckPrerequisites(ctx context.Context, volume string) (bool, string)

	// Create takes a snapshot of volume.
	Create(ctx context.Context, volume string) (*Snapshot, error)

	// Delete releases snap. A nil snapshot is a no-op and failures are not
	// reported to the caller.
	Delete(ctx context.Context, snap *Snapshot)
}

// Default returns the provider for the running platform. Command
// diagnostics go to logger at debug level; a nil logger discards them.
func Default(logger *slog.Logger) Provider {
	if runtime.GOOS == "windows" {
		if logger == nil {
			return NewVSSProvider()
		}
		return NewVSSProvider(WithLogger(logger))
	}
	return NullProvider{}
}

// VolumeOf returns the drive designator ("D:") of a Windows style path, or
// "" when the path carries none.
func VolumeOf(path string) string {
	if len(path) < 2 || path[1] != ':' {
		return ""
	}
	c := path[0]
	if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
		return ""
	}
	return strings.ToUpper(path[:2])
}
