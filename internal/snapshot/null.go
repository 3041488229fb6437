package snapshot

import (
	"context"
	"runtime"

	"github.com/vhugoxx/backup-app/internal/errors"
)

// NullProvider never takes snapshots. It stands in on platforms without a
// volume shadow copy service.
type NullProvider struct {
	// Reason overrides the default unavailability message.
	Reason string
}

func (n NullProvider) reason() string {
	if n.Reason != "" {
		return n.Reason
	}
	return "snapshots are not supported on " + runtime.GOOS
}

// CheckPrerequisites always reports unavailability.
func (n NullProvider) CheckPrerequisites(context.Context, string) (bool, string) {
	return false, n.reason()
}

// Create always fails with ErrCreateFailed.
func (n NullProvider) Create(context.Context, string) (*Snapshot, error) {
	return nil, errors.Wrap(ErrCreateFailed, n.reason())
}

// Delete does nothing.
func (NullProvider) Delete(context.Context, *Snapshot) {}
