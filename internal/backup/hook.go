package backup

import (
	"log/slog"
	"sync"
)

// hooks serializes and guards the caller supplied callbacks. A panicking
// callback is logged at debug level and otherwise ignored.
type hooks struct {
	mu       sync.Mutex
	progress func(int)
	log      func(string)
	cancel   func() bool
	logger   *slog.Logger
}

func (h *hooks) guard(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Debug("callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}

// tick reports n processed files.
func (h *hooks) tick(n int) {
	if h.progress == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.guard("progress", func() { h.progress(n) })
}

// line emits one human readable log line.
func (h *hooks) line(msg string) {
	if h.log == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.guard("log", func() { h.log(msg) })
}

// cancelled polls the cancellation predicate. A panicking predicate counts
// as not cancelled.
func (h *hooks) cancelled() (stop bool) {
	if h.cancel == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.guard("cancel", func() { stop = h.cancel() })
	return stop
}
