package rate

import (
	"context"
	"time"

	"github.com/stockroomlabs/credcore/kv"
)

// WindowConfig tunes a fixed-window request limiter.
type WindowConfig struct {
	MaxRequests int
	Window      time.Duration
}

// Window throttles password-reset requests per email. The first request in
// a window starts its clock; the counter expires with the window.
type Window struct {
	store  kv.Store
	config WindowConfig
}

func NewWindow(store kv.Store, cfg WindowConfig) *Window {
	return &Window{store: store, config: cfg}
}

// Allow records one request for key and reports whether it fits the budget.
// Requests beyond the budget are still counted but rejected; the window
// expires on the schedule set by its first request.
func (w *Window) Allow(ctx context.Context, key string) (bool, error) {
	count, err := w.store.Incr(ctx, "reset:window:"+key, w.config.Window)
	if err != nil {
		return false, err
	}
	return count <= int64(w.config.MaxRequests), nil
}
