package watcher

import (
	"context"
	"time"

	"github.com/ritzau/flow-editor/pkg/logging"
)

const (
	DefaultQuietPeriod = 200 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
)

// ReloadFunc is called once per debounced batch of changes
type ReloadFunc func(ctx context.Context) error

// Watch watches path and calls reload after each burst of changes until ctx is done.
// A failing reload is logged and the previous state is kept.
func Watch(ctx context.Context, path string, quietPeriod, maxWait time.Duration, reload ReloadFunc) error {
	fw, err := NewFileWatcher(path)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)

	go func() {
		for event := range debouncer.Output() {
			logging.Info("seed file changed, reloading", "path", path, "events", len(event.Paths))
			if err := reload(ctx); err != nil {
				logging.Warn("reload failed, keeping current graph", "path", path, "error", err)
			}
		}
	}()

	return nil
}
