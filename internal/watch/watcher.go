// Package watch turns filesystem changes to a page source into structural
// change notifications, standing in for a DOM mutation observer when the
// page under analysis is a file on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguide/pkg/bus"
)

// Watcher publishes a page-mutated event whenever the watched file is
// rewritten.
type Watcher struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// New builds a Watcher. A nil logger is replaced with a nop.
func New(b *bus.Bus, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{bus: b, logger: logger}
}

// Watch blocks until ctx is done, publishing bus.TopicPageMutated on every
// write or create affecting path. Editors often replace files instead of
// writing in place, so the parent directory is watched and events filtered.
func (w *Watcher) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}

	w.logger.Info("watching page source", zap.String("path", abs))
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Name != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("page source changed", zap.String("op", event.Op.String()))
			if err := w.bus.Publish(bus.TopicPageMutated, []byte(abs)); err != nil {
				w.logger.Warn("publish mutation event", zap.Error(err))
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
