package playbook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the burst of events editors emit per save.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads the playbook seed file on change. Each settled change
// becomes a new version with a rebuilt index.
type Watcher struct {
	manager  *Manager
	seedPath string
	logger   *zap.Logger
}

func NewWatcher(manager *Manager, seedPath string, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{manager: manager, seedPath: seedPath, logger: logger}
}

// Run watches the seed file until ctx is done. The parent directory is
// watched rather than the file itself, so atomic-rename saves keep
// working.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsWatcher.Close()

	dir := filepath.Dir(w.seedPath)
	if err := fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching playbook seed file", zap.String("path", w.seedPath))

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.seedPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(watchDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			w.reload(ctx)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	content, err := os.ReadFile(w.seedPath)
	if err != nil {
		w.logger.Warn("failed to read changed seed file", zap.Error(err))
		return
	}
	version, err := w.manager.Update(ctx, string(content), "Seed file changed on disk")
	if err != nil {
		w.logger.Error("failed to version changed seed file", zap.Error(err))
		return
	}
	w.logger.Info("playbook reloaded from seed file",
		zap.String("version_id", version.ID),
		zap.String("version_label", version.VersionLabel))
}
