package recipes

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the index from path every time the file changes, until ctx is
// done. Bursts of events (editors write, chmod and rename in quick
// succession) collapse into one reload.
func (idx *Index) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	var (
		timer  *time.Timer
		reload <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(100 * time.Millisecond)
			reload = timer.C
		case <-reload:
			reload = nil
			if err := idx.Load(ctx, path); err == nil {
				log.Printf("[recipes] reloaded %s (%d recipes)", path, idx.Len())
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[recipes] watcher error: %v", err)
		}
	}
}
