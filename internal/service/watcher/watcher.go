package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"antpi/internal/logger"
	"antpi/internal/model"
	"antpi/internal/service/metadata"
	"antpi/internal/service/storage"
)

// DefaultDebounce is how long a file must stay quiet before it is announced.
const DefaultDebounce = 500 * time.Millisecond

// Publisher receives the images found by the watcher.
type Publisher interface {
	PublishNewImage(filename string, metadata *model.Metadata)
}

// Watcher announces images that other processes drop into the image root.
type Watcher struct {
	store     *storage.Store
	extractor *metadata.Extractor
	publisher Publisher
	debounce  time.Duration
	logger    *logger.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewWatcher(store *storage.Store, extractor *metadata.Extractor, publisher Publisher, debounce time.Duration, logger *logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		store:     store,
		extractor: extractor,
		publisher: publisher,
		debounce:  debounce,
		logger:    logger,
		pending:   make(map[string]time.Time),
	}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.store.ImagesDir()); err != nil {
		return fmt.Errorf("watch %s: %w", w.store.ImagesDir(), err)
	}
	w.logger.Info("Watching %s for new images", w.store.ImagesDir())

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, time.Now())
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warning("Watch error: %v", err)
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// handleEvent records a candidate image; repeated writes push its
// announcement back.
func (w *Watcher) handleEvent(event fsnotify.Event, now time.Time) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !storage.IsImageName(name) {
		return
	}

	w.mu.Lock()
	w.pending[name] = now
	w.mu.Unlock()
}

// flush announces the files that have been quiet for the debounce window
// and returns their names.
func (w *Watcher) flush(now time.Time) []string {
	w.mu.Lock()
	var ready []string
	for name, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, name)
			delete(w.pending, name)
		}
	}
	w.mu.Unlock()

	announced := ready[:0]
	for _, name := range ready {
		if w.store.ConsumeIngested(name) || !w.store.HasImage(name) {
			continue
		}
		md := w.extractor.ExtractFile(w.store.ImagePath(name))
		w.publisher.PublishNewImage(name, &md)
		w.logger.Info("New image found in image directory: %s", name)
		announced = append(announced, name)
	}
	return announced
}
