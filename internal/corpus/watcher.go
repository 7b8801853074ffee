package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher re-ingests corpus files when they are created or written and drops
// their entries when they are removed.
type Watcher struct {
	ingestor  *Ingestor
	watcher   *fsnotify.Watcher
	entryType string
	debounce  time.Duration
}

func NewWatcher(ingestor *Ingestor, entryType string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		ingestor:  ingestor,
		watcher:   w,
		entryType: entryType,
		debounce:  defaultDebounce,
	}, nil
}

// Run watches dir until ctx is done. Editors emit bursts of writes for one
// save, so each path is ingested once its events have been quiet for the
// debounce interval.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Msg("Watching corpus directory")

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
		wg     sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
	}()

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, exists := timers[path]; exists && t.Stop() {
			t.Reset(w.debounce)
			return
		}
		wg.Add(1)
		var t *time.Timer
		t = time.AfterFunc(w.debounce, func() {
			defer wg.Done()
			mu.Lock()
			if timers[path] == t {
				delete(timers, path)
			}
			mu.Unlock()
			w.ingest(ctx, path)
		})
		timers[path] = t
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !IsCorpusFile(event.Name) || !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Corpus watcher error")
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := w.ingestor.RemoveSource(ctx, filepath.Base(path)); err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to remove corpus file entries")
		}
		return
	}
	if _, err := w.ingestor.IngestFile(ctx, path, w.entryType); err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to ingest corpus file")
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
