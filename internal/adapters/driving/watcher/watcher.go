// Package watcher indexes PDF attachments dropped into a watched
// directory. Files must be named <note-id>.pdf; the note id links the
// attachment to its note.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keepstack/keepstack/internal/core/ports/driving"
	"github.com/keepstack/keepstack/internal/logger"
)

// defaultSettle is how long a file must be quiet before it is read.
// Editors and download managers write PDFs in several bursts.
const defaultSettle = 500 * time.Millisecond

// Watcher turns filesystem events in the attachments directory into
// attachment reindex calls.
type Watcher struct {
	indexer driving.IndexOrchestrator
	dir     string
	settle  time.Duration

	fw   *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher for dir. Start must be called to begin watching.
func New(indexer driving.IndexOrchestrator, dir string) *Watcher {
	return &Watcher{
		indexer: indexer,
		dir:     dir,
		settle:  defaultSettle,
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}
}

// Start begins watching the attachments directory, creating it first if
// needed. Events are handled on a background goroutine until Stop.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0700); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}
	w.fw = fw

	w.wg.Add(1)
	go w.loop()

	logger.Info("Watching %s for PDF attachments", w.dir)
	return nil
}

// Stop ends watching and waits for in-flight indexing to finish.
func (w *Watcher) Stop() {
	close(w.done)
	if w.fw != nil {
		w.fw.Close()
	}

	w.mu.Lock()
	for path, timer := range w.timers {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// loop dispatches filesystem events until the watcher closes.
func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("Attachment watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// handleEvent arms the settle timer for a freshly written PDF. Repeated
// writes to the same file restart the timer, so the file is only read
// once it has been quiet for the full settle period.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !isAttachment(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	path := event.Name
	if timer, ok := w.timers[path]; ok && timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timers[path] = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.process(path)
	})
}

// process reads the settled file and indexes it under its note.
func (w *Watcher) process(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	w.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Read attachment %s: %v", path, err)
		return
	}

	filename := filepath.Base(path)
	noteID := strings.TrimSuffix(filename, filepath.Ext(filename))

	if err := w.indexer.ReindexAttachment(context.Background(), noteID, data, filename); err != nil {
		logger.Warn("Index attachment %s: %v", filename, err)
		return
	}
	logger.Info("Indexed dropped attachment %s for note %s", filename, noteID)
}

// isAttachment reports whether the path names a visible PDF file.
func isAttachment(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".pdf")
}
