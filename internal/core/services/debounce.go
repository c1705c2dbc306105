package services

import (
	"context"
	"sync"
	"time"

	"github.com/keepstack/keepstack/internal/core/ports/driving"
	"github.com/keepstack/keepstack/internal/logger"
)

// Ensure DebounceScheduler implements the interface.
var _ driving.ReindexScheduler = (*DebounceScheduler)(nil)

// DebounceScheduler coalesces rapid note edits into a single reindex.
// Each Schedule call restarts the note's timer; the reindex fires only
// after the note has been quiet for the full wait period. The indexer
// re-reads the note at fire time, so the coalesced run always sees the
// latest content.
type DebounceScheduler struct {
	indexer driving.IndexOrchestrator
	wait    time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewDebounceScheduler creates a scheduler that fires wait after the
// last Schedule call for a note.
func NewDebounceScheduler(indexer driving.IndexOrchestrator, wait time.Duration) *DebounceScheduler {
	return &DebounceScheduler{
		indexer: indexer,
		wait:    wait,
		timers:  make(map[string]*time.Timer),
	}
}

// Schedule arms the debounce timer for a note, replacing any timer
// already pending for it.
func (s *DebounceScheduler) Schedule(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if timer, ok := s.timers[noteID]; ok {
		// A successful Stop means the old callback never runs and never
		// calls Done itself.
		if timer.Stop() {
			s.wg.Done()
		}
		logger.Debug("Debounce: reset timer for note %s", noteID)
	} else {
		logger.Debug("Debounce: armed timer for note %s", noteID)
	}

	s.wg.Add(1)
	s.timers[noteID] = time.AfterFunc(s.wait, func() {
		defer s.wg.Done()
		s.fire(noteID)
	})
}

// Cancel drops the pending timer for a note, if any.
func (s *DebounceScheduler) Cancel(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[noteID]; ok {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, noteID)
		logger.Debug("Debounce: cancelled timer for note %s", noteID)
	}
}

// Stop cancels all pending timers and waits for in-flight reindexes to
// finish. The scheduler accepts no further work afterwards.
func (s *DebounceScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for noteID, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, noteID)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// fire runs the reindex for a note once its quiet period elapsed.
func (s *DebounceScheduler) fire(noteID string) {
	s.mu.Lock()
	delete(s.timers, noteID)
	s.mu.Unlock()

	if err := s.indexer.ReindexNote(context.Background(), noteID); err != nil {
		logger.Warn("Debounced reindex of note %s failed: %v", noteID, err)
	}
}
