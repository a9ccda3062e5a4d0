package notes

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lifeos/internal/apperr"
)

// SaveFunc persists the content of one note.
type SaveFunc func(ctx context.Context, noteID, content string) error

// AutoSaver coalesces bursts of edits into one save after a quiet period.
// Each edit replaces the single pending timer; editing a different note
// saves the previous one first. Content dropped with Discard is never
// saved.
type AutoSaver struct {
	delay  time.Duration
	save   SaveFunc
	logger *slog.Logger
	locker sync.Locker

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	noteID  string
	content string
	dirty   bool
}

// NewAutoSaver returns an AutoSaver that calls save once delay has passed
// without further edits.
func NewAutoSaver(delay time.Duration, save SaveFunc, logger *slog.Logger) *AutoSaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoSaver{delay: delay, save: save, logger: logger}
}

// SetLocker makes every save run while holding l. Explicit writes that
// hold l and call Discard are then never overwritten by an older draft.
func (a *AutoSaver) SetLocker(l sync.Locker) {
	a.locker = l
}

// Edit records new content for noteID and restarts the quiet period.
func (a *AutoSaver) Edit(noteID, content string) {
	a.mu.Lock()
	prevID, prevContent := a.noteID, a.content
	switched := a.dirty && prevID != noteID

	a.noteID, a.content, a.dirty = noteID, content, true
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
	a.mu.Unlock()

	if switched {
		a.run(context.Background(), prevID, prevContent, 0)
	}
}

// Pending reports whether noteID has unsaved content.
func (a *AutoSaver) Pending(noteID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty && a.noteID == noteID
}

// Discard drops the pending content of noteID and cancels a save of it
// that has not started writing yet.
func (a *AutoSaver) Discard(noteID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.noteID != noteID {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	a.dirty = false
}

// Dirty reports whether any edit is waiting to be saved.
func (a *AutoSaver) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// Flush cancels the pending timer and saves immediately.
func (a *AutoSaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	id, content, gen := a.noteID, a.content, a.gen
	a.dirty = false
	a.mu.Unlock()

	return a.run(ctx, id, content, gen)
}

// Close flushes pending content.
func (a *AutoSaver) Close(ctx context.Context) error {
	return a.Flush(ctx)
}

func (a *AutoSaver) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || !a.dirty {
		a.mu.Unlock()
		return
	}
	id, content := a.noteID, a.content
	a.dirty = false
	a.timer = nil
	a.mu.Unlock()

	_ = a.run(context.Background(), id, content, gen)
}

// run saves unless the content was superseded while waiting for the
// locker. A failed save marks the content dirty again so a later Flush
// retries it; a note that no longer exists is dropped. A gen of 0 always
// saves.
func (a *AutoSaver) run(ctx context.Context, id, content string, gen uint64) error {
	if a.locker != nil {
		a.locker.Lock()
		defer a.locker.Unlock()
	}
	if gen != 0 && !a.current(gen) {
		return nil
	}
	err := a.save(ctx, id, content)
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		a.logger.Warn("autosave dropped for missing note", slog.String("note", id))
		return nil
	}
	a.logger.Error("autosave failed",
		slog.String("note", id),
		slog.String("error", err.Error()))
	if gen != 0 {
		a.mu.Lock()
		if a.gen == gen && !a.dirty {
			a.noteID, a.content, a.dirty = id, content, true
		}
		a.mu.Unlock()
	}
	return err
}

func (a *AutoSaver) current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen == gen
}
