package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	eventBufferSize        = 64
	defaultDebounceTimeout = 50 * time.Millisecond
)

// Watcher subscribes to recursive filesystem notifications for one
// directory and forwards create, write, remove and rename events.
//
// Events are debounced per path: writing a file produces a burst of
// notifications until the file is fully written, and only the last one
// within the debounce window is forwarded. This adds the window's worth
// of latency to every event.
type Watcher struct {
	watchDir  string
	rawEvents chan notify.EventInfo
	events    chan notify.EventInfo
	done      chan struct{}
	wg        sync.WaitGroup

	pending         map[string]notify.EventInfo
	timers          map[string]*time.Timer
	closed          bool
	debounceMu      sync.Mutex
	debounceTimeout time.Duration
}

func NewWatcher(watchDir string) *Watcher {
	return &Watcher{
		watchDir:        watchDir,
		done:            make(chan struct{}),
		pending:         make(map[string]notify.EventInfo),
		timers:          make(map[string]*time.Timer),
		debounceTimeout: defaultDebounceTimeout,
	}
}

// SetDebounceTimeout overrides the per-path debounce window.
func (w *Watcher) SetDebounceTimeout(timeout time.Duration) {
	w.debounceTimeout = timeout
}

func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("watcher start", "dir", w.watchDir)

	w.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan notify.EventInfo, eventBufferSize)

	recursivePath := w.watchDir + "/..."
	events := notify.Create | notify.Write | notify.Remove | notify.Rename
	if err := notify.Watch(recursivePath, w.rawEvents, events); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.dispatch(ctx)

	return nil
}

// Stop unsubscribes and waits for the dispatch goroutine to drain.
func (w *Watcher) Stop() {
	close(w.done)
	if w.rawEvents != nil {
		notify.Stop(w.rawEvents)
	}
	w.wg.Wait()
	slog.Info("watcher stopped", "dir", w.watchDir)
}

func (w *Watcher) Events() <-chan notify.EventInfo {
	return w.events
}

func (w *Watcher) dispatch(ctx context.Context) {
	defer func() {
		w.shutdown()
		w.wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.rawEvents:
			if !ok {
				return
			}
			w.debounce(event)
		}
	}
}

// debounce resets the per-path timer so only the last event in a burst
// gets forwarded.
func (w *Watcher) debounce(event notify.EventInfo) {
	path := event.Path()

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.pending[path] = event
	w.timers[path] = time.AfterFunc(w.debounceTimeout, func() {
		w.flush(path)
	})
}

// flush sends the pending event for a path. The send happens under
// debounceMu and is gated on the closed flag: a debounce timer may fire
// after dispatch has exited, and shutdown closes the events channel
// under the same lock, so a late flush can never send on a closed
// channel. The send itself is non-blocking, so holding the lock is safe.
func (w *Watcher) flush(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	event, exists := w.pending[path]
	if !exists || w.closed {
		return
	}
	delete(w.pending, path)
	delete(w.timers, path)

	select {
	case w.events <- event:
		slog.Debug("watcher event", "event", event.Event(), "path", path)
	default:
		slog.Warn("watcher dropped event", "reason", "channel full", "path", path)
	}
}

// shutdown stops all debounce timers and closes the events channel.
// Holding debounceMu for both makes the close mutually exclusive with
// any in-flight flush.
func (w *Watcher) shutdown() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
		delete(w.pending, path)
	}
	w.closed = true
	close(w.events)
}
