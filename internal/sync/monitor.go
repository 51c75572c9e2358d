package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rjeczalik/notify"

	"github.com/openmirror/syncbox/internal/location"
)

// Monitor owns the process's single watch loop. It selects a change
// detection strategy from the pair's capabilities: a polling-only side
// forces the poll-diff strategy with that side as the polled one, while
// a pair of watchable sides shares one event handler across both
// subscriptions. The loop runs until ctx is cancelled.
type Monitor struct {
	a          location.Location
	b          location.Location
	interval   time.Duration
	reconciler *Reconciler
}

func NewMonitor(a, b location.Location, interval time.Duration) *Monitor {
	return &Monitor{
		a:          a,
		b:          b,
		interval:   interval,
		reconciler: NewReconciler(a, b),
	}
}

func (m *Monitor) Run(ctx context.Context) error {
	if polled, other, ok := pickPolled(m.a, m.b); ok {
		return NewPoller(polled, other, m.interval).Run(ctx)
	}
	return m.runWatchers(ctx)
}

// pickPolled returns the side that must be monitored by polling, if any.
// The left operand wins when both sides are polling-only.
func pickPolled(a, b location.Location) (polled, other location.Location, ok bool) {
	if _, isPoll := a.(location.PollOnly); isPoll {
		return a, b, true
	}
	if _, isPoll := b.(location.PollOnly); isPoll {
		return b, a, true
	}
	return nil, nil, false
}

// runWatchers subscribes a watcher to every watchable side and routes all
// events through one shared handler, so both directions are covered.
// Events are handled synchronously on this goroutine; a slow reconcile
// delays later events, which is acceptable for file-change traffic.
func (m *Monitor) runWatchers(ctx context.Context) error {
	var eventsA, eventsB <-chan notify.EventInfo

	if wa, ok := m.a.(location.Watchable); ok {
		w := NewWatcher(wa.WatchPath())
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", m.a, err)
		}
		defer w.Stop()
		eventsA = w.Events()
	}
	if wb, ok := m.b.(location.Watchable); ok {
		w := NewWatcher(wb.WatchPath())
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", m.b, err)
		}
		defer w.Stop()
		eventsB = w.Events()
	}

	if eventsA == nil && eventsB == nil {
		// Neither side can emit or poll for changes (zip against zip).
		// Nothing to monitor; hold the loop until shutdown.
		slog.Warn("no change source for either location", "a", m.a, "b", m.b)
		<-ctx.Done()
		return ctx.Err()
	}

	slog.Info("event monitor start", "a", m.a, "b", m.b)
	for {
		select {
		case <-ctx.Done():
			slog.Info("event monitor stop")
			return ctx.Err()
		case event, ok := <-eventsA:
			if !ok {
				eventsA = nil
				continue
			}
			m.handleEvent(ctx, event)
		case event, ok := <-eventsB:
			if !ok {
				eventsB = nil
				continue
			}
			m.handleEvent(ctx, event)
		}
	}
}

// handleEvent routes one filesystem notification. Creates and writes
// trigger a full pass: the event alone does not say which side is newer,
// so the reconciler re-reads both to decide direction. Removes and
// renames propagate a delete of the base name to both sides instead,
// since a full pass would just copy the file back from the other side.
func (m *Monitor) handleEvent(ctx context.Context, event notify.EventInfo) {
	name := filepath.Base(event.Path())

	switch event.Event() {
	case notify.Remove, notify.Rename:
		slog.Info("file removed", "name", name)
		m.reconciler.PropagateDelete(ctx, name)

	default:
		if info, err := os.Stat(event.Path()); err == nil && info.IsDir() {
			return
		}
		slog.Info("file changed", "name", name)
		err := m.reconciler.Reconcile(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("reconcile", "error", err)
		}
	}
}
