package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/openmirror/syncbox/internal/location"
	"github.com/openmirror/syncbox/internal/utils"
)

// DefaultPollInterval is how often a polling-only endpoint is re-listed
// unless overridden.
const DefaultPollInterval = 10 * time.Second

// Poller monitors a polling-only location by re-listing it on a fixed
// interval and diffing against the previous listing. Adds are copied to
// the other side, removals are deleted from the other side, and common
// files are compared by content checksum because polled endpoints may
// under-report modification times.
//
// Known asymmetry, kept deliberately: on a checksum mismatch the polled
// side always wins. A change made only on the non-polled side within a
// poll window is therefore overwritten on the next tick unless that side
// has its own change source.
type Poller struct {
	polled   location.Location
	other    location.Location
	interval time.Duration
	previous mapset.Set[string]
}

func NewPoller(polled, other location.Location, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		polled:   polled,
		other:    other,
		interval: interval,
	}
}

// Run seeds the baseline listing and ticks until ctx is cancelled. A timer
// rather than a ticker, so a slow tick never queues another behind it.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("poll monitor start", "polled", p.polled, "other", p.other, "interval", p.interval)

	names, err := p.polled.List(ctx)
	if err != nil {
		return fmt.Errorf("seed listing %s: %w", p.polled, err)
	}
	p.previous = mapset.NewThreadUnsafeSet(names...)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("poll monitor stop")
			return ctx.Err()
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.interval)
		}
	}
}

// tick performs one list-and-diff round. Listing failure skips the round
// and keeps the previous baseline; per-file failures are logged and the
// round continues.
func (p *Poller) tick(ctx context.Context) {
	names, err := p.polled.List(ctx)
	if err != nil {
		slog.Error("poll list", "location", p.polled, "error", err)
		return
	}
	current := mapset.NewThreadUnsafeSet(names...)

	for _, name := range current.Difference(p.previous).ToSlice() {
		slog.Info("poll: new file", "name", name)
		if err := copyFile(ctx, p.polled, p.other, name); err != nil {
			slog.Error("poll copy", "name", name, "error", err)
		}
	}

	for _, name := range p.previous.Difference(current).ToSlice() {
		slog.Info("poll: file removed", "name", name)
		err := p.other.Delete(ctx, name)
		if err != nil && !errors.Is(err, location.ErrNotFound) {
			slog.Error("poll delete", "name", name, "error", err)
		}
	}

	for _, name := range current.Intersect(p.previous).ToSlice() {
		p.compareCommon(ctx, name)
	}

	p.previous = current
}

// compareCommon overwrites the other side when content checksums diverge.
func (p *Poller) compareCommon(ctx context.Context, name string) {
	polledContent, err := p.polled.Read(ctx, name)
	if err != nil {
		slog.Error("poll read", "name", name, "location", p.polled, "error", err)
		return
	}
	otherContent, err := p.other.Read(ctx, name)
	if err != nil {
		slog.Error("poll read", "name", name, "location", p.other, "error", err)
		return
	}

	if utils.Checksum(polledContent) == utils.Checksum(otherContent) {
		return
	}

	slog.Info("poll: file modified", "name", name)
	if err := p.other.Write(ctx, name, polledContent, p.polled.ModTime(ctx, name)); err != nil {
		slog.Error("poll write", "name", name, "error", err)
	}
}
