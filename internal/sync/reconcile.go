package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"

	"github.com/openmirror/syncbox/internal/location"
	"github.com/openmirror/syncbox/internal/utils"
)

// direction is the outcome of comparing one file name across both sides.
type direction int

const (
	copyNone direction = iota
	copyAToB
	copyBToA
)

// decide picks the copy direction for one name from presence and
// modification times alone. The newer side wins; ties (including two
// unreadable timestamps) converge to no-op. A missing side is always
// treated as not-yet-created, never as deleted: a snapshot comparison
// cannot tell the two apart, so deletions propagate only through explicit
// change events.
func decide(inA, inB bool, tA, tB time.Time) direction {
	switch {
	case inA && !inB:
		return copyAToB
	case inB && !inA:
		return copyBToA
	case tA.After(tB):
		return copyAToB
	case tB.After(tA):
		return copyBToA
	default:
		return copyNone
	}
}

// Reconciler converges two locations with a full bidirectional pass.
type Reconciler struct {
	a location.Location
	b location.Location
}

func NewReconciler(a, b location.Location) *Reconciler {
	return &Reconciler{a: a, b: b}
}

// Reconcile runs one full pass over the union of both file sets. Failures
// on individual files are logged and skipped so the rest of the pass still
// converges; only a failed listing aborts, since without both snapshots no
// decision is sound. The pass is idempotent: re-running it on a converged
// pair copies nothing.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	filesA, err := r.a.List(ctx)
	if err != nil {
		return fmt.Errorf("list %s: %w", r.a, err)
	}
	filesB, err := r.b.List(ctx)
	if err != nil {
		return fmt.Errorf("list %s: %w", r.b, err)
	}

	setA := mapset.NewThreadUnsafeSet(filesA...)
	setB := mapset.NewThreadUnsafeSet(filesB...)
	all := setA.Union(setB)

	var copied, failed int
	for _, name := range all.ToSlice() {
		if err := ctx.Err(); err != nil {
			return err
		}

		inA, inB := setA.Contains(name), setB.Contains(name)
		var tA, tB time.Time
		if inA && inB {
			tA = r.a.ModTime(ctx, name)
			tB = r.b.ModTime(ctx, name)
		}

		var err error
		var wrote bool
		switch decide(inA, inB, tA, tB) {
		case copyAToB:
			wrote, err = copyChanged(ctx, r.a, r.b, name, inB)
		case copyBToA:
			wrote, err = copyChanged(ctx, r.b, r.a, name, inA)
		default:
			continue
		}

		if err != nil {
			failed++
			slog.Error("reconcile file", "name", name, "error", err)
			continue
		}
		if wrote {
			copied++
		}
	}

	slog.Info("reconcile pass", "total", all.Cardinality(), "copied", copied, "failed", failed)
	return nil
}

// PropagateDelete removes name from both locations, tolerating absence on
// either side. This is the only path by which deletions spread; the full
// pass never infers them.
func (r *Reconciler) PropagateDelete(ctx context.Context, name string) {
	for _, loc := range []location.Location{r.a, r.b} {
		err := loc.Delete(ctx, name)
		switch {
		case err == nil:
			slog.Info("delete propagated", "name", name, "to", loc)
		case errors.Is(err, location.ErrNotFound):
			// Already gone on this side.
		default:
			slog.Error("delete", "name", name, "to", loc, "error", err)
		}
	}
}

// copyFile copies name from src to dst, carrying the source's mod time
// so the copy lands tied with its origin where the backend allows.
func copyFile(ctx context.Context, src, dst location.Location, name string) error {
	content, err := src.Read(ctx, name)
	if err != nil {
		return err
	}
	return writeCopy(ctx, src, dst, name, content)
}

// copyChanged is copyFile with an identical-content short circuit for
// destinations that already hold the file. Backends that cannot restamp
// mod times (ftp, s3) leave copies with skewed timestamps; without the
// content check every later pass would re-copy the same bytes, and in
// the event-driven monitor each re-copy would fire a watcher event that
// triggers yet another pass.
func copyChanged(ctx context.Context, src, dst location.Location, name string, dstHas bool) (bool, error) {
	content, err := src.Read(ctx, name)
	if err != nil {
		return false, err
	}
	if dstHas {
		existing, err := dst.Read(ctx, name)
		if err == nil && utils.Checksum(existing) == utils.Checksum(content) {
			return false, nil
		}
	}
	if err := writeCopy(ctx, src, dst, name, content); err != nil {
		return false, err
	}
	return true, nil
}

func writeCopy(ctx context.Context, src, dst location.Location, name string, content []byte) error {
	if err := dst.Write(ctx, name, content, src.ModTime(ctx, name)); err != nil {
		return err
	}
	slog.Info("copied", "name", name, "from", src, "to", dst, "size", humanize.Bytes(uint64(len(content))))
	return nil
}
