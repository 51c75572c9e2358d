package location

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound signals that a named file does not exist at a location.
	// Callers racing against deletes treat it as non-fatal.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidSelector signals a malformed location selector string.
	ErrInvalidSelector = errors.New("invalid location selector")
)

// Location is a uniform handle to one storage endpoint. File names are
// flat unique strings within a location; any path semantics live in the
// name itself.
type Location interface {
	// List returns a snapshot of the file names currently present.
	List(ctx context.Context) ([]string, error)

	// Read returns the full content of a file, or ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write creates or overwrites a file, stamping modTime as its
	// modification time when the backend supports it, so copies land
	// with the source's time and a converged pair stays converged. A
	// zero modTime means "now". A partially written file must never
	// become visible to List.
	Write(ctx context.Context, name string, content []byte, modTime time.Time) error

	// Delete removes a file, returning ErrNotFound if it is absent.
	Delete(ctx context.Context, name string) error

	// ModTime returns the file's modification time, or the zero time if
	// it cannot be determined. A zero time always loses comparisons
	// against any real timestamp and ties against another zero time.
	ModTime(ctx context.Context, name string) time.Time

	// String renders the location for logs with credentials redacted.
	String() string
}

// Watchable is implemented by locations that can emit live filesystem
// notifications for their contents.
type Watchable interface {
	Location

	// WatchPath returns the local path to subscribe for notifications.
	WatchPath() string
}

// PollOnly marks locations that expose no change notifications and must
// be monitored by periodic listing.
type PollOnly interface {
	Location

	PollOnly()
}
