package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/openmirror/syncbox/internal/location"
)

// memLocation is an in-memory Location with per-file failure injection.
type memLocation struct {
	name       string
	files      map[string]memFile
	writeErr   map[string]error
	readErr    map[string]error
	writeCount int
}

type memFile struct {
	content []byte
	modTime time.Time
}

func newMemLocation(name string) *memLocation {
	return &memLocation{
		name:     name,
		files:    make(map[string]memFile),
		writeErr: make(map[string]error),
		readErr:  make(map[string]error),
	}
}

func (m *memLocation) put(name string, content string, modTime time.Time) {
	m.files[name] = memFile{content: []byte(content), modTime: modTime}
}

func (m *memLocation) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	return names, nil
}

func (m *memLocation) Read(ctx context.Context, name string) ([]byte, error) {
	if err := m.readErr[name]; err != nil {
		return nil, err
	}
	f, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, location.ErrNotFound)
	}
	return f.content, nil
}

func (m *memLocation) Write(ctx context.Context, name string, content []byte, modTime time.Time) error {
	if err := m.writeErr[name]; err != nil {
		return err
	}
	if modTime.IsZero() {
		modTime = time.Now()
	}
	m.files[name] = memFile{content: content, modTime: modTime}
	m.writeCount++
	return nil
}

func (m *memLocation) Delete(ctx context.Context, name string) error {
	if _, ok := m.files[name]; !ok {
		return fmt.Errorf("delete %s: %w", name, location.ErrNotFound)
	}
	delete(m.files, name)
	return nil
}

func (m *memLocation) ModTime(ctx context.Context, name string) time.Time {
	return m.files[name].modTime
}

func (m *memLocation) String() string {
	return "mem:" + m.name
}

// pollOnlyLocation marks a memLocation as polling-only for dispatcher tests.
type pollOnlyLocation struct {
	*memLocation
}

func (p *pollOnlyLocation) PollOnly() {}

// watchableLocation marks a memLocation as watchable for dispatcher tests.
type watchableLocation struct {
	*memLocation
	dir string
}

func (w *watchableLocation) WatchPath() string { return w.dir }
