package location

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// tmpPrefix marks in-flight writes staged by Write; List hides them so
// readers never observe partial content.
const tmpPrefix = ".syncbox-"

// Folder is a local directory endpoint. Only regular files directly in
// the directory are mirrored; subdirectories are ignored. It is the only
// backend that supports live change notifications.
type Folder struct {
	dir string
}

var _ Watchable = (*Folder)(nil)

func NewFolder(dir string) (*Folder, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open folder %s: not a directory", dir)
	}
	return &Folder{dir: dir}, nil
}

func (f *Folder) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (f *Folder) Read(ctx context.Context, name string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return content, nil
}

// Write stages the content in a temp file and renames it into place so a
// concurrent List never observes a half-written file. The mod time is
// stamped on the temp file, before the rename makes it visible.
func (f *Folder) Write(ctx context.Context, name string, content []byte, modTime time.Time) error {
	tmp, err := os.CreateTemp(f.dir, tmpPrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(tmpName, modTime, modTime); err != nil {
			os.Remove(tmpName)
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := os.Rename(tmpName, filepath.Join(f.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (f *Folder) Delete(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (f *Folder) ModTime(ctx context.Context, name string) time.Time {
	info, err := os.Stat(filepath.Join(f.dir, name))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (f *Folder) WatchPath() string {
	return f.dir
}

func (f *Folder) String() string {
	return "folder:" + f.dir
}
