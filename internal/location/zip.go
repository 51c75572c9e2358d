package location

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Zip is a zip-archive endpoint. Every mutation rewrites the archive into
// a sibling temp file and renames it over the original, so readers always
// see either the old or the new archive, never a torn one.
//
// Zip has no change notifications and no periodic listing contract of its
// own; it participates in monitoring only as the passive side of a pair.
type Zip struct {
	path string
}

var _ Location = (*Zip)(nil)

func NewZip(path string) (*Zip, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	r.Close()
	return &Zip{path: path}, nil
}

func (z *Zip) List(ctx context.Context) ([]string, error) {
	r, err := zip.OpenReader(z.path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", z.path, err)
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func (z *Zip) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := zip.OpenReader(z.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("read %s: %w", name, ErrNotFound)
}

func (z *Zip) Write(ctx context.Context, name string, content []byte, modTime time.Time) error {
	if modTime.IsZero() {
		modTime = time.Now()
	}
	err := z.rewrite(func(w *zip.Writer, _ bool) error {
		hdr := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modTime,
		}
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			return err
		}
		_, err = fw.Write(content)
		return err
	}, name)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (z *Zip) Delete(ctx context.Context, name string) error {
	err := z.rewrite(func(_ *zip.Writer, existed bool) error {
		if !existed {
			return ErrNotFound
		}
		return nil
	}, name)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// rewrite copies every entry except skip into a fresh archive, invokes
// finish with whether skip existed, then atomically replaces the archive.
func (z *Zip) rewrite(finish func(w *zip.Writer, existed bool) error, skip string) error {
	r, err := zip.OpenReader(z.path)
	if err != nil {
		return err
	}
	defer r.Close()

	tmp, err := os.CreateTemp(filepath.Dir(z.path), tmpPrefix+"*.zip")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := zip.NewWriter(tmp)
	existed := false
	for _, f := range r.File {
		if f.Name == skip {
			existed = true
			continue
		}
		if err := copyEntry(w, f); err != nil {
			tmp.Close()
			return err
		}
	}

	if err := finish(w, existed); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, z.path)
}

func copyEntry(w *zip.Writer, f *zip.File) error {
	hdr := f.FileHeader
	fw, err := w.CreateHeader(&hdr)
	if err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(fw, rc)
	return err
}

func (z *Zip) ModTime(ctx context.Context, name string) time.Time {
	r, err := zip.OpenReader(z.path)
	if err != nil {
		return time.Time{}
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == name {
			return f.Modified
		}
	}
	return time.Time{}
}

func (z *Zip) String() string {
	return "zip:" + z.path
}
