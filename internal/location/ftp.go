package location

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
)

const ftpDialTimeout = 10 * time.Second

// FTP is a remote FTP endpoint, scoped to one directory. FTP has no
// change-notification mechanism, so it is always monitored by polling.
// One control connection is held for the process lifetime.
type FTP struct {
	conn *ftp.ServerConn
	host string
	dir  string
}

var _ PollOnly = (*FTP)(nil)

// DialFTP connects and authenticates against the selector's host and
// changes into its directory. Any failure here is fatal to the run.
func DialFTP(ctx context.Context, sel *Selector) (*FTP, error) {
	conn, err := ftp.Dial(sel.Host,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(ftpDialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", sel.Host, err)
	}
	if err := conn.Login(sel.User, sel.Password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp login %s: %w", sel.Host, err)
	}
	if sel.Path != "" {
		if err := conn.ChangeDir(sel.Path); err != nil {
			conn.Quit()
			return nil, fmt.Errorf("ftp cwd %s: %w", sel.Path, err)
		}
	}
	return &FTP{conn: conn, host: sel.Host, dir: sel.Path}, nil
}

func (f *FTP) List(ctx context.Context) ([]string, error) {
	entries, err := f.conn.NameList("")
	if err != nil {
		return nil, fmt.Errorf("ftp list: %w", err)
	}
	// Some servers NLST absolute paths; keep base names only.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, path.Base(e))
	}
	return names, nil
}

func (f *FTP) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := f.conn.Retr(name)
	if err != nil {
		return nil, fmt.Errorf("ftp read %s: %w", name, mapFTPErr(err))
	}
	defer resp.Close()

	content, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("ftp read %s: %w", name, err)
	}
	return content, nil
}

// Write stores the content; modTime is ignored, since plain FTP offers
// no portable way to restamp a file after STOR. Converged-pair detection
// falls back to content comparison for this backend.
func (f *FTP) Write(ctx context.Context, name string, content []byte, modTime time.Time) error {
	if err := f.conn.Stor(name, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("ftp write %s: %w", name, err)
	}
	return nil
}

func (f *FTP) Delete(ctx context.Context, name string) error {
	if err := f.conn.Delete(name); err != nil {
		return fmt.Errorf("ftp delete %s: %w", name, mapFTPErr(err))
	}
	return nil
}

func (f *FTP) ModTime(ctx context.Context, name string) time.Time {
	t, err := f.conn.GetTime(name)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Close quits the control connection.
func (f *FTP) Close() error {
	return f.conn.Quit()
}

func (f *FTP) PollOnly() {}

func (f *FTP) String() string {
	if f.dir != "" {
		return "ftp:" + f.host + "/" + f.dir
	}
	return "ftp:" + f.host
}

// mapFTPErr turns a 550 reply (file unavailable) into ErrNotFound.
func mapFTPErr(err error) error {
	var proto *textproto.Error
	if errors.As(err, &proto) && proto.Code == ftp.StatusFileUnavailable {
		return ErrNotFound
	}
	return err
}
