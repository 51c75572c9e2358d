package location

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies a location backend.
type Kind string

const (
	KindFolder Kind = "folder"
	KindZip    Kind = "zip"
	KindFTP    Kind = "ftp"
	KindS3     Kind = "s3"
)

// Selector is the parsed form of a location selector string. Parsing is
// pure; no I/O happens until New is called.
type Selector struct {
	Kind Kind

	// Path is the local path (folder, zip) or remote directory (ftp) or
	// object key prefix (s3).
	Path string

	// FTP host; credentials are shared with the optional s3 static form.
	Host     string
	User     string
	Password string

	// S3 fields.
	Bucket string
}

// ParseSelector parses a selector string of one of the forms
//
//	folder:<path>
//	zip:<path>
//	ftp:user:pass@host[:port]/dir
//	s3:bucket[/prefix]
//
// It fails fast with ErrInvalidSelector before any I/O is attempted.
func ParseSelector(s string) (*Selector, error) {
	scheme, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSelector, s)
	}

	switch Kind(scheme) {
	case KindFolder:
		return &Selector{Kind: KindFolder, Path: rest}, nil

	case KindZip:
		return &Selector{Kind: KindZip, Path: rest}, nil

	case KindFTP:
		u, err := url.Parse("ftp://" + rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, s, err)
		}
		user := u.User.Username()
		pass, _ := u.User.Password()
		if user == "" || pass == "" || u.Hostname() == "" {
			return nil, fmt.Errorf("%w: ftp selector needs user, password and host", ErrInvalidSelector)
		}
		host := u.Host
		if u.Port() == "" {
			host += ":21"
		}
		return &Selector{
			Kind:     KindFTP,
			Host:     host,
			User:     user,
			Password: pass,
			Path:     strings.TrimPrefix(u.Path, "/"),
		}, nil

	case KindS3:
		sel := &Selector{Kind: KindS3}
		// Optional static credentials: s3:key:secret@bucket/prefix.
		// Without them the default AWS credential chain applies.
		if creds, loc, ok := strings.Cut(rest, "@"); ok {
			key, secret, ok := strings.Cut(creds, ":")
			if !ok || key == "" || secret == "" {
				return nil, fmt.Errorf("%w: s3 credentials must be key:secret", ErrInvalidSelector)
			}
			sel.User, sel.Password = key, secret
			rest = loc
		}
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("%w: s3 selector needs a bucket", ErrInvalidSelector)
		}
		sel.Bucket, sel.Path = bucket, prefix
		return sel, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSelector, scheme)
	}
}

// New constructs and connects the location a selector describes.
// Connection failures are fatal to the caller; there is no way to
// reconcile against an endpoint that cannot be reached.
func New(ctx context.Context, sel *Selector) (Location, error) {
	switch sel.Kind {
	case KindFolder:
		return NewFolder(sel.Path)
	case KindZip:
		return NewZip(sel.Path)
	case KindFTP:
		return DialFTP(ctx, sel)
	case KindS3:
		return NewS3(ctx, sel)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSelector, sel.Kind)
	}
}
