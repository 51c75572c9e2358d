package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectorFolder(t *testing.T) {
	sel, err := ParseSelector("folder:/data/left")
	require.NoError(t, err)
	assert.Equal(t, KindFolder, sel.Kind)
	assert.Equal(t, "/data/left", sel.Path)
}

func TestParseSelectorZip(t *testing.T) {
	sel, err := ParseSelector("zip:/backups/archive.zip")
	require.NoError(t, err)
	assert.Equal(t, KindZip, sel.Kind)
	assert.Equal(t, "/backups/archive.zip", sel.Path)
}

func TestParseSelectorFTP(t *testing.T) {
	sel, err := ParseSelector("ftp:alice:s3cret@files.example.com/pub/docs")
	require.NoError(t, err)
	assert.Equal(t, KindFTP, sel.Kind)
	assert.Equal(t, "files.example.com:21", sel.Host)
	assert.Equal(t, "alice", sel.User)
	assert.Equal(t, "s3cret", sel.Password)
	assert.Equal(t, "pub/docs", sel.Path)
}

func TestParseSelectorFTPCustomPort(t *testing.T) {
	sel, err := ParseSelector("ftp:bob:pw@host.local:2121/")
	require.NoError(t, err)
	assert.Equal(t, "host.local:2121", sel.Host)
	assert.Equal(t, "", sel.Path)
}

func TestParseSelectorS3(t *testing.T) {
	sel, err := ParseSelector("s3:my-bucket/some/prefix")
	require.NoError(t, err)
	assert.Equal(t, KindS3, sel.Kind)
	assert.Equal(t, "my-bucket", sel.Bucket)
	assert.Equal(t, "some/prefix", sel.Path)
	assert.Empty(t, sel.User)
}

func TestParseSelectorS3StaticCreds(t *testing.T) {
	sel, err := ParseSelector("s3:AKID:secret@my-bucket")
	require.NoError(t, err)
	assert.Equal(t, "AKID", sel.User)
	assert.Equal(t, "secret", sel.Password)
	assert.Equal(t, "my-bucket", sel.Bucket)
	assert.Empty(t, sel.Path)
}

func TestParseSelectorInvalid(t *testing.T) {
	tests := []struct {
		name     string
		selector string
	}{
		{"empty", ""},
		{"no scheme", "/just/a/path"},
		{"unknown scheme", "nfs:/exports/data"},
		{"empty payload", "folder:"},
		{"ftp missing credentials", "ftp:files.example.com/docs"},
		{"ftp missing password", "ftp:alice@files.example.com"},
		{"s3 missing bucket", "s3:/prefix-only"},
		{"s3 malformed credentials", "s3:keyonly@bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSelector(tt.selector)
			assert.ErrorIs(t, err, ErrInvalidSelector)
		})
	}
}
