package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	// Stable digest, not just self-consistency.
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", Checksum([]byte("hello world")))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Checksum(nil))

	assert.NotEqual(t, Checksum([]byte("abc")), Checksum([]byte("def")))
}
