package utils

import (
	"crypto/md5"
	"fmt"
)

// Checksum returns the MD5 hex digest of content. It detects content
// drift between endpoints whose clocks or mod times cannot be trusted;
// it is not a security boundary.
func Checksum(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))
}
