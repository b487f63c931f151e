// Package checksum derives change-detection fingerprints for library files.
package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint identifies a file revision by size and modification time,
// so unchanged images are never re-read during a sync.
func Fingerprint(size int64, modTime time.Time) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(size))
	binary.BigEndian.PutUint64(buf[8:], uint64(modTime.UnixNano()))
	return Sum(buf[:])
}
