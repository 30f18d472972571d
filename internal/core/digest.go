package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Ordering is the verdict of DigestCompare.
type Ordering int

const (
	ALess    Ordering = -1
	Equal    Ordering = 0
	AGreater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case ALess:
		return "less"
	case Equal:
		return "equal"
	case AGreater:
		return "greater"
	}
	return "unknown"
}

// DigestCompare hashes both blobs and compares the sums byte by byte.
// Equal means the blobs are identical.
func DigestCompare(a, b []byte) Ordering {
	sumA := sha256.Sum256(a)
	sumB := sha256.Sum256(b)
	return Ordering(bytes.Compare(sumA[:], sumB[:]))
}

// Fingerprint returns the hex encoded digest of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
