// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package digest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// TimestampLayout renders milliseconds and a numeric zone offset so every
// timestamp has the same width, including UTC ("+00:00", never "Z").
const TimestampLayout = "2006-01-02T15:04:05.000-07:00"

// Field widths derived from the digest and encodings in use.
var (
	TokenLen     = base64.RawURLEncoding.EncodedLen(sha256.Size)
	SealLen      = hex.EncodedLen(sha256.Size)
	TimestampLen = len(time.Unix(0, 0).UTC().Format(TimestampLayout))
)

// Sum returns the SHA-256 digest of the concatenated chunks.
func Sum(chunks ...[]byte) [sha256.Size]byte {
	h := sha256.New()
	for _, c := range chunks {
		_, _ = h.Write(c)
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Frame prefixes s with its length as a 4-byte big-endian integer, so that
// adjacent fields cannot be shifted into each other when concatenated.
func Frame(s string) []byte {
	buf := make([]byte, 0, 4+len(s))
	buf = append(buf, PutUint(uint64(len(s)), 4)...)
	return append(buf, s...)
}

// PutUint encodes n as a big-endian integer exactly width bytes wide.
// High-order bytes that do not fit are dropped.
func PutUint(n uint64, width int) []byte {
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], n)
	if width >= 8 {
		out := make([]byte, width)
		copy(out[width-8:], full[:])
		return out
	}
	out := make([]byte, width)
	copy(out, full[8-width:])
	return out
}

// Token renders a digest as URL-safe base64 without padding.
func Token(sum [sha256.Size]byte) string {
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Hex renders a digest as lowercase hex.
func Hex(sum [sha256.Size]byte) string {
	return hex.EncodeToString(sum[:])
}

// IsToken reports whether s has the shape of a Token.
func IsToken(s string) bool {
	if len(s) != TokenLen {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

// IsHex reports whether s has the shape of a Hex digest.
func IsHex(s string) bool {
	if len(s) != SealLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Equal compares two encoded digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a value produced by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	if len(s) != TimestampLen {
		return time.Time{}, fmt.Errorf("timestamp %q: want %d characters, got %d", s, TimestampLen, len(s))
	}
	return time.Parse(TimestampLayout, s)
}
