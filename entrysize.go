package tpgo

import (
	"fmt"
	"strconv"
)

// EntrySize is the fixed payload length of every entry in a queue.
// Only the Bytes* constants are valid.
type EntrySize int

// Entry sizes supported by every engine.
const (
	Bytes8    EntrySize = 8
	Bytes16   EntrySize = 16
	Bytes32   EntrySize = 32
	Bytes64   EntrySize = 64
	Bytes128  EntrySize = 128
	Bytes256  EntrySize = 256
	Bytes512  EntrySize = 512
	Bytes1024 EntrySize = 1024
)

var entrySizes = [...]EntrySize{Bytes8, Bytes16, Bytes32, Bytes64, Bytes128, Bytes256, Bytes512, Bytes1024}

// Sizes returns every entry size in increasing order.
func Sizes() []EntrySize {
	return entrySizes[:]
}

// MaxEntrySize is the largest entry size.
const MaxEntrySize = Bytes1024

// NumBytes returns the payload length in bytes.
func (s EntrySize) NumBytes() int {
	return int(s)
}

// Valid reports whether s is one of the supported entry sizes.
func (s EntrySize) Valid() bool {
	for _, v := range entrySizes {
		if v == s {
			return true
		}
	}
	return false
}

// String returns the constant name, e.g. "Bytes64".
func (s EntrySize) String() string {
	if !s.Valid() {
		return "EntrySize(" + strconv.Itoa(int(s)) + ")"
	}
	return "Bytes" + strconv.Itoa(int(s))
}

// Classify returns the smallest entry size that holds n bytes.
// It fails with ErrNoFittingSizeClass if n exceeds MaxEntrySize.
// Non-positive n classifies as Bytes8.
func Classify(n int) (EntrySize, error) {
	for _, s := range entrySizes {
		if int(s) >= n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %d bytes (max %d)", ErrNoFittingSizeClass, n, MaxEntrySize)
}

// ParseEntrySize parses a byte count ("64") or a constant name ("Bytes64")
// and requires it to be an exact entry size.
func ParseEntrySize(s string) (EntrySize, error) {
	raw := s
	if len(s) > 5 && s[:5] == "Bytes" {
		raw = s[5:]
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("tpgo: entry size %q: %w", s, err)
	}
	if es := EntrySize(n); es.Valid() {
		return es, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedEntrySize, s)
}
