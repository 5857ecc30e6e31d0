package litetable

import (
	"bytes"
)

// MaxNameLength is the longest row or column name the store accepts. Bounding names is what
// makes every name (except the last one) have an exact successor and predecessor.
const MaxNameLength = 1500

var (
	firstRowName = []byte{0x00}
	lastRowName  = bytes.Repeat([]byte{0xff}, MaxNameLength)
)

// Compare orders names byte-by-byte, unsigned. It is the only ordering used for rows and
// columns anywhere in the engine.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// MaxName returns the larger of two names. A nil name loses to any other name.
func MaxName(a, b []byte) []byte {
	if a == nil {
		return b
	}
	if b == nil || Compare(a, b) >= 0 {
		return a
	}
	return b
}

// MinName returns the smaller of two names. A nil name loses to any other name.
func MinName(a, b []byte) []byte {
	if a == nil {
		return b
	}
	if b == nil || Compare(a, b) <= 0 {
		return a
	}
	return b
}

// FirstRowName is the smallest non-empty row name.
func FirstRowName() []byte {
	return clone(firstRowName)
}

// LastRowName is the largest row name the store can hold.
func LastRowName() []byte {
	return clone(lastRowName)
}

// IsFirstRowName reports whether name is the smallest non-empty row name.
func IsFirstRowName(name []byte) bool {
	return bytes.Equal(name, firstRowName)
}

// IsLastRowName reports whether name is the largest row name.
func IsLastRowName(name []byte) bool {
	return bytes.Equal(name, lastRowName)
}

// IsTerminalRow reports whether no row can exist beyond row in the scan direction.
func IsTerminalRow(reverse bool, row []byte) bool {
	if reverse {
		return IsFirstRowName(row)
	}
	return IsLastRowName(row)
}

// ValidateName checks the length bounds for a row or column name.
func ValidateName(name []byte) error {
	if len(name) == 0 {
		return newError(ErrInvalidName, "name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return newError(ErrInvalidName, "name is %d bytes, max is %d", len(name), MaxNameLength)
	}
	return nil
}

// NextLexicographicName returns the smallest name strictly greater than name.
//
// Names shorter than MaxNameLength get a 0x00 appended. A name of maximum length cannot be
// extended, so its trailing 0xFF bytes are dropped and the last remaining byte is incremented.
// The last row name has no successor and returns nil.
func NextLexicographicName(name []byte) []byte {
	if len(name) < MaxNameLength {
		next := make([]byte, len(name)+1)
		copy(next, name)
		return next
	}

	i := MaxNameLength - 1
	for i >= 0 && name[i] == 0xff {
		i--
	}
	if i < 0 {
		return nil
	}

	next := make([]byte, i+1)
	copy(next, name[:i+1])
	next[i]++
	return next
}

// PreviousLexicographicName returns the largest name strictly smaller than name.
//
// A trailing 0x00 is dropped. Otherwise the last byte is decremented and the name is padded
// with 0xFF up to MaxNameLength. The first row name has no predecessor and returns nil.
func PreviousLexicographicName(name []byte) []byte {
	if len(name) == 0 || IsFirstRowName(name) {
		return nil
	}

	last := len(name) - 1
	if name[last] == 0x00 {
		return clone(name[:last])
	}

	prev := make([]byte, MaxNameLength)
	copy(prev, name)
	prev[last]--
	for i := last + 1; i < MaxNameLength; i++ {
		prev[i] = 0xff
	}
	return prev
}

// NextStartRow is where a continuation of a scan that last saw row should begin.
func NextStartRow(reverse bool, row []byte) []byte {
	if reverse {
		return PreviousLexicographicName(row)
	}
	return NextLexicographicName(row)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// nilIfEmpty normalizes an unbounded position to nil.
func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return clone(b)
}
