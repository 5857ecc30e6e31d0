package litetable

import (
	"encoding/binary"
	"math"
)

// Composite column names follow the CompositeType layout: each component is a 2-byte big-endian
// length, the component bytes and an end-of-component byte (0x00). A stored column name has two
// components, the column and the inverted 8-byte timestamp, so versions of one column sort newest
// first.
const (
	componentOverhead = 3
	timestampLength   = 8
)

// EncodeColumnName builds the stored name of one version of a column.
func EncodeColumnName(col []byte, ts uint64) []byte {
	buf := make([]byte, 0, len(col)+timestampLength+2*componentOverhead)
	buf = appendComponent(buf, col)
	var tsBuf [timestampLength]byte
	binary.BigEndian.PutUint64(tsBuf[:], math.MaxUint64-ts)
	return appendComponent(buf, tsBuf[:])
}

func appendComponent(buf, c []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(c)))
	buf = append(buf, c...)
	return append(buf, 0x00)
}

// DecodeColumnName splits a stored column name back into column and timestamp.
func DecodeColumnName(name []byte) ([]byte, uint64, error) {
	col, rest, err := readComponent(name)
	if err != nil {
		return nil, 0, err
	}
	tsBytes, rest, err := readComponent(rest)
	if err != nil {
		return nil, 0, err
	}
	if len(rest) != 0 {
		return nil, 0, newError(ErrDecode, "%d trailing bytes after column name", len(rest))
	}
	if len(tsBytes) != timestampLength {
		return nil, 0, newError(ErrDecode, "timestamp component is %d bytes", len(tsBytes))
	}
	if len(col) == 0 {
		return nil, 0, newError(ErrDecode, "empty column component")
	}
	return col, math.MaxUint64 - binary.BigEndian.Uint64(tsBytes), nil
}

func readComponent(b []byte) ([]byte, []byte, error) {
	if len(b) < componentOverhead {
		return nil, nil, newError(ErrDecode, "component header truncated at %d bytes", len(b))
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n+1 {
		return nil, nil, newError(ErrDecode, "component of %d bytes truncated", n)
	}
	if b[2+n] != 0x00 {
		return nil, nil, newError(ErrDecode, "bad end-of-component byte 0x%02x", b[2+n])
	}
	return b[2 : 2+n], b[2+n+1:], nil
}

// Row keys are stored with 0x00 escaped as 0x00 0xFF and terminated by 0x00 0x01, so the encoded
// keys of different rows compare exactly like the rows and no row key is a prefix of another.
var (
	rowTerminator  = []byte{0x00, 0x01}
	rowUpperMarker = []byte{0x00, 0x02}
)

// EncodeRowKey returns the order-preserving encoding of row.
func EncodeRowKey(row []byte) []byte {
	return AppendRowKey(make([]byte, 0, len(row)+4), row)
}

// AppendRowKey appends the encoding of row to buf.
func AppendRowKey(buf, row []byte) []byte {
	buf = appendEscaped(buf, row)
	return append(buf, rowTerminator...)
}

func appendEscaped(buf, row []byte) []byte {
	for _, b := range row {
		if b == 0x00 {
			buf = append(buf, 0x00, 0xff)
			continue
		}
		buf = append(buf, b)
	}
	return buf
}

// RowKeyUpperBound is an exclusive limit that sorts after every key beginning with
// EncodeRowKey(row) and before the encoding of any greater row.
func RowKeyUpperBound(row []byte) []byte {
	buf := appendEscaped(make([]byte, 0, len(row)+4), row)
	return append(buf, rowUpperMarker...)
}

// DecodeRowKey reads an encoded row from the front of key and returns the row and the rest of key.
func DecodeRowKey(key []byte) ([]byte, []byte, error) {
	row := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		if key[i] != 0x00 {
			row = append(row, key[i])
			continue
		}
		if i+1 >= len(key) {
			return nil, nil, newError(ErrDecode, "row key ends inside an escape")
		}
		switch key[i+1] {
		case 0xff:
			row = append(row, 0x00)
			i++
		case 0x01:
			if len(row) == 0 {
				return nil, nil, newError(ErrDecode, "empty row key")
			}
			return row, key[i+2:], nil
		default:
			return nil, nil, newError(ErrDecode, "bad escape 0x00 0x%02x in row key", key[i+1])
		}
	}
	return nil, nil, newError(ErrDecode, "row key is not terminated")
}
