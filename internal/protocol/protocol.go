// Package protocol defines the text protocol of the LiteTable query endpoint.
// Every message is a verb followed by a space and its payload.
package protocol

import (
	"bytes"
	"errors"
)

const (
	Unknown = iota
	// Scan reads one page of a range; the payload is a range query.
	Scan
	// Rows reads whole rows; the payload is table=<name> rows=a,b,c.
	Rows
	// Create creates a table; the payload is table=<name>.
	Create
	// Timestamps reads the visible timestamp of every cell of whole rows; the payload is a rows
	// query.
	Timestamps
	// Sweep queues the removal of shadowed versions; the payload is table=<name> before=<ts>.
	Sweep
)

var (
	// ErrUnknown is returned when the protocol is unknown
	ErrUnknown = errors.New("unknown litetable protocol")
)

var verbs = []struct {
	prefix  []byte
	msgType int
}{
	{prefix: []byte("SCAN "), msgType: Scan},
	{prefix: []byte("ROWS "), msgType: Rows},
	{prefix: []byte("CREATE "), msgType: Create},
	{prefix: []byte("TIMESTAMPS "), msgType: Timestamps},
	{prefix: []byte("SWEEP "), msgType: Sweep},
}

// Decode decodes a buffer into a litetable protocol message type and returns the payload
// without surrounding whitespace.
func Decode(buf []byte) (int, []byte, error) {
	for _, v := range verbs {
		if bytes.HasPrefix(buf, v.prefix) {
			return v.msgType, bytes.TrimSpace(buf[len(v.prefix):]), nil
		}
	}
	return Unknown, nil, ErrUnknown
}

// Error formats err as an error response.
func Error(err error) []byte {
	return []byte("ERROR: " + err.Error())
}

// OK is the response to a request with nothing to return.
var OK = []byte("OK")
