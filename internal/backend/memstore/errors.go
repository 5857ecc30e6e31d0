package memstore

import "errors"

var errReleased = errors.New("memstore: session already released")
