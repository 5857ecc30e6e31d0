package backend

import (
	"bytes"

	"github.com/google/btree"
)

const candidateDegree = 16

// CandidateRows maps a batch index to the distinct row keys selected for it.
type CandidateRows struct {
	batches map[int]*btree.BTreeG[[]byte]
}

func NewCandidateRows() *CandidateRows {
	return &CandidateRows{batches: make(map[int]*btree.BTreeG[[]byte])}
}

func lessRow(a, b []byte) bool {
	return bytes.Compare(a, b) < 0
}

// Add records row as a candidate of batch. Adding a row twice keeps one copy.
func (c *CandidateRows) Add(batch int, row []byte) {
	t, ok := c.batches[batch]
	if !ok {
		t = btree.NewG[[]byte](candidateDegree, lessRow)
		c.batches[batch] = t
	}
	t.ReplaceOrInsert(bytes.Clone(row))
}

// Len is the number of candidates of batch.
func (c *CandidateRows) Len(batch int) int {
	if c == nil {
		return 0
	}
	t, ok := c.batches[batch]
	if !ok {
		return 0
	}
	return t.Len()
}

// Rows lists the candidates of batch, descending when reverse is set.
func (c *CandidateRows) Rows(batch int, reverse bool) [][]byte {
	if c == nil {
		return nil
	}
	t, ok := c.batches[batch]
	if !ok {
		return nil
	}
	out := make([][]byte, 0, t.Len())
	collect := func(row []byte) bool {
		out = append(out, row)
		return true
	}
	if reverse {
		t.Descend(collect)
	} else {
		t.Ascend(collect)
	}
	return out
}

// Union lists every distinct candidate across all batches in ascending order.
func (c *CandidateRows) Union() [][]byte {
	if c == nil {
		return nil
	}
	all := btree.NewG[[]byte](candidateDegree, lessRow)
	for _, t := range c.batches {
		t.Ascend(func(row []byte) bool {
			all.ReplaceOrInsert(row)
			return true
		})
	}
	out := make([][]byte, 0, all.Len())
	all.Ascend(func(row []byte) bool {
		out = append(out, row)
		return true
	})
	return out
}
