// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package index

import (
	"github.com/chivay/ursadb/util/bitset"
)

// ValueBuffer accumulates (term,docID) pairs for a single segment before it is written out.
type ValueBuffer struct {
	numDocs  int
	minDocID uint32
	maxDocID uint32
	values   []Value
	docs     *bitset.SparseBitSet
}

func (vb *ValueBuffer) NumDocs() int     { return vb.numDocs }
func (vb *ValueBuffer) NumValues() int   { return len(vb.values) }
func (vb *ValueBuffer) MinDocID() uint32 { return vb.minDocID }
func (vb *ValueBuffer) MaxDocID() uint32 { return vb.maxDocID }
func (vb *ValueBuffer) Empty() bool      { return len(vb.values) == 0 }

func (vb *ValueBuffer) Reset() {
	vb.numDocs = 0
	vb.minDocID = 0
	vb.maxDocID = 0
	vb.values = vb.values[:0]
	vb.docs = bitset.NewSparseBitSet(0)
}

func (vb *ValueBuffer) Add(docID uint32, terms []uint32) {
	vb.numDocs++
	if vb.numDocs == 1 || vb.minDocID > docID {
		vb.minDocID = docID
	}
	if vb.numDocs == 1 || vb.maxDocID < docID {
		vb.maxDocID = docID
	}
	for _, term := range terms {
		vb.values = append(vb.values, Value{DocID: docID, Term: term})
	}
	if vb.docs == nil {
		vb.docs = bitset.NewSparseBitSet(0)
	}
	vb.docs.Add(docID)
}

func (vb *ValueBuffer) Delete(docID uint32) bool {
	if vb.docs == nil || !vb.docs.Contains(docID) {
		return false
	}

	n := 0
	for _, value := range vb.values {
		if value.DocID != docID {
			vb.values[n] = value
			n++
		}
	}

	if n == len(vb.values) {
		return false
	}

	vb.values = vb.values[:n]
	vb.numDocs--

	vb.docs.Remove(docID)
	vb.minDocID = vb.docs.Min()
	vb.maxDocID = vb.docs.Max()

	return true
}

func (vb *ValueBuffer) Reader() ValueReader {
	return NewValueSliceReader(vb.numDocs, vb.values)
}
