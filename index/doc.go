package index

// SingleDocReader is a ValueReader over the terms of a single document, used when adding
// or updating one document at a time outside of a bulk transaction.
type SingleDocReader struct {
	inner ValueReader
}

func NewSingleDocReader(docID uint32, terms []uint32) ValueReader {
	values := make([]Value, len(terms))
	for i, term := range terms {
		values[i] = Value{Term: term, DocID: docID}
	}
	return &SingleDocReader{inner: NewValueSliceReader(1, values)}
}

func (r *SingleDocReader) NumDocs() int {
	return r.inner.NumDocs()
}

func (r *SingleDocReader) ReadBlock() ([]Value, error) {
	return r.inner.ReadBlock()
}
