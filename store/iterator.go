package store

// Iterator is a paused Select result set, kept alive across requests so a client can
// page through a large result with repeated IteratorPop commands.
type Iterator struct {
	ID       string
	DataFile string
	MetaFile string
	NumFiles int
	Cursor   int
}

// NewIterator creates an iterator positioned at the start of its result set.
func NewIterator(id, dataFile, metaFile string, numFiles int) *Iterator {
	return &Iterator{ID: id, DataFile: dataFile, MetaFile: metaFile, NumFiles: numFiles}
}

// Done reports whether every file in the result set has already been popped.
func (it *Iterator) Done() bool {
	return it.Cursor >= it.NumFiles
}

// Remaining returns how many files are left to pop.
func (it *Iterator) Remaining() int {
	return it.NumFiles - it.Cursor
}

// Advance moves the cursor forward by n, clamped to NumFiles.
func (it *Iterator) Advance(n int) {
	it.Cursor += n
	if it.Cursor > it.NumFiles {
		it.Cursor = it.NumFiles
	}
}
