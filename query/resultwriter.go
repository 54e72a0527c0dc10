package query

import "sync"

// ResultWriter persists a Select's materialized file list under a data file
// name so a later IteratorPop can read back one page of it without the
// Iterator itself holding the whole result set in memory. MemResultWriter is
// the only implementation; it keeps the results in process memory, so they
// do not survive a restart.
type ResultWriter interface {
	WriteResults(dataFile string, paths []string) error
	ReadResults(dataFile string, offset, n int) ([]string, error)
}

// MemResultWriter is a ResultWriter backed by an in-memory map, keyed by the
// same data file name the Iterator carries.
type MemResultWriter struct {
	mu      sync.Mutex
	results map[string][]string
}

func NewMemResultWriter() *MemResultWriter {
	return &MemResultWriter{results: make(map[string][]string)}
}

func (w *MemResultWriter) WriteResults(dataFile string, paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results[dataFile] = paths
	return nil
}

func (w *MemResultWriter) ReadResults(dataFile string, offset, n int) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	all := w.results[dataFile]
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + n
	if end > len(all) {
		end = len(all)
	}
	out := make([]string, end-offset)
	copy(out, all[offset:end])
	return out, nil
}
