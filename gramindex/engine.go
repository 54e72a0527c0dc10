package gramindex

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/chivay/ursadb/index"
	"github.com/chivay/ursadb/query"
	"github.com/chivay/ursadb/store"
	"github.com/chivay/ursadb/util/vfs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FSFactory opens the storage for one dataset's index.DB, keyed by the
// dataset's ID. Engine calls it on every build or merge, including a
// Reindex's in-place rebuild under an existing ID, and keeps the opened
// *index.DB until that dataset is rebuilt or reclaimed.
type FSFactory func(datasetID string) (vfs.FileSystem, error)

// DirFSFactory is the on-disk FSFactory: each dataset gets its own
// subdirectory of root.
func DirFSFactory(root string) FSFactory {
	return func(datasetID string) (vfs.FileSystem, error) {
		return vfs.OpenDir(root+string(os.PathSeparator)+datasetID, true)
	}
}

// MemFSFactory is an in-memory FSFactory for tests: every dataset gets its
// own independent memFileSystem, kept alive by the cache for as long as the
// factory value itself is kept alive.
func MemFSFactory() FSFactory {
	var mu sync.Mutex
	cache := make(map[string]vfs.FileSystem)
	return func(datasetID string) (vfs.FileSystem, error) {
		mu.Lock()
		defer mu.Unlock()
		if fs, ok := cache[datasetID]; ok {
			return fs, nil
		}
		fs := vfs.CreateMemDir()
		cache[datasetID] = fs
		return fs, nil
	}
}

type datasetIndex struct {
	// mu guards db against a concurrent Close: Search only ever needs a read
	// lock, but an in-place rebuild or a reclaim takes the write lock before
	// closing db out from under it, since neither a Reindex nor a drop waits
	// for a lock-free SELECT still reading the dataset being replaced.
	mu    sync.RWMutex
	db    *index.DB
	fs    vfs.FileSystem
	names map[uint32]string // docID -> source path
}

// Engine implements query.Searcher and query.Indexer over byte-trigram
// postings lists, one index.DB per dataset.
type Engine struct {
	fsFactory FSFactory

	mu       sync.Mutex
	datasets map[string]*datasetIndex
}

func NewEngine(fsFactory FSFactory) *Engine {
	return &Engine{fsFactory: fsFactory, datasets: make(map[string]*datasetIndex)}
}

// BuildDataset implements query.Indexer.
func (e *Engine) BuildDataset(existing []*store.Dataset, paths []string, ensureUnique bool) (*store.Dataset, error) {
	return e.buildDataset(existing, paths, ensureUnique, "")
}

func (e *Engine) buildDataset(existing []*store.Dataset, paths []string, ensureUnique bool, targetID string) (*store.Dataset, error) {
	known := make(map[string]bool)
	if ensureUnique {
		e.mu.Lock()
		for _, ds := range existing {
			if di, ok := e.datasets[ds.ID]; ok {
				for _, p := range di.names {
					known[p] = true
				}
			}
		}
		e.mu.Unlock()
	}

	id := targetID
	if id == "" {
		id = uuid.New().String()
	}
	fs, err := e.fsFactory(id)
	if err != nil {
		return nil, errors.Wrapf(err, "opening storage for dataset %s", id)
	}

	e.mu.Lock()
	old, rebuilding := e.datasets[id]
	e.mu.Unlock()
	if rebuilding {
		// Held until the rebuilt dataset replaces old in e.datasets below, so a
		// concurrent Search that already holds old's read lock finishes its read
		// before Close. A Search that looked old up before the swap but takes the
		// read lock only after this one is released still reads the closed
		// old.db.
		old.mu.Lock()
		defer old.mu.Unlock()
		old.db.Close()
		if err := wipe(fs); err != nil {
			return nil, errors.Wrapf(err, "clearing storage for dataset %s", id)
		}
	}

	db, err := index.Open(fs, true)
	if err != nil {
		return nil, errors.Wrap(err, "opening index")
	}

	names := make(map[uint32]string)
	var nextDocID uint32 = 1
	var totalBytes int64

	for _, path := range paths {
		if known[path] {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		docID := nextDocID
		nextDocID++
		if err := db.Add(docID, Extract(data)); err != nil {
			return nil, errors.Wrapf(err, "indexing %s", path)
		}
		names[docID] = path
		totalBytes += int64(len(data))
	}

	if err := db.Compact(); err != nil {
		return nil, errors.Wrap(err, "compacting new dataset")
	}

	e.mu.Lock()
	e.datasets[id] = &datasetIndex{db: db, fs: fs, names: names}
	e.mu.Unlock()

	// The index's Size is the total byte length of the indexed source files,
	// not the size of the index files on disk.
	ds := store.NewDataset(id, len(names), []store.Index{{Type: "gram3", Size: totalBytes}})
	return ds, nil
}

// MergeDatasets implements query.Indexer. It rebuilds a single dataset out of
// the union of the source datasets' files, which is both Reindex's single-
// dataset case and Compact's multi-dataset case. If targetID is set, the
// rebuilt dataset keeps that ID and its prior on-disk state is cleared first,
// matching Reindex's in-place-rebuild contract.
func (e *Engine) MergeDatasets(datasets []*store.Dataset, targetID string) (*store.Dataset, error) {
	var paths []string
	e.mu.Lock()
	for _, ds := range datasets {
		di, ok := e.datasets[ds.ID]
		if !ok {
			e.mu.Unlock()
			return nil, errors.Errorf("dataset %s has no known index state", ds.ID)
		}
		docIDs := make([]uint32, 0, len(di.names))
		for docID := range di.names {
			docIDs = append(docIDs, docID)
		}
		sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })
		for _, docID := range docIDs {
			paths = append(paths, di.names[docID])
		}
	}
	e.mu.Unlock()

	return e.buildDataset(nil, paths, false, targetID)
}

// ReclaimDataset implements store.DatasetReclaimer. It is called once
// CollectGarbage has determined id is no longer referenced by any active
// Snapshot, closing the dataset's index.DB and removing its backing storage.
// Reclaiming an id Engine never indexed (or already reclaimed) is a no-op,
// since Drop/Compact may race a reclaim against a dataset this Engine never
// got to build, e.g. on startup recovery.
func (e *Engine) ReclaimDataset(id string) error {
	e.mu.Lock()
	di, ok := e.datasets[id]
	if ok {
		delete(e.datasets, id)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}

	di.mu.Lock()
	defer di.mu.Unlock()
	di.db.Close()
	if err := wipe(di.fs); err != nil {
		return errors.Wrapf(err, "removing storage for dataset %s", id)
	}
	return di.fs.Close()
}

// wipe removes every file from fs, used when rebuilding a dataset under its
// existing ID so the new index.DB doesn't reopen stale segments left over
// from the dataset being replaced.
func wipe(fs vfs.FileSystem) error {
	names, err := fs.ListFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := fs.Remove(name); err != nil {
			return err
		}
	}
	return nil
}

// Search implements query.Searcher. The query string is treated as a literal
// byte substring: it is converted to the set of trigrams it contains, the
// intersection of their postings is read from each dataset's index.DB, and
// every candidate is re-checked against the source file to rule out trigram
// false positives — the same two-phase design grep-like trigram indexes use.
func (e *Engine) Search(datasets []*store.Dataset, queryStr string) ([]string, query.SelectCounters, error) {
	terms := Extract([]byte(queryStr))

	var hits []string
	for _, ds := range datasets {
		e.mu.Lock()
		di, ok := e.datasets[ds.ID]
		e.mu.Unlock()
		if !ok {
			continue
		}

		candidates, err := searchDataset(di, terms, queryStr)
		if err != nil {
			return nil, query.SelectCounters{}, err
		}
		hits = append(hits, candidates...)
	}
	sort.Strings(hits)
	return hits, query.SelectCounters{FilesMatched: len(hits)}, nil
}

func searchDataset(di *datasetIndex, terms []uint32, literal string) ([]string, error) {
	di.mu.RLock()
	defer di.mu.RUnlock()

	if len(terms) == 0 {
		paths := make([]string, 0, len(di.names))
		for _, p := range di.names {
			paths = append(paths, p)
		}
		return paths, nil
	}

	counts, err := di.db.Search(terms)
	if err != nil {
		return nil, errors.Wrap(err, "searching index")
	}

	var hits []string
	for docID, n := range counts {
		if n != len(terms) {
			continue // doesn't contain every required trigram.
		}
		path, ok := di.names[docID]
		if !ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue // file removed since indexing; treat as no match rather than failing the whole query.
		}
		if strings.Contains(string(data), literal) {
			hits = append(hits, path)
		}
	}
	return hits, nil
}
