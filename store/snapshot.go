package store

// Snapshot is the immutable view of the Database a Worker executes one Task against.
// Once a Worker has observed a Snapshot, the set of datasets it names never changes
// underneath it — Reindex/Compact/Drop all produce new Dataset values rather than
// mutating one in place, so a Snapshot taken mid-commit either sees a dataset or
// does not, never a half-updated one.
type Snapshot struct {
	db       *Database
	Datasets []*Dataset
	Config   Config
	Locks    []Lock
}

// Dataset looks up one of the Snapshot's datasets by ID.
func (s *Snapshot) Dataset(id string) (*Dataset, bool) {
	for _, ds := range s.Datasets {
		if ds.ID == id {
			return ds, true
		}
	}
	return nil, false
}

// DatabaseTasks returns the Status view of every task currently registered on
// the underlying Database. Status is deliberately not snapshot-isolated: it
// reports the live task registry, not the set that existed when the Snapshot
// was taken.
func (s *Snapshot) DatabaseTasks() []TaskStatus {
	return s.db.Tasks()
}

// Iterator looks up a live Iterator by ID. Iterators are looked up against the live
// Database rather than copied into the Snapshot, since IteratorLock already
// guarantees at most one Task observes a given iterator at a time.
func (s *Snapshot) Iterator(id string) (*Iterator, bool) {
	return s.db.iterator(id)
}

// WithLocks returns a copy of the Snapshot carrying the locks a Worker was granted
// for the Task it is about to execute.
func (s *Snapshot) WithLocks(locks []Lock) *Snapshot {
	s2 := *s
	s2.Locks = locks
	return &s2
}

// HoldsLock reports whether the Snapshot was granted lock l.
func (s *Snapshot) HoldsLock(l Lock) bool {
	for _, held := range s.Locks {
		if held == l {
			return true
		}
	}
	return false
}
