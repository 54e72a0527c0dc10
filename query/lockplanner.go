package query

import "github.com/chivay/ursadb/store"

// Locks computes the full set of locks a command needs before the Executor may
// run, in the order they should be requested. It is pure: it never issues a
// request itself, it only reads cmd and the Snapshot's already-published state.
func Locks(cmd Command, snap *store.Snapshot) []store.Lock {
	switch c := cmd.(type) {
	case *IteratorPopCommand:
		return []store.Lock{store.IteratorLock(c.IteratorID)}
	case *ReindexCommand:
		return []store.Lock{store.DatasetLock(c.DatasetID)}
	case *TaintCommand:
		return []store.Lock{store.DatasetLock(c.DatasetID)}
	case *CompactCommand:
		ids := CompactCandidates(c, snap)
		locks := make([]store.Lock, len(ids))
		for i, id := range ids {
			locks[i] = store.DatasetLock(id)
		}
		return locks
	default:
		return nil
	}
}
