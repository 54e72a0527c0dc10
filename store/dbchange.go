package store

import "github.com/pkg/errors"

// DBChange is one deferred mutation recorded by a Task while its Worker executes a
// Command against a read-only Snapshot. The Database applies a Task's full change
// log atomically at commit_task, mirroring the way index.Manifest only becomes
// visible once a transaction's segment additions are folded in by a single commit.
type DBChange interface {
	// Apply mutates db in place. It runs with the Database's commit lock held, so it
	// must not block and must not fail for any change that passed LockPlanner's and
	// the Executor's checks against the Snapshot the Task observed.
	Apply(db *Database) error
	// String renders the change for Status/debugging output.
	String() string
}

// NewDatasetChange registers a brand-new dataset, e.g. after Index/IndexFrom.
type NewDatasetChange struct {
	Dataset *Dataset
}

func (c *NewDatasetChange) Apply(db *Database) error {
	if _, exists := db.datasets[c.Dataset.ID]; exists {
		return errors.Errorf("dataset %q already exists", c.Dataset.ID)
	}
	db.datasets[c.Dataset.ID] = c.Dataset
	db.order = append(db.order, c.Dataset.ID)
	return nil
}

func (c *NewDatasetChange) String() string {
	return "new_dataset(" + c.Dataset.ID + ")"
}

// ReplaceDatasetChange swaps in a new *Dataset value for an existing ID, e.g. after
// Reindex produced new on-disk index artifacts.
type ReplaceDatasetChange struct {
	Dataset *Dataset
}

func (c *ReplaceDatasetChange) Apply(db *Database) error {
	if _, exists := db.datasets[c.Dataset.ID]; !exists {
		return errors.Errorf("dataset %q does not exist", c.Dataset.ID)
	}
	db.datasets[c.Dataset.ID] = c.Dataset
	return nil
}

func (c *ReplaceDatasetChange) String() string {
	return "replace_dataset(" + c.Dataset.ID + ")"
}

// DropDatasetChange removes a dataset from the topology. Its on-disk artifacts are
// not deleted here; collect_garbage reclaims them once no active Snapshot still
// references them.
type DropDatasetChange struct {
	DatasetID string
}

func (c *DropDatasetChange) Apply(db *Database) error {
	if _, exists := db.datasets[c.DatasetID]; !exists {
		return errors.Errorf("dataset %q does not exist", c.DatasetID)
	}
	delete(db.datasets, c.DatasetID)
	for i, id := range db.order {
		if id == c.DatasetID {
			db.order = append(db.order[:i], db.order[i+1:]...)
			break
		}
	}
	db.droppedIDs = append(db.droppedIDs, c.DatasetID)
	return nil
}

func (c *DropDatasetChange) String() string {
	return "drop(" + c.DatasetID + ")"
}

// ToggleTaintChange sets or clears a taint tag on a dataset. Repeating an already
// applied toggle is a no-op, per the Taint command's idempotency contract.
type ToggleTaintChange struct {
	DatasetID string
	Tag       string
	Add       bool
}

func (c *ToggleTaintChange) Apply(db *Database) error {
	ds, exists := db.datasets[c.DatasetID]
	if !exists {
		return errors.Errorf("dataset %q does not exist", c.DatasetID)
	}
	updated, _ := ds.WithTaint(c.Tag, c.Add)
	db.datasets[c.DatasetID] = updated
	return nil
}

func (c *ToggleTaintChange) String() string {
	verb := "untaint"
	if c.Add {
		verb = "taint"
	}
	return verb + "(" + c.DatasetID + "," + c.Tag + ")"
}

// ConfigChange updates one key in the effective Config. LockPlanner has no lock for
// this: the Database's config is protected by the same commit mutex as everything
// else, and readers always see either the old or the new value, never a partial one.
type ConfigChange struct {
	Key   ConfigKey
	Value int64
}

func (c *ConfigChange) Apply(db *Database) error {
	updated, err := db.config.With(c.Key, c.Value)
	if err != nil {
		return err
	}
	db.config = updated
	return nil
}

func (c *ConfigChange) String() string {
	return "config_set(" + string(c.Key) + "=" + FormatConfigValue(c.Value) + ")"
}

// NewIteratorChange registers an Iterator produced by a Select that asked for
// an iterator, so a later IteratorPop can resume it.
type NewIteratorChange struct {
	Iterator *Iterator
}

func (c *NewIteratorChange) Apply(db *Database) error {
	db.iterators[c.Iterator.ID] = c.Iterator
	return nil
}

func (c *NewIteratorChange) String() string {
	return "new_iterator(" + c.Iterator.ID + ")"
}

// AdvanceIteratorChange moves an iterator's cursor forward after a successful pop,
// and drops it once exhausted.
type AdvanceIteratorChange struct {
	IteratorID string
	N          int
}

func (c *AdvanceIteratorChange) Apply(db *Database) error {
	it, exists := db.iterators[c.IteratorID]
	if !exists {
		return errors.Errorf("iterator %q does not exist", c.IteratorID)
	}
	it.Advance(c.N)
	if it.Done() {
		delete(db.iterators, c.IteratorID)
	}
	return nil
}

func (c *AdvanceIteratorChange) String() string {
	return "advance_iterator(" + c.IteratorID + ")"
}
