package store

import (
	"log"
	"sync"

	"github.com/pkg/errors"
)

// DatasetReclaimer releases the on-disk (or in-memory) storage backing a
// dataset ID once CollectGarbage has determined no active Snapshot
// references it anymore. gramindex.Engine implements this.
type DatasetReclaimer interface {
	ReclaimDataset(id string) error
}

// Database is the single authoritative mutable state of a node: the dataset
// topology, the effective Config, live Iterators, and the registry of in-flight
// Tasks used to answer Status. All mutation goes through commit_task so that a
// reader taking a Snapshot never observes a half-applied change.
type Database struct {
	mu sync.Mutex

	datasets   map[string]*Dataset
	order      []string
	droppedIDs []string // dataset ids removed from the topology, awaiting reclamation
	iterators  map[string]*Iterator
	config     Config

	reclaimer DatasetReclaimer

	nextTaskID TaskID
	tasks      map[TaskID]*Task
}

// NewDatabase creates an empty Database with every known Config key at its default.
func NewDatabase() *Database {
	return &Database{
		datasets:  make(map[string]*Dataset),
		iterators: make(map[string]*Iterator),
		config:    DefaultConfig(),
		tasks:     make(map[TaskID]*Task),
	}
}

// SetReclaimer installs the collaborator CollectGarbage calls once a dropped
// dataset's id is no longer referenced by any active Snapshot. It is set once
// at startup, alongside the Indexer the Executor is given.
func (db *Database) SetReclaimer(r DatasetReclaimer) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reclaimer = r
}

// Snapshot takes an immutable view of the current topology and config. The
// returned Snapshot's dataset list is a copy, so later commits cannot change its
// length or order out from under a Worker that is holding it.
func (db *Database) Snapshot() *Snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()

	datasets := make([]*Dataset, len(db.order))
	for i, id := range db.order {
		datasets[i] = db.datasets[id]
	}
	return &Snapshot{db: db, Datasets: datasets, Config: db.config}
}

func (db *Database) iterator(id string) (*Iterator, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	it, ok := db.iterators[id]
	return it, ok
}

// AllocateTask assigns a strictly increasing TaskID to a freshly arrived request
// and registers it so Status can report it while it runs.
func (db *Database) AllocateTask(connID []byte, request string) *Task {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.nextTaskID++
	task := NewTask(db.nextTaskID, connID, request)
	db.tasks[task.ID] = task
	return task
}

// ReleaseTask drops a Task from the registry once its Response has been sent,
// regardless of whether it committed any change.
func (db *Database) ReleaseTask(id TaskID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.tasks, id)
}

// Tasks returns the Status view of every task currently registered, ordered by ID.
func (db *Database) Tasks() []TaskStatus {
	db.mu.Lock()
	defer db.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(db.tasks))
	for _, t := range db.tasks {
		statuses = append(statuses, t.Spec())
	}
	for i := 1; i < len(statuses); i++ {
		for j := i; j > 0 && statuses[j].ID < statuses[j-1].ID; j-- {
			statuses[j], statuses[j-1] = statuses[j-1], statuses[j]
		}
	}
	return statuses
}

// CommitTask applies every DBChange a Task's Worker recorded, atomically: either
// all of them land or, on the first failure, none of the remaining ones are
// attempted and commit_task returns the error so the caller can decide whether to
// surface it to the client or treat the task as failed outright.
func (db *Database) CommitTask(task *Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, change := range task.Changes {
		if err := change.Apply(db); err != nil {
			return errors.Wrapf(err, "applying change %s", change)
		}
	}
	return nil
}

// CollectGarbage drops any exhausted Iterator that is not referenced by one of
// the active Snapshots passed in, and reclaims the on-disk artifacts of any dropped dataset
// once no active Snapshot's topology still lists it. The caller (the
// Coordinator, after a commit) is responsible for gathering the Snapshots
// still held by busy Workers.
func (db *Database) CollectGarbage(active []*Snapshot) {
	referencedIterators := make(map[string]bool)
	referencedDatasets := make(map[string]bool)
	for _, snap := range active {
		for _, l := range snap.Locks {
			if l.Kind == IteratorLockKind {
				referencedIterators[l.Name] = true
			}
		}
		for _, ds := range snap.Datasets {
			referencedDatasets[ds.ID] = true
		}
	}

	db.mu.Lock()
	for id, it := range db.iterators {
		if it.Done() && !referencedIterators[id] {
			delete(db.iterators, id)
			log.Printf("collected exhausted iterator %s", id)
		}
	}

	var reclaimable []string
	var stillPending []string
	for _, id := range db.droppedIDs {
		if referencedDatasets[id] {
			stillPending = append(stillPending, id)
		} else {
			reclaimable = append(reclaimable, id)
		}
	}
	db.droppedIDs = stillPending
	reclaimer := db.reclaimer
	db.mu.Unlock()

	if reclaimer == nil {
		return
	}
	for _, id := range reclaimable {
		if err := reclaimer.ReclaimDataset(id); err != nil {
			log.Printf("failed to reclaim dataset %s: %v", id, err)
		}
	}
}
