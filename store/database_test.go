package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_Snapshot_EmptyByDefault(t *testing.T) {
	db := NewDatabase()
	snap := db.Snapshot()
	assert.Empty(t, snap.Datasets)
}

func TestDatabase_CommitTask_AppliesNewDataset(t *testing.T) {
	db := NewDatabase()
	task := db.AllocateTask([]byte{1, 2}, "INDEX a")
	task.Append(&NewDatasetChange{Dataset: NewDataset("a", 1, nil)})

	require.NoError(t, db.CommitTask(task))

	snap := db.Snapshot()
	require.Len(t, snap.Datasets, 1)
	assert.Equal(t, "a", snap.Datasets[0].ID)
}

func TestDatabase_CommitTask_StopsOnFirstFailure(t *testing.T) {
	db := NewDatabase()
	task := db.AllocateTask(nil, "...")
	task.Append(&NewDatasetChange{Dataset: NewDataset("a", 1, nil)})
	task.Append(&DropDatasetChange{DatasetID: "does-not-exist"})
	task.Append(&ToggleTaintChange{DatasetID: "a", Tag: "should-not-apply", Add: true})

	err := db.CommitTask(task)
	require.Error(t, err)

	snap := db.Snapshot()
	require.Len(t, snap.Datasets, 1)
	assert.False(t, snap.Datasets[0].HasTaint("should-not-apply"))
}

func TestDatabase_SnapshotIsStableAcrossLaterCommits(t *testing.T) {
	db := NewDatabase()
	task := db.AllocateTask(nil, "INDEX a")
	task.Append(&NewDatasetChange{Dataset: NewDataset("a", 1, nil)})
	require.NoError(t, db.CommitTask(task))

	snap := db.Snapshot()
	require.Len(t, snap.Datasets, 1)

	task2 := db.AllocateTask(nil, "INDEX b")
	task2.Append(&NewDatasetChange{Dataset: NewDataset("b", 1, nil)})
	require.NoError(t, db.CommitTask(task2))

	assert.Len(t, snap.Datasets, 1, "earlier snapshot must not see the later dataset")
	assert.Len(t, db.Snapshot().Datasets, 2)
}

func TestDatabase_AllocateTask_IDsAreMonotonic(t *testing.T) {
	db := NewDatabase()
	t1 := db.AllocateTask(nil, "a")
	t2 := db.AllocateTask(nil, "b")
	assert.Greater(t, t2.ID, t1.ID)
}

func TestDatabase_Tasks_ReflectsRegisteredAndReleased(t *testing.T) {
	db := NewDatabase()
	t1 := db.AllocateTask([]byte{0xaa}, "PING")
	assert.Len(t, db.Tasks(), 1)

	db.ReleaseTask(t1.ID)
	assert.Empty(t, db.Tasks())
}

func TestDatabase_CollectGarbage_DropsUnreferencedExhaustedIterator(t *testing.T) {
	db := NewDatabase()
	task := db.AllocateTask(nil, "SELECT *")
	it := NewIterator("it1", "data", "meta", 0)
	task.Append(&NewIteratorChange{Iterator: it})
	require.NoError(t, db.CommitTask(task))

	_, ok := db.iterator("it1")
	require.True(t, ok)

	db.CollectGarbage(nil)
	_, ok = db.iterator("it1")
	assert.False(t, ok)
}

func TestDatabase_CollectGarbage_KeepsIteratorHeldByActiveSnapshot(t *testing.T) {
	db := NewDatabase()
	task := db.AllocateTask(nil, "SELECT *")
	it := NewIterator("it1", "data", "meta", 0)
	task.Append(&NewIteratorChange{Iterator: it})
	require.NoError(t, db.CommitTask(task))

	holder := db.Snapshot().WithLocks([]Lock{IteratorLock("it1")})
	db.CollectGarbage([]*Snapshot{holder})

	_, ok := db.iterator("it1")
	assert.True(t, ok, "an iterator held by an active snapshot must survive garbage collection")
}

type fakeReclaimer struct {
	reclaimed []string
}

func (r *fakeReclaimer) ReclaimDataset(id string) error {
	r.reclaimed = append(r.reclaimed, id)
	return nil
}

func TestDatabase_CollectGarbage_ReclaimsDroppedDatasetNotHeldByAnySnapshot(t *testing.T) {
	db := NewDatabase()
	reclaimer := &fakeReclaimer{}
	db.SetReclaimer(reclaimer)

	task := db.AllocateTask(nil, "INDEX a")
	task.Append(&NewDatasetChange{Dataset: NewDataset("a", 1, nil)})
	require.NoError(t, db.CommitTask(task))

	drop := db.AllocateTask(nil, "DROP a")
	drop.Append(&DropDatasetChange{DatasetID: "a"})
	require.NoError(t, db.CommitTask(drop))

	db.CollectGarbage(nil)
	assert.Equal(t, []string{"a"}, reclaimer.reclaimed)
}

func TestDatabase_CollectGarbage_DefersReclaimWhileSnapshotStillReferencesDataset(t *testing.T) {
	db := NewDatabase()
	reclaimer := &fakeReclaimer{}
	db.SetReclaimer(reclaimer)

	task := db.AllocateTask(nil, "INDEX a")
	task.Append(&NewDatasetChange{Dataset: NewDataset("a", 1, nil)})
	require.NoError(t, db.CommitTask(task))

	reader := db.Snapshot() // still lists "a"

	drop := db.AllocateTask(nil, "DROP a")
	drop.Append(&DropDatasetChange{DatasetID: "a"})
	require.NoError(t, db.CommitTask(drop))

	db.CollectGarbage([]*Snapshot{reader})
	assert.Empty(t, reclaimer.reclaimed, "a snapshot still listing the dataset must block reclamation")

	db.CollectGarbage(nil)
	assert.Equal(t, []string{"a"}, reclaimer.reclaimed, "once no active snapshot references it, it is reclaimed")
}
