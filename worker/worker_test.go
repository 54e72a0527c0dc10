package worker

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chivay/ursadb/query"
	"github.com/chivay/ursadb/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	denyCount map[string]int
	released  []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{denyCount: make(map[string]int)}
}

func (b *fakeBroker) RequestLock(workerID string, lock store.Lock) bool {
	key := lock.Kind.String() + ":" + lock.Name
	if b.denyCount[key] > 0 {
		b.denyCount[key]--
		return false
	}
	return true
}

func (b *fakeBroker) ReleaseLocks(workerID string) {
	b.released = append(b.released, workerID)
}

func fastBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 5 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

func newTestWorker(broker LockBroker) *Worker {
	ex := &query.Executor{Search: &noopSearcher{}, Index: &noopIndexer{}}
	w := New("w1", ex, broker)
	w.NewBackOff = fastBackOff
	return w
}

type noopSearcher struct{}

func (noopSearcher) Search(datasets []*store.Dataset, q string) ([]string, query.SelectCounters, error) {
	return nil, query.SelectCounters{}, nil
}

type noopIndexer struct{}

func (noopIndexer) BuildDataset(existing []*store.Dataset, paths []string, ensureUnique bool) (*store.Dataset, error) {
	return store.NewDataset("x", len(paths), nil), nil
}

func (noopIndexer) MergeDatasets(datasets []*store.Dataset, targetID string) (*store.Dataset, error) {
	id := targetID
	if id == "" {
		id = "merged"
	}
	return store.NewDataset(id, 0, nil), nil
}

func TestWorker_Handle_PingNeedsNoLocks(t *testing.T) {
	broker := newFakeBroker()
	w := newTestWorker(broker)

	db := store.NewDatabase()
	task := db.AllocateTask([]byte{0x1}, "ping")
	resp := w.handle(Dispatch{Task: task, Snapshot: db.Snapshot()})

	assert.Equal(t, "ping(01)", resp.Encode())
	assert.Equal(t, Executing, w.State())
}

func TestWorker_Handle_RetriesDeniedLockUntilGranted(t *testing.T) {
	broker := newFakeBroker()
	broker.denyCount["dataset:a"] = 3
	w := newTestWorker(broker)

	db := store.NewDatabase()
	setup := db.AllocateTask(nil, "index a")
	setup.Append(&store.NewDatasetChange{Dataset: store.NewDataset("a", 1, nil)})
	require.NoError(t, db.CommitTask(setup))

	task := db.AllocateTask(nil, "taint a x")
	resp := w.handle(Dispatch{Task: task, Snapshot: db.Snapshot()})
	assert.Equal(t, "ok", resp.Encode())
	assert.Equal(t, 0, broker.denyCount["dataset:a"])
}

func TestWorker_Run_SendsReplyAndReleasesLocks(t *testing.T) {
	broker := newFakeBroker()
	w := newTestWorker(broker)
	go w.Run()
	defer close(w.Mailbox)

	db := store.NewDatabase()
	task := db.AllocateTask([]byte{0x2}, "ping")
	replies := make(chan Reply, 1)
	w.Mailbox <- Dispatch{Task: task, Snapshot: db.Snapshot(), Reply: replies}

	select {
	case r := <-replies:
		assert.Equal(t, "ping(02)", r.Response.Encode())
	case <-time.After(time.Second):
		t.Fatal("worker never replied")
	}

	require.Eventually(t, func() bool { return len(broker.released) == 1 }, time.Second, time.Millisecond)
}
