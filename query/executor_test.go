package query

import (
	"testing"

	"github.com/chivay/ursadb/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	hits []string
	err  error
}

func (f *fakeSearcher) Search(datasets []*store.Dataset, query string) ([]string, SelectCounters, error) {
	if f.err != nil {
		return nil, SelectCounters{}, f.err
	}
	return f.hits, SelectCounters{FilesMatched: len(f.hits)}, nil
}

type fakeIndexer struct {
	built *store.Dataset
	err   error
}

func (f *fakeIndexer) BuildDataset(existing []*store.Dataset, paths []string, ensureUnique bool) (*store.Dataset, error) {
	if f.err != nil {
		return nil, f.err
	}
	return store.NewDataset("new", len(paths), nil), nil
}

func (f *fakeIndexer) MergeDatasets(datasets []*store.Dataset, targetID string) (*store.Dataset, error) {
	if f.err != nil {
		return nil, f.err
	}
	total := 0
	for _, ds := range datasets {
		total += ds.NumFiles
	}
	id := targetID
	if id == "" {
		id = "merged"
	}
	return store.NewDataset(id, total, nil), nil
}

func newTestExecutor() *Executor {
	return &Executor{Search: &fakeSearcher{hits: []string{"/a", "/b"}}, Index: &fakeIndexer{}, Results: NewMemResultWriter()}
}

func TestExecutor_Ping(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, []byte{0xaa}, "ping")
	resp, err := ex.Execute(&PingCommand{}, task, snapshotWith())
	require.NoError(t, err)
	assert.Equal(t, "ping(aa)", resp.Encode())
}

func TestExecutor_Select_AppendsNoChangeWhenNotIterator(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, nil, "select")
	resp, err := ex.Execute(&SelectCommand{Query: "ff"}, task, snapshotWith())
	require.NoError(t, err)
	sel, ok := resp.(SelectResponse)
	require.True(t, ok)
	assert.Equal(t, []string{"/a", "/b"}, sel.Hits)
	assert.Empty(t, task.Changes)
}

func TestExecutor_Select_AsIterator_AppendsNewIteratorChange(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, nil, "select")
	resp, err := ex.Execute(&SelectCommand{Query: "ff", AsIterator: true}, task, snapshotWith())
	require.NoError(t, err)
	_, ok := resp.(SelectIteratorResponse)
	require.True(t, ok)
	require.Len(t, task.Changes, 1)
	assert.IsType(t, &store.NewIteratorChange{}, task.Changes[0])
}

func TestExecutor_ConfigSet_AppendsConfigChange(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, nil, "configset")
	resp, err := ex.Execute(&ConfigSetCommand{Key: "workers", Value: 10}, task, snapshotWith())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Encode())
	require.Len(t, task.Changes, 1)
}

func TestExecutor_ConfigSet_UnknownKeyIsCommandError(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, nil, "configset")
	_, err := ex.Execute(&ConfigSetCommand{Key: "bogus", Value: 10}, task, snapshotWith())
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
}

func TestExecutor_ConfigSet_OutOfRangeValueIsCommandErrorWithoutAppending(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, nil, "configset")
	_, err := ex.Execute(&ConfigSetCommand{Key: "workers", Value: 100000}, task, snapshotWith())
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Empty(t, task.Changes)
}

func TestExecutor_Taint_NoopReturnsOkWithoutChange(t *testing.T) {
	ex := newTestExecutor()
	snap := snapshotWith(store.NewDataset("a", 1, nil))
	task := store.NewTask(1, nil, "taint")
	resp, err := ex.Execute(&TaintCommand{DatasetID: "a", Tag: "x", Add: false}, task, snap)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Encode())
	assert.Empty(t, task.Changes)
}

func TestExecutor_Reindex_ReplacesDatasetUnderTheSameID(t *testing.T) {
	ex := newTestExecutor()
	snap := snapshotWith(store.NewDataset("a", 3, nil))
	task := store.NewTask(1, nil, "reindex a")
	resp, err := ex.Execute(&ReindexCommand{DatasetID: "a"}, task, snap)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Encode())
	require.Len(t, task.Changes, 1)
	change, ok := task.Changes[0].(*store.ReplaceDatasetChange)
	require.True(t, ok)
	assert.Equal(t, "a", change.Dataset.ID)
}

func TestExecutor_Reindex_UnknownDatasetIsCommandError(t *testing.T) {
	ex := newTestExecutor()
	snap := snapshotWith()
	task := store.NewTask(1, nil, "reindex missing")
	_, err := ex.Execute(&ReindexCommand{DatasetID: "missing"}, task, snap)
	require.Error(t, err)
}

func TestExecutor_Drop_UnknownDatasetIsCommandError(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, nil, "drop")
	_, err := ex.Execute(&DatasetDropCommand{DatasetID: "nope"}, task, snapshotWith())
	assert.Error(t, err)
}

func TestExecutor_Compact_TooFewCandidatesIsNoop(t *testing.T) {
	ex := newTestExecutor()
	snap := snapshotWith(store.NewDataset("a", 1, nil))
	task := store.NewTask(1, nil, "compact")
	resp, err := ex.Execute(&CompactCommand{Mode: CompactFull}, task, snap)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Encode())
	assert.Empty(t, task.Changes)
}

func TestExecutor_Compact_MergesCandidatesIntoOneDataset(t *testing.T) {
	ex := newTestExecutor()
	snap := snapshotWith(store.NewDataset("a", 1, nil), store.NewDataset("b", 1, nil))
	task := store.NewTask(1, nil, "compact")
	_, err := ex.Execute(&CompactCommand{Mode: CompactFull}, task, snap)
	require.NoError(t, err)
	require.Len(t, task.Changes, 3) // drop a, drop b, new merged
}

func TestExecutor_IteratorPop_AdvancesCursor(t *testing.T) {
	ex := newTestExecutor()
	db := store.NewDatabase()
	setup := db.AllocateTask(nil, "select iterator")
	setup.Append(&store.NewIteratorChange{Iterator: store.NewIterator("it1", "d", "m", 5)})
	require.NoError(t, db.CommitTask(setup))

	task := store.NewTask(2, nil, "pop")
	resp, err := ex.Execute(&IteratorPopCommand{IteratorID: "it1", N: 3}, task, db.Snapshot())
	require.NoError(t, err)
	pop, ok := resp.(SelectFromIteratorResponse)
	require.True(t, ok)
	assert.Equal(t, 3, pop.Position)
	assert.Equal(t, 5, pop.TotalFiles)
	require.Len(t, task.Changes, 1)
}

func TestExecutor_IteratorPop_ReturnsRealHitsWrittenBySelect(t *testing.T) {
	ex := newTestExecutor()
	selTask := store.NewTask(1, nil, "select iterator")
	resp, err := ex.Execute(&SelectCommand{Query: "ff", AsIterator: true}, selTask, snapshotWith())
	require.NoError(t, err)
	sel := resp.(SelectIteratorResponse)

	db := store.NewDatabase()
	setup := db.AllocateTask(nil, "select iterator")
	setup.Changes = selTask.Changes
	require.NoError(t, db.CommitTask(setup))

	task := store.NewTask(2, nil, "pop")
	popResp, err := ex.Execute(&IteratorPopCommand{IteratorID: sel.IteratorID, N: 2}, task, db.Snapshot())
	require.NoError(t, err)
	pop := popResp.(SelectFromIteratorResponse)
	assert.Equal(t, []string{"/a", "/b"}, pop.Files)
}

func TestDispatchSafe_UnknownCommandBecomesErrorResponse(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, nil, "garbage")
	resp := DispatchSafe(Parse, "garbage", task, snapshotWith(), ex)
	errResp, ok := resp.(ErrorResponse)
	require.True(t, ok)
	assert.NotEmpty(t, errResp.Message)
}

func TestDispatchSafe_CommandErrorBecomesErrorResponse(t *testing.T) {
	ex := newTestExecutor()
	task := store.NewTask(1, nil, "drop nope")
	resp := DispatchSafe(Parse, "drop nope", task, snapshotWith(), ex)
	_, ok := resp.(ErrorResponse)
	assert.True(t, ok)
}
