package query

import (
	"bufio"
	"os"
	"strings"

	"github.com/chivay/ursadb/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Searcher runs a parsed query against a fixed set of datasets. gramindex.Engine
// is the concrete implementation; it is the domain-specific collaborator the
// command grammar's query language sits on top of.
type Searcher interface {
	Search(datasets []*store.Dataset, query string) ([]string, SelectCounters, error)
}

// Indexer builds and merges datasets. gramindex.Engine implements this by
// extracting n-grams from the files named by Index/IndexFrom/Reindex/Compact.
type Indexer interface {
	// BuildDataset indexes paths into a freshly created dataset. If ensureUnique
	// is set, any path already present in one of existing is silently skipped.
	BuildDataset(existing []*store.Dataset, paths []string, ensureUnique bool) (*store.Dataset, error)
	// MergeDatasets folds several datasets' indexes into one replacement dataset,
	// used by both Reindex (a single dataset, rebuilt) and Compact. If targetID
	// is non-empty, the resulting dataset keeps that ID instead of getting a
	// freshly generated one — Reindex's contract is an in-place rebuild under
	// the same dataset_id, not a drop-and-recreate.
	MergeDatasets(datasets []*store.Dataset, targetID string) (*store.Dataset, error)
}

// Executor runs Commands against a Snapshot, recording any resulting mutation on
// the Task's change log. It is the only component that touches Searcher/Indexer,
// so LockPlanner and the Database stay independent of the query/index domain.
type Executor struct {
	Search  Searcher
	Index   Indexer
	Results ResultWriter
}

// CommandError is a recoverable failure dispatch_safe turns into an error
// Response, as opposed to a panic, which the Worker lets propagate.
type CommandError struct {
	msg string
}

func (e *CommandError) Error() string { return e.msg }

func newCommandError(format string, args ...interface{}) *CommandError {
	return &CommandError{msg: errors.Errorf(format, args...).Error()}
}

// Execute runs cmd against snap on behalf of task, appending any DBChange it
// produces to task's change log. The caller (the Worker) is responsible for
// having already obtained every lock Locks(cmd, snap) names.
func (ex *Executor) Execute(cmd Command, task *store.Task, snap *store.Snapshot) (Response, error) {
	switch c := cmd.(type) {
	case *PingCommand:
		return PingResponse{ConnID: task.ConnID}, nil

	case *StatusCommand:
		return StatusResponse{Tasks: snap.DatabaseTasks()}, nil

	case *TopologyCommand:
		return ex.topology(snap), nil

	case *ConfigGetCommand:
		return ex.configGet(c, snap), nil

	case *ConfigSetCommand:
		return ex.configSet(c, task, snap)

	case *SelectCommand:
		return ex.selectCmd(c, task, snap)

	case *IteratorPopCommand:
		return ex.iteratorPop(c, task, snap)

	case *IndexCommand:
		return ex.index(c, task, snap, c.Paths)

	case *IndexFromCommand:
		paths, err := readPathList(c.ListPath)
		if err != nil {
			return nil, newCommandError("reading path list %s: %v", c.ListPath, err)
		}
		return ex.index(&IndexCommand{EnsureUnique: c.EnsureUnique}, task, snap, paths)

	case *ReindexCommand:
		return ex.reindex(c, task, snap)

	case *CompactCommand:
		return ex.compact(c, task, snap)

	case *TaintCommand:
		return ex.taint(c, task, snap)

	case *DatasetDropCommand:
		return ex.drop(c, task, snap)

	default:
		return nil, newCommandError("unsupported command %T", cmd)
	}
}

func (ex *Executor) topology(snap *store.Snapshot) Response {
	entries := make([]TopologyEntry, len(snap.Datasets))
	for i, ds := range snap.Datasets {
		taints := make([]string, 0, len(ds.Taints))
		for t := range ds.Taints {
			taints = append(taints, t)
		}
		entries[i] = TopologyEntry{ID: ds.ID, Size: ds.Size(), NumFiles: ds.NumFiles, Taints: taints, Indexes: ds.Indexes}
	}
	return TopologyResponse{Datasets: entries}
}

func (ex *Executor) configGet(c *ConfigGetCommand, snap *store.Snapshot) Response {
	if len(c.Keys) == 0 {
		return ConfigResponse{Entries: snap.Config.All()}
	}
	var entries []store.ConfigEntry
	for _, name := range c.Keys {
		key, ok := store.ParseConfigKey(name)
		if !ok {
			continue // ConfigGet silently drops unknown names, unlike ConfigSet.
		}
		if v, ok := snap.Config.Get(key); ok {
			entries = append(entries, store.ConfigEntry{Key: key, Value: v})
		}
	}
	return ConfigResponse{Entries: entries}
}

func (ex *Executor) configSet(c *ConfigSetCommand, task *store.Task, snap *store.Snapshot) (Response, error) {
	key, ok := store.ParseConfigKey(c.Key)
	if !ok {
		return nil, newCommandError("unknown config key %q", c.Key)
	}
	if _, err := snap.Config.With(key, c.Value); err != nil {
		return nil, newCommandError("%v", err)
	}
	task.Append(&store.ConfigChange{Key: key, Value: c.Value})
	return OkResponse{}, nil
}

func (ex *Executor) selectCmd(c *SelectCommand, task *store.Task, snap *store.Snapshot) (Response, error) {
	datasets := filterDatasets(snap.Datasets, c.Datasets, c.Taint)

	hits, counters, err := ex.Search.Search(datasets, c.Query)
	if err != nil {
		return nil, newCommandError("query error: %v", err)
	}
	counters.DatasetsQueried = len(datasets)

	if !c.AsIterator {
		return SelectResponse{Hits: hits, Counters: counters}, nil
	}

	id := uuid.New().String()
	dataFile := id + ".data"
	if err := ex.Results.WriteResults(dataFile, hits); err != nil {
		return nil, newCommandError("writing results: %v", err)
	}
	it := store.NewIterator(id, dataFile, id+".meta", len(hits))
	task.Append(&store.NewIteratorChange{Iterator: it})
	return SelectIteratorResponse{IteratorID: id, FileCount: len(hits), Counters: counters}, nil
}

func (ex *Executor) iteratorPop(c *IteratorPopCommand, task *store.Task, snap *store.Snapshot) (Response, error) {
	it, ok := snap.Iterator(c.IteratorID)
	if !ok {
		return nil, newCommandError("no such iterator %q", c.IteratorID)
	}
	n := c.N
	if n > it.Remaining() {
		n = it.Remaining()
	}
	files, err := ex.Results.ReadResults(it.DataFile, it.Cursor, n)
	if err != nil {
		return nil, newCommandError("reading results: %v", err)
	}
	task.Append(&store.AdvanceIteratorChange{IteratorID: c.IteratorID, N: n})
	return SelectFromIteratorResponse{Files: files, Position: it.Cursor + n, TotalFiles: it.NumFiles}, nil
}

func (ex *Executor) index(c *IndexCommand, task *store.Task, snap *store.Snapshot, paths []string) (Response, error) {
	ds, err := ex.Index.BuildDataset(snap.Datasets, paths, c.EnsureUnique)
	if err != nil {
		return nil, newCommandError("indexing failed: %v", err)
	}
	task.Append(&store.NewDatasetChange{Dataset: ds})
	return OkResponse{}, nil
}

func (ex *Executor) reindex(c *ReindexCommand, task *store.Task, snap *store.Snapshot) (Response, error) {
	ds, ok := snap.Dataset(c.DatasetID)
	if !ok {
		return nil, newCommandError("no such dataset %q", c.DatasetID)
	}
	merged, err := ex.Index.MergeDatasets([]*store.Dataset{ds}, c.DatasetID)
	if err != nil {
		return nil, newCommandError("reindex failed: %v", err)
	}
	task.Append(&store.ReplaceDatasetChange{Dataset: merged})
	return OkResponse{}, nil
}

func (ex *Executor) compact(c *CompactCommand, task *store.Task, snap *store.Snapshot) (Response, error) {
	ids := CompactCandidates(c, snap)
	if len(ids) < 2 {
		return OkResponse{}, nil
	}
	datasets := make([]*store.Dataset, 0, len(ids))
	for _, id := range ids {
		if ds, ok := snap.Dataset(id); ok {
			datasets = append(datasets, ds)
		}
	}
	merged, err := ex.Index.MergeDatasets(datasets, "")
	if err != nil {
		return nil, newCommandError("compact failed: %v", err)
	}
	for _, id := range ids {
		task.Append(&store.DropDatasetChange{DatasetID: id})
	}
	task.Append(&store.NewDatasetChange{Dataset: merged})
	return OkResponse{}, nil
}

func (ex *Executor) taint(c *TaintCommand, task *store.Task, snap *store.Snapshot) (Response, error) {
	ds, ok := snap.Dataset(c.DatasetID)
	if !ok {
		return nil, newCommandError("no such dataset %q", c.DatasetID)
	}
	if ds.HasTaint(c.Tag) == c.Add {
		return OkResponse{}, nil // no-op: requested state already holds.
	}
	task.Append(&store.ToggleTaintChange{DatasetID: c.DatasetID, Tag: c.Tag, Add: c.Add})
	return OkResponse{}, nil
}

func (ex *Executor) drop(c *DatasetDropCommand, task *store.Task, snap *store.Snapshot) (Response, error) {
	if _, ok := snap.Dataset(c.DatasetID); !ok {
		return nil, newCommandError("no such dataset %q", c.DatasetID)
	}
	task.Append(&store.DropDatasetChange{DatasetID: c.DatasetID})
	return OkResponse{}, nil
}

func filterDatasets(all []*store.Dataset, ids []string, taint string) []*store.Dataset {
	var picked []*store.Dataset
	for _, ds := range all {
		if len(ids) > 0 && !contains(ids, ds.ID) {
			continue
		}
		if taint != "" && !ds.HasTaint(taint) {
			continue
		}
		picked = append(picked, ds)
	}
	return picked
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func readPathList(listPath string) ([]string, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths, scanner.Err()
}

// DispatchSafe parses request and runs it through ex, converting a recoverable
// parse or command error into an error Response rather than propagating it —
// mirroring the Worker-level safety wrapper described for command dispatch.
// Faults other than CommandError and a parse failure are not this function's
// concern: they propagate to the caller, which lets the Worker crash the task.
func DispatchSafe(parse func(string) (Command, error), request string, task *store.Task, snap *store.Snapshot, ex *Executor) Response {
	cmd, err := parse(request)
	if err != nil {
		return ErrorResponse{Message: err.Error()}
	}

	resp, err := ex.Execute(cmd, task, snap)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return ErrorResponse{Message: cmdErr.Error()}
		}
		panic(err) // not a CommandError: an unknown fault, let it propagate per the Worker's crash contract.
	}
	return resp
}
