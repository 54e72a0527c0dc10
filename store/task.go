package store

import "encoding/hex"

// TaskID is a strictly monotonically increasing identifier the Database assigns at
// allocate_task, used by Status to correlate in-flight work.
type TaskID uint64

// Task is one client request as it travels through a Worker: the raw request string,
// the connection it arrived on, and the ordered log of DBChanges the Executor has
// appended so far. A Task is only ever mutated by the single Worker it is assigned
// to; the Coordinator and Database only ever read it.
type Task struct {
	ID      TaskID
	ConnID  []byte
	Request string
	Changes []DBChange
}

// NewTask creates a fresh Task with an empty change log.
func NewTask(id TaskID, connID []byte, request string) *Task {
	return &Task{ID: id, ConnID: connID, Request: request}
}

// Append records a deferred mutation produced while executing Task's command. The
// change is not visible to any Snapshot until commit_task applies the whole log.
func (t *Task) Append(change DBChange) {
	t.Changes = append(t.Changes, change)
}

// TaskStatus is the display form of a Task returned by the Status command.
type TaskStatus struct {
	ID      TaskID
	ConnID  string
	Request string
}

// Spec renders t for Status output.
func (t *Task) Spec() TaskStatus {
	return TaskStatus{ID: t.ID, ConnID: hex.EncodeToString(t.ConnID), Request: t.Request}
}
