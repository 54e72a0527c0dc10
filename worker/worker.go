// Package worker implements the pool member that executes one Task at a time:
// it parses a command, reserves the locks the Lock Planner computes, runs the
// Executor, and replies — never observing more than one Snapshot concurrently.
package worker

import (
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chivay/ursadb/query"
	"github.com/chivay/ursadb/store"
	"github.com/pkg/errors"
)

// State is where a Worker sits in its Idle → Busy → AwaitingLocks? → Executing →
// Replying → Idle state machine.
type State int

const (
	Idle State = iota
	Busy
	AwaitingLocks
	Executing
	Replying
)

func (s State) String() string {
	switch s {
	case Busy:
		return "busy"
	case AwaitingLocks:
		return "awaiting_locks"
	case Executing:
		return "executing"
	case Replying:
		return "replying"
	default:
		return "idle"
	}
}

// Dispatch is one unit of work handed to a Worker by the Coordinator: a Task to
// run against a freshly taken Snapshot, and where to send the Response.
type Dispatch struct {
	Task     *store.Task
	Snapshot *store.Snapshot
	Reply    chan<- Reply
}

// Reply is what a Worker sends back after finishing a Dispatch.
type Reply struct {
	WorkerID string
	Task     *store.Task
	Response query.Response
}

// LockBroker is the Coordinator's half of lock arbitration, as seen by a Worker:
// request one named lock, and learn immediately whether it was granted. The
// Worker retries on denial; the Coordinator never blocks waiting for a Worker.
type LockBroker interface {
	RequestLock(workerID string, lock store.Lock) (granted bool)
	ReleaseLocks(workerID string)
}

// Worker is one member of the fixed-size pool. It owns exactly one Task and one
// Snapshot at a time and must not be driven from more than one goroutine.
type Worker struct {
	ID       string
	Mailbox  chan Dispatch
	Executor *query.Executor
	Broker   LockBroker
	Parse    func(string) (query.Command, error)

	// NewBackOff constructs the retry policy used while waiting for a denied
	// lock to free up. It defaults to an exponential backoff with a 2-second
	// ceiling per attempt and no overall deadline: a Worker waits as long as it
	// takes, since the core provides no cancellation primitive (see the
	// concurrency model's cancellation note) and a Task simply never commits if
	// its Worker never gets unblocked.
	NewBackOff func() backoff.BackOff

	state State
}

func New(id string, ex *query.Executor, broker LockBroker) *Worker {
	return &Worker{
		ID:       id,
		Mailbox:  make(chan Dispatch, 1),
		Executor: ex,
		Broker:   broker,
		Parse:    query.Parse,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 10 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.MaxElapsedTime = 0 // retry indefinitely; see NewBackOff's doc comment.
			return b
		},
	}
}

// State reports where in the state machine the Worker currently sits. The
// state field is read and written without synchronization, so a call from
// another goroutine while the Worker is running races with Run's updates.
func (w *Worker) State() State { return w.state }

// Run drains the Worker's mailbox until it is closed, processing one Dispatch
// fully (including lock acquisition and reply) before accepting the next — a
// Worker is never Idle and Busy at once.
func (w *Worker) Run() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker %s crashed: %v", w.ID, r)
		}
	}()
	for d := range w.Mailbox {
		resp := w.handle(d)
		w.state = Replying
		d.Reply <- Reply{WorkerID: w.ID, Task: d.Task, Response: resp}
		w.Broker.ReleaseLocks(w.ID)
		w.state = Idle
	}
}

// handle runs the full parse → lock → execute sequence the spec assigns to a
// Worker. It mirrors query.DispatchSafe's recoverable-error handling directly,
// rather than calling through it, because lock acquisition has to happen
// between parsing and executing and DispatchSafe has no seam for that.
func (w *Worker) handle(d Dispatch) query.Response {
	w.state = Busy
	cmd, err := w.Parse(d.Task.Request)
	if err != nil {
		return query.ErrorResponse{Message: err.Error()}
	}

	snap := d.Snapshot
	locks := query.Locks(cmd, snap)
	if len(locks) > 0 {
		w.state = AwaitingLocks
		for _, lock := range locks {
			w.awaitLock(lock)
		}
		snap = snap.WithLocks(locks)
	}

	w.state = Executing
	resp, err := w.Executor.Execute(cmd, d.Task, snap)
	if err != nil {
		var cmdErr *query.CommandError
		if errors.As(err, &cmdErr) {
			return query.ErrorResponse{Message: cmdErr.Error()}
		}
		panic(err) // not a CommandError: an unknown fault, fatal to this Worker's task only.
	}
	return resp
}

// awaitLock requests lock and retries with backoff until the Coordinator grants
// it. The Coordinator answers synchronously, so this never leaves the Worker
// waiting on a channel the Coordinator might never service.
func (w *Worker) awaitLock(lock store.Lock) {
	attempt := 0
	op := func() error {
		attempt++
		if w.Broker.RequestLock(w.ID, lock) {
			return nil
		}
		return errLockDenied
	}
	if err := backoff.Retry(op, w.NewBackOff()); err != nil {
		// Retry only stops early if BackOff itself gives up (MaxElapsedTime hit),
		// which the default policy never does; log for visibility if a caller
		// overrode NewBackOff with a bounded policy.
		log.Printf("worker %s gave up waiting for lock %s %s after %d attempts: %v", w.ID, lock.Kind, lock.Name, attempt, err)
	}
}

type lockDeniedError struct{}

func (lockDeniedError) Error() string { return "lock denied" }

var errLockDenied = lockDeniedError{}
