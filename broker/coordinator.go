// Package broker implements the Coordinator: the single controller loop that
// dispatches client requests to idle Workers in LRU order, arbitrates lock
// requests between them, forwards replies to clients, and drives garbage
// collection after every commit.
package broker

import (
	"log"
	"sync"

	"github.com/chivay/ursadb/metrics"
	"github.com/chivay/ursadb/store"
	"github.com/chivay/ursadb/worker"
)

// clientRequest is one frontend event: a request line plus where to send its
// eventual Response.
type clientRequest struct {
	connID  []byte
	request string
	replyTo chan<- string
}

// Coordinator owns the Database, the idle worker queue, and the bookkeeping of
// which Snapshot a busy Worker is holding — the state RequestLock arbitrates
// against. It is driven by a single goroutine running Run; RequestLock and
// ReleaseLocks are called concurrently from Worker goroutines and so guard
// their own state with lockMu, kept separate from the loop's own unsynchronized
// idle-queue and registry state.
type Coordinator struct {
	db *store.Database

	workers map[string]*worker.Worker
	idle    idleQueue

	incoming chan clientRequest
	replies  chan worker.Reply
	done     chan struct{}

	pending map[store.TaskID]chan<- string // task id -> where to send its encoded Response

	lockMu    sync.Mutex
	busySnaps map[string]*store.Snapshot // workerID -> snapshot it is currently executing against
}

// New creates a Coordinator over db. Call AddWorker for each pool member
// before Run; workers announce Ready by being added already-idle.
func New(db *store.Database) *Coordinator {
	return &Coordinator{
		db:        db,
		workers:   make(map[string]*worker.Worker),
		incoming:  make(chan clientRequest),
		replies:   make(chan worker.Reply),
		done:      make(chan struct{}),
		pending:   make(map[store.TaskID]chan<- string),
		busySnaps: make(map[string]*store.Snapshot),
	}
}

// AddWorker registers w and announces it Ready by placing it on the idle
// queue, mirroring a Worker's startup announcement in the component design.
func (c *Coordinator) AddWorker(w *worker.Worker) {
	c.workers[w.ID] = w
	c.idle.push(w.ID)
	metrics.WorkersIdle.Set(float64(c.idle.len()))
}

// Snapshot exposes the Database's current state for read-only surfaces like
// the admin HTTP server; it never participates in lock arbitration.
func (c *Coordinator) Snapshot() *store.Snapshot {
	return c.db.Snapshot()
}

// Submit enqueues a frontend request and blocks until its Response has been
// encoded; it is the entry point net.Listener-facing code in server.go calls
// per accepted connection.
func (c *Coordinator) Submit(connID []byte, request string) string {
	metrics.TasksSubmitted.Inc()
	reply := make(chan string, 1)
	c.incoming <- clientRequest{connID: connID, request: request, replyTo: reply}
	return <-reply
}

// Stop ends Run's loop after its current iteration.
func (c *Coordinator) Stop() {
	close(c.done)
}

// Run is the Coordinator's single-threaded event loop. Each iteration first
// drains every backend (worker) event already queued, then — only if a worker
// is idle, the admission-control invariant — accepts at most one frontend
// event, mirroring the "poll frontend only when the worker queue is non-empty"
// rule and the "drain backend before frontend" ordering guarantee.
func (c *Coordinator) Run() {
	for {
		for drained := false; !drained; {
			select {
			case rep := <-c.replies:
				c.handleReply(rep)
			default:
				drained = true
			}
		}

		var inc chan clientRequest
		if c.idle.len() > 0 {
			inc = c.incoming
		}

		select {
		case rep := <-c.replies:
			c.handleReply(rep)
		case req := <-inc:
			c.dispatch(req)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) dispatch(req clientRequest) {
	workerID, ok := c.idle.pop()
	if !ok {
		// Can't happen: Run only reads c.incoming while the idle queue is
		// non-empty, and dispatch is only ever called from that one goroutine.
		log.Printf("dispatch called with no idle worker")
		req.replyTo <- "error(no worker available)"
		return
	}
	w := c.workers[workerID]

	task := c.db.AllocateTask(req.connID, req.request)
	snap := c.db.Snapshot()

	c.lockMu.Lock()
	c.busySnaps[workerID] = snap
	c.lockMu.Unlock()

	w.Mailbox <- worker.Dispatch{Task: task, Snapshot: snap, Reply: c.replies}
	c.pending[task.ID] = req.replyTo
	metrics.WorkersIdle.Set(float64(c.idle.len()))
}

func (c *Coordinator) handleReply(rep worker.Reply) {
	replyTo := c.pending[rep.Task.ID]
	delete(c.pending, rep.Task.ID)

	if err := c.db.CommitTask(rep.Task); err != nil {
		log.Printf("task %d failed to commit: %v", rep.Task.ID, err)
		metrics.TasksCommitted.WithLabelValues("error").Inc()
	} else {
		metrics.TasksCommitted.WithLabelValues("ok").Inc()
	}
	c.db.ReleaseTask(rep.Task.ID)

	c.lockMu.Lock()
	delete(c.busySnaps, rep.WorkerID)
	active := make([]*store.Snapshot, 0, len(c.busySnaps))
	for _, s := range c.busySnaps {
		active = append(active, s)
	}
	c.lockMu.Unlock()

	c.db.CollectGarbage(active)
	c.idle.push(rep.WorkerID)
	metrics.WorkersIdle.Set(float64(c.idle.len()))

	if replyTo != nil {
		replyTo <- rep.Response.Encode()
	}
}

// RequestLock implements worker.LockBroker. It is called from Worker
// goroutines, concurrently with Run's own loop, so it only ever touches
// lockMu-guarded state.
func (c *Coordinator) RequestLock(workerID string, lock store.Lock) bool {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()

	for otherID, snap := range c.busySnaps {
		if otherID == workerID {
			continue
		}
		if snap.HoldsLock(lock) {
			metrics.LockRequests.WithLabelValues("denied").Inc()
			return false
		}
	}

	snap := c.busySnaps[workerID]
	c.busySnaps[workerID] = snap.WithLocks(append(append([]store.Lock{}, snap.Locks...), lock))
	metrics.LockRequests.WithLabelValues("granted").Inc()
	return true
}

// ReleaseLocks implements worker.LockBroker and does nothing: a Worker's locks
// live on its Snapshot in busySnaps, which handleReply drops once the Worker's
// Reply arrives.
func (c *Coordinator) ReleaseLocks(workerID string) {}
