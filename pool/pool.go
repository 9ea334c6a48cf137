package pool

import (
	"sync"
	"sync/atomic"
)

// Task is a type-erased unit of work submitted to the pool; its return
// value is handed to the matching Finalizer untouched, a boxed dynamic
// value with a downcast on the finalizer side.
type Task func() any

// Finalizer receives a completed Task's result. It may be nil.
type Finalizer func(any)

type taskItem struct {
	task      Task
	finalizer Finalizer
	group     int
}

type finalizerItem struct {
	finalizer Finalizer
	result    any
}

type groupState struct {
	pending int64
	// finalizers is a FIFO queue of completed tasks awaiting their
	// finalizer, ordered by completion (not submission). Unlike the task
	// side, finalizer order is a correctness requirement (4.G), so this
	// is a plain queue guarded by Pool.mu rather than the lock-free
	// Stack — a LIFO would run finalizers in reverse completion order.
	finalizers []finalizerItem
}

// Pool is a two-stage thread pool: workers pull tasks off a
// shared lock-free stack and run them in parallel; each task's
// finalizer (with the task's result) is appended to a per-group FIFO
// queue instead of being run immediately. FinalizeTasks drains and runs
// a group's finalizers serially on the calling thread, in the order
// their tasks completed.
type Pool struct {
	tasks *Stack[taskItem]

	mu     sync.Mutex
	cond   *sync.Cond
	groups map[int]*groupState

	stopping atomic.Bool
	wg       sync.WaitGroup
}

// New spawns workerCount workers immediately.
func New(workerCount int) *Pool {
	p := newEmptyPool()
	p.SpawnThreads(workerCount)
	return p
}

// Empty returns a pool with no workers yet; call SpawnThreads to start
// some. Useful when a caller wants a default-constructed pool before
// deciding worker count.
func Empty() *Pool {
	return newEmptyPool()
}

func newEmptyPool() *Pool {
	p := &Pool{
		tasks:  NewStack[taskItem](),
		groups: make(map[int]*groupState),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SpawnThreads starts n additional workers on a pool that may already
// have some running.
func (p *Pool) SpawnThreads(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
}

func (p *Pool) groupFor(id int) *groupState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.groupForLocked(id)
}

// groupForLocked is groupFor for callers that already hold p.mu.
func (p *Pool) groupForLocked(id int) *groupState {
	gs, ok := p.groups[id]
	if !ok {
		gs = &groupState{}
		p.groups[id] = gs
	}
	return gs
}

func resolveGroup(group []int) int {
	if len(group) == 0 {
		return 0
	}
	return group[0]
}

// Submit enqueues task for execution on a worker. finalizer, if
// non-nil, runs on whichever goroutine later calls FinalizeTasks for
// group (or group 0 if omitted), once task has completed.
func (p *Pool) Submit(task Task, finalizer Finalizer, group ...int) {
	g := resolveGroup(group)
	gs := p.groupFor(g)
	atomic.AddInt64(&gs.pending, 1)

	p.mu.Lock()
	p.tasks.PushFront(taskItem{task: task, finalizer: finalizer, group: g})
	p.cond.Broadcast()
	p.mu.Unlock()
}

// FinalizeTasks blocks the calling goroutine until every task and every
// finalizer submitted to group (0 if omitted) has completed. Finalizers
// run serially on the calling goroutine, in the order their tasks
// completed. A finalizer that submits more tasks to the same group
// extends the group's work; FinalizeTasks only returns once the group
// reports no pending work.
func (p *Pool) FinalizeTasks(group ...int) {
	g := resolveGroup(group)
	gs := p.groupFor(g)

	p.mu.Lock()
	for atomic.LoadInt64(&gs.pending) > 0 {
		if len(gs.finalizers) == 0 {
			p.cond.Wait()
			continue
		}
		item := gs.finalizers[0]
		if len(gs.finalizers) == 1 {
			gs.finalizers = nil
		} else {
			gs.finalizers = gs.finalizers[1:]
		}
		p.mu.Unlock()
		if item.finalizer != nil {
			item.finalizer(item.result)
		}
		atomic.AddInt64(&gs.pending, -1)
		p.mu.Lock()
	}
	p.mu.Unlock()
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		item, ok := p.nextTask()
		if !ok {
			return
		}
		result := item.task()

		p.mu.Lock()
		gs := p.groupForLocked(item.group)
		gs.finalizers = append(gs.finalizers, finalizerItem{finalizer: item.finalizer, result: result})
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Pool) nextTask() (taskItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.stopping.Load() {
			return taskItem{}, false
		}
		if item, ok := p.tasks.TryPopFront(); ok {
			return item, true
		}
		p.cond.Wait()
	}
}

// Close asks every worker to stop once it has no task in hand: in-flight
// tasks run to completion, pending (never-started) tasks are dropped,
// and finalizers for dropped tasks never run. Close blocks until every
// worker has exited.
func (p *Pool) Close() {
	p.stopping.Store(true)
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
