package task

import "sync"

// ID identifies a submitted task.
type ID int

// NotAWorker is returned by Context.WorkerID for closures executed outside
// the pool (a helping waiter on the main goroutine).
const NotAWorker = -1

// Fn is a task body. The final value of tc.Successful is the task outcome.
type Fn func(tc *Context)

// Context is passed to every running task. It carries the task outcome and
// is the handle for reentrant submissions from inside the pool.
type Context struct {
	// Successful is the task outcome; it starts true and the task body
	// clears it on failure.
	Successful bool

	m        *Manager
	workerID int
}

// WorkerID returns the identity of the worker running this task, or
// NotAWorker when the task was executed inline by a waiting outside
// goroutine.
func (tc *Context) WorkerID() int {
	return tc.workerID
}

// AddTask enqueues a subtask for the pool.
func (tc *Context) AddTask(fn Fn) ID {
	return tc.m.AddTask(fn)
}

// AddTaskSameThread registers fn as a task and executes it immediately on
// the current worker. Fan-outs use it for their final subtask so the
// submitting worker keeps doing useful work instead of blocking.
func (tc *Context) AddTaskSameThread(fn Fn) ID {
	p := tc.Prepare(fn)
	p.RunSameThread()
	return p.ID()
}

// RunTask enqueues fn, or executes it inline on the current worker when no
// other worker is idle. Reentrant submitters use it so fan-outs make
// progress even when the pool is saturated with waiting workers.
func (tc *Context) RunTask(fn Fn) ID {
	p := tc.Prepare(fn)
	p.RunOrEnqueue()
	return p.ID()
}

// WaitForTasks blocks until the given tasks finish, helping the pool run
// queued work meanwhile. See Manager.WaitForTasks.
func (tc *Context) WaitForTasks(ids ...ID) bool {
	return tc.m.waitForTasks(tc.workerID, ids)
}

// Prepare registers fn and returns a handle whose ID is valid immediately,
// before the task is scheduled or run. Submitters that publish the ID to
// other waiters (the DFS walk's shared visited set) use it to close the
// window between claiming a node and scheduling its task.
func (tc *Context) Prepare(fn Fn) *Prepared {
	return &Prepared{t: tc.m.register(fn), tc: tc}
}

// Prepared is a registered but not yet scheduled task.
type Prepared struct {
	t  *taskState
	tc *Context
}

// ID returns the task's identifier.
func (p *Prepared) ID() ID { return p.t.id }

// RunSameThread executes the task now, on the submitting worker.
func (p *Prepared) RunSameThread() {
	p.tc.m.execute(p.t, p.tc.workerID)
}

// RunOrEnqueue enqueues the task if another worker is idle to take it, and
// otherwise executes it inline on the submitting worker.
func (p *Prepared) RunOrEnqueue() {
	m := p.tc.m
	m.mu.Lock()
	if m.idle > 0 {
		m.queue = append(m.queue, p.t)
		m.cond.Broadcast()
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.execute(p.t, p.tc.workerID)
}

type taskState struct {
	id         ID
	fn         Fn
	done       bool
	successful bool
}

// Manager is the bounded worker pool.
type Manager struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue   []*taskState
	tasks   map[ID]*taskState
	nextID  ID
	idle    int
	closed  bool
	workers sync.WaitGroup
}

// NewManager starts a pool. Jobs is the desired effective parallelism; one
// slot belongs to the submitting goroutine, which participates by helping
// inside WaitForTasks, so the pool spawns max(1, jobs-1) workers.
func NewManager(jobs int) *Manager {
	workers := jobs - 1
	if workers < 1 {
		workers = 1
	}

	m := &Manager{
		tasks: make(map[ID]*taskState),
	}
	m.cond = sync.NewCond(&m.mu)

	m.workers.Add(workers)
	for i := 1; i <= workers; i++ {
		go m.workerLoop(i)
	}
	return m
}

// Close shuts the pool down after the queue drains. Submitting after Close
// panics.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
	m.workers.Wait()
}

// AddTask enqueues a task for the pool; it never runs on the calling
// goroutine.
func (m *Manager) AddTask(fn Fn) ID {
	t := m.register(fn)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		panic("task: AddTask called on closed Manager")
	}
	m.queue = append(m.queue, t)
	m.cond.Broadcast()
	m.mu.Unlock()
	return t.id
}

// WaitForTasks blocks until every task in ids is finished and reports
// whether all of them succeeded. With no arguments it waits for every task
// submitted so far. The waiting goroutine helps execute queued tasks, which
// makes the caller an effective extra worker.
func (m *Manager) WaitForTasks(ids ...ID) bool {
	return m.waitForTasks(NotAWorker, ids)
}

// AllSuccessful reports whether every task in ids finished successfully.
// It does not block; unfinished tasks count as unsuccessful.
func (m *Manager) AllSuccessful(ids ...ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allSuccessfulLocked(ids)
}

func (m *Manager) register(fn Fn) *taskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &taskState{id: m.nextID, fn: fn}
	m.nextID++
	m.tasks[t.id] = t
	return t
}

func (m *Manager) workerLoop(workerID int) {
	defer m.workers.Done()
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.idle++
			m.cond.Wait()
			m.idle--
		}
		if len(m.queue) == 0 && m.closed {
			m.mu.Unlock()
			return
		}
		t := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.execute(t, workerID)
	}
}

// execute runs a task body on the calling goroutine and records its
// outcome. A panicking task is recorded as failed.
func (m *Manager) execute(t *taskState, workerID int) {
	tc := &Context{Successful: true, m: m, workerID: workerID}

	func() {
		defer func() {
			if r := recover(); r != nil {
				tc.Successful = false
			}
		}()
		t.fn(tc)
	}()

	m.mu.Lock()
	t.done = true
	t.successful = tc.Successful
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *Manager) waitForTasks(workerID int, ids []ID) bool {
	for {
		m.mu.Lock()

		if m.finishedLocked(ids) {
			ok := m.allSuccessfulLocked(ids)
			m.mu.Unlock()
			return ok
		}

		// Help: run queued work on this goroutine instead of blocking.
		if len(m.queue) > 0 {
			t := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			m.execute(t, workerID)
			continue
		}

		m.idle++
		m.cond.Wait()
		m.idle--
		m.mu.Unlock()
	}
}

func (m *Manager) finishedLocked(ids []ID) bool {
	if ids == nil {
		for _, t := range m.tasks {
			if !t.done {
				return false
			}
		}
		return true
	}
	for _, id := range ids {
		if t, ok := m.tasks[id]; !ok || !t.done {
			return false
		}
	}
	return true
}

func (m *Manager) allSuccessfulLocked(ids []ID) bool {
	if ids == nil {
		for _, t := range m.tasks {
			if !t.successful {
				return false
			}
		}
		return true
	}
	for _, id := range ids {
		t, ok := m.tasks[id]
		if !ok || !t.done || !t.successful {
			return false
		}
	}
	return true
}
