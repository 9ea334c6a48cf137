package sched

import (
	"fmt"
	"sync"
	"time"

	"github.com/TheBitDrifter/bark"
	"github.com/caldera-games/loom/pool"
)

// systemsGroup is the pool.Pool group every tick's system tasks are
// submitted to. A Manager only ever drives this one group; nested
// finalize_tasks calls a system makes on its own are the system's
// business, not the manager's.
const systemsGroup = 0

// AccessMode is whether a system reads or mutates a component type.
type AccessMode int

const (
	Read AccessMode = iota
	Write
)

// AccessEntry is one element of a system's component filter: the static
// declaration consumed both by the scheduler (for conflict inference)
// and by the system itself to know what it may touch.
type AccessEntry[K comparable] struct {
	Type K
	Mode AccessMode
}

// System is a user-supplied per-tick callable.
type System[K comparable] interface {
	Update() error
}

// Registration is what the application declares at registration: how to
// construct the system, its component filter, and any explicit ordering
// constraints against other registered systems by name.
type Registration[K comparable] struct {
	Name      string
	New       func() System[K]
	Access    []AccessEntry[K]
	GoesAfter []string
}

func accessConflicts[K comparable](a, b []AccessEntry[K]) bool {
	for _, ea := range a {
		for _, eb := range b {
			if ea.Type == eb.Type && (ea.Mode == Write || eb.Mode == Write) {
				return true
			}
		}
	}
	return false
}

// Manager is the async systems manager: it owns a dependency
// graph over the registered systems, a thread pool to run them on, and
// drives one tick at a time via Update.
type Manager[K comparable] struct {
	regs      []Registration[K]
	nameIndex map[string]int
	systems   []System[K]
	graph     *Graph
	pool      *pool.Pool

	instrumentation *Instrumentation

	statsMu sync.Mutex
	stats   Stats
}

// Stats is a point-in-time snapshot of a Manager's tick activity, a
// supplement to the core spec useful for diagnostics and tests.
type Stats struct {
	TicksRun        uint64
	LastTickSpan    time.Duration
	SystemRunsByIdx map[int]uint64
}

// NewManager returns an empty manager; call Register for each system and
// then Init to build the dependency graph and thread pool.
func NewManager[K comparable]() *Manager[K] {
	return &Manager[K]{
		nameIndex: make(map[string]int),
		stats:     Stats{SystemRunsByIdx: make(map[int]uint64)},
	}
}

// WithInstrumentation attaches optional tick/run metrics, mirroring
// cuemby-warren's pkg/metrics histogram+counter pattern.
func (m *Manager[K]) WithInstrumentation(inst *Instrumentation) *Manager[K] {
	m.instrumentation = inst
	return m
}

// Register adds a system to the manager. Must be called before Init.
// Registering two systems under the same Name is a contract violation.
func (m *Manager[K]) Register(reg Registration[K]) {
	if _, exists := m.nameIndex[reg.Name]; exists {
		panic(bark.AddTrace(DuplicateSystemError{Name: reg.Name}))
	}
	idx := len(m.regs)
	m.nameIndex[reg.Name] = idx
	m.regs = append(m.regs, reg)
}

// Init builds the dependency graph (explicit goes_after edges, then
// inferred write/write and read/write edges between every ordered pair
// of registrations), finalizes it, constructs every system, and starts
// a thread pool of workerCount workers.
func (m *Manager[K]) Init(workerCount int) error {
	n := len(m.regs)
	m.graph = InitNodes(n)

	for i, reg := range m.regs {
		for _, after := range reg.GoesAfter {
			j, ok := m.nameIndex[after]
			if !ok {
				return fmt.Errorf("sched: system %q declares goes_after unknown system %q", reg.Name, after)
			}
			m.graph.AddDependency(j, i)
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if accessConflicts(m.regs[i].Access, m.regs[j].Access) {
				m.graph.AddDependency(i, j)
			}
		}
	}

	if err := m.graph.Finalize(); err != nil {
		return err
	}

	m.systems = make([]System[K], n)
	for i, reg := range m.regs {
		m.systems[i] = reg.New()
	}
	m.pool = pool.New(workerCount)
	return nil
}

// Update runs exactly one tick: a fresh Tracer is built, and nodes are
// submitted to the thread pool as they become Ready, each one's
// finalizer marking it Done and re-entering the dispatch loop, until
// the tracer reports every node Done. The returned error is the first
// error any system's Update returned during the tick, if any.
func (m *Manager[K]) Update() error {
	start := time.Now()
	tracer := NewTracer(m.graph)

	submitted := make([]bool, m.graph.NodeCount())
	var mu sync.Mutex
	var firstErr error

	var dispatch func()
	dispatch = func() {
		mu.Lock()
		var toSubmit []int
		for _, v := range tracer.GetNextSystemsToRun() {
			if !submitted[v] {
				submitted[v] = true
				toSubmit = append(toSubmit, v)
			}
		}
		mu.Unlock()

		for _, v := range toSubmit {
			v := v
			tracer.RunSystem(v)
			m.pool.Submit(func() any {
				return m.systems[v].Update()
			}, func(res any) {
				if err, ok := res.(error); ok && err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
				m.recordSystemRun(v)
				tracer.FinishSystem(v)
				dispatch()
			}, systemsGroup)
		}
	}

	dispatch()
	m.pool.FinalizeTasks(systemsGroup)

	elapsed := time.Since(start)
	m.statsMu.Lock()
	m.stats.TicksRun++
	m.stats.LastTickSpan = elapsed
	m.statsMu.Unlock()

	if m.instrumentation != nil {
		m.instrumentation.observeTick(elapsed)
	}
	return firstErr
}

func (m *Manager[K]) recordSystemRun(v int) {
	m.statsMu.Lock()
	m.stats.SystemRunsByIdx[v]++
	m.statsMu.Unlock()

	if m.instrumentation != nil {
		m.instrumentation.observeSystemRun(m.regs[v].Name)
	}
}

// Stats returns a snapshot of the manager's tick activity so far.
func (m *Manager[K]) Stats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	out := m.stats
	out.SystemRunsByIdx = make(map[int]uint64, len(m.stats.SystemRunsByIdx))
	for k, v := range m.stats.SystemRunsByIdx {
		out.SystemRunsByIdx[k] = v
	}
	return out
}

// Close releases the manager's thread pool.
func (m *Manager[K]) Close() {
	if m.pool != nil {
		m.pool.Close()
	}
}
