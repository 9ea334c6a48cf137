package loom

import (
	"sync"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
)

// Store is the entity store: it owns entity lifecycle, the per-type
// storages registered components are kept in, and the scheduled action
// queue used to defer structural mutation during iteration.
//
// A Store is single-thread-owned at any moment: all of its methods
// assume the caller serializes access, except that independent Stores
// sharing one Registry may be constructed and used concurrently on
// different goroutines.
type Store[K comparable] struct {
	registry *Registry[K]
	gen      *entityGenerator

	live  []Entity
	rowOf map[uint32]int
	masks []mask.Mask256

	storages map[K]componentStore
	queue    []scheduledAction[K]

	storageMu sync.Mutex
	locks     int
}

type scheduledAction[K comparable] func(*Store[K]) error

// NewStore builds an empty Store against registry.
func NewStore[K comparable](registry *Registry[K]) *Store[K] {
	return &Store[K]{
		registry: registry,
		gen:      newEntityGenerator(false),
		rowOf:    make(map[uint32]int),
		storages: make(map[K]componentStore),
	}
}

// NewIncrementalStore builds an empty Store whose entity generator never
// reuses a raw id (the "incremental" variant from 3. DATA MODEL).
func NewIncrementalStore[K comparable](registry *Registry[K]) *Store[K] {
	return &Store[K]{
		registry: registry,
		gen:      newEntityGenerator(true),
		rowOf:    make(map[uint32]int),
		storages: make(map[K]componentStore),
	}
}

// Registry returns the registry this store was built against.
func (s *Store[K]) Registry() *Registry[K] { return s.registry }

func (s *Store[K]) ensureMaskCap(rawID uint32) {
	for uint32(len(s.masks)) <= rawID {
		s.masks = append(s.masks, mask.Mask256{})
	}
}

func (s *Store[K]) appendLive(e Entity) {
	s.ensureMaskCap(e.RawID)
	idx := len(s.live)
	s.live = append(s.live, e)
	s.rowOf[e.RawID] = idx
}

// AddEntity creates and returns a fresh, live entity.
func (s *Store[K]) AddEntity() Entity {
	e := s.gen.allocate()
	s.appendLive(e)
	return e
}

// AddExistingUnsafe inserts a caller-supplied entity that is not currently
// live in this store, for replaying a previously recorded command. It is
// the caller's responsibility that e was legitimately generated (by this
// store or a peer using the same id space); inserting an id that
// collides with a currently-live entity is a contract violation.
func (s *Store[K]) AddExistingUnsafe(e Entity) error {
	if s.HasEntity(e) {
		err := DuplicateComponentError{Entity: e, Type: "<entity>"}
		if Config.PanicOnContractViolation {
			panic(bark.AddTrace(err))
		}
		return err
	}
	s.gen.adopt(e)
	s.appendLive(e)
	return nil
}

// HasEntity reports whether e is currently live in this store.
func (s *Store[K]) HasEntity(e Entity) bool {
	idx, ok := s.rowOf[e.RawID]
	if !ok {
		return false
	}
	return s.live[idx] == e
}

// HasAnyEntities reports whether this store holds any live entity.
func (s *Store[K]) HasAnyEntities() bool { return len(s.live) > 0 }

// LiveEntities returns the store's current live set in unspecified order.
// The returned slice aliases internal state and is invalidated by any
// subsequent structural mutation.
func (s *Store[K]) LiveEntities() []Entity { return s.live }

// RemoveEntity destroys e and every component it owns. No-op if e is not
// live.
func (s *Store[K]) RemoveEntity(e Entity) {
	if !s.HasEntity(e) {
		return
	}
	for _, st := range s.storages {
		st.remove(e.RawID)
	}
	s.masks[e.RawID] = mask.Mask256{}

	idx := s.rowOf[e.RawID]
	last := len(s.live) - 1
	if idx != last {
		s.live[idx] = s.live[last]
		s.rowOf[s.live[idx].RawID] = idx
	}
	s.live = s.live[:last]
	delete(s.rowOf, e.RawID)
	s.gen.release(e.RawID)
}

// InitIndex ensures a storage for d's component type exists, even if it
// stays empty, and is idempotent and safe to call concurrently with
// InitIndex on a different Store sharing the same Registry.
func InitIndex[T any, K comparable](s *Store[K], d Descriptor[T, K]) {
	s.storageMu.Lock()
	defer s.storageMu.Unlock()
	if _, ok := s.storages[d.id]; !ok {
		s.storages[d.id] = s.registry.mustLookup(d.id).newStore()
	}
}

func (d Descriptor[T, K]) typedStoreOf(s *Store[K]) *typedStore[T] {
	s.storageMu.Lock()
	raw, ok := s.storages[d.id]
	if !ok {
		raw = s.registry.mustLookup(d.id).newStore()
		s.storages[d.id] = raw
	}
	s.storageMu.Unlock()
	return raw.(*typedStore[T])
}

func (s *Store[K]) markHas(rawID uint32, bit uint32) {
	s.ensureMaskCap(rawID)
	s.masks[rawID].Mark(bit)
}

func (s *Store[K]) clearHas(rawID uint32, bit uint32) {
	if uint32(len(s.masks)) > rawID {
		s.masks[rawID].Unmark(bit)
	}
}

// Add inserts a default-constructed T for e and returns a mutable
// pointer to it. Fails if e is not live; adding a component type e
// already has is a contract violation.
func (d Descriptor[T, K]) Add(s *Store[K], e Entity) (*T, error) {
	if !s.HasEntity(e) {
		return nil, DeadEntityError{Entity: e}
	}
	ts := d.typedStoreOf(s)
	if ts.has(e.RawID) {
		err := DuplicateComponentError{Entity: e, Type: d.Name()}
		if Config.PanicOnContractViolation {
			panic(bark.AddTrace(err))
		}
		return nil, err
	}
	var zero T
	ptr := ts.insert(e, zero)
	s.markHas(e.RawID, d.bit)
	return ptr, nil
}

// Set inserts value for e if absent, or overwrites the existing value.
// It is a convenience on top of Add that several call sites (scheduled
// actions with an initial value, tests seeding fixtures) need and that a
// strict add-only contract would otherwise make them hand-roll.
func (d Descriptor[T, K]) Set(s *Store[K], e Entity, value T) (*T, error) {
	if !s.HasEntity(e) {
		return nil, DeadEntityError{Entity: e}
	}
	ts := d.typedStoreOf(s)
	if ptr, ok := ts.get(e.RawID); ok {
		*ptr = value
		return ptr, nil
	}
	ptr := ts.insert(e, value)
	s.markHas(e.RawID, d.bit)
	return ptr, nil
}

// Remove deletes d's component from e. No-op if absent.
func (d Descriptor[T, K]) Remove(s *Store[K], e Entity) {
	s.storageMu.Lock()
	raw, ok := s.storages[d.id]
	s.storageMu.Unlock()
	if !ok {
		return
	}
	if raw.(*typedStore[T]).remove(e.RawID) {
		s.clearHas(e.RawID, d.bit)
	}
}

// Get returns a mutable pointer to e's component and whether it exists.
func (d Descriptor[T, K]) Get(s *Store[K], e Entity) (*T, bool) {
	s.storageMu.Lock()
	raw, ok := s.storages[d.id]
	s.storageMu.Unlock()
	if !ok {
		return nil, false
	}
	return raw.(*typedStore[T]).get(e.RawID)
}

// Has reports whether e currently owns a component of this type.
func (d Descriptor[T, K]) Has(s *Store[K], e Entity) bool {
	s.storageMu.Lock()
	raw, ok := s.storages[d.id]
	s.storageMu.Unlock()
	if !ok {
		return false
	}
	return raw.(*typedStore[T]).has(e.RawID)
}

// Count returns the number of live entities currently holding this
// component type, in O(1).
func (d Descriptor[T, K]) Count(s *Store[K]) int {
	s.storageMu.Lock()
	raw, ok := s.storages[d.id]
	s.storageMu.Unlock()
	if !ok {
		return 0
	}
	return raw.length()
}

// All returns the packed (entities, values) arrays backing this
// component type. Both slices alias internal storage and are invalidated
// by any subsequent structural mutation of this type's storage.
func (d Descriptor[T, K]) All(s *Store[K]) ([]Entity, []T) {
	s.storageMu.Lock()
	raw, ok := s.storages[d.id]
	s.storageMu.Unlock()
	if !ok {
		return nil, nil
	}
	return raw.(*typedStore[T]).iter()
}

// DoesEntityHaveComponent is does_entity_have_component<T>(e).
func (d Descriptor[T, K]) DoesEntityHaveComponent(s *Store[K], e Entity) bool {
	return d.Has(s, e)
}

// ComponentRef is one element of get_all_entity_components(e, out): a
// type-id paired with a type-erased pointer to the live value.
type ComponentRef[K comparable] struct {
	TypeID K
	Value  any
}

// AllEntityComponents appends every (type_id, pointer) e owns to out and
// returns the extended slice.
func (s *Store[K]) AllEntityComponents(e Entity, out []ComponentRef[K]) []ComponentRef[K] {
	if !s.HasEntity(e) {
		return out
	}
	for id, st := range s.storages {
		if ptr := st.anyPointer(e.RawID); ptr != nil {
			out = append(out, ComponentRef[K]{TypeID: id, Value: ptr})
		}
	}
	return out
}

// EntitiesHavingComponents is get_entities_having_components(types, out):
// every live entity that has all of ids, appended to out.
func (s *Store[K]) EntitiesHavingComponents(out []Entity, ids ...K) []Entity {
	var want mask.Mask256
	for _, id := range ids {
		want.Mark(s.registry.mustLookup(id).bit)
	}
	for _, e := range s.live {
		if uint32(len(s.masks)) > e.RawID && s.masks[e.RawID].ContainsAll(want) {
			out = append(out, e)
		}
	}
	return out
}

// Lock and Unlock are an optional, nestable guard a caller can use around
// an iteration pass to signal that structural mutation should go through
// schedule_add_component/schedule_remove_component instead of the direct
// Add/Remove methods. loom itself never checks Locked(); it exists so
// callers building a cursor-like iterator on top of Store, the way the
// teacher's Cursor used Storage.Locked(), have a shared place to put that
// bookkeeping.
func (s *Store[K]) Lock()        { s.locks++ }
func (s *Store[K]) Unlock()      { s.locks-- }
func (s *Store[K]) Locked() bool { return s.locks > 0 }

// ScheduleAdd queues a default-constructed T to be added to e on the next
// ExecuteScheduledActions and returns a pointer into a stable,
// independently heap-allocated staging cell: the pointer stays valid
// across further ScheduleAdd/ScheduleRemove calls and until the queued
// action runs, even though the queue slice itself may reallocate.
func (d Descriptor[T, K]) ScheduleAdd(s *Store[K], e Entity) *T {
	staged := new(T)
	s.queue = append(s.queue, func(st *Store[K]) error {
		_, err := d.Set(st, e, *staged)
		return err
	})
	return staged
}

// ScheduleRemove queues a component removal to run on the next
// ExecuteScheduledActions.
func (d Descriptor[T, K]) ScheduleRemove(s *Store[K], e Entity) {
	s.queue = append(s.queue, func(st *Store[K]) error {
		d.Remove(st, e)
		return nil
	})
}

// ExecuteScheduledActions applies every queued action in FIFO submission
// order and clears the queue. It stops at the first action that returns
// an error and returns that error; the actions queued after it are
// discarded without running.
func (s *Store[K]) ExecuteScheduledActions() error {
	actions := s.queue
	s.queue = nil
	for _, action := range actions {
		if err := action(s); err != nil {
			return err
		}
	}
	return nil
}

// OverrideBy replaces self's entire contents with a deep copy of other:
// every live entity's (raw_id, version) is preserved verbatim and every
// component is copied exactly once via the owning typedStore's copy
// path. Self's prior contents are discarded.
func (s *Store[K]) OverrideBy(other *Store[K]) {
	s.storages = make(map[K]componentStore, len(other.storages))
	s.live = make([]Entity, 0, len(other.live))
	s.rowOf = make(map[uint32]int, len(other.live))
	s.masks = nil
	s.queue = nil

	s.gen = newEntityGenerator(other.gen.strictlyMonotonic)
	s.gen.versions = append([]uint32(nil), other.gen.versions...)
	s.gen.free = append([]uint32(nil), other.gen.free...)

	for _, e := range other.live {
		s.ensureMaskCap(e.RawID)
		s.live = append(s.live, e)
		s.rowOf[e.RawID] = len(s.live) - 1
		s.masks[e.RawID] = other.masks[e.RawID]
	}

	for id, srcStore := range other.storages {
		dstStore := srcStore.cloneEmpty()
		for _, owner := range srcStore.ownersSlice() {
			srcStore.copyOneInto(dstStore, owner.RawID, owner)
		}
		s.storages[id] = dstStore
	}
}

// Clone returns a new Store against the same registry, populated via
// OverrideBy. It is a convenience wrapper; the work is identical.
func (s *Store[K]) Clone() *Store[K] {
	out := NewStore(s.registry)
	out.OverrideBy(s)
	return out
}

// MoveFrom replaces self's contents with other's without copying or
// moving any individual component: it takes over other's storage
// buffers directly. other is left empty and unusable as anything but a
// receiver of further additions. Both stores must share a registry.
func (s *Store[K]) MoveFrom(other *Store[K]) {
	s.registry = other.registry
	s.gen = other.gen
	s.live = other.live
	s.rowOf = other.rowOf
	s.masks = other.masks
	s.storages = other.storages
	s.queue = other.queue

	other.gen = newEntityGenerator(other.gen.strictlyMonotonic)
	other.live = nil
	other.rowOf = make(map[uint32]int)
	other.masks = nil
	other.storages = make(map[K]componentStore)
	other.queue = nil
}

// TransferEntityTo moves e and every component it owns out of s into
// other, returning the entity as it now appears in other (its raw_id may
// differ). Both stores' indexes are left consistent; e is no longer live
// in s afterward.
func (s *Store[K]) TransferEntityTo(other *Store[K], e Entity) (Entity, error) {
	if !s.HasEntity(e) {
		return Entity{}, DeadEntityError{Entity: e}
	}
	dest := other.AddEntity()
	for id, st := range s.storages {
		if !st.has(e.RawID) {
			continue
		}
		other.storageMu.Lock()
		dstStore, ok := other.storages[id]
		if !ok {
			dstStore = s.registry.mustLookup(id).newStore()
			other.storages[id] = dstStore
		}
		other.storageMu.Unlock()
		st.copyOneInto(dstStore, e.RawID, dest)
		other.markHas(dest.RawID, s.registry.mustLookup(id).bit)
	}
	s.RemoveEntity(e)
	return dest, nil
}
