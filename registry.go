package loom

import (
	"fmt"
	"sync"

	"github.com/TheBitDrifter/bark"
)

// componentStore is the type-erased half of a per-type dense storage.
// Every method operates in terms of raw entity ids so the Store never has
// to know the element type T it is holding; typedStore[T] is the only
// implementation and Descriptor[T, K] is the only place the type boundary
// gets crossed back into something typed.
type componentStore interface {
	has(rawID uint32) bool
	remove(rawID uint32) bool
	length() int
	ownersSlice() []Entity
	cloneEmpty() componentStore
	copyOneInto(dst componentStore, rawID uint32, owner Entity)
	anyPointer(rawID uint32) any
}

// descriptorInfo is the registry's per-type bookkeeping: a stable bit
// index for mask-based membership/conflict tests, a display name for
// diagnostics, and a factory for the matching typedStore.
type descriptorInfo struct {
	bit      uint32
	name     string
	newStore func() componentStore
}

// Registry maps a user-chosen component-type-id (any comparable type) to
// its descriptor: a stable bit index and a storage factory, shared by
// every Store built against it. It is read-mostly once an application
// has finished registering its component types.
//
// Registry is safe for concurrent use: two Stores built against the same
// Registry on different goroutines may register/lookup concurrently.
type Registry[K comparable] struct {
	mu    sync.RWMutex
	byID  map[K]*descriptorInfo
	order []K
}

// NewRegistry constructs an empty registry keyed by K.
func NewRegistry[K comparable]() *Registry[K] {
	return &Registry[K]{byID: make(map[K]*descriptorInfo)}
}

// Descriptor is the typed handle returned by Register; it is the boundary
// across which a Store's type-erased storage becomes a typed *T again.
type Descriptor[T any, K comparable] struct {
	registry *Registry[K]
	id       K
	bit      uint32
}

// Register adds component type T under type-id id and returns a typed
// Descriptor for it. Registering the same id twice is a contract
// violation and panics with a stack trace via bark.
func Register[T any, K comparable](r *Registry[K], id K) Descriptor[T, K] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; exists {
		panic(bark.AddTrace(DuplicateTypeIDError[K]{ID: id}))
	}
	bit := uint32(len(r.order))
	var zero T
	info := &descriptorInfo{
		bit:  bit,
		name: fmt.Sprintf("%v(%T)", id, zero),
		newStore: func() componentStore {
			return newTypedStore[T]()
		},
	}
	r.byID[id] = info
	r.order = append(r.order, id)
	return Descriptor[T, K]{registry: r, id: id, bit: bit}
}

// Lookup returns the Descriptor previously registered under id for type T.
// It reports false if id was never registered or was registered for a
// different T (the latter is itself a contract violation at the call
// site, since the compile-time type parameter no longer matches what the
// registry actually stores there).
func Lookup[T any, K comparable](r *Registry[K], id K) (Descriptor[T, K], bool) {
	r.mu.RLock()
	info, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return Descriptor[T, K]{}, false
	}
	if _, sameType := info.newStore().(*typedStore[T]); !sameType {
		return Descriptor[T, K]{}, false
	}
	return Descriptor[T, K]{registry: r, id: id, bit: info.bit}, true
}

func (r *Registry[K]) lookup(id K) (*descriptorInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byID[id]
	return info, ok
}

func (r *Registry[K]) mustLookup(id K) *descriptorInfo {
	info, ok := r.lookup(id)
	if !ok {
		panic(bark.AddTrace(UnknownComponentTypeError[K]{ID: id}))
	}
	return info
}

// TypeCount returns how many distinct component types have been
// registered. Useful for pre-sizing mask-backed bookkeeping.
func (r *Registry[K]) TypeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ID returns the type-id this descriptor was registered under.
func (d Descriptor[T, K]) ID() K { return d.id }

// Name returns a human-readable label for diagnostics, e.g. panic
// messages and scheduler stats.
func (d Descriptor[T, K]) Name() string {
	info, ok := d.registry.lookup(d.id)
	if !ok {
		return fmt.Sprintf("%v", d.id)
	}
	return info.name
}

// bitIndex returns the descriptor's dense mask-bit index.
func (d Descriptor[T, K]) bitIndex() uint32 { return d.bit }
