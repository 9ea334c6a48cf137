package loom

import "fmt"

// DeadEntityError is returned when an operation that requires
// liveness is attempted against an entity the store no longer holds.
type DeadEntityError struct {
	Entity Entity
}

func (e DeadEntityError) Error() string {
	return fmt.Sprintf("loom: entity %s is not live in this store", e.Entity)
}

// DuplicateComponentError signals a caller tried to add a component type
// an entity already has.
type DuplicateComponentError struct {
	Entity Entity
	Type   string
}

func (e DuplicateComponentError) Error() string {
	return fmt.Sprintf("loom: entity %s already has component %s", e.Entity, e.Type)
}

// MissingComponentError signals a lookup found no value of that type on
// the entity. Callers that can tolerate this should prefer the Ok-returning
// accessors; this type exists for paths that must fail loudly.
type MissingComponentError struct {
	Entity Entity
	Type   string
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("loom: entity %s has no component %s", e.Entity, e.Type)
}

// UnknownComponentTypeError signals a type-id was never registered on
// this registry.
type UnknownComponentTypeError[K comparable] struct {
	ID K
}

func (e UnknownComponentTypeError[K]) Error() string {
	return fmt.Sprintf("loom: component type %v was never registered", e.ID)
}

// DuplicateTypeIDError signals two registrations under the same type-id.
type DuplicateTypeIDError[K comparable] struct {
	ID K
}

func (e DuplicateTypeIDError[K]) Error() string {
	return fmt.Sprintf("loom: component type-id %v is already registered", e.ID)
}

// LockedStoreError signals a structural mutation was attempted while the
// store is locked for iteration (see Store.Lock/Unlock).
type LockedStoreError struct{}

func (e LockedStoreError) Error() string { return "loom: store is locked" }
