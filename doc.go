/*
Package loom provides an Entity-Component-System (ECS) core for
simulation-heavy applications such as games.

Loom stores entities as dense, versioned identifiers and keeps one packed
(sparse + dense) storage per component type, independent of which other
components an entity carries. That keeps iteration over any single
component type linear and free of archetype churn: adding or removing an
unrelated component on an entity never moves the components this storage
doesn't own.

Core Concepts:

  - Entity: a (raw id, version) pair naming a live object in a Store.
  - Component: a plain Go value attached to an entity, stored in its own
    packed array.
  - Registry: maps a user-chosen component-type-id to a dense bit index
    and a storage factory shared by every Store built against it.
  - Store: owns entities and, lazily, one packed storage per component
    type that has ever held a live value.
  - View: iterates several Stores as one logical collection.

Basic Usage:

	registry := loom.NewRegistry[string]()
	position := loom.Register[Position](registry, "Position")
	velocity := loom.Register[Velocity](registry, "Velocity")

	store := loom.NewStore(registry)
	e := store.AddEntity()
	position.Set(store, e, Position{X: 1})
	velocity.Set(store, e, Velocity{X: 1})

	positions, velocities := loom.GetComponents2(store, position, velocity)
	for i := range positions {
		positions[i].X += velocities[i].X
	}

Loom's sibling packages, pool and sched, add a two-stage worker pool and a
dependency-graph-driven scheduler that runs registered systems in parallel
whenever their declared component access sets don't conflict; neither
imports loom, and loom has no knowledge of either.
*/
package loom
