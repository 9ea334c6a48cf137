package loom

import "testing"

type compA struct{ v int }
type compB struct{ v int }
type compC struct{ v int }
type compD struct{ v int }
type compE struct{ v int }
type compF struct{ v int }
type compG struct{ v int }

// TestPermutationAndRemovalAcrossOverlappingComponentSets builds three
// entities with deliberately overlapping, non-identical component sets,
// removes one, and checks that A is empty and that B, C, F and G still
// iterate with correct values and no pointer corruption; adding a fourth
// entity with every registered type then grows A to 1 and G to 3 entries.
func TestPermutationAndRemovalAcrossOverlappingComponentSets(t *testing.T) {
	r := NewRegistry[string]()
	da := Register[compA](r, "a")
	db := Register[compB](r, "b")
	dc := Register[compC](r, "c")
	dd := Register[compD](r, "d")
	de := Register[compE](r, "e")
	df := Register[compF](r, "f")
	dg := Register[compG](r, "g")

	s := NewStore(r)

	e1 := s.AddEntity()
	da.Set(s, e1, compA{1})
	dc.Set(s, e1, compC{3})
	de.Set(s, e1, compE{5})
	dg.Set(s, e1, compG{7})

	e2 := s.AddEntity()
	db.Set(s, e2, compB{20})
	dc.Set(s, e2, compC{30})
	df.Set(s, e2, compF{60})
	dg.Set(s, e2, compG{70})

	e3 := s.AddEntity()
	dd.Set(s, e3, compD{400})
	de.Set(s, e3, compE{500})
	df.Set(s, e3, compF{600})
	dg.Set(s, e3, compG{700})

	s.RemoveEntity(e1)

	if da.Count(s) != 0 {
		t.Errorf("A should be empty after removing its only owner, count=%d", da.Count(s))
	}

	bOwners, bValues := db.All(s)
	if len(bOwners) != 1 || bOwners[0] != e2 || bValues[0].v != 20 {
		t.Errorf("B = %v %v, want [(e2,20)]", bOwners, bValues)
	}

	cOwners, cValues := dc.All(s)
	if len(cOwners) != 1 || cOwners[0] != e2 || cValues[0].v != 30 {
		t.Errorf("C = %v %v, want [(e2,30)]", cOwners, cValues)
	}

	fOwners, fValues := df.All(s)
	if len(fOwners) != 2 {
		t.Fatalf("F length = %d, want 2", len(fOwners))
	}
	fGot := map[Entity]int{}
	for i, owner := range fOwners {
		fGot[owner] = fValues[i].v
	}
	if fGot[e2] != 60 || fGot[e3] != 600 {
		t.Errorf("F = %v, want {e2:60, e3:600}", fGot)
	}

	gOwners, gValues := dg.All(s)
	gGot := map[Entity]int{}
	for i, owner := range gOwners {
		gGot[owner] = gValues[i].v
	}
	if len(gOwners) != 2 || gGot[e2] != 70 || gGot[e3] != 700 {
		t.Errorf("G = %v, want {e2:70, e3:700}", gGot)
	}

	e4 := s.AddEntity()
	da.Set(s, e4, compA{10000})
	db.Set(s, e4, compB{20000})
	dc.Set(s, e4, compC{30000})
	dd.Set(s, e4, compD{40000})
	de.Set(s, e4, compE{50000})
	df.Set(s, e4, compF{60000})
	dg.Set(s, e4, compG{70000})

	if da.Count(s) != 1 {
		t.Errorf("A count after adding e4 = %d, want 1", da.Count(s))
	}
	if dg.Count(s) != 3 {
		t.Errorf("G count after adding e4 = %d, want 3", dg.Count(s))
	}
}

type Transform struct{ X, Y float64 }
type Movement struct{ DX, DY float64 }

// TestScheduledComponentSwapReplacesTransformWithMovement schedules a
// remove of one component and an add of another for the same entity
// within one batch: after execute_scheduled_actions the entity has the
// added component with its staged value and no longer has the removed one.
func TestScheduledComponentSwapReplacesTransformWithMovement(t *testing.T) {
	r := NewRegistry[string]()
	transform := Register[Transform](r, "transform")
	movement := Register[Movement](r, "movement")

	s := NewStore(r)
	e := s.AddEntity()
	transform.Set(s, e, Transform{X: 1, Y: 1})

	transform.ScheduleRemove(s, e)
	staged := movement.ScheduleAdd(s, e)
	staged.DX, staged.DY = 2, 3

	if err := s.ExecuteScheduledActions(); err != nil {
		t.Fatalf("ExecuteScheduledActions returned error: %v", err)
	}

	if transform.Has(s, e) {
		t.Errorf("Transform should have been removed")
	}
	got, ok := movement.Get(s, e)
	if !ok {
		t.Fatalf("Movement should have been added")
	}
	if got.DX != 2 || got.DY != 3 {
		t.Errorf("Movement = %v, want {2 3}", *got)
	}
}
