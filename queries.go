package loom

// Multi-type query helpers: iterate by whichever storage is currently
// smallest. Go generics have no variadic type-parameter lists, so the
// arity-2/3/4 shapes are spelled out explicitly rather than collapsed
// into one generic-over-N function, hand-writing one function per shape
// instead of reflecting over an arbitrary component list.

func smallest(counts ...int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] < counts[best] {
			best = i
		}
	}
	return best
}

// GetComponentsWithEntities2 drives iteration off whichever of a, b has
// fewer entries and looks each of its entities up in the other's sparse
// index, returning
// parallel (entity, *A, *B) slices for every entity holding both.
func GetComponentsWithEntities2[A, B any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K]) ([]Entity, []*A, []*B) {
	ea, va := da.All(s)
	eb, vb := db.All(s)
	if len(ea) == 0 || len(eb) == 0 {
		return nil, nil, nil
	}

	driver := smallest(len(ea), len(eb))
	var entities []Entity
	var as []*A
	var bs []*B

	if driver == 0 {
		for i := range ea {
			e := ea[i]
			if bp, ok := db.Get(s, e); ok {
				entities = append(entities, e)
				as = append(as, &va[i])
				bs = append(bs, bp)
			}
		}
	} else {
		for i := range eb {
			e := eb[i]
			if ap, ok := da.Get(s, e); ok {
				entities = append(entities, e)
				as = append(as, ap)
				bs = append(bs, &vb[i])
			}
		}
	}
	return entities, as, bs
}

// GetComponents2 is GetComponentsWithEntities2 without the entity slice.
func GetComponents2[A, B any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K]) ([]*A, []*B) {
	_, as, bs := GetComponentsWithEntities2(s, da, db)
	return as, bs
}

// ForEachComponentSetWithEntity2 calls fn for every entity holding both
// components, passing mutable pointers into live storage. fn must not
// perform structural mutation on s; use ScheduleAdd/ScheduleRemove instead
// and call ExecuteScheduledActions once the loop returns.
func ForEachComponentSetWithEntity2[A, B any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], fn func(Entity, *A, *B)) {
	entities, as, bs := GetComponentsWithEntities2(s, da, db)
	for i := range entities {
		fn(entities[i], as[i], bs[i])
	}
}

// ForEachComponentSet2 is ForEachComponentSetWithEntity2 without the entity.
func ForEachComponentSet2[A, B any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], fn func(*A, *B)) {
	ForEachComponentSetWithEntity2(s, da, db, func(_ Entity, a *A, b *B) { fn(a, b) })
}

// GetComponentsWithEntities3 is the 3-type form of GetComponentsWithEntities2.
func GetComponentsWithEntities3[A, B, C any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], dc Descriptor[C, K]) ([]Entity, []*A, []*B, []*C) {
	ea, _ := da.All(s)
	eb, _ := db.All(s)
	ec, _ := dc.All(s)
	if len(ea) == 0 || len(eb) == 0 || len(ec) == 0 {
		return nil, nil, nil, nil
	}

	counts := []int{len(ea), len(eb), len(ec)}
	driver := smallest(counts...)

	var entities []Entity
	var as []*A
	var bs []*B
	var cs []*C

	tryAppend := func(e Entity) {
		ap, ok1 := da.Get(s, e)
		if !ok1 {
			return
		}
		bp, ok2 := db.Get(s, e)
		if !ok2 {
			return
		}
		cp, ok3 := dc.Get(s, e)
		if !ok3 {
			return
		}
		entities = append(entities, e)
		as = append(as, ap)
		bs = append(bs, bp)
		cs = append(cs, cp)
	}

	switch driver {
	case 0:
		for i := range ea {
			tryAppend(ea[i])
		}
	case 1:
		for i := range eb {
			tryAppend(eb[i])
		}
	default:
		for i := range ec {
			tryAppend(ec[i])
		}
	}
	return entities, as, bs, cs
}

// GetComponents3 is GetComponentsWithEntities3 without the entity slice.
func GetComponents3[A, B, C any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], dc Descriptor[C, K]) ([]*A, []*B, []*C) {
	_, as, bs, cs := GetComponentsWithEntities3(s, da, db, dc)
	return as, bs, cs
}

// ForEachComponentSetWithEntity3 is the 3-type form of ForEachComponentSetWithEntity2.
func ForEachComponentSetWithEntity3[A, B, C any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], dc Descriptor[C, K], fn func(Entity, *A, *B, *C)) {
	entities, as, bs, cs := GetComponentsWithEntities3(s, da, db, dc)
	for i := range entities {
		fn(entities[i], as[i], bs[i], cs[i])
	}
}

// ForEachComponentSet3 is the 3-type form of ForEachComponentSet2.
func ForEachComponentSet3[A, B, C any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], dc Descriptor[C, K], fn func(*A, *B, *C)) {
	ForEachComponentSetWithEntity3(s, da, db, dc, func(_ Entity, a *A, b *B, c *C) { fn(a, b, c) })
}

// GetComponentsWithEntities4 is the 4-type form of GetComponentsWithEntities2.
func GetComponentsWithEntities4[A, B, C, D any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], dc Descriptor[C, K], dd Descriptor[D, K]) ([]Entity, []*A, []*B, []*C, []*D) {
	ea, _ := da.All(s)
	eb, _ := db.All(s)
	ec, _ := dc.All(s)
	ed, _ := dd.All(s)
	if len(ea) == 0 || len(eb) == 0 || len(ec) == 0 || len(ed) == 0 {
		return nil, nil, nil, nil, nil
	}

	driver := smallest(len(ea), len(eb), len(ec), len(ed))

	var entities []Entity
	var as []*A
	var bs []*B
	var cs []*C
	var ds []*D

	tryAppend := func(e Entity) {
		ap, ok1 := da.Get(s, e)
		if !ok1 {
			return
		}
		bp, ok2 := db.Get(s, e)
		if !ok2 {
			return
		}
		cp, ok3 := dc.Get(s, e)
		if !ok3 {
			return
		}
		dp, ok4 := dd.Get(s, e)
		if !ok4 {
			return
		}
		entities = append(entities, e)
		as = append(as, ap)
		bs = append(bs, bp)
		cs = append(cs, cp)
		ds = append(ds, dp)
	}

	switch driver {
	case 0:
		for i := range ea {
			tryAppend(ea[i])
		}
	case 1:
		for i := range eb {
			tryAppend(eb[i])
		}
	case 2:
		for i := range ec {
			tryAppend(ec[i])
		}
	default:
		for i := range ed {
			tryAppend(ed[i])
		}
	}
	return entities, as, bs, cs, ds
}

// GetComponents4 is GetComponentsWithEntities4 without the entity slice.
func GetComponents4[A, B, C, D any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], dc Descriptor[C, K], dd Descriptor[D, K]) ([]*A, []*B, []*C, []*D) {
	_, as, bs, cs, ds := GetComponentsWithEntities4(s, da, db, dc, dd)
	return as, bs, cs, ds
}

// ForEachComponentSetWithEntity4 is the 4-type form of ForEachComponentSetWithEntity2.
func ForEachComponentSetWithEntity4[A, B, C, D any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], dc Descriptor[C, K], dd Descriptor[D, K], fn func(Entity, *A, *B, *C, *D)) {
	entities, as, bs, cs, ds := GetComponentsWithEntities4(s, da, db, dc, dd)
	for i := range entities {
		fn(entities[i], as[i], bs[i], cs[i], ds[i])
	}
}

// ForEachComponentSet4 is the 4-type form of ForEachComponentSet2.
func ForEachComponentSet4[A, B, C, D any, K comparable](s *Store[K], da Descriptor[A, K], db Descriptor[B, K], dc Descriptor[C, K], dd Descriptor[D, K], fn func(*A, *B, *C, *D)) {
	ForEachComponentSetWithEntity4(s, da, db, dc, dd, func(_ Entity, a *A, b *B, c *C, d *D) { fn(a, b, c, d) })
}
