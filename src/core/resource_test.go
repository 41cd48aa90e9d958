// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkmol/src/core"
)

func TestContainerInsertGet(t *testing.T) {
	c := qt.New(t)
	var store core.Container[string]

	a := store.Insert("a")
	b := store.Insert("b")
	c.Assert(a, qt.Not(qt.Equals), b)
	c.Assert(a.IsZero(), qt.IsFalse)
	c.Assert(store.Len(), qt.Equals, 2)

	v, err := store.Get(a)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, "a")

	v, err = store.Get(b)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, "b")
}

func TestContainerZeroHandle(t *testing.T) {
	c := qt.New(t)
	var store core.Container[int]

	_, err := store.Get(core.Handle[int]{})
	c.Assert(err, qt.ErrorIs, core.ErrHandleOutOfRange)

	store.Insert(1)
	_, err = store.Get(core.Handle[int]{})
	c.Assert(err, qt.ErrorIs, core.ErrStaleHandle)
}

func TestContainerOutOfRange(t *testing.T) {
	c := qt.New(t)
	var store, other core.Container[int]

	other.Insert(1)
	h := other.Insert(2)

	store.Insert(1)
	_, err := store.Get(h)
	c.Assert(err, qt.ErrorIs, core.ErrHandleOutOfRange)
	c.Assert(err, qt.Not(qt.ErrorIs), core.ErrStaleHandle)
}

func TestContainerRemoveMakesHandleStale(t *testing.T) {
	c := qt.New(t)
	var store core.Container[string]

	h := store.Insert("a")
	v, err := store.Remove(h)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, "a")
	c.Assert(store.Len(), qt.Equals, 0)

	_, err = store.Get(h)
	c.Assert(err, qt.ErrorIs, core.ErrStaleHandle)

	_, err = store.Remove(h)
	c.Assert(err, qt.ErrorIs, core.ErrStaleHandle)
}

func TestContainerSlotReusedOnlyAfterReclaim(t *testing.T) {
	c := qt.New(t)
	var store core.Container[string]

	old := store.Insert("old")
	_, err := store.Remove(old)
	c.Assert(err, qt.IsNil)

	fresh := store.Insert("fresh")
	c.Assert(fresh.Index(), qt.Not(qt.Equals), old.Index())

	store.Reclaim(old.Index())
	reused := store.Insert("reused")
	c.Assert(reused.Index(), qt.Equals, old.Index())
	c.Assert(reused.Generation(), qt.Equals, old.Generation()+1)

	_, err = store.Get(old)
	c.Assert(err, qt.ErrorIs, core.ErrStaleHandle)

	v, err := store.Get(reused)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, "reused")
}

func TestContainerReclaimIgnoresLiveSlots(t *testing.T) {
	c := qt.New(t)
	var store core.Container[int]

	h := store.Insert(7)
	store.Reclaim(h.Index())
	store.Reclaim(99)

	next := store.Insert(8)
	c.Assert(next.Index(), qt.Not(qt.Equals), h.Index())

	v, err := store.Get(h)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, 7)
}

func TestContainerEach(t *testing.T) {
	c := qt.New(t)
	var store core.Container[int]

	for idx := 0; idx < 5; idx++ {
		store.Insert(idx)
	}
	var seen []int
	store.Each(func(h core.Handle[int], v int) bool {
		seen = append(seen, v)
		return v < 2
	})
	c.Assert(seen, qt.DeepEquals, []int{0, 1, 2})
}

func TestContainerDrain(t *testing.T) {
	c := qt.New(t)
	var store core.Container[int]

	a := store.Insert(1)
	b := store.Insert(2)
	_, err := store.Remove(b)
	c.Assert(err, qt.IsNil)

	var drained []int
	store.Drain(func(v int) { drained = append(drained, v) })
	c.Assert(drained, qt.DeepEquals, []int{1})
	c.Assert(store.Len(), qt.Equals, 0)

	_, err = store.Get(a)
	c.Assert(err, qt.ErrorIs, core.ErrStaleHandle)

	// both slots are free again
	x := store.Insert(3)
	y := store.Insert(4)
	z := store.Insert(5)
	c.Assert([]uint32{x.Index(), y.Index()}, qt.ContentEquals, []uint32{0, 1})
	c.Assert(z.Index(), qt.Equals, uint32(2))
}
