// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
)

// Handle refers to a value in a Container. A handle stays valid until the
// value is removed, after which it is stale even if the slot gets reused.
// The zero Handle is never valid.
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// Index returns the slot index of the handle.
func (h Handle[T]) Index() uint32 {
	return h.index
}

// Generation returns the slot generation the handle was issued for.
func (h Handle[T]) Generation() uint32 {
	return h.generation
}

// IsZero reports whether h is the zero Handle.
func (h Handle[T]) IsZero() bool {
	return h.generation == 0
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("%d@%d", h.index, h.generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	alive      bool
}

// Container stores values addressed by generation checked handles.
// Removed slots are only reused once Reclaim is called for them.
type Container[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores value and returns its handle.
func (c *Container[T]) Insert(value T) Handle[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	var index uint32
	if n := len(c.free); n > 0 {
		index = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		index = uint32(len(c.slots))
		c.slots = append(c.slots, slot[T]{generation: 1})
	}

	s := &c.slots[index]
	s.value = value
	s.alive = true
	c.live++
	return Handle[T]{index: index, generation: s.generation}
}

// Get resolves a handle.
func (c *Container[T]) Get(h Handle[T]) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, err := c.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Remove invalidates every handle to the slot and returns its value.
// The slot is not reused until Reclaim.
func (c *Container[T]) Remove(h Handle[T]) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	s, err := c.lookup(h)
	if err != nil {
		return zero, err
	}
	value := s.value
	s.value = zero
	s.alive = false
	s.generation++
	c.live--
	return value, nil
}

// Reclaim returns a removed slot to the free list.
func (c *Container[T]) Reclaim(index uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(index) >= len(c.slots) || c.slots[index].alive {
		return
	}
	for _, idx := range c.free {
		if idx == index {
			return
		}
	}
	c.free = append(c.free, index)
}

// Len returns the number of live values.
func (c *Container[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live
}

// Each calls fn for every live value in slot order until fn returns false.
func (c *Container[T]) Each(fn func(Handle[T], T) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for idx := range c.slots {
		s := &c.slots[idx]
		if !s.alive {
			continue
		}
		if !fn(Handle[T]{index: uint32(idx), generation: s.generation}, s.value) {
			return
		}
	}
}

// Drain removes every live value and reclaims all slots, calling fn
// for each removed value.
func (c *Container[T]) Drain(fn func(T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.free = c.free[:0]
	for idx := range c.slots {
		s := &c.slots[idx]
		if s.alive {
			fn(s.value)
			s.value = zero
			s.alive = false
			s.generation++
		}
		c.free = append(c.free, uint32(idx))
	}
	c.live = 0
}

func (c *Container[T]) lookup(h Handle[T]) (*slot[T], error) {
	if int(h.index) >= len(c.slots) {
		return nil, errors.Wrapf(ErrHandleOutOfRange, "handle %s, %d slots", h, len(c.slots))
	}
	s := &c.slots[h.index]
	if !s.alive || s.generation != h.generation {
		return nil, errors.Wrapf(ErrStaleHandle, "handle %s, slot generation %d", h, s.generation)
	}
	return s, nil
}
