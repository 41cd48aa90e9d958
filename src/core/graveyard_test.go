// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkmol/src/core"
	"github.com/devblok/vkmol/src/model"
)

func TestGraveyardCollect(t *testing.T) {
	c := qt.New(t)
	var buffers core.Container[*core.Buffer]
	graveyard := core.NewGraveyard(&buffers)

	handles := make([]core.BufferHandle, 3)
	for idx := range handles {
		handles[idx] = buffers.Insert(&core.Buffer{})
	}
	for idx, h := range handles {
		b, err := buffers.Remove(h)
		c.Assert(err, qt.IsNil)
		graveyard.BuryBuffer(h.Index(), b, uint64(idx+1))
	}
	c.Assert(graveyard.Len(), qt.Equals, 3)

	c.Assert(graveyard.Collect(0), qt.Equals, 0)
	c.Assert(graveyard.Collect(2), qt.Equals, 2)
	c.Assert(graveyard.Len(), qt.Equals, 1)

	// only collected slots are handed back
	reused := buffers.Insert(&core.Buffer{})
	c.Assert(reused.Index() < handles[2].Index(), qt.IsTrue)
	c.Assert(reused.Generation(), qt.Equals, handles[0].Generation()+1)

	c.Assert(graveyard.Collect(2), qt.Equals, 0)
	c.Assert(graveyard.Drain(), qt.Equals, 1)
	c.Assert(graveyard.Len(), qt.Equals, 0)
}

func TestDeletedBufferOutlivesFramesInFlight(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	h, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Triangle))
	c.Assert(err, qt.IsNil)
	f.renderer.SetDrawables([]core.Drawable{{Vertices: h, Count: 3}})
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.lastSubmission(c), qt.Contains, "draw 3")

	c.Assert(f.renderer.DeleteBuffer(h), qt.IsNil)
	_, err = f.renderer.Buffer(h)
	c.Assert(err, qt.ErrorIs, core.ErrStaleHandle)
	c.Assert(f.renderer.DeleteBuffer(h), qt.ErrorIs, core.ErrStaleHandle)

	stats := f.renderer.Stats()
	c.Assert(stats.Buffers, qt.Equals, 0)
	c.Assert(stats.Graveyard, qt.Equals, 1)
	c.Assert(f.gpu().Live("Buffer"), qt.Equals, 1)

	// the second slot has not rendered the deleted buffer
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.gpu().Live("Buffer"), qt.Equals, 1)
	for _, cmd := range f.lastSubmission(c) {
		c.Assert(strings.HasPrefix(cmd, "bindVertexBuffer"), qt.IsFalse)
		c.Assert(strings.HasPrefix(cmd, "draw"), qt.IsFalse)
	}

	// the first slot waits for the frame that did
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.gpu().Live("Buffer"), qt.Equals, 0)
	c.Assert(f.gpu().Live("Memory"), qt.Equals, 0)
	c.Assert(f.renderer.Stats().Graveyard, qt.Equals, 0)
	c.Assert(f.gpu().Violations(), qt.HasLen, 0)
}

func TestDeletedBufferWithDeeperRing(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, func(cfg *core.RendererConfiguration) {
		cfg.FramesInFlight = 3
	})

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	h, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Triangle))
	c.Assert(err, qt.IsNil)
	f.renderer.SetDrawables([]core.Drawable{{Vertices: h, Count: 3}})
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.renderer.DeleteBuffer(h), qt.IsNil)

	for i := 0; i < 2; i++ {
		c.Assert(f.renderer.DrawFrame(), qt.IsNil)
		c.Assert(f.gpu().Live("Buffer"), qt.Equals, 1)
	}
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.gpu().Live("Buffer"), qt.Equals, 0)
}

func TestDeleteBeforeAnyFrame(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	h, err := f.renderer.CreateBuffer(core.IndexBuffer, model.IndexBytes(model.QuadIndices))
	c.Assert(err, qt.IsNil)
	c.Assert(f.renderer.DeleteBuffer(h), qt.IsNil)
	c.Assert(f.gpu().Live("Buffer"), qt.Equals, 1)

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.gpu().Live("Buffer"), qt.Equals, 0)
}

func TestWaitIdleDrainsGraveyard(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	h, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Triangle))
	c.Assert(err, qt.IsNil)
	f.renderer.SetDrawables([]core.Drawable{{Vertices: h, Count: 3}})
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.renderer.DeleteBuffer(h), qt.IsNil)
	c.Assert(f.gpu().Live("Buffer"), qt.Equals, 1)

	c.Assert(f.renderer.WaitIdle(), qt.IsNil)
	c.Assert(f.gpu().Pending(), qt.Equals, 0)
	c.Assert(f.gpu().Live("Buffer"), qt.Equals, 0)
	c.Assert(f.renderer.Stats().Graveyard, qt.Equals, 0)

	// the slot is reused under a new generation
	next, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Quad))
	c.Assert(err, qt.IsNil)
	c.Assert(next.Index(), qt.Equals, h.Index())
	c.Assert(next.Generation(), qt.Equals, h.Generation()+1)
	_, err = f.renderer.Buffer(h)
	c.Assert(err, qt.ErrorIs, core.ErrStaleHandle)
}

func TestSlotNotReusedBeforeDestruction(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	h, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Triangle))
	c.Assert(err, qt.IsNil)
	f.renderer.SetDrawables([]core.Drawable{{Vertices: h, Count: 3}})
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.renderer.DeleteBuffer(h), qt.IsNil)

	next, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Triangle))
	c.Assert(err, qt.IsNil)
	c.Assert(next.Index(), qt.Not(qt.Equals), h.Index())
}
