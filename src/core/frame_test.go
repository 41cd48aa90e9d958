// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkmol/src/core"
	"github.com/devblok/vkmol/src/gfx"
	"github.com/devblok/vkmol/src/gfx/gfxtest"
	"github.com/devblok/vkmol/src/model"
)

func TestFrameRingDepth(t *testing.T) {
	c := qt.New(t)
	for _, depth := range []int{1, 2, 3, 5} {
		depth := depth
		c.Run(fmt.Sprintf("depth %d", depth), func(c *qt.C) {
			f := initialised(c, func(cfg *core.RendererConfiguration) {
				cfg.FramesInFlight = depth
			})
			c.Assert(f.gpu().Live("Fence"), qt.Equals, depth)
			c.Assert(f.gpu().Live("Semaphore"), qt.Equals, 2*depth)

			for i := 0; i < 12; i++ {
				c.Assert(f.renderer.DrawFrame(), qt.IsNil)
				c.Assert(f.gpu().Pending() <= depth, qt.IsTrue, qt.Commentf("frame %d", i))
			}
			c.Assert(f.renderer.Stats().FramesSubmitted, qt.Equals, uint64(12))
			c.Assert(f.swapchains()[0].Presented, qt.Equals, 12)
			c.Assert(f.gpu().Violations(), qt.HasLen, 0)
		})
	}
}

func TestFrameFenceWaitedBeforeReset(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)
	f.gpu().ClearEvents()

	for i := 0; i < 3; i++ {
		c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	}

	var fences []string
	for _, event := range f.gpu().Events() {
		if strings.HasSuffix(strings.TrimRight(event, "0123456789"), "fence ") {
			fences = append(fences, event)
		}
	}
	c.Assert(fences, qt.DeepEquals, []string{
		"wait fence 1", "reset fence 1", "submit fence 1",
		"wait fence 2", "reset fence 2", "submit fence 2",
		"wait fence 1", "reset fence 1", "submit fence 1",
	})
}

func TestFrameRecording(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	triangle, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Triangle))
	c.Assert(err, qt.IsNil)
	quad, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Quad))
	c.Assert(err, qt.IsNil)
	indices, err := f.renderer.CreateBuffer(core.IndexBuffer, model.IndexBytes(model.QuadIndices))
	c.Assert(err, qt.IsNil)

	f.renderer.SetDrawables([]core.Drawable{
		{Vertices: triangle, Count: uint32(len(model.Triangle))},
		{Vertices: quad, Indices: indices, Count: uint32(len(model.QuadIndices))},
	})
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)

	c.Assert(f.lastSubmission(c), qt.DeepEquals, []string{
		"beginRenderPass",
		"viewport 800x600",
		"bindPipeline fill",
		"pushConstants 64",
		fmt.Sprintf("bindVertexBuffer %d", fakeBuffer(c, f.renderer, triangle).ID()),
		"draw 3",
		fmt.Sprintf("bindVertexBuffer %d", fakeBuffer(c, f.renderer, quad).ID()),
		fmt.Sprintf("bindIndexBuffer %d", fakeBuffer(c, f.renderer, indices).ID()),
		"drawIndexed 6",
		"endRenderPass",
	})
}

func TestFrameSkipsDeletedIndexBuffer(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	quad, err := f.renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Quad))
	c.Assert(err, qt.IsNil)
	indices, err := f.renderer.CreateBuffer(core.IndexBuffer, model.IndexBytes(model.QuadIndices))
	c.Assert(err, qt.IsNil)
	f.renderer.SetDrawables([]core.Drawable{{Vertices: quad, Indices: indices, Count: 6}})

	c.Assert(f.renderer.DeleteBuffer(indices), qt.IsNil)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	for _, cmd := range f.lastSubmission(c) {
		c.Assert(cmd, qt.Not(qt.Equals), "drawIndexed 6")
	}
}

func TestWireframePipeline(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	c.Assert(f.renderer.ActivePipeline(), qt.Equals, core.Normal)
	c.Assert(f.renderer.SetActivePipeline(core.Wireframe), qt.IsNil)
	c.Assert(f.renderer.ActivePipeline(), qt.Equals, core.Wireframe)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.lastSubmission(c), qt.Contains, "bindPipeline line")

	c.Assert(f.renderer.SetActivePipeline(core.Normal), qt.IsNil)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.lastSubmission(c), qt.Contains, "bindPipeline fill")

	c.Assert(f.renderer.SetActivePipeline(core.PipelineMode(7)), qt.ErrorMatches, "unknown pipeline mode 7")
	c.Assert(f.renderer.ActivePipeline(), qt.Equals, core.Normal)
}

func TestWireframePipelineCreatedWithLineMode(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	var modes []gfx.PolygonMode
	c.Assert(f.gpu().Live("Pipeline"), qt.Equals, 2)
	f.gpu().ClearEvents()
	c.Assert(f.renderer.SetActivePipeline(core.Wireframe), qt.IsNil)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	for _, sub := range f.gpu().Submissions() {
		for _, cmd := range sub {
			switch cmd {
			case "bindPipeline fill":
				modes = append(modes, gfx.PolygonFill)
			case "bindPipeline line":
				modes = append(modes, gfx.PolygonLine)
			}
		}
	}
	c.Assert(modes, qt.DeepEquals, []gfx.PolygonMode{gfx.PolygonLine})
}

func TestFrameHook(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	type call struct {
		Elapsed time.Duration
		Extent  gfx.Extent2D
	}
	var calls []call
	f.renderer.SetFrameHook(func(elapsed time.Duration, extent gfx.Extent2D) model.Uniform {
		calls = append(calls, call{elapsed, extent})
		return model.Spin(elapsed, extent)
	})

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	f.window.Resize(640, 480)
	c.Assert(f.renderer.Resize(), qt.IsNil)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)

	c.Assert(calls, qt.DeepEquals, []call{
		{16 * time.Millisecond, gfx.Extent2D{Width: 800, Height: 600}},
		{32 * time.Millisecond, gfx.Extent2D{Width: 800, Height: 600}},
		{48 * time.Millisecond, gfx.Extent2D{Width: 640, Height: 480}},
	})

	f.renderer.SetFrameHook(nil)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(calls, qt.HasLen, 3)
}

func TestFrameSubmitFailure(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	c.Assert(f.renderer.Initialise(), qt.IsNil)
	defer f.renderer.Destroy()

	f.gpu().FailOn("Submit", 1, nil)
	err := f.renderer.DrawFrame()
	c.Assert(err, qt.ErrorIs, gfxtest.ErrInjected)
	c.Assert(err, qt.ErrorMatches, "submit frame: .*")
	c.Assert(f.renderer.Stats().FramesSubmitted, qt.Equals, uint64(0))

	// the fence of the failed frame was replaced, waiting on it cannot hang
	c.Assert(f.gpu().Live("Fence"), qt.Equals, 2)
	c.Assert(f.renderer.WaitIdle(), qt.IsNil)
}

func TestFrameFenceWaitFailure(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.gpu().FailOn("WaitForFences", 1, nil)
	err := f.renderer.DrawFrame()
	c.Assert(err, qt.ErrorIs, gfxtest.ErrInjected)
	c.Assert(f.gpu().Calls("AcquireNextImage"), qt.Equals, 0)

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.renderer.Stats().FramesSubmitted, qt.Equals, uint64(1))
}
