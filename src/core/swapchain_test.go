// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkmol/src/core"
	"github.com/devblok/vkmol/src/gfx"
	"github.com/devblok/vkmol/src/gfx/gfxtest"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := gfx.SurfaceFormat{Format: gfx.FormatB8G8R8A8Srgb, ColorSpace: gfx.ColorSpaceSrgbNonlinear}
	rgba := gfx.SurfaceFormat{Format: gfx.FormatR8G8B8A8Unorm, ColorSpace: gfx.ColorSpaceSrgbNonlinear}

	tests := []struct {
		name     string
		formats  []gfx.SurfaceFormat
		expected gfx.SurfaceFormat
	}{{
		name:     "no preference",
		formats:  []gfx.SurfaceFormat{{Format: gfx.FormatUndefined}},
		expected: core.PreferredSurfaceFormat,
	}, {
		name:     "preferred listed",
		formats:  []gfx.SurfaceFormat{srgb, core.PreferredSurfaceFormat, rgba},
		expected: core.PreferredSurfaceFormat,
	}, {
		name:     "first otherwise",
		formats:  []gfx.SurfaceFormat{rgba, srgb},
		expected: rgba,
	}}

	c := qt.New(t)
	for _, test := range tests {
		test := test
		c.Run(test.name, func(c *qt.C) {
			c.Assert(core.ChooseSurfaceFormat(test.formats), qt.Equals, test.expected)
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	c := qt.New(t)

	c.Assert(core.ChoosePresentMode([]gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeMailbox}), qt.Equals, gfx.PresentModeMailbox)
	c.Assert(core.ChoosePresentMode([]gfx.PresentMode{gfx.PresentModeImmediate, gfx.PresentModeFifo}), qt.Equals, gfx.PresentModeFifo)
	c.Assert(core.ChoosePresentMode([]gfx.PresentMode{gfx.PresentModeImmediate}), qt.Equals, gfx.PresentModeFifo)
}

func TestChooseExtent(t *testing.T) {
	undefined := gfx.Extent2D{Width: gfx.UndefinedExtent, Height: gfx.UndefinedExtent}
	caps := gfx.SurfaceCapabilities{
		MinImageExtent: gfx.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: gfx.Extent2D{Width: 2048, Height: 1024},
	}

	tests := []struct {
		name          string
		current       gfx.Extent2D
		width, height int
		expected      gfx.Extent2D
	}{{
		name:     "surface decides",
		current:  gfx.Extent2D{Width: 1280, Height: 720},
		width:    800,
		height:   600,
		expected: gfx.Extent2D{Width: 1280, Height: 720},
	}, {
		name:     "framebuffer within limits",
		current:  undefined,
		width:    800,
		height:   600,
		expected: gfx.Extent2D{Width: 800, Height: 600},
	}, {
		name:     "clamped to maximum",
		current:  undefined,
		width:    4000,
		height:   4000,
		expected: gfx.Extent2D{Width: 2048, Height: 1024},
	}, {
		name:     "clamped to minimum",
		current:  undefined,
		width:    10,
		height:   -1,
		expected: gfx.Extent2D{Width: 64, Height: 64},
	}, {
		name:     "minimized",
		current:  gfx.Extent2D{},
		width:    0,
		height:   0,
		expected: gfx.Extent2D{},
	}}

	c := qt.New(t)
	for _, test := range tests {
		test := test
		c.Run(test.name, func(c *qt.C) {
			caps := caps
			caps.CurrentExtent = test.current
			c.Assert(core.ChooseExtent(caps, test.width, test.height), qt.Equals, test.expected)
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	c := qt.New(t)

	c.Assert(core.ChooseImageCount(gfx.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}), qt.Equals, uint32(3))
	c.Assert(core.ChooseImageCount(gfx.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3}), qt.Equals, uint32(3))
	c.Assert(core.ChooseImageCount(gfx.SurfaceCapabilities{MinImageCount: 2}), qt.Equals, uint32(3))
}

func TestSwapchainCreation(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	c.Assert(f.swapchains(), qt.HasLen, 1)
	info := f.swapchains()[0].Info
	c.Assert(info.Extent, qt.Equals, gfx.Extent2D{Width: 800, Height: 600})
	c.Assert(info.ImageCount, qt.Equals, uint32(3))
	c.Assert(info.Format, qt.Equals, core.PreferredSurfaceFormat)
	c.Assert(info.PresentMode, qt.Equals, gfx.PresentModeMailbox)
	c.Assert(info.Families, qt.DeepEquals, []uint32{0})
	c.Assert(info.Old, qt.IsNil)

	c.Assert(f.gpu().Live("ImageView"), qt.Equals, 3)
	c.Assert(f.gpu().Live("Framebuffer"), qt.Equals, 3)
	c.Assert(f.gpu().Live("Pipeline"), qt.Equals, 2)
	c.Assert(f.gpu().Live("RenderPass"), qt.Equals, 1)
}

func TestSwapchainSharedAcrossFamilies(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	f.physical.Families = []gfx.QueueFamily{
		{Flags: gfx.QueueGraphics | gfx.QueueTransfer, Count: 1},
		{Flags: gfx.QueueCompute, Count: 1},
	}
	f.physical.Presents = []bool{false, true}

	c.Assert(f.renderer.Initialise(), qt.IsNil)
	defer f.renderer.Destroy()

	c.Assert(f.device().Info.Families, qt.DeepEquals, []uint32{0, 1})
	c.Assert(f.swapchains()[0].Info.Families, qt.DeepEquals, []uint32{0, 1})
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.gpu().Violations(), qt.HasLen, 0)
}

func TestSwapchainSurfaceExtent(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	f.physical.Caps.CurrentExtent = gfx.Extent2D{Width: 1920, Height: 1080}

	c.Assert(f.renderer.Initialise(), qt.IsNil)
	defer f.renderer.Destroy()

	c.Assert(f.swapchains()[0].Info.Extent, qt.Equals, gfx.Extent2D{Width: 1920, Height: 1080})
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.lastSubmission(c), qt.Contains, "viewport 1920x1080")
}

func TestRecreateOnOutOfDateAcquire(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.gpu().ScriptAcquire(gfx.ErrOutOfDate)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)

	stats := f.renderer.Stats()
	c.Assert(stats.FramesSubmitted, qt.Equals, uint64(0))
	c.Assert(stats.FramesSkipped, qt.Equals, uint64(1))
	c.Assert(stats.Recreations, qt.Equals, uint64(1))

	swapchains := f.swapchains()
	c.Assert(swapchains, qt.HasLen, 2)
	c.Assert(swapchains[1].Info.Old, qt.Equals, gfx.Swapchain(swapchains[0]))
	c.Assert(swapchains[0].Retired, qt.IsTrue)
	c.Assert(swapchains[0].Released(), qt.IsTrue)

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(swapchains[1].Presented, qt.Equals, 1)
	c.Assert(f.renderer.Stats().FramesSubmitted, qt.Equals, uint64(1))
}

func TestRecreateAfterSuboptimalAcquire(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.gpu().ScriptAcquire(gfx.ErrSuboptimal)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)

	stats := f.renderer.Stats()
	c.Assert(stats.FramesSubmitted, qt.Equals, uint64(1))
	c.Assert(stats.FramesSkipped, qt.Equals, uint64(0))
	c.Assert(stats.Recreations, qt.Equals, uint64(1))

	swapchains := f.swapchains()
	c.Assert(swapchains, qt.HasLen, 2)
	c.Assert(swapchains[0].Presented, qt.Equals, 1)
	c.Assert(swapchains[0].Released(), qt.IsTrue)
}

func TestRecreateOnPresentResults(t *testing.T) {
	tests := []struct {
		name   string
		result error
	}{{
		name:   "out of date",
		result: gfx.ErrOutOfDate,
	}, {
		name:   "suboptimal",
		result: gfx.ErrSuboptimal,
	}}

	c := qt.New(t)
	for _, test := range tests {
		test := test
		c.Run(test.name, func(c *qt.C) {
			f := initialised(c, nil)

			f.gpu().ScriptPresent(test.result)
			c.Assert(f.renderer.DrawFrame(), qt.IsNil)
			c.Assert(f.renderer.Stats().Recreations, qt.Equals, uint64(1))
			c.Assert(f.swapchains(), qt.HasLen, 2)

			for i := 0; i < 3; i++ {
				c.Assert(f.renderer.DrawFrame(), qt.IsNil)
			}
			c.Assert(f.swapchains()[1].Presented, qt.Equals, 3)
			c.Assert(f.renderer.Stats().FramesSubmitted, qt.Equals, uint64(4))
		})
	}
}

func TestPresentErrorIsReturned(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.gpu().FailOn("Present", 1, nil)
	err := f.renderer.DrawFrame()
	c.Assert(err, qt.ErrorIs, gfxtest.ErrInjected)
	c.Assert(err, qt.ErrorMatches, "present: .*")
	c.Assert(f.renderer.Stats().Recreations, qt.Equals, uint64(0))

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
}

func TestResize(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	f.window.Resize(1024, 768)
	c.Assert(f.renderer.Resize(), qt.IsNil)

	swapchains := f.swapchains()
	c.Assert(swapchains, qt.HasLen, 2)
	c.Assert(swapchains[1].Info.Extent, qt.Equals, gfx.Extent2D{Width: 1024, Height: 768})

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.lastSubmission(c), qt.Contains, "viewport 1024x768")
	c.Assert(f.gpu().Live("Framebuffer"), qt.Equals, 3)
	c.Assert(f.gpu().Live("Swapchain"), qt.Equals, 1)
}

func TestMinimizedWindowDefersRecreation(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.window.Resize(0, 0)
	c.Assert(f.renderer.Resize(), qt.IsNil)
	c.Assert(f.swapchains(), qt.HasLen, 1)

	for i := 0; i < 3; i++ {
		c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	}
	stats := f.renderer.Stats()
	c.Assert(stats.FramesSubmitted, qt.Equals, uint64(0))
	c.Assert(stats.FramesSkipped, qt.Equals, uint64(3))
	c.Assert(stats.Recreations, qt.Equals, uint64(0))
	c.Assert(f.gpu().Calls("AcquireNextImage"), qt.Equals, 0)

	f.window.Resize(640, 480)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)

	swapchains := f.swapchains()
	c.Assert(swapchains, qt.HasLen, 2)
	c.Assert(swapchains[1].Info.Extent, qt.Equals, gfx.Extent2D{Width: 640, Height: 480})
	c.Assert(f.renderer.Stats().FramesSubmitted, qt.Equals, uint64(1))
	c.Assert(f.renderer.Stats().Recreations, qt.Equals, uint64(1))
}

func TestMinimizedOnOutOfDate(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.window.Resize(0, 0)
	f.gpu().ScriptAcquire(gfx.ErrOutOfDate)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.renderer.Stats().FramesSkipped, qt.Equals, uint64(2))
	c.Assert(f.swapchains(), qt.HasLen, 1)

	f.window.Resize(800, 600)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	c.Assert(f.swapchains(), qt.HasLen, 2)
	c.Assert(f.swapchains()[1].Info.Old, qt.Equals, gfx.Swapchain(f.swapchains()[0]))
}

func TestFailedRecreationKeepsRetiredSwapchain(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.gpu().FailOn("CreateFramebuffer", 1, nil)
	f.window.Resize(1024, 768)
	err := f.renderer.Resize()
	c.Assert(err, qt.ErrorIs, gfxtest.ErrInjected)
	c.Assert(err, qt.ErrorMatches, "recreate swapchain: create framebuffer: .*")

	swapchains := f.swapchains()
	c.Assert(swapchains, qt.HasLen, 2)
	c.Assert(swapchains[0].Retired, qt.IsTrue)
	c.Assert(swapchains[0].Released(), qt.IsFalse)
	c.Assert(swapchains[1].Released(), qt.IsTrue)
	c.Assert(f.gpu().Live("Swapchain"), qt.Equals, 1)
	c.Assert(f.gpu().Live("Framebuffer"), qt.Equals, 3)

	// the retired swapchain cannot be handed over again
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	swapchains = f.swapchains()
	c.Assert(swapchains, qt.HasLen, 3)
	c.Assert(swapchains[2].Info.Old, qt.IsNil)
	c.Assert(swapchains[2].Info.Extent, qt.Equals, gfx.Extent2D{Width: 1024, Height: 768})
	c.Assert(swapchains[0].Released(), qt.IsTrue)
	c.Assert(swapchains[2].Presented, qt.Equals, 1)
}

func TestFailedSwapchainCreationKeepsOldSwapchain(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.gpu().FailOn("CreateSwapchain", 1, nil)
	f.window.Resize(1024, 768)
	c.Assert(f.renderer.Resize(), qt.ErrorIs, gfxtest.ErrInjected)

	// the failed creation still retired the swapchain it was handed
	swapchains := f.swapchains()
	c.Assert(swapchains, qt.HasLen, 1)
	c.Assert(swapchains[0].Retired, qt.IsTrue)
	c.Assert(swapchains[0].Released(), qt.IsFalse)

	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
	swapchains = f.swapchains()
	c.Assert(swapchains, qt.HasLen, 2)
	c.Assert(swapchains[1].Info.Old, qt.IsNil)
	c.Assert(swapchains[0].Released(), qt.IsTrue)
	c.Assert(f.renderer.Stats().Recreations, qt.Equals, uint64(1))
	c.Assert(f.gpu().Violations(), qt.HasLen, 0)
}

func TestRepeatedSwapchainCreationFailure(t *testing.T) {
	c := qt.New(t)
	f := initialised(c, nil)

	f.gpu().FailOn("CreateSwapchain", 1, nil)
	f.window.Resize(1024, 768)
	c.Assert(f.renderer.Resize(), qt.ErrorIs, gfxtest.ErrInjected)
	f.gpu().FailOn("CreateSwapchain", 1, nil)
	c.Assert(f.renderer.Resize(), qt.ErrorIs, gfxtest.ErrInjected)
	c.Assert(f.renderer.Resize(), qt.IsNil)

	swapchains := f.swapchains()
	c.Assert(swapchains, qt.HasLen, 2)
	c.Assert(swapchains[1].Info.Old, qt.IsNil)
	c.Assert(swapchains[1].Info.Extent, qt.Equals, gfx.Extent2D{Width: 1024, Height: 768})
	c.Assert(f.gpu().Violations(), qt.HasLen, 0)
	c.Assert(f.renderer.DrawFrame(), qt.IsNil)
}

func TestRecreationFailureGrid(t *testing.T) {
	ops := []string{
		"GetSwapchainImages",
		"CreateImageView",
		"CreateRenderPass",
		"CreatePipeline",
		"CreateFramebuffer",
		"AllocateCommandBuffers",
	}

	c := qt.New(t)
	for _, op := range ops {
		op := op
		c.Run(op, func(c *qt.C) {
			f := initialised(c, nil)
			c.Assert(f.renderer.DrawFrame(), qt.IsNil)

			f.gpu().FailOn(op, 1, nil)
			f.window.Resize(1024, 768)
			c.Assert(f.renderer.Resize(), qt.ErrorIs, gfxtest.ErrInjected)
			c.Assert(f.gpu().Live("Swapchain"), qt.Equals, 1)
			c.Assert(f.gpu().Live("ImageView"), qt.Equals, 3)
			c.Assert(f.gpu().Live("Pipeline"), qt.Equals, 2)

			c.Assert(f.renderer.DrawFrame(), qt.IsNil)
			c.Assert(f.renderer.Stats().Recreations, qt.Equals, uint64(1))
			c.Assert(f.renderer.Stats().FramesSubmitted, qt.Equals, uint64(2))
		})
	}
}
