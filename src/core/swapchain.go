// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
)

// PreferredSurfaceFormat is used whenever the surface allows it.
var PreferredSurfaceFormat = gfx.SurfaceFormat{
	Format:     gfx.FormatB8G8R8A8Unorm,
	ColorSpace: gfx.ColorSpaceSrgbNonlinear,
}

// ChooseSurfaceFormat picks the preferred format if listed or the
// surface has no preference, otherwise the first one.
func ChooseSurfaceFormat(formats []gfx.SurfaceFormat) gfx.SurfaceFormat {
	if len(formats) == 1 && formats[0].Format == gfx.FormatUndefined {
		return PreferredSurfaceFormat
	}
	for _, f := range formats {
		if f == PreferredSurfaceFormat {
			return f
		}
	}
	if len(formats) == 0 {
		return PreferredSurfaceFormat
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox, fifo is always available.
func ChoosePresentMode(modes []gfx.PresentMode) gfx.PresentMode {
	for _, m := range modes {
		if m == gfx.PresentModeMailbox {
			return m
		}
	}
	return gfx.PresentModeFifo
}

// ChooseExtent returns the surface extent, or the framebuffer size clamped
// to the surface limits when the surface leaves it to the swapchain.
func ChooseExtent(caps gfx.SurfaceCapabilities, width, height int) gfx.Extent2D {
	if caps.CurrentExtent.Width != gfx.UndefinedExtent {
		return caps.CurrentExtent
	}
	return gfx.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image over the minimum, within the maximum
// if there is one.
func ChooseImageCount(caps gfx.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func clamp(v int, lo, hi uint32) uint32 {
	if v < 0 {
		v = 0
	}
	u := uint32(v)
	if u < lo {
		return lo
	}
	if u > hi {
		return hi
	}
	return u
}

// swapchainState is everything that depends on the swapchain and is
// rebuilt with it.
type swapchainState struct {
	format      gfx.SurfaceFormat
	presentMode gfx.PresentMode
	extent      gfx.Extent2D

	swapchain    gfx.Swapchain
	images       []gfx.Image
	views        []gfx.ImageView
	renderPass   gfx.RenderPass
	pipelines    [pipelineModes]gfx.Pipeline
	framebuffers []gfx.Framebuffer

	pool     gfx.CommandPool
	commands []gfx.CommandBuffer
}

// swapchainParams are the inputs of a swapchain build.
type swapchainParams struct {
	ctx       *DeviceContext
	surface   gfx.Surface
	candidate Candidate
	shaders   *shaderSet

	width, height int
}

// buildSwapchain creates a complete swapchainState passing old as the
// replaced swapchain. On failure everything built is released and handed
// tells whether old was passed to swapchain creation. A handed over
// swapchain is retired even when the creation itself failed.
func buildSwapchain(p swapchainParams, old gfx.Swapchain) (state *swapchainState, handed bool, err error) {
	caps, err := p.candidate.Device.SurfaceCapabilities(p.surface)
	if err != nil {
		return nil, false, errors.Wrap(err, "query surface capabilities")
	}

	s := &swapchainState{
		format:      ChooseSurfaceFormat(p.candidate.Formats),
		presentMode: ChoosePresentMode(p.candidate.PresentModes),
		extent:      ChooseExtent(caps, p.width, p.height),
		pool:        p.ctx.CommandPool(),
	}
	if s.extent.Empty() {
		return nil, false, errors.Newf("surface extent %dx%d is empty", s.extent.Width, s.extent.Height)
	}

	defer func() {
		if err != nil {
			s.release()
		}
	}()

	dev := p.ctx.Device
	if s.swapchain, err = dev.CreateSwapchain(gfx.SwapchainInfo{
		Surface:     p.surface,
		ImageCount:  ChooseImageCount(caps),
		Format:      s.format,
		Extent:      s.extent,
		PresentMode: s.presentMode,
		Transform:   caps.CurrentTransform,
		Families:    p.ctx.Families(),
		Old:         old,
	}); err != nil {
		return nil, true, errors.Wrap(err, "create swapchain")
	}

	if s.images, err = s.swapchain.Images(); err != nil {
		return nil, true, errors.Wrap(err, "get swapchain images")
	}

	for _, image := range s.images {
		view, err := dev.CreateImageView(image, s.format.Format)
		if err != nil {
			return nil, true, errors.Wrap(err, "create image view")
		}
		s.views = append(s.views, view)
	}

	if s.renderPass, err = dev.CreateRenderPass(s.format.Format); err != nil {
		return nil, true, errors.Wrap(err, "create render pass")
	}

	if s.pipelines, err = createPipelines(dev, p.shaders, s.renderPass); err != nil {
		return nil, true, err
	}

	for _, view := range s.views {
		fb, err := dev.CreateFramebuffer(s.renderPass, view, s.extent)
		if err != nil {
			return nil, true, errors.Wrap(err, "create framebuffer")
		}
		s.framebuffers = append(s.framebuffers, fb)
	}

	if s.commands, err = s.pool.Allocate(len(s.images)); err != nil {
		return nil, true, errors.Wrap(err, "allocate command buffers")
	}

	return s, true, nil
}

// release destroys the state in reverse creation order.
func (s *swapchainState) release() {
	if len(s.commands) > 0 {
		s.pool.Free(s.commands)
		s.commands = nil
	}
	for _, fb := range s.framebuffers {
		fb.Release()
	}
	s.framebuffers = nil
	for idx, p := range s.pipelines {
		if p != nil {
			p.Release()
			s.pipelines[idx] = nil
		}
	}
	if s.renderPass != nil {
		s.renderPass.Release()
		s.renderPass = nil
	}
	for _, view := range s.views {
		view.Release()
	}
	s.views = nil
	s.images = nil
	if s.swapchain != nil {
		s.swapchain.Release()
		s.swapchain = nil
	}
}
