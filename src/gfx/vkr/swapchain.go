// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/devblok/vulkan"

	"github.com/devblok/vkmol/src/gfx"
)

var compositeAlphaFlags = []vk.CompositeAlphaFlagBits{
	vk.CompositeAlphaOpaqueBit,
	vk.CompositeAlphaPreMultipliedBit,
	vk.CompositeAlphaPostMultipliedBit,
	vk.CompositeAlphaInheritBit,
}

// CreateSwapchain implements gfx.Device.
func (d *Device) CreateSwapchain(info gfx.SwapchainInfo) (gfx.Swapchain, error) {
	surface := surfaceOf(info.Surface)
	caps, err := d.physical.capabilities(surface)
	if err != nil {
		return nil, err
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range compositeAlphaFlags {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    info.ImageCount,
		ImageFormat:      vk.Format(info.Format.Format),
		ImageColorSpace:  vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent:      extent(info.Extent),
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformFlagBits(info.Transform),
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vk.True,
	}
	if len(info.Families) > 1 {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = uint32(len(info.Families))
		scci.PQueueFamilyIndices = info.Families
	}
	if info.Old != nil {
		scci.OldSwapchain = info.Old.(*Swapchain).swapchain
	}

	var swapchain vk.Swapchain
	if err := check(vk.CreateSwapchain(d.device, &scci, nil, &swapchain), "CreateSwapchain"); err != nil {
		return nil, err
	}
	return &Swapchain{device: d.device, swapchain: swapchain}, nil
}

// AcquireNextImage implements gfx.Device.
func (d *Device) AcquireNextImage(swapchain gfx.Swapchain, timeout uint64, sem gfx.Semaphore) (uint32, error) {
	var idx uint32
	res := vk.AcquireNextImage(d.device, swapchain.(*Swapchain).swapchain, uint(timeout), sem.(*Semaphore).semaphore, nil, &idx)
	return idx, result(res, "AcquireNextImage")
}

// Swapchain implements gfx.Swapchain.
type Swapchain struct {
	device    vk.Device
	swapchain vk.Swapchain
}

// Images implements gfx.Swapchain, the images are vk.Image values.
func (s *Swapchain) Images() ([]gfx.Image, error) {
	var count uint32
	if err := check(vk.GetSwapchainImages(s.device, s.swapchain, &count, nil), "GetSwapchainImages"); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := check(vk.GetSwapchainImages(s.device, s.swapchain, &count, images), "GetSwapchainImages"); err != nil {
		return nil, err
	}

	out := make([]gfx.Image, 0, count)
	for _, img := range images[:count] {
		out = append(out, img)
	}
	return out, nil
}

// Release implements gfx.Releasable.
func (s *Swapchain) Release() {
	vk.DestroySwapchain(s.device, s.swapchain, nil)
}

// CreateImageView implements gfx.Device.
func (d *Device) CreateImageView(image gfx.Image, format gfx.Format) (gfx.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.(vk.Image),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	if err := check(vk.CreateImageView(d.device, &ivci, nil, &view), "CreateImageView"); err != nil {
		return nil, err
	}
	return &ImageView{device: d.device, view: view}, nil
}

// ImageView implements gfx.ImageView.
type ImageView struct {
	device vk.Device
	view   vk.ImageView
}

// Release implements gfx.Releasable.
func (v *ImageView) Release() {
	vk.DestroyImageView(v.device, v.view, nil)
}

// CreateRenderPass implements gfx.Device. The pass clears
// a single color attachment and leaves it ready to present.
func (d *Device) CreateRenderPass(format gfx.Format) (gfx.RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         vk.Format(format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorRefs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(colorRefs)),
			PColorAttachments:    colorRefs,
		}},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pass vk.RenderPass
	if err := check(vk.CreateRenderPass(d.device, &rpci, nil, &pass), "CreateRenderPass"); err != nil {
		return nil, err
	}
	return &RenderPass{device: d.device, pass: pass}, nil
}

// RenderPass implements gfx.RenderPass.
type RenderPass struct {
	device vk.Device
	pass   vk.RenderPass
}

// Release implements gfx.Releasable.
func (p *RenderPass) Release() {
	vk.DestroyRenderPass(p.device, p.pass, nil)
}

// CreateFramebuffer implements gfx.Device.
func (d *Device) CreateFramebuffer(pass gfx.RenderPass, view gfx.ImageView, size gfx.Extent2D) (gfx.Framebuffer, error) {
	attachments := []vk.ImageView{view.(*ImageView).view}
	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.(*RenderPass).pass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           size.Width,
		Height:          size.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if err := check(vk.CreateFramebuffer(d.device, &fci, nil, &framebuffer), "CreateFramebuffer"); err != nil {
		return nil, err
	}
	return &Framebuffer{device: d.device, framebuffer: framebuffer}, nil
}

// Framebuffer implements gfx.Framebuffer.
type Framebuffer struct {
	device      vk.Device
	framebuffer vk.Framebuffer
}

// Release implements gfx.Releasable.
func (f *Framebuffer) Release() {
	vk.DestroyFramebuffer(f.device, f.framebuffer, nil)
}
