// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	vk "github.com/devblok/vulkan"

	"github.com/devblok/vkmol/src/gfx"
)

// CreateCommandPool implements gfx.Device. Buffers of the
// pool can be reset individually.
func (d *Device) CreateCommandPool(family uint32) (gfx.CommandPool, error) {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}

	var pool vk.CommandPool
	if err := check(vk.CreateCommandPool(d.device, &cpci, nil, &pool), "CreateCommandPool"); err != nil {
		return nil, err
	}
	return &CommandPool{device: d.device, pool: pool}, nil
}

// CommandPool implements gfx.CommandPool.
type CommandPool struct {
	device vk.Device
	pool   vk.CommandPool
}

// Allocate implements gfx.CommandPool.
func (p *CommandPool) Allocate(count int) ([]gfx.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	handles := make([]vk.CommandBuffer, count)
	if err := check(vk.AllocateCommandBuffers(p.device, &cbai, handles), "AllocateCommandBuffers"); err != nil {
		return nil, err
	}

	buffers := make([]gfx.CommandBuffer, 0, count)
	for _, h := range handles {
		buffers = append(buffers, &CommandBuffer{buffer: h})
	}
	return buffers, nil
}

// Free implements gfx.CommandPool.
func (p *CommandPool) Free(buffers []gfx.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		handles = append(handles, b.(*CommandBuffer).buffer)
	}
	vk.FreeCommandBuffers(p.device, p.pool, uint32(len(handles)), handles)
}

// Release implements gfx.Releasable, buffers allocated
// from the pool are freed with it.
func (p *CommandPool) Release() {
	vk.DestroyCommandPool(p.device, p.pool, nil)
}

// CommandBuffer implements gfx.CommandBuffer.
type CommandBuffer struct {
	buffer vk.CommandBuffer
}

// Reset implements gfx.CommandBuffer.
func (c *CommandBuffer) Reset() error {
	return check(vk.ResetCommandBuffer(c.buffer, 0), "ResetCommandBuffer")
}

// Begin implements gfx.CommandBuffer.
func (c *CommandBuffer) Begin(oneTime bool) error {
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if oneTime {
		cbbi.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return check(vk.BeginCommandBuffer(c.buffer, &cbbi), "BeginCommandBuffer")
}

// End implements gfx.CommandBuffer.
func (c *CommandBuffer) End() error {
	return check(vk.EndCommandBuffer(c.buffer), "EndCommandBuffer")
}

// CopyBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, srcOffset, dstOffset, size uint64) {
	region := []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}}
	vk.CmdCopyBuffer(c.buffer, src.(*Buffer).buffer, dst.(*Buffer).buffer, 1, region)
}

// BeginRenderPass implements gfx.CommandBuffer.
func (c *CommandBuffer) BeginRenderPass(pass gfx.RenderPass, framebuffer gfx.Framebuffer, size gfx.Extent2D, clear [4]float32) {
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(clear[:])

	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.(*RenderPass).pass,
		Framebuffer: framebuffer.(*Framebuffer).framebuffer,
		RenderArea: vk.Rect2D{
			Extent: extent(size),
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.buffer, &rpbi, vk.SubpassContentsInline)
}

// EndRenderPass implements gfx.CommandBuffer.
func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.buffer)
}

// SetViewport implements gfx.CommandBuffer, the scissor covers the viewport.
func (c *CommandBuffer) SetViewport(size gfx.Extent2D) {
	vk.CmdSetViewport(c.buffer, 0, 1, []vk.Viewport{{
		Width:    float32(size.Width),
		Height:   float32(size.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(c.buffer, 0, 1, []vk.Rect2D{{
		Extent: extent(size),
	}})
}

// BindPipeline implements gfx.CommandBuffer.
func (c *CommandBuffer) BindPipeline(pipeline gfx.Pipeline) {
	vk.CmdBindPipeline(c.buffer, vk.PipelineBindPointGraphics, pipeline.(*Pipeline).pipeline)
}

// PushConstants implements gfx.CommandBuffer.
func (c *CommandBuffer) PushConstants(layout gfx.PipelineLayout, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(c.buffer, layout.(*PipelineLayout).layout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

// BindVertexBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) BindVertexBuffer(buffer gfx.Buffer) {
	vk.CmdBindVertexBuffers(c.buffer, 0, 1, []vk.Buffer{buffer.(*Buffer).buffer}, []vk.DeviceSize{0})
}

// BindIndexBuffer implements gfx.CommandBuffer, indices are 32 bit.
func (c *CommandBuffer) BindIndexBuffer(buffer gfx.Buffer) {
	vk.CmdBindIndexBuffer(c.buffer, buffer.(*Buffer).buffer, 0, vk.IndexTypeUint32)
}

// Draw implements gfx.CommandBuffer.
func (c *CommandBuffer) Draw(vertexCount uint32) {
	vk.CmdDraw(c.buffer, vertexCount, 1, 0, 0)
}

// DrawIndexed implements gfx.CommandBuffer.
func (c *CommandBuffer) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(c.buffer, indexCount, 1, 0, 0, 0)
}
