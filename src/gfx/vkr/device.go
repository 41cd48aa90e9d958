// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/cockroachdb/errors"
	vk "github.com/devblok/vulkan"

	"github.com/devblok/vkmol/src/gfx"
)

// Device implements gfx.Device.
type Device struct {
	physical *PhysicalDevice
	device   vk.Device
	cache    vk.PipelineCache
	queues   map[uint32]*Queue
}

// Queue implements gfx.Device, nil is returned for families
// the device was not created with.
func (d *Device) Queue(family uint32) gfx.Queue {
	q, ok := d.queues[family]
	if !ok {
		return nil
	}
	return q
}

// WaitIdle implements gfx.Device.
func (d *Device) WaitIdle() error {
	return check(vk.DeviceWaitIdle(d.device), "DeviceWaitIdle")
}

// Release implements gfx.Releasable.
func (d *Device) Release() {
	vk.DestroyPipelineCache(d.device, d.cache, nil)
	vk.DestroyDevice(d.device, nil)
}

// CreateSemaphore implements gfx.Device.
func (d *Device) CreateSemaphore() (gfx.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sem vk.Semaphore
	if err := check(vk.CreateSemaphore(d.device, &sci, nil, &sem), "CreateSemaphore"); err != nil {
		return nil, err
	}
	return &Semaphore{device: d.device, semaphore: sem}, nil
}

// CreateFence implements gfx.Device.
func (d *Device) CreateFence(signaled bool) (gfx.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := check(vk.CreateFence(d.device, &fci, nil, &fence), "CreateFence"); err != nil {
		return nil, err
	}
	return &Fence{device: d.device, fence: fence}, nil
}

// WaitForFences implements gfx.Device.
func (d *Device) WaitForFences(fences []gfx.Fence, timeout uint64) error {
	handles := fenceHandles(fences)
	return result(vk.WaitForFences(d.device, uint32(len(handles)), handles, vk.True, uint(timeout)), "WaitForFences")
}

// ResetFences implements gfx.Device.
func (d *Device) ResetFences(fences []gfx.Fence) error {
	handles := fenceHandles(fences)
	return check(vk.ResetFences(d.device, uint32(len(handles)), handles), "ResetFences")
}

func fenceHandles(fences []gfx.Fence) []vk.Fence {
	handles := make([]vk.Fence, 0, len(fences))
	for _, f := range fences {
		handles = append(handles, f.(*Fence).fence)
	}
	return handles
}

// Queue implements gfx.Queue.
type Queue struct {
	queue vk.Queue
}

// Submit implements gfx.Queue.
func (q *Queue) Submit(submission gfx.Submission, fence gfx.Fence) error {
	waits := semaphoreHandles(submission.Wait)
	stages := make([]vk.PipelineStageFlags, len(waits))
	for idx := range stages {
		stages[idx] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	signals := semaphoreHandles(submission.Signal)

	commands := make([]vk.CommandBuffer, 0, len(submission.Commands))
	for _, cb := range submission.Commands {
		commands = append(commands, cb.(*CommandBuffer).buffer)
	}

	si := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(commands)),
		PCommandBuffers:      commands,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}}

	var f vk.Fence
	if fence != nil {
		f = fence.(*Fence).fence
	}
	return check(vk.QueueSubmit(q.queue, 1, si, f), "QueueSubmit")
}

// Present implements gfx.Queue.
func (q *Queue) Present(swapchain gfx.Swapchain, image uint32, wait []gfx.Semaphore) error {
	waits := semaphoreHandles(wait)
	pi := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.(*Swapchain).swapchain},
		PImageIndices:      []uint32{image},
	}
	return result(vk.QueuePresent(q.queue, &pi), "QueuePresent")
}

// WaitIdle implements gfx.Queue.
func (q *Queue) WaitIdle() error {
	return check(vk.QueueWaitIdle(q.queue), "QueueWaitIdle")
}

// Semaphore implements gfx.Semaphore.
type Semaphore struct {
	device    vk.Device
	semaphore vk.Semaphore
}

// Release implements gfx.Releasable.
func (s *Semaphore) Release() {
	vk.DestroySemaphore(s.device, s.semaphore, nil)
}

func semaphoreHandles(sems []gfx.Semaphore) []vk.Semaphore {
	handles := make([]vk.Semaphore, 0, len(sems))
	for _, s := range sems {
		handles = append(handles, s.(*Semaphore).semaphore)
	}
	return handles
}

// Fence implements gfx.Fence.
type Fence struct {
	device vk.Device
	fence  vk.Fence
}

// Release implements gfx.Releasable.
func (f *Fence) Release() {
	vk.DestroyFence(f.device, f.fence, nil)
}

// CreateShaderModule implements gfx.Device.
func (d *Device) CreateShaderModule(code []byte) (gfx.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Newf("shader code of %d bytes is not SPIR-V", len(code))
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    SliceUint32(code),
	}

	var module vk.ShaderModule
	if err := check(vk.CreateShaderModule(d.device, &smci, nil, &module), "CreateShaderModule"); err != nil {
		return nil, err
	}
	return &ShaderModule{device: d.device, module: module}, nil
}

// ShaderModule implements gfx.ShaderModule.
type ShaderModule struct {
	device vk.Device
	module vk.ShaderModule
}

// Release implements gfx.Releasable.
func (s *ShaderModule) Release() {
	vk.DestroyShaderModule(s.device, s.module, nil)
}
