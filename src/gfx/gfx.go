// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the GPU features that rendering backends must implement.
// The engine core only talks to these interfaces, the vulkan backend lives in
// package vkr and an in-memory implementation for tests in package gfxtest.
package gfx

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Backend creates API instances.
type Backend interface {

	// CreateInstance loads the API and creates an instance with the
	// requested extensions and layers enabled.
	CreateInstance(info InstanceInfo) (Instance, error)
}

// Instance is a loaded API instance.
type Instance interface {
	Releasable

	// PhysicalDevices enumerates GPUs in driver order.
	PhysicalDevices() ([]PhysicalDevice, error)
}

// Surface is a presentable window surface bound to an Instance.
type Surface interface {
	Releasable
}

// PhysicalDevice describes a GPU that a logical Device can be created on.
type PhysicalDevice interface {
	Properties() DeviceProperties
	Features() Features
	MemoryTypes() []MemoryType

	// QueueFamilies lists queue families in index order.
	QueueFamilies() []QueueFamily

	// SurfaceSupport reports whether the family can present to s.
	SurfaceSupport(family uint32, s Surface) (bool, error)

	// Extensions lists supported device extension names.
	Extensions() ([]string, error)

	SurfaceFormats(s Surface) ([]SurfaceFormat, error)
	PresentModes(s Surface) ([]PresentMode, error)
	SurfaceCapabilities(s Surface) (SurfaceCapabilities, error)

	// CreateDevice creates a logical device with one queue per family.
	CreateDevice(info DeviceInfo) (Device, error)
}

// Device is a logical device, every GPU object is created through it.
type Device interface {
	Releasable

	// Queue returns the first queue of the family.
	Queue(family uint32) Queue

	// WaitIdle blocks until all queues are idle.
	WaitIdle() error

	CreateBuffer(size uint64, usage BufferUsageFlags) (Buffer, error)
	AllocateMemory(size uint64, memoryType uint32) (Memory, error)

	CreateShaderModule(code []byte) (ShaderModule, error)
	CreatePipelineLayout(pushConstantSize uint32) (PipelineLayout, error)
	CreateRenderPass(format Format) (RenderPass, error)
	CreatePipeline(info PipelineInfo) (Pipeline, error)

	CreateSwapchain(info SwapchainInfo) (Swapchain, error)
	CreateImageView(image Image, format Format) (ImageView, error)
	CreateFramebuffer(pass RenderPass, view ImageView, extent Extent2D) (Framebuffer, error)
	CreateCommandPool(family uint32) (CommandPool, error)

	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)

	// WaitForFences waits for all fences to signal or the timeout (ns) to pass,
	// in which case ErrTimeout is returned.
	WaitForFences(fences []Fence, timeout uint64) error
	ResetFences(fences []Fence) error

	// AcquireNextImage returns the index of the next presentable image,
	// signaling sem once it's ready. ErrSuboptimal comes with a valid index,
	// ErrOutOfDate without one.
	AcquireNextImage(swapchain Swapchain, timeout uint64, sem Semaphore) (uint32, error)
}

// Queue accepts command buffer submissions and presentation requests.
type Queue interface {
	Submit(submission Submission, fence Fence) error

	// Present queues the image for presentation after wait semaphores signal.
	// Can return ErrOutOfDate or ErrSuboptimal.
	Present(swapchain Swapchain, image uint32, wait []Semaphore) error

	WaitIdle() error
}

// Buffer is a GPU buffer that has to be bound to Memory before use.
type Buffer interface {
	Releasable
	Size() uint64
	Requirements() MemoryRequirements
	Bind(memory Memory) error
}

// Memory is a device memory allocation.
type Memory interface {
	Releasable
	Size() uint64

	// Map maps the whole allocation, only valid for host visible memory.
	Map() ([]byte, error)
	Unmap()
}

// Swapchain is the ordered set of presentable images.
type Swapchain interface {
	Releasable

	// Images returns the images owned by the swapchain, they
	// are released together with it.
	Images() ([]Image, error)
}

// Image is an opaque image handle.
type Image interface{}

// ImageView is a view into an Image.
type ImageView interface {
	Releasable
}

// RenderPass describes the attachments of a render.
type RenderPass interface {
	Releasable
}

// Framebuffer binds image views to a RenderPass.
type Framebuffer interface {
	Releasable
}

// ShaderModule is compiled shader code.
type ShaderModule interface {
	Releasable
}

// PipelineLayout describes push constants available to pipelines.
type PipelineLayout interface {
	Releasable
}

// Pipeline is a complete graphics pipeline state.
type Pipeline interface {
	Releasable
}

// Semaphore orders GPU work between submissions.
type Semaphore interface {
	Releasable
}

// Fence lets the CPU know a submission has completed.
type Fence interface {
	Releasable
}

// CommandPool allocates command buffers for a single queue family.
type CommandPool interface {
	Releasable
	Allocate(count int) ([]CommandBuffer, error)
	Free(buffers []CommandBuffer)
}

// CommandBuffer records GPU commands.
type CommandBuffer interface {
	Reset() error
	Begin(oneTime bool) error
	End() error

	CopyBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64)

	BeginRenderPass(pass RenderPass, framebuffer Framebuffer, extent Extent2D, clear [4]float32)
	EndRenderPass()
	SetViewport(extent Extent2D)
	BindPipeline(pipeline Pipeline)
	PushConstants(layout PipelineLayout, data []byte)
	BindVertexBuffer(buffer Buffer)
	BindIndexBuffer(buffer Buffer)
	Draw(vertexCount uint32)
	DrawIndexed(indexCount uint32)
}
