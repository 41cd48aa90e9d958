// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "fmt"

// UndefinedExtent is the current extent reported by surfaces whose
// size is decided by the swapchain.
const UndefinedExtent = 0xFFFFFFFF

// Version is a major.minor.patch triple.
type Version struct {
	Major, Minor, Patch uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// InstanceInfo configures instance creation.
type InstanceInfo struct {
	AppName    string
	AppVersion Version
	EngineName string

	Extensions []string
	Layers     []string

	// Debug installs a debug report callback.
	Debug bool
}

// DeviceInfo configures logical device creation.
type DeviceInfo struct {
	// Families are unique queue family indices, one queue is created for each.
	Families   []uint32
	Extensions []string
	Layers     []string
	Features   Features
}

// DeviceType classifies a physical device.
type DeviceType int

// Device types, values match vulkan.
const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeIntegratedGPU:
		return "integrated"
	case DeviceTypeDiscreteGPU:
		return "discrete"
	case DeviceTypeVirtualGPU:
		return "virtual"
	case DeviceTypeCPU:
		return "cpu"
	default:
		return "other"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// DeviceProperties are the general properties of a physical device.
type DeviceProperties struct {
	Name          string
	Type          DeviceType
	VendorID      uint32
	DeviceID      uint32
	DriverVersion uint32
	APIVersion    uint32

	PipelineCacheUUID [16]byte

	Limits Limits
}

// Limits holds the device limits the engine cares about.
type Limits struct {
	MaxImageDimension2D             uint32
	MaxPushConstantsSize            uint32
	MinUniformBufferOffsetAlignment uint64
	MinStorageBufferOffsetAlignment uint64
}

// Features are optional device features.
type Features struct {
	FillModeNonSolid  bool
	SamplerAnisotropy bool
}

// Missing returns the names of the features in required that f lacks.
func (f Features) Missing(required Features) []string {
	var missing []string
	if required.FillModeNonSolid && !f.FillModeNonSolid {
		missing = append(missing, "fillModeNonSolid")
	}
	if required.SamplerAnisotropy && !f.SamplerAnisotropy {
		missing = append(missing, "samplerAnisotropy")
	}
	return missing
}

// QueueFlags describe queue family capabilities.
type QueueFlags uint32

// Queue capabilities.
const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
)

// QueueFamily describes a queue family.
type QueueFamily struct {
	Flags QueueFlags
	Count uint32
}

// MemoryPropertyFlags describe memory type properties.
type MemoryPropertyFlags uint32

// Memory properties, values match vulkan.
const (
	MemoryDeviceLocal MemoryPropertyFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
)

// MemoryType is an entry in the device memory type table.
type MemoryType struct {
	Flags     MemoryPropertyFlags
	HeapIndex uint32
}

// MemoryRequirements of a resource.
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// BufferUsageFlags describe how a buffer is going to be used.
type BufferUsageFlags uint32

// Buffer usages, values match vulkan.
const (
	BufferUsageTransferSrc BufferUsageFlags = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniformTexel
	BufferUsageStorageTexel
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
)

// Format is an image format.
type Format int32

// Formats in use by the engine, values match vulkan.
const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR32G32Sfloat       Format = 103
	FormatR32G32B32Sfloat    Format = 106
	FormatR32G32B32A32Sfloat Format = 109
)

// ColorSpace of presented images.
type ColorSpace int32

// Color spaces.
const (
	ColorSpaceSrgbNonlinear ColorSpace = 0
)

// SurfaceFormat pairs a Format with a ColorSpace.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode is the presentation engine mode.
type PresentMode int32

// Present modes, values match vulkan.
const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFifo
	PresentModeFifoRelaxed
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo-relaxed"
	default:
		return fmt.Sprintf("PresentMode(%d)", int32(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m PresentMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Extent2D is a two dimensional size.
type Extent2D struct {
	Width, Height uint32
}

// Empty reports whether either dimension is zero.
func (e Extent2D) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

// SurfaceCapabilities are the surface limits of a physical device.
type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D

	// CurrentTransform is passed through to swapchain creation.
	CurrentTransform uint32
}

// SwapchainInfo configures swapchain creation.
type SwapchainInfo struct {
	Surface     Surface
	ImageCount  uint32
	Format      SurfaceFormat
	Extent      Extent2D
	PresentMode PresentMode
	Transform   uint32

	// Families lists the queue families accessing images,
	// more than one makes the images shared.
	Families []uint32

	// Old is the swapchain being replaced, or nil.
	Old Swapchain
}

// Topology of primitives.
type Topology int

// Topologies.
const (
	TopologyTriangleList Topology = iota
	TopologyLineStrip
)

// PolygonMode is the rasterization fill mode.
type PolygonMode int

// Polygon modes.
const (
	PolygonFill PolygonMode = iota
	PolygonLine
)

// VertexAttribute describes one attribute of an interleaved vertex.
type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

// VertexLayout describes interleaved vertex input of binding 0.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// PipelineInfo configures graphics pipeline creation.
// Viewport and scissor are always dynamic.
type PipelineInfo struct {
	Layout     PipelineLayout
	RenderPass RenderPass
	Vertex     ShaderModule
	Fragment   ShaderModule
	Input      VertexLayout
	Topology   Topology
	Polygon    PolygonMode
}

// Submission is a single queue submission.
type Submission struct {
	Wait     []Semaphore
	Commands []CommandBuffer
	Signal   []Semaphore
}
