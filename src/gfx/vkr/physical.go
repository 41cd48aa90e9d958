// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/devblok/vulkan"

	"github.com/devblok/vkmol/src/gfx"
)

const queueFlagsMask = vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit)

// newPhysicalDevice reads the static properties of the device once,
// surface dependent queries are made on every call.
func newPhysicalDevice(handle vk.PhysicalDevice) *PhysicalDevice {
	pd := &PhysicalDevice{handle: handle}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(handle, &properties)
	properties.Deref()
	properties.Limits.Deref()
	pd.properties = gfx.DeviceProperties{
		Name:              vk.ToString(properties.DeviceName[:]),
		Type:              gfx.DeviceType(properties.DeviceType),
		VendorID:          properties.VendorID,
		DeviceID:          properties.DeviceID,
		DriverVersion:     properties.DriverVersion,
		APIVersion:        properties.ApiVersion,
		PipelineCacheUUID: properties.PipelineCacheUUID,
		Limits: gfx.Limits{
			MaxImageDimension2D:             properties.Limits.MaxImageDimension2D,
			MaxPushConstantsSize:            properties.Limits.MaxPushConstantsSize,
			MinUniformBufferOffsetAlignment: uint64(properties.Limits.MinUniformBufferOffsetAlignment),
			MinStorageBufferOffsetAlignment: uint64(properties.Limits.MinStorageBufferOffsetAlignment),
		},
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(handle, &features)
	features.Deref()
	pd.features = gfx.Features{
		FillModeNonSolid:  features.FillModeNonSolid == vk.True,
		SamplerAnisotropy: features.SamplerAnisotropy == vk.True,
	}

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(handle, &memoryProperties)
	memoryProperties.Deref()
	for idx := uint32(0); idx < memoryProperties.MemoryTypeCount; idx++ {
		memoryProperties.MemoryTypes[idx].Deref()
		pd.memoryTypes = append(pd.memoryTypes, gfx.MemoryType{
			Flags:     gfx.MemoryPropertyFlags(memoryProperties.MemoryTypes[idx].PropertyFlags),
			HeapIndex: memoryProperties.MemoryTypes[idx].HeapIndex,
		})
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(handle, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(handle, &familyCount, families)
	for _, family := range families[:familyCount] {
		family.Deref()
		pd.families = append(pd.families, gfx.QueueFamily{
			Flags: gfx.QueueFlags(family.QueueFlags & queueFlagsMask),
			Count: family.QueueCount,
		})
	}

	return pd
}

// PhysicalDevice implements gfx.PhysicalDevice.
type PhysicalDevice struct {
	handle vk.PhysicalDevice

	properties  gfx.DeviceProperties
	features    gfx.Features
	memoryTypes []gfx.MemoryType
	families    []gfx.QueueFamily
}

// Properties implements gfx.PhysicalDevice.
func (p *PhysicalDevice) Properties() gfx.DeviceProperties {
	return p.properties
}

// Features implements gfx.PhysicalDevice.
func (p *PhysicalDevice) Features() gfx.Features {
	return p.features
}

// MemoryTypes implements gfx.PhysicalDevice.
func (p *PhysicalDevice) MemoryTypes() []gfx.MemoryType {
	return p.memoryTypes
}

// QueueFamilies implements gfx.PhysicalDevice.
func (p *PhysicalDevice) QueueFamilies() []gfx.QueueFamily {
	return p.families
}

// SurfaceSupport implements gfx.PhysicalDevice.
func (p *PhysicalDevice) SurfaceSupport(family uint32, s gfx.Surface) (bool, error) {
	var supported vk.Bool32
	if err := check(vk.GetPhysicalDeviceSurfaceSupport(p.handle, family, surfaceOf(s), &supported), "GetPhysicalDeviceSurfaceSupport"); err != nil {
		return false, err
	}
	return supported.B(), nil
}

// Extensions implements gfx.PhysicalDevice.
func (p *PhysicalDevice) Extensions() ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateDeviceExtensionProperties(p.handle, "", &count, nil), "EnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	properties := make([]vk.ExtensionProperties, count)
	if err := check(vk.EnumerateDeviceExtensionProperties(p.handle, "", &count, properties), "EnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, ext := range properties[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// SurfaceFormats implements gfx.PhysicalDevice.
func (p *PhysicalDevice) SurfaceFormats(s gfx.Surface) ([]gfx.SurfaceFormat, error) {
	surface := surfaceOf(s)
	var count uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(p.handle, surface, &count, nil), "GetPhysicalDeviceSurfaceFormats"); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(p.handle, surface, &count, formats), "GetPhysicalDeviceSurfaceFormats"); err != nil {
		return nil, err
	}

	out := make([]gfx.SurfaceFormat, 0, count)
	for _, f := range formats[:count] {
		f.Deref()
		out = append(out, gfx.SurfaceFormat{
			Format:     gfx.Format(f.Format),
			ColorSpace: gfx.ColorSpace(f.ColorSpace),
		})
	}
	return out, nil
}

// PresentModes implements gfx.PhysicalDevice.
func (p *PhysicalDevice) PresentModes(s gfx.Surface) ([]gfx.PresentMode, error) {
	surface := surfaceOf(s)
	var count uint32
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(p.handle, surface, &count, nil), "GetPhysicalDeviceSurfacePresentModes"); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(p.handle, surface, &count, modes), "GetPhysicalDeviceSurfacePresentModes"); err != nil {
		return nil, err
	}

	out := make([]gfx.PresentMode, 0, count)
	for _, m := range modes[:count] {
		out = append(out, gfx.PresentMode(m))
	}
	return out, nil
}

// SurfaceCapabilities implements gfx.PhysicalDevice.
func (p *PhysicalDevice) SurfaceCapabilities(s gfx.Surface) (gfx.SurfaceCapabilities, error) {
	caps, err := p.capabilities(surfaceOf(s))
	if err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	return gfx.SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    gfx.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinImageExtent:   gfx.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxImageExtent:   gfx.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		CurrentTransform: uint32(caps.CurrentTransform),
	}, nil
}

func (p *PhysicalDevice) capabilities(surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(p.handle, surface, &caps), "GetPhysicalDeviceSurfaceCapabilities"); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

// CreateDevice implements gfx.PhysicalDevice.
func (p *PhysicalDevice) CreateDevice(info gfx.DeviceInfo) (gfx.Device, error) {
	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(info.Families))
	for _, family := range info.Families {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		})
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			FillModeNonSolid:  bool32(info.Features.FillModeNonSolid),
			SamplerAnisotropy: bool32(info.Features.SamplerAnisotropy),
		}},
	}

	var device vk.Device
	if err := check(vk.CreateDevice(p.handle, &dci, nil, &device), "CreateDevice"); err != nil {
		return nil, err
	}

	d := &Device{
		physical: p,
		device:   device,
		queues:   make(map[uint32]*Queue, len(info.Families)),
	}
	for _, family := range info.Families {
		var queue vk.Queue
		vk.GetDeviceQueue(device, family, 0, &queue)
		d.queues[family] = &Queue{queue: queue}
	}

	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	if err := check(vk.CreatePipelineCache(device, &pcci, nil, &d.cache), "CreatePipelineCache"); err != nil {
		vk.DestroyDevice(device, nil)
		return nil, err
	}
	return d, nil
}
