// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/devblok/vulkan"

	"github.com/devblok/vkmol/src/gfx"
)

// AllocateMemory implements gfx.Device.
func (d *Device) AllocateMemory(size uint64, memoryType uint32) (gfx.Memory, error) {
	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryType,
	}

	var memory vk.DeviceMemory
	if err := check(vk.AllocateMemory(d.device, &mai, nil, &memory), "AllocateMemory"); err != nil {
		return nil, err
	}
	return &Memory{
		device: d.device,
		memory: memory,
		size:   size,
	}, nil
}

// Memory defines a usable memory region.
type Memory struct {
	device vk.Device
	memory vk.DeviceMemory
	size   uint64
	mapped []byte
}

// Size implements gfx.Memory.
func (m *Memory) Size() uint64 {
	return m.size
}

// Map maps the entire memory region, the returned
// slice is valid until Unmap.
func (m *Memory) Map() ([]byte, error) {
	if m.mapped != nil {
		return m.mapped, nil
	}
	var ptr unsafe.Pointer
	if err := check(vk.MapMemory(m.device, m.memory, 0, vk.DeviceSize(m.size), 0, &ptr), "MapMemory"); err != nil {
		return nil, err
	}
	m.mapped = unsafe.Slice((*byte)(ptr), m.size)
	return m.mapped, nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped != nil {
		vk.UnmapMemory(m.device, m.memory)
		m.mapped = nil
	}
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	m.Unmap()
	vk.FreeMemory(m.device, m.memory, nil)
}

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(size uint64, usage gfx.BufferUsageFlags) (gfx.Buffer, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if err := check(vk.CreateBuffer(d.device, &bci, nil, &buffer), "CreateBuffer"); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buffer, &req)
	req.Deref()

	return &Buffer{
		device: d.device,
		buffer: buffer,
		size:   size,
		requirements: gfx.MemoryRequirements{
			Size:           uint64(req.Size),
			Alignment:      uint64(req.Alignment),
			MemoryTypeBits: req.MemoryTypeBits,
		},
	}, nil
}

// Buffer implements a generic vulkan buffer. Its memory is owned
// by the caller and is not released with it.
type Buffer struct {
	device vk.Device
	buffer vk.Buffer
	size   uint64

	requirements gfx.MemoryRequirements
}

// Size implements gfx.Buffer.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Requirements implements gfx.Buffer.
func (b *Buffer) Requirements() gfx.MemoryRequirements {
	return b.requirements
}

// Bind implements gfx.Buffer.
func (b *Buffer) Bind(memory gfx.Memory) error {
	m, ok := memory.(*Memory)
	if !ok {
		return errors.Newf("cannot bind %T to a vulkan buffer", memory)
	}
	return check(vk.BindBufferMemory(b.device, b.buffer, m.memory, 0), "BindBufferMemory")
}

// Release destroys the buffer.
func (b *Buffer) Release() {
	vk.DestroyBuffer(b.device, b.buffer, nil)
}
