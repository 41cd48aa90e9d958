// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
)

// DeviceContext owns the logical device created for a Candidate,
// its queues and the long lived command pool.
type DeviceContext struct {
	Device   gfx.Device
	Physical gfx.PhysicalDevice

	GraphicsFamily uint32
	PresentFamily  uint32
	GraphicsQueue  gfx.Queue
	PresentQueue   gfx.Queue

	MemoryTypes []gfx.MemoryType
	Limits      gfx.Limits

	pool gfx.CommandPool
}

// NewDeviceContext creates a logical device on the candidate with a queue
// for each of its graphics and present families.
func NewDeviceContext(c Candidate, req Requirements, layers []string) (*DeviceContext, error) {
	families := uniqueFamilies(c.Graphics, c.Present)
	device, err := c.Device.CreateDevice(gfx.DeviceInfo{
		Families:   families,
		Extensions: req.Extensions,
		Layers:     layers,
		Features:   req.Features,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create logical device")
	}

	pool, err := device.CreateCommandPool(c.Graphics)
	if err != nil {
		device.Release()
		return nil, errors.Wrap(err, "create command pool")
	}

	return &DeviceContext{
		Device:         device,
		Physical:       c.Device,
		GraphicsFamily: c.Graphics,
		PresentFamily:  c.Present,
		GraphicsQueue:  device.Queue(c.Graphics),
		PresentQueue:   device.Queue(c.Present),
		MemoryTypes:    c.Device.MemoryTypes(),
		Limits:         c.Properties.Limits,
		pool:           pool,
	}, nil
}

// Families returns the unique queue families in use.
func (d *DeviceContext) Families() []uint32 {
	return uniqueFamilies(d.GraphicsFamily, d.PresentFamily)
}

// CommandPool returns the pool of the graphics family, its command
// buffers can be reset individually.
func (d *DeviceContext) CommandPool() gfx.CommandPool {
	return d.pool
}

// QueryMemoryType returns the first memory type allowed by typeBits
// that has all of flags.
func (d *DeviceContext) QueryMemoryType(typeBits uint32, flags gfx.MemoryPropertyFlags) (uint32, error) {
	for idx, mt := range d.MemoryTypes {
		if typeBits&(1<<uint(idx)) != 0 && mt.Flags&flags == flags {
			return uint32(idx), nil
		}
	}
	return 0, errors.Wrapf(ErrNoMemoryType, "type bits %#x, flags %#x", typeBits, uint32(flags))
}

// Allocate returns memory satisfying req with all of flags.
func (d *DeviceContext) Allocate(req gfx.MemoryRequirements, flags gfx.MemoryPropertyFlags) (gfx.Memory, error) {
	memoryType, err := d.QueryMemoryType(req.MemoryTypeBits, flags)
	if err != nil {
		return nil, err
	}
	memory, err := d.Device.AllocateMemory(req.Size, memoryType)
	if err != nil {
		return nil, errors.Wrap(err, "allocate memory")
	}
	return memory, nil
}

// Release destroys the command pool and the device.
func (d *DeviceContext) Release() {
	if d.pool != nil {
		d.pool.Release()
		d.pool = nil
	}
	if d.Device != nil {
		d.Device.Release()
		d.Device = nil
	}
}

func uniqueFamilies(graphics, present uint32) []uint32 {
	if graphics == present {
		return []uint32{graphics}
	}
	return []uint32{graphics, present}
}
