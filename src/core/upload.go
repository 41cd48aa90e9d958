// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
)

// NewBuffer creates a buffer of size bytes and binds it to
// freshly allocated memory with flags.
func (d *DeviceContext) NewBuffer(size uint64, usage gfx.BufferUsageFlags, flags gfx.MemoryPropertyFlags) (*Buffer, error) {
	buffer, err := d.Device.CreateBuffer(size, usage)
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	memory, err := d.Allocate(buffer.Requirements(), flags)
	if err != nil {
		buffer.Release()
		return nil, err
	}

	if err := buffer.Bind(memory); err != nil {
		buffer.Release()
		memory.Release()
		return nil, errors.Wrap(err, "bind buffer memory")
	}

	b := &Buffer{Size: size, buffer: buffer, memory: memory}
	if flags&gfx.MemoryHostVisible != 0 {
		b.Residency = HostVisible
	}
	return b, nil
}

// Upload creates a buffer of kind holding data. Staging buffers are
// filled in place, everything else is copied from a temporary staging
// buffer into device local memory. Upload returns once the copy completed.
func (d *DeviceContext) Upload(kind BufferKind, data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrEmptyBuffer, "%s buffer", kind)
	}

	staging, err := d.stage(StagingBuffer.Usage(), data)
	if err != nil {
		return nil, err
	}
	if kind == StagingBuffer {
		staging.Kind = kind
		return staging, nil
	}
	defer staging.Release()

	size := uint64(len(data))
	b, err := d.NewBuffer(size, kind.Usage()|gfx.BufferUsageTransferDst, gfx.MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}
	b.Kind = kind

	if err := d.copyBuffer(staging, b, 0, size); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// UploadTo writes data into dst at offset, through a staging buffer
// unless dst is host visible.
func (d *DeviceContext) UploadTo(dst *Buffer, offset uint64, data []byte) error {
	if len(data) == 0 {
		return errors.Wrapf(ErrEmptyBuffer, "%s buffer", dst.Kind)
	}
	size := uint64(len(data))
	if offset+size > dst.Size || offset+size < offset {
		return errors.Newf("write of %d bytes at %d overflows %d byte buffer", size, offset, dst.Size)
	}

	if dst.Residency == HostVisible {
		return fill(dst, offset, data)
	}

	staging, err := d.stage(StagingBuffer.Usage(), data)
	if err != nil {
		return err
	}
	defer staging.Release()
	return d.copyBuffer(staging, dst, offset, size)
}

// stage returns a host visible buffer holding data.
func (d *DeviceContext) stage(usage gfx.BufferUsageFlags, data []byte) (*Buffer, error) {
	staging, err := d.NewBuffer(uint64(len(data)), usage, hostMemory)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	if err := fill(staging, 0, data); err != nil {
		staging.Release()
		return nil, err
	}
	return staging, nil
}

// copyBuffer records and submits a one-time copy and waits for the
// graphics queue to finish it.
func (d *DeviceContext) copyBuffer(src, dst *Buffer, dstOffset, size uint64) error {
	commands, err := d.pool.Allocate(1)
	if err != nil {
		return errors.Wrap(err, "allocate command buffer")
	}
	defer d.pool.Free(commands)
	cmd := commands[0]

	if err := cmd.Begin(true); err != nil {
		return errors.Wrap(err, "begin command buffer")
	}
	cmd.CopyBuffer(src.buffer, dst.buffer, 0, dstOffset, size)
	if err := cmd.End(); err != nil {
		return errors.Wrap(err, "end command buffer")
	}

	if err := d.GraphicsQueue.Submit(gfx.Submission{Commands: commands}, nil); err != nil {
		return errors.Wrap(err, "submit copy")
	}
	if err := d.GraphicsQueue.WaitIdle(); err != nil {
		// command buffer must not be freed while pending
		_ = d.Device.WaitIdle()
		return errors.Wrap(err, "wait for copy")
	}
	return nil
}

func fill(b *Buffer, offset uint64, data []byte) error {
	mapped, err := b.memory.Map()
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	copy(mapped[offset:offset+uint64(len(data))], data)
	b.memory.Unmap()
	return nil
}
