// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	"github.com/devblok/vkmol/src/gfx"
)

// BufferKind is the role of a buffer, it decides its usage flags.
type BufferKind int

// Buffer kinds.
const (
	VertexBuffer BufferKind = iota
	IndexBuffer
	UniformBuffer
	StagingBuffer
	TransferBuffer
)

func (k BufferKind) String() string {
	switch k {
	case VertexBuffer:
		return "vertex"
	case IndexBuffer:
		return "index"
	case UniformBuffer:
		return "uniform"
	case StagingBuffer:
		return "staging"
	case TransferBuffer:
		return "transfer"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

// Usage returns the usage flags buffers of the kind are created with.
func (k BufferKind) Usage() gfx.BufferUsageFlags {
	switch k {
	case VertexBuffer:
		return gfx.BufferUsageVertex
	case IndexBuffer:
		return gfx.BufferUsageIndex
	case UniformBuffer:
		return gfx.BufferUsageUniform
	case StagingBuffer:
		return gfx.BufferUsageTransferSrc
	case TransferBuffer:
		return gfx.BufferUsageTransferSrc | gfx.BufferUsageTransferDst
	default:
		return 0
	}
}

// Residency tells where buffer memory lives.
type Residency int

// Residencies.
const (
	DeviceLocal Residency = iota
	HostVisible
)

const hostMemory = gfx.MemoryHostVisible | gfx.MemoryHostCoherent

// Buffer is a GPU buffer together with its memory.
type Buffer struct {
	Kind      BufferKind
	Size      uint64
	Residency Residency

	buffer gfx.Buffer
	memory gfx.Memory
}

// Get returns the backend buffer.
func (b *Buffer) Get() gfx.Buffer {
	return b.buffer
}

// Release destroys the buffer and frees its memory.
func (b *Buffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
	if b.memory != nil {
		b.memory.Release()
		b.memory = nil
	}
}

// BufferHandle refers to a buffer owned by a Renderer.
type BufferHandle = Handle[*Buffer]
