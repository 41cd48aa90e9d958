// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"encoding/binary"
	"testing"

	vk "github.com/devblok/vulkan"
	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkmol/src/gfx"
)

func TestSliceUint32(t *testing.T) {
	c := qt.New(t)

	data := make([]byte, 16)
	for idx := 0; idx < 4; idx++ {
		binary.LittleEndian.PutUint32(data[idx*4:], uint32(0x07230203+idx))
	}
	words := SliceUint32(data)
	c.Assert(words, qt.HasLen, 4)
	c.Assert(words[0], qt.Equals, binary.LittleEndian.Uint32(data))

	// the words share memory with the bytes
	data[4] = 0xFF
	c.Assert(words[1]&0xFF, qt.Equals, uint32(0xFF))

	c.Assert(SliceUint32(data[:7]), qt.HasLen, 1)
	c.Assert(SliceUint32(nil), qt.IsNil)
	c.Assert(SliceUint32([]byte{1, 2, 3}), qt.IsNil)
}

func TestSafeStrings(t *testing.T) {
	c := qt.New(t)
	c.Assert(safeString("main"), qt.Equals, "main\x00")
	c.Assert(safeStrings([]string{"VK_KHR_surface", "VK_KHR_swapchain"}), qt.DeepEquals,
		[]string{"VK_KHR_surface\x00", "VK_KHR_swapchain\x00"})
	c.Assert(safeStrings(nil), qt.HasLen, 0)
}

func TestResult(t *testing.T) {
	c := qt.New(t)
	c.Assert(result(vk.Success, "QueuePresent"), qt.IsNil)
	c.Assert(result(vk.Suboptimal, "QueuePresent"), qt.Equals, gfx.ErrSuboptimal)
	c.Assert(result(vk.ErrorOutOfDate, "AcquireNextImage"), qt.Equals, gfx.ErrOutOfDate)
	c.Assert(result(vk.Timeout, "WaitForFences"), qt.Equals, gfx.ErrTimeout)
	c.Assert(result(vk.ErrorDeviceLost, "QueueSubmit"), qt.ErrorMatches, `vk\.QueueSubmit\(\): .*`)

	c.Assert(check(vk.Success, "CreateBuffer"), qt.IsNil)
	c.Assert(check(vk.ErrorOutOfDeviceMemory, "AllocateMemory"), qt.ErrorMatches, `vk\.AllocateMemory\(\): .*`)
}

func TestPipelineModes(t *testing.T) {
	c := qt.New(t)

	top, err := topology(gfx.TopologyLineStrip)
	c.Assert(err, qt.IsNil)
	c.Assert(top, qt.Equals, vk.PrimitiveTopologyLineStrip)
	_, err = topology(gfx.Topology(9))
	c.Assert(err, qt.ErrorMatches, "unsupported topology 9")

	mode, err := polygonMode(gfx.PolygonLine)
	c.Assert(err, qt.IsNil)
	c.Assert(mode, qt.Equals, vk.PolygonModeLine)
	_, err = polygonMode(gfx.PolygonMode(4))
	c.Assert(err, qt.ErrorMatches, "unsupported polygon mode 4")
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		SliceUint32(data)
	}
}

func BenchmarkSliceUint32Medium(b *testing.B) {
	data := make([]byte, 1000)
	for idx := 0; idx < b.N; idx++ {
		SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		SliceUint32(data)
	}
}
