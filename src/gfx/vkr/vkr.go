// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements package gfx on top of the vulkan API.
package vkr

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/devblok/vulkan"

	"github.com/devblok/vkmol/src/gfx"
)

// SliceUint32 reslices bytes into a uint32, that is used
// to submit vulkan shaders for processing.
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

func safeString(s string) string {
	return fmt.Sprintf("%s\x00", s)
}

func safeStrings(sgs []string) []string {
	safe := make([]string, 0, len(sgs))
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}

func bool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// check turns a failed call into an error prefixed with the call name.
func check(res vk.Result, call string) error {
	return errors.Wrapf(vk.Error(res), "vk.%s()", call)
}

// result is check for calls whose non-fatal results the engine acts upon.
func result(res vk.Result, call string) error {
	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return gfx.ErrSuboptimal
	case vk.ErrorOutOfDate:
		return gfx.ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return gfx.ErrTimeout
	}
	return check(res, call)
}

func extent(e gfx.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

var (
	_ gfx.Backend        = (*Backend)(nil)
	_ gfx.Instance       = (*Instance)(nil)
	_ gfx.Surface        = (*Surface)(nil)
	_ gfx.PhysicalDevice = (*PhysicalDevice)(nil)
	_ gfx.Device         = (*Device)(nil)
	_ gfx.Queue          = (*Queue)(nil)
	_ gfx.Buffer         = (*Buffer)(nil)
	_ gfx.Memory         = (*Memory)(nil)
	_ gfx.Swapchain      = (*Swapchain)(nil)
	_ gfx.ImageView      = (*ImageView)(nil)
	_ gfx.RenderPass     = (*RenderPass)(nil)
	_ gfx.Framebuffer    = (*Framebuffer)(nil)
	_ gfx.ShaderModule   = (*ShaderModule)(nil)
	_ gfx.PipelineLayout = (*PipelineLayout)(nil)
	_ gfx.Pipeline       = (*Pipeline)(nil)
	_ gfx.Semaphore      = (*Semaphore)(nil)
	_ gfx.Fence          = (*Fence)(nil)
	_ gfx.CommandPool    = (*CommandPool)(nil)
	_ gfx.CommandBuffer  = (*CommandBuffer)(nil)
)
