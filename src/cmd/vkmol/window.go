// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/vkmol/src/gfx"
	"github.com/devblok/vkmol/src/gfx/vkr"
)

func newWindow(title string, width, height uint32) (*sdl.Window, error) {
	window, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	return window, nil
}

// windowState caches window sizes for readers off the main thread.
type windowState struct {
	mu           sync.Mutex
	width        int
	height       int
	drawW, drawH int
	minimized    bool
}

func (s *windowState) update(width, height, drawW, drawH int, minimized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	s.drawW, s.drawH = drawW, drawH
	s.minimized = minimized
}

func (s *windowState) WindowSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *windowState) FramebufferSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.minimized {
		return 0, 0
	}
	return s.drawW, s.drawH
}

// sdlDelegate implements core.WSIDelegate for an SDL window. Sizes are
// read from the window only by refresh, which must run on the main thread.
type sdlDelegate struct {
	*windowState
	window *sdl.Window
}

func newDelegate(window *sdl.Window) sdlDelegate {
	d := sdlDelegate{windowState: &windowState{}, window: window}
	d.refresh()
	return d
}

func (d sdlDelegate) refresh() {
	w, h := d.window.GetSize()
	dw, dh := d.window.VulkanGetDrawableSize()
	minimized := d.window.GetFlags()&sdl.WINDOW_MINIMIZED != 0
	d.update(int(w), int(h), int(dw), int(dh), minimized)
}

func (d sdlDelegate) InstanceExtensions() []string {
	return d.window.VulkanGetInstanceExtensions()
}

func (d sdlDelegate) Surface(instance gfx.Instance) (gfx.Surface, error) {
	in, ok := instance.(*vkr.Instance)
	if !ok {
		return nil, errors.Newf("cannot create an SDL surface for %T", instance)
	}
	surface, err := d.window.VulkanCreateSurface(in.Handle())
	if err != nil {
		return nil, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	return vkr.NewSurface(in, surface), nil
}
