// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/vkmol/src/core"
	"github.com/devblok/vkmol/src/gfx"
	"github.com/devblok/vkmol/src/gfx/vkr"
)

func init() {
	runtime.LockOSThread()
}

var (
	debug      = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	indent     = flag.Bool("indent", true, "Indent the JSON output")
	extensions = flag.String("extensions", "VK_KHR_swapchain", "Comma separated device extensions to require")
	wireframe  = flag.Bool("wireframe", true, "Require non solid fill modes")
)

func main() {
	flag.Parse()

	candidates, err := probe()
	if err != nil {
		log.WithError(err).Fatal("probe failed")
	}

	var out []byte
	if *indent {
		out, err = json.MarshalIndent(candidates, "", "  ")
	} else {
		out, err = json.Marshal(candidates)
	}
	if err != nil {
		log.WithError(err).Fatal("encode candidates")
	}
	fmt.Printf("%s\n", out)

	if _, err := core.Select(candidates); err != nil {
		os.Exit(1)
	}
}

// probe creates a hidden window so surface support can be queried.
func probe() ([]core.Candidate, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "sdl.Init()")
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return nil, errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := sdl.CreateWindow("vkmolcli", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		64, 64, sdl.WINDOW_VULKAN|sdl.WINDOW_HIDDEN)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	defer window.Destroy()

	var layers []string
	if *debug {
		log.SetLevel(log.DebugLevel)
		layers = []string{"VK_LAYER_KHRONOS_validation"}
	}

	backend := vkr.NewBackend(sdl.VulkanGetVkGetInstanceProcAddr(), log.WithField("app", "vkmolcli"))
	instance, err := backend.CreateInstance(gfx.InstanceInfo{
		AppName:    "vkmolcli",
		EngineName: "vkmol",
		Extensions: window.VulkanGetInstanceExtensions(),
		Layers:     layers,
		Debug:      *debug,
	})
	if err != nil {
		return nil, err
	}
	defer instance.Release()

	in := instance.(*vkr.Instance)
	handle, err := window.VulkanCreateSurface(in.Handle())
	if err != nil {
		return nil, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	surface := vkr.NewSurface(in, handle)
	defer surface.Release()

	devices, err := instance.PhysicalDevices()
	if err != nil {
		return nil, err
	}

	req := core.Requirements{}
	if *extensions != "" {
		req.Extensions = strings.Split(*extensions, ",")
	}
	req.Features.FillModeNonSolid = *wireframe
	return core.Probe(devices, surface, req)
}
