// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/sync/errgroup"

	"github.com/devblok/vkmol/src/core"
	"github.com/devblok/vkmol/src/gfx/vkr"
	"github.com/devblok/vkmol/src/model"
)

func init() {
	runtime.LockOSThread()
}

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
)

var (
	envFiles    = flag.String("env", "", "Comma separated dotenv files to load the configuration from")
	shaderPack  = flag.String("shaders", "", "Kar archive with compiled shaders, the embedded shaders are used when empty")
	meshFile    = flag.String("mesh", "", "Collada (.dae) mesh drawn next to the built in shapes")
	debug       = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	statsPeriod = flag.Duration("stats", time.Second, "Interval of the statistics log")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.WithError(err).Fatal("vkmol failed")
	}
}

func run() error {
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			return err
		}
		if err := trace.Start(f); err != nil {
			return err
		}
		defer trace.Stop()
	}

	var files []string
	if *envFiles != "" {
		files = strings.Split(*envFiles, ",")
	}
	configuration, err := core.LoadConfiguration(files...)
	if err != nil {
		return err
	}
	if *debug {
		configuration.Renderer.Debug = true
	}

	shaders, err := openShaders(*shaderPack)
	if err != nil {
		return err
	}
	defer shaders.Close()
	log.WithField("shaders", shaders.Names()).Debug("shaders available")

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.Wrap(err, "sdl.Init()")
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := newWindow(configuration.Renderer.AppName,
		configuration.Renderer.ScreenWidth, configuration.Renderer.ScreenHeight)
	if err != nil {
		return err
	}
	defer window.Destroy()

	delegate := newDelegate(window)
	entry := log.WithField("app", configuration.Renderer.AppName)
	renderer, err := core.NewRenderer(core.RendererInfo{
		Configuration: configuration.Renderer,
		Backend:       vkr.NewBackend(sdl.VulkanGetVkGetInstanceProcAddr(), entry),
		Delegate:      delegate,
		Shaders:       shaders,
		Log:           entry,
	})
	if err != nil {
		return err
	}
	if err := renderer.Initialise(); err != nil {
		return err
	}
	defer renderer.Destroy()

	if err := loadScene(renderer, *meshFile); err != nil {
		return err
	}
	renderer.SetFrameHook(model.Spin)

	timeService := core.NewTime(configuration.Time)
	defer timeService.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	/* Statistics loop */
	g.Go(func() error {
		ticker := time.NewTicker(*statsPeriod)
		defer ticker.Stop()
		var last uint64
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				stats := renderer.Stats()
				log.WithFields(log.Fields{
					"fps":         float64(stats.FramesSubmitted-last) / statsPeriod.Seconds(),
					"skipped":     stats.FramesSkipped,
					"recreations": stats.Recreations,
					"buffers":     stats.Buffers,
					"graveyard":   stats.Graveyard,
					"cgo":         runtime.NumCgoCall(),
				}).Info("frame statistics")
				last = stats.FramesSubmitted
			}
		}
	})

	/* Renderer loop */
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				log.Debug("draw loop exited")
				return nil
			case <-timeService.FpsTicker().C:
				if err := renderer.DrawFrame(); err != nil {
					return errors.Wrap(err, "draw frame")
				}
			}
		}
	})

	/* Event loop */
EventLoop:
	for {
		select {
		case <-ctx.Done():
			break EventLoop
		case <-timeService.EventTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Type != sdl.KEYDOWN {
						continue
					}
					switch et.Keysym.Sym {
					case sdl.K_ESCAPE:
						cancel()
					case sdl.K_w:
						togglePipeline(renderer)
					}
				case *sdl.WindowEvent:
					switch et.Event {
					case sdl.WINDOWEVENT_SIZE_CHANGED:
						delegate.refresh()
						if err := renderer.Resize(); err != nil {
							log.WithError(err).Warn("resize failed")
						}
					case sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_RESTORED:
						delegate.refresh()
					}
				case *sdl.QuitEvent:
					cancel()
				}
			}
		}
	}

	err = g.Wait()
	if werr := renderer.WaitIdle(); werr != nil && err == nil {
		err = werr
	}

	if *memProfile != "" {
		f, ferr := os.Create(*memProfile)
		if ferr != nil {
			return ferr
		}
		defer f.Close()
		if ferr := pprof.WriteHeapProfile(f); ferr != nil {
			return ferr
		}
	}
	return err
}

func togglePipeline(renderer *core.Renderer) {
	mode := core.Wireframe
	if renderer.ActivePipeline() == core.Wireframe {
		mode = core.Normal
	}
	if err := renderer.SetActivePipeline(mode); err != nil {
		log.WithError(err).Warn("pipeline not switched")
		return
	}
	log.WithField("pipeline", mode).Info("pipeline switched")
}

// loadScene uploads a triangle, an indexed quad and the optional mesh.
func loadScene(renderer *core.Renderer, meshPath string) error {
	triangle, err := renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Triangle))
	if err != nil {
		return errors.Wrap(err, "upload triangle")
	}
	quad, err := renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(model.Quad))
	if err != nil {
		return errors.Wrap(err, "upload quad")
	}
	indices, err := renderer.CreateBuffer(core.IndexBuffer, model.IndexBytes(model.QuadIndices))
	if err != nil {
		return errors.Wrap(err, "upload quad indices")
	}
	drawables := []core.Drawable{
		{Vertices: triangle, Count: uint32(len(model.Triangle))},
		{Vertices: quad, Indices: indices, Count: uint32(len(model.QuadIndices))},
	}

	if meshPath != "" {
		data, err := os.ReadFile(meshPath)
		if err != nil {
			return errors.Wrap(err, "read mesh")
		}
		mesh, err := model.ImportCollada(data, glm.Vec4{1, 1, 0, 1})
		if err != nil {
			return errors.Wrapf(err, "import %s", meshPath)
		}
		vertices, err := renderer.CreateBuffer(core.VertexBuffer, model.VertexBytes(mesh.Vertices))
		if err != nil {
			return errors.Wrapf(err, "upload %s", mesh.Name)
		}
		meshIndices, err := renderer.CreateBuffer(core.IndexBuffer, model.IndexBytes(mesh.Indices))
		if err != nil {
			return errors.Wrapf(err, "upload %s indices", mesh.Name)
		}
		drawables = append(drawables, core.Drawable{
			Vertices: vertices,
			Indices:  meshIndices,
			Count:    uint32(len(mesh.Indices)),
		})
		log.WithFields(log.Fields{
			"mesh":      mesh.Name,
			"vertices":  len(mesh.Vertices),
			"triangles": len(mesh.Indices) / 3,
		}).Info("mesh loaded")
	}

	renderer.SetDrawables(drawables)
	return nil
}
