// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
	"github.com/devblok/vkmol/src/model"
)

// PipelineMode selects the graphics pipeline used for drawing.
type PipelineMode int

// Pipeline modes.
const (
	Normal PipelineMode = iota
	Wireframe

	pipelineModes = iota
)

func (m PipelineMode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Wireframe:
		return "wireframe"
	default:
		return fmt.Sprintf("PipelineMode(%d)", int(m))
	}
}

var clearColor = [4]float32{0.005, 0.005, 0.005, 1}

// ShaderLoader provides compiled SPIR-V shaders by name.
type ShaderLoader interface {
	ReadAll(name string) ([]byte, error)
}

// shaderSet holds the shader modules and layout shared by all pipelines,
// they outlive swapchain recreation.
type shaderSet struct {
	vertex   gfx.ShaderModule
	fragment gfx.ShaderModule
	layout   gfx.PipelineLayout
}

func loadShaders(dev gfx.Device, loader ShaderLoader, vertex, fragment string) (set *shaderSet, err error) {
	set = &shaderSet{}
	defer func() {
		if err != nil {
			set.release()
			set = nil
		}
	}()

	if set.vertex, err = loadShader(dev, loader, vertex); err != nil {
		return set, err
	}
	if set.fragment, err = loadShader(dev, loader, fragment); err != nil {
		return set, err
	}
	if set.layout, err = dev.CreatePipelineLayout(uint32(unsafe.Sizeof(model.PushConstant{}))); err != nil {
		return set, errors.Wrap(err, "create pipeline layout")
	}
	return set, nil
}

func loadShader(dev gfx.Device, loader ShaderLoader, name string) (gfx.ShaderModule, error) {
	code, err := loader.ReadAll(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", name)
	}
	module, err := dev.CreateShaderModule(code)
	if err != nil {
		return nil, errors.Wrapf(err, "create shader module %s", name)
	}
	return module, nil
}

func (s *shaderSet) release() {
	if s.layout != nil {
		s.layout.Release()
		s.layout = nil
	}
	if s.fragment != nil {
		s.fragment.Release()
		s.fragment = nil
	}
	if s.vertex != nil {
		s.vertex.Release()
		s.vertex = nil
	}
}

// createPipelines creates a pipeline for every PipelineMode.
func createPipelines(dev gfx.Device, shaders *shaderSet, pass gfx.RenderPass) ([pipelineModes]gfx.Pipeline, error) {
	var pipelines [pipelineModes]gfx.Pipeline
	for mode := PipelineMode(0); mode < pipelineModes; mode++ {
		info := gfx.PipelineInfo{
			Layout:     shaders.layout,
			RenderPass: pass,
			Vertex:     shaders.vertex,
			Fragment:   shaders.fragment,
			Input:      model.VertexLayout(),
			Topology:   gfx.TopologyTriangleList,
		}
		if mode == Wireframe {
			info.Polygon = gfx.PolygonLine
		}

		p, err := dev.CreatePipeline(info)
		if err != nil {
			for _, created := range pipelines[:mode] {
				created.Release()
			}
			return [pipelineModes]gfx.Pipeline{}, errors.Wrapf(err, "create %s pipeline", mode)
		}
		pipelines[mode] = p
	}
	return pipelines, nil
}

// record fills the command buffer of image with a render of every
// drawable whose buffers are still alive.
func (r *Renderer) record(image uint32, uniform model.Uniform) error {
	sc := r.swapchain
	cmd := sc.commands[image]

	if err := cmd.Reset(); err != nil {
		return errors.Wrapf(err, "reset command buffer %d", image)
	}
	if err := cmd.Begin(false); err != nil {
		return errors.Wrapf(err, "begin command buffer %d", image)
	}

	cmd.BeginRenderPass(sc.renderPass, sc.framebuffers[image], sc.extent, clearColor)
	cmd.SetViewport(sc.extent)
	cmd.BindPipeline(sc.pipelines[r.active])

	pc := model.PushConstant{MVP: uniform.MVP()}
	cmd.PushConstants(r.shaders.layout, unsafe.Slice((*byte)(unsafe.Pointer(&pc)), unsafe.Sizeof(pc)))

	for _, d := range r.drawables {
		vertices, err := r.buffers.Get(d.Vertices)
		if err != nil {
			continue
		}
		cmd.BindVertexBuffer(vertices.Get())

		if d.Indices.IsZero() {
			cmd.Draw(d.Count)
			continue
		}
		indices, err := r.buffers.Get(d.Indices)
		if err != nil {
			continue
		}
		cmd.BindIndexBuffer(indices.Get())
		cmd.DrawIndexed(d.Count)
	}

	cmd.EndRenderPass()
	if err := cmd.End(); err != nil {
		return errors.Wrapf(err, "end command buffer %d", image)
	}
	return nil
}
