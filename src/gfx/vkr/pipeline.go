// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/cockroachdb/errors"
	vk "github.com/devblok/vulkan"

	"github.com/devblok/vkmol/src/gfx"
)

// CreatePipelineLayout implements gfx.Device. Push constants
// are visible to the vertex stage only.
func (d *Device) CreatePipelineLayout(pushConstantSize uint32) (gfx.PipelineLayout, error) {
	plci := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	if pushConstantSize > 0 {
		plci.PushConstantRangeCount = 1
		plci.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Size:       pushConstantSize,
		}}
	}

	var layout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(d.device, &plci, nil, &layout), "CreatePipelineLayout"); err != nil {
		return nil, err
	}
	return &PipelineLayout{device: d.device, layout: layout}, nil
}

// PipelineLayout implements gfx.PipelineLayout.
type PipelineLayout struct {
	device vk.Device
	layout vk.PipelineLayout
}

// Release implements gfx.Releasable.
func (l *PipelineLayout) Release() {
	vk.DestroyPipelineLayout(l.device, l.layout, nil)
}

func topology(t gfx.Topology) (vk.PrimitiveTopology, error) {
	switch t {
	case gfx.TopologyTriangleList:
		return vk.PrimitiveTopologyTriangleList, nil
	case gfx.TopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip, nil
	}
	return 0, errors.Newf("unsupported topology %d", t)
}

func polygonMode(m gfx.PolygonMode) (vk.PolygonMode, error) {
	switch m {
	case gfx.PolygonFill:
		return vk.PolygonModeFill, nil
	case gfx.PolygonLine:
		return vk.PolygonModeLine, nil
	}
	return 0, errors.Newf("unsupported polygon mode %d", m)
}

// CreatePipeline implements gfx.Device.
func (d *Device) CreatePipeline(info gfx.PipelineInfo) (gfx.Pipeline, error) {
	top, err := topology(info.Topology)
	if err != nil {
		return nil, err
	}
	polygon, err := polygonMode(info.Polygon)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: info.Vertex.(*ShaderModule).module,
		PName:  safeString("main"),
	}, {
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFragmentBit,
		Module: info.Fragment.(*ShaderModule).module,
		PName:  safeString("main"),
	}}

	bindings := []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    info.Input.Stride,
		InputRate: vk.VertexInputRateVertex,
	}}
	attributes := make([]vk.VertexInputAttributeDescription, 0, len(info.Input.Attributes))
	for _, attr := range info.Input.Attributes {
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Binding:  0,
			Location: attr.Location,
			Format:   vk.Format(attr.Format),
			Offset:   attr.Offset,
		})
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: top,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: polygon,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     info.Layout.(*PipelineLayout).layout,
		RenderPass: info.RenderPass.(*RenderPass).pass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := check(vk.CreateGraphicsPipelines(d.device, d.cache, uint32(len(gpci)), gpci, nil, pipelines), "CreateGraphicsPipelines"); err != nil {
		return nil, err
	}
	return &Pipeline{device: d.device, pipeline: pipelines[0]}, nil
}

// Pipeline implements gfx.Pipeline.
type Pipeline struct {
	device   vk.Device
	pipeline vk.Pipeline
}

// Release implements gfx.Releasable.
func (p *Pipeline) Release() {
	vk.DestroyPipeline(p.device, p.pipeline, nil)
}
