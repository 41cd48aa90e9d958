// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model defines vertex data and transforms shared by the renderer
// and its shaders.
package model

import (
	"math"
	"time"
	"unsafe"

	"github.com/devblok/vkmol/src/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a model vertex
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec4
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// MVP combines the transforms into one matrix.
func (u Uniform) MVP() glm.Mat4 {
	return u.Projection.Mul4(u.View).Mul4(u.Model)
}

// PushConstant is the per draw data pushed to the vertex shader.
type PushConstant struct {
	MVP glm.Mat4
}

// VertexLayout describes Vertex to pipelines.
func VertexLayout() gfx.VertexLayout {
	return gfx.VertexLayout{
		Stride: uint32(unsafe.Sizeof(Vertex{})),
		Attributes: []gfx.VertexAttribute{
			{
				Location: 0,
				Format:   gfx.FormatR32G32B32Sfloat,
				Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
			},
			{
				Location: 1,
				Format:   gfx.FormatR32G32B32A32Sfloat,
				Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
			},
		},
	}
}

// SpinRate is the rotation of Spin in radians per second.
const SpinRate = math.Pi / 2

// Spin rotates the model around the z axis, viewed from above at an angle.
func Spin(elapsed time.Duration, extent gfx.Extent2D) Uniform {
	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	u := Uniform{
		Model:      glm.HomogRotate3DZ(float32(elapsed.Seconds()) * SpinRate),
		View:       glm.LookAt(2, 2, 2, 0, 0, 0, 0, 0, 1),
		Projection: glm.Perspective(glm.DegToRad(45), aspect, 0.1, 10),
	}
	u.Projection[5] *= -1 // Flip from OpenGl to Vulkan projection
	return u
}

// VertexBytes returns the memory of vertices as bytes.
func VertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(Vertex{})))
}

// IndexBytes returns the memory of indices as bytes.
func IndexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

// Triangle is a single colored triangle.
var Triangle = []Vertex{
	{Pos: glm.Vec3{0, -0.5, 0}, Color: glm.Vec4{1, 0, 0, 1}},
	{Pos: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec4{0, 1, 0, 1}},
	{Pos: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec4{0, 0, 1, 1}},
}

// Quad is a square drawn with QuadIndices.
var Quad = []Vertex{
	{Pos: glm.Vec3{-0.5, -0.5, 0}, Color: glm.Vec4{1, 0, 0, 1}},
	{Pos: glm.Vec3{0.5, -0.5, 0}, Color: glm.Vec4{0, 1, 0, 1}},
	{Pos: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec4{0, 0, 1, 1}},
	{Pos: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec4{1, 1, 1, 1}},
}

// QuadIndices index Quad as two triangles.
var QuadIndices = []uint32{0, 1, 2, 2, 3, 0}
