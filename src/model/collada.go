// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"github.com/cockroachdb/errors"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/vkmol/src/utility/collada"
)

// Mesh is indexed vertex data ready for upload.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// ImportCollada converts the first geometry of a Collada document into
// a Mesh painted in a single color. Only positions are imported.
func ImportCollada(data []byte, color glm.Vec4) (Mesh, error) {
	doc, err := collada.Decode(data)
	if err != nil {
		return Mesh{}, err
	}
	if len(doc.Geometries) == 0 {
		return Mesh{}, errors.Mark(errors.New("document has no geometry"), collada.ErrMalformed)
	}

	geometry := doc.Geometries[0]
	positions, err := geometry.Mesh.Positions()
	if err != nil {
		return Mesh{}, errors.Wrapf(err, "geometry %s", geometry.ID)
	}
	floats := positions.Floats.Data
	if len(floats)%3 != 0 {
		return Mesh{}, errors.Mark(errors.Newf("%d position floats do not form vectors", len(floats)), collada.ErrMalformed)
	}

	mesh := Mesh{Name: geometry.Name}
	for idx := 0; idx < len(floats); idx += 3 {
		mesh.Vertices = append(mesh.Vertices, Vertex{
			Pos:   glm.Vec3{floats[idx], floats[idx+1], floats[idx+2]},
			Color: color,
		})
	}

	triangles := geometry.Mesh.Triangles
	vertex, ok := triangles.Input("VERTEX")
	if !ok {
		return Mesh{}, errors.Mark(errors.New("triangles have no VERTEX input"), collada.ErrMalformed)
	}
	stride := triangles.Stride()
	if len(triangles.Index)%(3*stride) != 0 {
		return Mesh{}, errors.Mark(errors.Newf("%d indices do not form triangles of stride %d", len(triangles.Index), stride), collada.ErrMalformed)
	}
	for idx := int(vertex.Offset); idx < len(triangles.Index); idx += stride {
		v := triangles.Index[idx]
		if v < 0 || v >= len(mesh.Vertices) {
			return Mesh{}, errors.Mark(errors.Newf("vertex index %d out of range", v), collada.ErrMalformed)
		}
		mesh.Indices = append(mesh.Indices, uint32(v))
	}
	return mesh, nil
}
