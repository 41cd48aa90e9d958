// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package collada decodes the geometry library of Collada (.dae) documents.
package collada

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMalformed marks documents that decode but cannot be used.
var ErrMalformed = errors.New("malformed collada document")

// Collada is the top-level Collada object
type Collada struct {
	Geometries []Geometry `xml:"library_geometries>geometry"`
}

// Decode parses a Collada document.
func Decode(data []byte) (*Collada, error) {
	var doc Collada
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode collada")
	}
	return &doc, nil
}

// Geometry represents Collada's geometry
type Geometry struct {
	Mesh Mesh   `xml:"mesh"`
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// Mesh contains all the primitive data
type Mesh struct {
	Source    []Source  `xml:"source"`
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

// Positions resolves the source the POSITION input of the mesh
// vertices points to.
func (m Mesh) Positions() (Source, error) {
	for _, input := range m.Vertices.Inputs {
		if input.Semantic != "POSITION" {
			continue
		}
		id := strings.TrimPrefix(input.Source, "#")
		for _, s := range m.Source {
			if s.ID == id {
				return s, nil
			}
		}
		return Source{}, errors.Mark(errors.Newf("position source %q not found", id), ErrMalformed)
	}
	return Source{}, errors.Mark(errors.New("mesh vertices have no POSITION input"), ErrMalformed)
}

// Source links to other sources where data is present
type Source struct {
	ID     string `xml:"id,attr"`
	Floats Floats `xml:"float_array"`
}

// Floats is the array of floats
type Floats struct {
	ID   string
	Data []float32
}

// UnmarshalXML unmarshals the array of floats
func (f *Floats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			f.ID = attr.Value
		}
	}
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, r := range strings.Fields(raw) {
		num, err := strconv.ParseFloat(r, 32)
		if err != nil {
			return errors.Wrapf(err, "float_array %s", f.ID)
		}
		f.Data = append(f.Data, float32(num))
	}
	return nil
}

// Vertices contains the list of vertices
type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

// Triangles contain the list of triangles
type Triangles struct {
	Count    int
	Material string
	Inputs   []Input
	Index    []int
}

// Stride is the number of indices per triangle corner.
func (t Triangles) Stride() int {
	stride := 0
	for _, input := range t.Inputs {
		if int(input.Offset) >= stride {
			stride = int(input.Offset) + 1
		}
	}
	return stride
}

// Input looks up an input by semantic.
func (t Triangles) Input(semantic string) (Input, bool) {
	for _, input := range t.Inputs {
		if input.Semantic == semantic {
			return input, true
		}
	}
	return Input{}, false
}

// UnmarshalXML parses the index list
func (t *Triangles) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "count":
			num, err := strconv.Atoi(attr.Value)
			if err != nil {
				return errors.Wrap(err, "triangles count")
			}
			t.Count = num
		case "material":
			t.Material = attr.Value
		}
	}

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "input":
				var input Input
				if err := d.DecodeElement(&input, &el); err != nil {
					return err
				}
				t.Inputs = append(t.Inputs, input)
			case "p":
				var raw string
				if err := d.DecodeElement(&raw, &el); err != nil {
					return err
				}
				fields := strings.Fields(raw)
				t.Index = make([]int, 0, len(fields))
				for _, r := range fields {
					num, err := strconv.Atoi(r)
					if err != nil {
						return errors.Wrap(err, "triangles index")
					}
					t.Index = append(t.Index, num)
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if el == start.End() {
				return nil
			}
		}
	}
}

// Input is Collada'a input type
type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   uint   `xml:"offset,attr"`
}
