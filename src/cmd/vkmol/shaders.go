// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

//go:generate glslangValidator -V shaders/triangle.vert -o shaders/triangle.vert.spv
//go:generate glslangValidator -V shaders/triangle.frag -o shaders/triangle.frag.spv

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"

	"github.com/devblok/vkmol/src/core"
	"github.com/devblok/vkmol/src/utility/kar"
)

// karShaders reads shaders from a memory mapped kar archive.
type karShaders struct {
	archive *kar.Archive
	reader  *mmap.ReaderAt
}

func openKarShaders(path string) (*karShaders, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "map %s", path)
	}
	ar, err := kar.Open(r)
	if err != nil {
		r.Close()
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &karShaders{archive: ar, reader: r}, nil
}

func (k *karShaders) ReadAll(name string) ([]byte, error) {
	return k.archive.ReadAll(name)
}

func (k *karShaders) Names() []string {
	return k.archive.Names()
}

func (k *karShaders) Close() error {
	return k.reader.Close()
}

// boxShaders reads shaders from a packr box, embedded in release builds.
type boxShaders struct {
	box packr.Box
}

func newBoxShaders() *boxShaders {
	return &boxShaders{box: packr.NewBox("./shaders")}
}

func (b *boxShaders) ReadAll(name string) ([]byte, error) {
	return b.box.Find(name)
}

// Names lists the compiled shaders in the box.
func (b *boxShaders) Names() []string {
	var names []string
	if err := b.box.Walk(func(path string, f packd.File) error {
		if strings.HasSuffix(path, ".spv") {
			names = append(names, path)
		}
		return nil
	}); err != nil {
		log.WithError(err).Warn("walking shader box")
	}
	return names
}

func (b *boxShaders) Close() error {
	return nil
}

type shaderSource interface {
	core.ShaderLoader
	Names() []string
	Close() error
}

func openShaders(karPath string) (shaderSource, error) {
	if karPath == "" {
		return newBoxShaders(), nil
	}
	return openKarShaders(karPath)
}
