// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"io/ioutil"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"

	"github.com/devblok/vkmol/src/core"
	"github.com/devblok/vkmol/src/gfx"
	"github.com/devblok/vkmol/src/gfx/gfxtest"
)

type shaderMap map[string][]byte

func (m shaderMap) ReadAll(name string) ([]byte, error) {
	code, ok := m[name]
	if !ok {
		return nil, errors.Newf("shader %s not found", name)
	}
	return code, nil
}

var testShaders = shaderMap{
	"triangle.vert.spv": {0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0},
	"triangle.frag.spv": {0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0},
}

// stepClock advances by a fixed step on every reading.
type stepClock struct {
	mu   sync.Mutex
	now  time.Duration
	step time.Duration
}

func (c *stepClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

func quietLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	return logrus.NewEntry(logger)
}

func testConfiguration() core.RendererConfiguration {
	cfg := core.DefaultConfiguration().Renderer
	cfg.AppName = "vkmol-test"
	return cfg
}

type fixture struct {
	backend  *gfxtest.Backend
	window   *gfxtest.Window
	physical *gfxtest.PhysicalDevice
	renderer *core.Renderer
}

func (f *fixture) gpu() *gfxtest.GPU {
	return f.physical.GPU
}

func (f *fixture) device() *gfxtest.Device {
	return f.physical.Created
}

// swapchains returns every swapchain created so far.
func (f *fixture) swapchains() []*gfxtest.Swapchain {
	return f.device().Swapchains
}

func (f *fixture) lastSubmission(c *qt.C) []string {
	submissions := f.gpu().Submissions()
	c.Assert(submissions, qt.Not(qt.HasLen), 0)
	return submissions[len(submissions)-1]
}

func newFixture(c *qt.C, configure func(*core.RendererConfiguration)) *fixture {
	physical := gfxtest.NewPhysicalDevice("Fake Discrete", gfx.DeviceTypeDiscreteGPU)
	f := &fixture{
		backend:  gfxtest.NewBackend(physical),
		window:   gfxtest.NewWindow(800, 600),
		physical: physical,
	}

	cfg := testConfiguration()
	if configure != nil {
		configure(&cfg)
	}

	r, err := core.NewRenderer(core.RendererInfo{
		Configuration: cfg,
		Backend:       f.backend,
		Delegate:      f.window,
		Shaders:       testShaders,
		Clock:         &stepClock{step: 16 * time.Millisecond},
		Log:           quietLog(),
	})
	c.Assert(err, qt.IsNil)
	f.renderer = r
	return f
}

// initialised returns a fixture with an initialised renderer that is
// destroyed and checked for leaks and misuse at the end of the test.
func initialised(c *qt.C, configure func(*core.RendererConfiguration)) *fixture {
	f := newFixture(c, configure)
	c.Assert(f.renderer.Initialise(), qt.IsNil)
	c.Cleanup(func() {
		f.renderer.Destroy()
		c.Check(f.gpu().Leaks(), qt.HasLen, 0)
		c.Check(f.gpu().Violations(), qt.HasLen, 0)
	})
	return f
}

// fakeBuffer returns the backend buffer behind a handle.
func fakeBuffer(c *qt.C, r *core.Renderer, h core.BufferHandle) *gfxtest.Buffer {
	b, err := r.Buffer(h)
	c.Assert(err, qt.IsNil)
	fb, ok := b.Get().(*gfxtest.Buffer)
	c.Assert(ok, qt.IsTrue)
	return fb
}
