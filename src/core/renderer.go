// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
	"github.com/devblok/vkmol/src/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WSIDelegate connects the renderer to the window system.
type WSIDelegate interface {

	// InstanceExtensions lists the instance extensions the
	// window system needs to create surfaces.
	InstanceExtensions() []string

	// Surface creates a presentable surface for the window.
	Surface(instance gfx.Instance) (gfx.Surface, error)

	// WindowSize is the window size in screen coordinates, used for the
	// first swapchain when the drawable is empty.
	WindowSize() (int, int)

	// FramebufferSize is the drawable size in pixels,
	// zero while the window is minimized.
	FramebufferSize() (int, int)
}

// FrameHook computes the transform of a frame.
type FrameHook func(elapsed time.Duration, extent gfx.Extent2D) model.Uniform

// Drawable is a draw of Count vertices, or indices when Indices is set.
type Drawable struct {
	Vertices BufferHandle
	Indices  BufferHandle
	Count    uint32
}

// Stats are counters of the renderer lifetime.
type Stats struct {
	FramesSubmitted uint64
	FramesSkipped   uint64
	Recreations     uint64

	Buffers   int
	Graveyard int
}

// RendererInfo holds everything a Renderer is created with.
type RendererInfo struct {
	Configuration RendererConfiguration
	Backend       gfx.Backend
	Delegate      WSIDelegate
	Shaders       ShaderLoader

	// Clock defaults to an HRClock.
	Clock Clock

	// Log defaults to the standard logrus logger.
	Log *logrus.Entry
}

// Renderer draws frames to a window surface. Its methods are safe
// for concurrent use.
type Renderer struct {
	mu sync.Mutex

	cfg      RendererConfiguration
	backend  gfx.Backend
	delegate WSIDelegate
	loader   ShaderLoader
	clock    Clock
	log      *logrus.Entry

	initialised bool

	instance  gfx.Instance
	surface   gfx.Surface
	candidate Candidate
	ctx       *DeviceContext
	shaders   *shaderSet
	ring      *frameRing

	swapchain *swapchainState
	dirty     bool

	// retired is set when the current swapchain was handed to a failed
	// recreation and cannot be passed as an old swapchain again.
	retired bool

	buffers   Container[*Buffer]
	graveyard *Graveyard

	drawables []Drawable
	active    PipelineMode
	hook      FrameHook

	submitted uint64
	completed uint64
	stats     Stats
}

// NewRenderer creates a renderer that is not yet initialised.
func NewRenderer(info RendererInfo) (*Renderer, error) {
	switch {
	case info.Backend == nil:
		return nil, errors.New("renderer needs a backend")
	case info.Delegate == nil:
		return nil, errors.New("renderer needs a window system delegate")
	case info.Shaders == nil:
		return nil, errors.New("renderer needs a shader loader")
	}
	if err := (Configuration{Renderer: info.Configuration}).Validate(); err != nil {
		return nil, err
	}

	log := info.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	switch {
	case info.Configuration.Trace:
		raiseLevel(log.Logger, logrus.TraceLevel)
	case info.Configuration.Debug:
		raiseLevel(log.Logger, logrus.DebugLevel)
	}

	clock := info.Clock
	if clock == nil {
		clock = NewHRClock()
	}

	r := &Renderer{
		cfg:      info.Configuration,
		backend:  info.Backend,
		delegate: info.Delegate,
		loader:   info.Shaders,
		clock:    clock,
		log:      log.WithField("session", uuid.New().String()),
		hook:     model.Spin,
	}
	r.graveyard = NewGraveyard(&r.buffers)
	return r, nil
}

func raiseLevel(logger *logrus.Logger, level logrus.Level) {
	if logger.GetLevel() < level {
		logger.SetLevel(level)
	}
}

// Initialise creates the instance, surface, device and swapchain.
// Anything created before a failure is released again.
func (r *Renderer) Initialise() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialised {
		return errors.New("renderer already initialised")
	}

	defer func() {
		if err != nil {
			r.teardown()
		}
	}()

	extensions := append([]string{}, r.delegate.InstanceExtensions()...)
	if r.instance, err = r.backend.CreateInstance(gfx.InstanceInfo{
		AppName: r.cfg.AppName,
		AppVersion: gfx.Version{
			Major: r.cfg.AppVersion[0],
			Minor: r.cfg.AppVersion[1],
			Patch: r.cfg.AppVersion[2],
		},
		EngineName: "vkmol",
		Extensions: extensions,
		Layers:     r.cfg.Layers,
		Debug:      r.cfg.Debug,
	}); err != nil {
		return errors.Wrap(err, "create instance")
	}

	if r.surface, err = r.delegate.Surface(r.instance); err != nil {
		return errors.Wrap(err, "create surface")
	}

	devices, err := r.instance.PhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}
	req := r.requirements()
	if r.candidate, err = SelectDevice(devices, r.surface, req); err != nil {
		return err
	}
	r.log = r.log.WithField("device", r.candidate.Name())
	r.log.WithFields(logrus.Fields{
		"type":  r.candidate.Properties.Type,
		"score": r.candidate.Score,
	}).Info("physical device selected")

	if r.ctx, err = NewDeviceContext(r.candidate, req, r.cfg.Layers); err != nil {
		return err
	}

	if r.shaders, err = loadShaders(r.ctx.Device, r.loader, r.cfg.VertexShader, r.cfg.FragmentShader); err != nil {
		return err
	}

	width, height := r.delegate.FramebufferSize()
	if width <= 0 || height <= 0 {
		width, height = r.delegate.WindowSize()
	}
	if width <= 0 || height <= 0 {
		width, height = int(r.cfg.ScreenWidth), int(r.cfg.ScreenHeight)
	}
	if r.swapchain, _, err = buildSwapchain(r.params(width, height), nil); err != nil {
		return err
	}

	if r.ring, err = newFrameRing(r.ctx.Device, r.cfg.FramesInFlight); err != nil {
		return err
	}
	r.ring.trackImages(len(r.swapchain.images))

	r.initialised = true
	r.log.WithFields(logrus.Fields{
		"extent":  r.swapchain.extent,
		"images":  len(r.swapchain.images),
		"present": r.swapchain.presentMode,
	}).Info("renderer initialised")
	return nil
}

func (r *Renderer) requirements() Requirements {
	return Requirements{
		Extensions: r.cfg.DeviceExtensions,
		Features:   gfx.Features{FillModeNonSolid: true},
	}
}

func (r *Renderer) params(width, height int) swapchainParams {
	return swapchainParams{
		ctx:       r.ctx,
		surface:   r.surface,
		candidate: r.candidate,
		shaders:   r.shaders,
		width:     width,
		height:    height,
	}
}

// recreate rebuilds the swapchain state for the current drawable size,
// keeping the previous state when that fails.
func (r *Renderer) recreate() error {
	width, height := r.delegate.FramebufferSize()
	if width <= 0 || height <= 0 {
		r.dirty = true
		r.log.Debug("drawable is empty, swapchain recreation deferred")
		return nil
	}

	if err := r.ctx.Device.WaitIdle(); err != nil {
		r.dirty = true
		return errors.Wrap(err, "wait for device idle")
	}
	r.idle()

	old := r.swapchain.swapchain
	if r.retired {
		old = nil
	}
	next, handed, err := buildSwapchain(r.params(width, height), old)
	if err != nil {
		if handed && old != nil {
			r.retired = true
		}
		r.dirty = true
		return errors.Wrap(err, "recreate swapchain")
	}

	r.swapchain.release()
	r.swapchain = next
	r.retired = false
	r.dirty = false
	r.ring.trackImages(len(next.images))
	r.stats.Recreations++

	r.log.WithFields(logrus.Fields{
		"extent": next.extent,
		"images": len(next.images),
	}).Debug("swapchain recreated")
	return nil
}

// idle marks every submitted frame complete, the device must be idle.
func (r *Renderer) idle() {
	r.completed = r.submitted
	if n := r.graveyard.Drain(); n > 0 {
		r.log.WithField("count", n).Debug("destroyed deleted resources")
	}
}

// CreateBuffer creates a buffer of kind holding data and returns its handle.
// It blocks until the data is on the GPU.
func (r *Renderer) CreateBuffer(kind BufferKind, data []byte) (BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialised {
		return BufferHandle{}, ErrNotInitialised
	}

	b, err := r.ctx.Upload(kind, data)
	if err != nil {
		return BufferHandle{}, errors.Wrapf(err, "create %s buffer", kind)
	}
	h := r.buffers.Insert(b)
	r.log.WithFields(logrus.Fields{
		"handle": h,
		"kind":   kind,
		"size":   b.Size,
	}).Debug("buffer created")
	return h, nil
}

// UpdateBuffer writes data into the buffer at offset. Frames in flight
// are waited for first.
func (r *Renderer) UpdateBuffer(h BufferHandle, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialised {
		return ErrNotInitialised
	}

	b, err := r.buffers.Get(h)
	if err != nil {
		return err
	}
	if err := r.ctx.Device.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle")
	}
	r.idle()

	if err := r.ctx.UploadTo(b, offset, data); err != nil {
		return errors.Wrapf(err, "update buffer %s", h)
	}
	return nil
}

// Buffer resolves a handle.
func (r *Renderer) Buffer(h BufferHandle) (*Buffer, error) {
	return r.buffers.Get(h)
}

// DeleteBuffer invalidates the handle immediately, the buffer itself is
// destroyed once frames submitted so far completed.
func (r *Renderer) DeleteBuffer(h BufferHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialised {
		return ErrNotInitialised
	}

	b, err := r.buffers.Remove(h)
	if err != nil {
		return err
	}
	r.graveyard.BuryBuffer(h.Index(), b, r.submitted)
	return nil
}

// DrawFrame renders every drawable and presents it. Frames are skipped
// while the swapchain cannot be recreated for an empty window.
func (r *Renderer) DrawFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialised {
		return ErrNotInitialised
	}
	return r.drawFrame()
}

// Resize recreates the swapchain for the current drawable size.
func (r *Renderer) Resize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialised {
		return ErrNotInitialised
	}
	return r.recreate()
}

// WaitIdle blocks until the GPU finished all work, then destroys
// every deleted resource.
func (r *Renderer) WaitIdle() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialised {
		return ErrNotInitialised
	}
	if err := r.ctx.Device.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle")
	}
	r.idle()
	return nil
}

// SetActivePipeline selects the pipeline used by following frames.
func (r *Renderer) SetActivePipeline(mode PipelineMode) error {
	if mode < 0 || mode >= pipelineModes {
		return errors.Newf("unknown pipeline mode %d", int(mode))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = mode
	return nil
}

// ActivePipeline returns the pipeline mode in use.
func (r *Renderer) ActivePipeline() PipelineMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SetDrawables replaces what following frames draw.
func (r *Renderer) SetDrawables(drawables []Drawable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drawables = append(r.drawables[:0], drawables...)
}

// SetFrameHook replaces the per frame transform, nil restores model.Spin.
func (r *Renderer) SetFrameHook(hook FrameHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hook == nil {
		hook = model.Spin
	}
	r.hook = hook
}

// Device returns the selected physical device.
func (r *Renderer) Device() Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidate
}

// Stats returns the renderer counters.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Buffers = r.buffers.Len()
	s.Graveyard = r.graveyard.Len()
	return s
}

// Destroy waits for the GPU and releases everything. The renderer
// cannot be used afterwards.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialised {
		return
	}
	r.teardown()
	r.log.Info("renderer destroyed")
}

// teardown releases whatever exists, in reverse creation order.
func (r *Renderer) teardown() {
	r.initialised = false
	if r.ctx != nil {
		if err := r.ctx.Device.WaitIdle(); err != nil {
			r.log.WithError(err).Error("device did not go idle")
		}
		r.idle()
		r.buffers.Drain(func(b *Buffer) { b.Release() })
	}
	if r.ring != nil {
		r.ring.release()
		r.ring = nil
	}
	if r.swapchain != nil {
		r.swapchain.release()
		r.swapchain = nil
	}
	if r.shaders != nil {
		r.shaders.release()
		r.shaders = nil
	}
	if r.ctx != nil {
		r.ctx.Release()
		r.ctx = nil
	}
	if r.surface != nil {
		r.surface.Release()
		r.surface = nil
	}
	if r.instance != nil {
		r.instance.Release()
		r.instance = nil
	}
	r.drawables = nil
	r.dirty, r.retired = false, false
}
