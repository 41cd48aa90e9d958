// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfxtest implements package gfx in memory. Submissions stay pending
// until a fence or queue wait completes them, memory is plain byte slices
// that tests can read back, and misuse of fences, semaphores and command
// buffers is recorded as violations instead of crashing a driver.
package gfxtest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
)

// ErrInjected is returned by operations failed through FailOn.
var ErrInjected = errors.New("injected failure")

type failure struct {
	countdown int
	err       error
}

// GPU is the shared state of a physical device and every
// object created from it.
type GPU struct {
	mu sync.Mutex

	events     []string
	violations []string
	live       map[string]int
	ids        map[string]int
	calls      map[string]int
	failures   map[string]*failure

	acquireResults []error
	presentResults []error

	pending     []*submission
	submissions [][]string
}

func newGPU() *GPU {
	return &GPU{
		live:     make(map[string]int),
		ids:      make(map[string]int),
		calls:    make(map[string]int),
		failures: make(map[string]*failure),
	}
}

// FailOn makes the nth next call of op fail once with err,
// ErrInjected when err is nil.
func (g *GPU) FailOn(op string, nth int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	g.failures[op] = &failure{countdown: nth, err: err}
}

// ScriptAcquire queues results returned by the next AcquireNextImage calls.
// A nil entry acquires normally.
func (g *GPU) ScriptAcquire(results ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acquireResults = append(g.acquireResults, results...)
}

// ScriptPresent queues results returned by the next Present calls.
func (g *GPU) ScriptPresent(results ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.presentResults = append(g.presentResults, results...)
}

// Events returns the recorded event log.
func (g *GPU) Events() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.events...)
}

// ClearEvents drops the recorded event log.
func (g *GPU) ClearEvents() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = nil
}

// Violations returns every recorded API misuse.
func (g *GPU) Violations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.violations...)
}

// Live returns the number of live objects of kind.
func (g *GPU) Live(kind string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live[kind]
}

// Leaks lists every object kind with live objects left.
func (g *GPU) Leaks() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var leaks []string
	for kind, n := range g.live {
		if n != 0 {
			leaks = append(leaks, fmt.Sprintf("%s=%d", kind, n))
		}
	}
	sort.Strings(leaks)
	return leaks
}

// Calls returns how many times op was called.
func (g *GPU) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// Submissions returns the recorded commands of every submitted
// command buffer, in submission order.
func (g *GPU) Submissions() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]string(nil), g.submissions...)
}

// Pending returns the number of submissions not yet completed.
func (g *GPU) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *GPU) check(op string) error {
	g.calls[op]++
	f, ok := g.failures[op]
	if !ok {
		return nil
	}
	f.countdown--
	if f.countdown > 0 {
		return nil
	}
	delete(g.failures, op)
	return errors.Wrapf(f.err, "%s", op)
}

func (g *GPU) eventf(format string, args ...interface{}) {
	g.events = append(g.events, fmt.Sprintf(format, args...))
}

func (g *GPU) violationf(format string, args ...interface{}) {
	g.violations = append(g.violations, fmt.Sprintf(format, args...))
}

func (g *GPU) create(kind string) int {
	g.live[kind]++
	g.ids[kind]++
	return g.ids[kind]
}

type object struct {
	gpu      *GPU
	kind     string
	id       int
	released bool
}

func (g *GPU) newObject(kind string) object {
	return object{gpu: g, kind: kind, id: g.create(kind)}
}

func (o *object) release() {
	if o.released {
		o.gpu.violationf("%s %d released twice", o.kind, o.id)
		return
	}
	o.released = true
	o.gpu.live[o.kind]--
	o.gpu.eventf("release %s %d", o.kind, o.id)
}

// ID returns the creation sequence number of the object within its kind.
func (o *object) ID() int {
	return o.id
}

// Release implements gfx.Releasable.
func (o *object) Release() {
	o.gpu.mu.Lock()
	defer o.gpu.mu.Unlock()
	o.release()
}

// Backend implements gfx.Backend over fake physical devices.
type Backend struct {
	Devices []*PhysicalDevice

	// EnumerateErr is returned by PhysicalDevices when set.
	EnumerateErr error
	CreateErr    error

	// Instance is the last created instance.
	Instance *Instance
}

// NewBackend returns a Backend enumerating devices in order.
func NewBackend(devices ...*PhysicalDevice) *Backend {
	return &Backend{Devices: devices}
}

// CreateInstance implements gfx.Backend.
func (b *Backend) CreateInstance(info gfx.InstanceInfo) (gfx.Instance, error) {
	if b.CreateErr != nil {
		return nil, b.CreateErr
	}
	b.Instance = &Instance{backend: b, Info: info}
	return b.Instance, nil
}

// Instance implements gfx.Instance.
type Instance struct {
	backend *Backend

	Info     gfx.InstanceInfo
	Released bool
	Surfaces int
}

// PhysicalDevices implements gfx.Instance.
func (i *Instance) PhysicalDevices() ([]gfx.PhysicalDevice, error) {
	if i.backend.EnumerateErr != nil {
		return nil, i.backend.EnumerateErr
	}
	devices := make([]gfx.PhysicalDevice, len(i.backend.Devices))
	for idx, pd := range i.backend.Devices {
		devices[idx] = pd
	}
	return devices, nil
}

// CreateSurface returns a new surface for the instance.
func (i *Instance) CreateSurface() *Surface {
	i.Surfaces++
	return &Surface{instance: i}
}

// Release implements gfx.Releasable.
func (i *Instance) Release() {
	i.Released = true
}

// Surface implements gfx.Surface.
type Surface struct {
	instance *Instance
	Released bool
}

// Release implements gfx.Releasable.
func (s *Surface) Release() {
	s.Released = true
	s.instance.Surfaces--
}

// Window is a window-system delegate backed by fake surfaces.
type Window struct {
	mu sync.Mutex

	width, height   int
	drawW, drawH    int
	Extensions      []string
	SurfaceErr      error
	CreatedSurfaces []*Surface
}

// NewWindow returns a window whose drawable matches its size.
func NewWindow(width, height int) *Window {
	return &Window{
		width:      width,
		height:     height,
		drawW:      width,
		drawH:      height,
		Extensions: []string{"VK_KHR_surface"},
	}
}

// Resize changes the window and drawable size.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width, w.height = width, height
	w.drawW, w.drawH = width, height
}

// Minimize empties the drawable while the window keeps its size.
func (w *Window) Minimize() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drawW, w.drawH = 0, 0
}

// InstanceExtensions returns the extensions the window system needs.
func (w *Window) InstanceExtensions() []string {
	return w.Extensions
}

// Surface creates a surface on a fake instance.
func (w *Window) Surface(instance gfx.Instance) (gfx.Surface, error) {
	if w.SurfaceErr != nil {
		return nil, w.SurfaceErr
	}
	inst, ok := instance.(*Instance)
	if !ok {
		return nil, errors.Newf("unexpected instance type %T", instance)
	}
	s := inst.CreateSurface()
	w.CreatedSurfaces = append(w.CreatedSurfaces, s)
	return s, nil
}

// WindowSize returns the window size in screen coordinates.
func (w *Window) WindowSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// FramebufferSize returns the drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drawW, w.drawH
}

// PhysicalDevice implements gfx.PhysicalDevice, every field can be
// changed by tests between calls.
type PhysicalDevice struct {
	GPU *GPU

	Props    gfx.DeviceProperties
	Feats    gfx.Features
	Families []gfx.QueueFamily

	// Presents marks the families able to present, indexed like Families.
	Presents []bool

	Exts    []string
	Formats []gfx.SurfaceFormat
	Modes   []gfx.PresentMode
	Caps    gfx.SurfaceCapabilities
	Memory  []gfx.MemoryType

	// BufferMemoryBits restricts the memory types buffers can be bound to.
	BufferMemoryBits uint32

	ExtensionsErr   error
	SupportErr      error
	FormatsErr      error
	ModesErr        error
	CapabilitiesErr error

	// Created is the last created logical device.
	Created *Device
}

// NewPhysicalDevice returns a fully capable device with a single
// graphics and present family.
func NewPhysicalDevice(name string, kind gfx.DeviceType) *PhysicalDevice {
	return &PhysicalDevice{
		GPU: newGPU(),
		Props: gfx.DeviceProperties{
			Name:     name,
			Type:     kind,
			VendorID: 0x10de,
			DeviceID: uint32(len(name)),
			Limits: gfx.Limits{
				MaxImageDimension2D:             4096,
				MaxPushConstantsSize:            128,
				MinUniformBufferOffsetAlignment: 256,
				MinStorageBufferOffsetAlignment: 64,
			},
		},
		Feats: gfx.Features{
			FillModeNonSolid:  true,
			SamplerAnisotropy: true,
		},
		Families: []gfx.QueueFamily{{
			Flags: gfx.QueueGraphics | gfx.QueueCompute | gfx.QueueTransfer,
			Count: 1,
		}},
		Presents: []bool{true},
		Exts:     []string{"VK_KHR_swapchain"},
		Formats: []gfx.SurfaceFormat{{
			Format:     gfx.FormatB8G8R8A8Unorm,
			ColorSpace: gfx.ColorSpaceSrgbNonlinear,
		}},
		Modes: []gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeMailbox},
		Caps: gfx.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  gfx.Extent2D{Width: gfx.UndefinedExtent, Height: gfx.UndefinedExtent},
			MinImageExtent: gfx.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: gfx.Extent2D{Width: 4096, Height: 4096},
		},
		Memory: []gfx.MemoryType{
			{Flags: gfx.MemoryDeviceLocal},
			{Flags: gfx.MemoryHostVisible | gfx.MemoryHostCoherent},
			{Flags: gfx.MemoryDeviceLocal | gfx.MemoryHostVisible | gfx.MemoryHostCoherent},
		},
		BufferMemoryBits: 0x7,
	}
}

// Properties implements gfx.PhysicalDevice.
func (p *PhysicalDevice) Properties() gfx.DeviceProperties { return p.Props }

// Features implements gfx.PhysicalDevice.
func (p *PhysicalDevice) Features() gfx.Features { return p.Feats }

// MemoryTypes implements gfx.PhysicalDevice.
func (p *PhysicalDevice) MemoryTypes() []gfx.MemoryType { return p.Memory }

// QueueFamilies implements gfx.PhysicalDevice.
func (p *PhysicalDevice) QueueFamilies() []gfx.QueueFamily { return p.Families }

// SurfaceSupport implements gfx.PhysicalDevice.
func (p *PhysicalDevice) SurfaceSupport(family uint32, s gfx.Surface) (bool, error) {
	p.GPU.mu.Lock()
	p.GPU.calls["SurfaceSupport"]++
	p.GPU.mu.Unlock()
	if p.SupportErr != nil {
		return false, p.SupportErr
	}
	if int(family) >= len(p.Presents) {
		return false, nil
	}
	return p.Presents[family], nil
}

// Extensions implements gfx.PhysicalDevice.
func (p *PhysicalDevice) Extensions() ([]string, error) {
	if p.ExtensionsErr != nil {
		return nil, p.ExtensionsErr
	}
	return p.Exts, nil
}

// SurfaceFormats implements gfx.PhysicalDevice.
func (p *PhysicalDevice) SurfaceFormats(s gfx.Surface) ([]gfx.SurfaceFormat, error) {
	if p.FormatsErr != nil {
		return nil, p.FormatsErr
	}
	return p.Formats, nil
}

// PresentModes implements gfx.PhysicalDevice.
func (p *PhysicalDevice) PresentModes(s gfx.Surface) ([]gfx.PresentMode, error) {
	if p.ModesErr != nil {
		return nil, p.ModesErr
	}
	return p.Modes, nil
}

// SurfaceCapabilities implements gfx.PhysicalDevice.
func (p *PhysicalDevice) SurfaceCapabilities(s gfx.Surface) (gfx.SurfaceCapabilities, error) {
	if p.CapabilitiesErr != nil {
		return gfx.SurfaceCapabilities{}, p.CapabilitiesErr
	}
	return p.Caps, nil
}

// CreateDevice implements gfx.PhysicalDevice.
func (p *PhysicalDevice) CreateDevice(info gfx.DeviceInfo) (gfx.Device, error) {
	g := p.GPU
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateDevice"); err != nil {
		return nil, err
	}
	if missing := p.Feats.Missing(info.Features); len(missing) > 0 {
		g.violationf("device created with unsupported features %v", missing)
	}
	d := &Device{
		object:   g.newObject("Device"),
		physical: p,
		Info:     info,
		queues:   make(map[uint32]*Queue),
	}
	for _, family := range info.Families {
		d.queues[family] = &Queue{gpu: g, family: family}
	}
	p.Created = d
	g.eventf("create device %s", p.Props.Name)
	return d, nil
}
