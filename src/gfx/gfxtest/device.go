// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfxtest

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
)

// Device implements gfx.Device.
type Device struct {
	object
	physical *PhysicalDevice
	queues   map[uint32]*Queue

	Info gfx.DeviceInfo

	// Swapchains lists every swapchain created, in order.
	Swapchains []*Swapchain
}

// Release implements gfx.Releasable and records leaked objects as violations.
func (d *Device) Release() {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pending) > 0 {
		g.violationf("device released with %d pending submissions", len(g.pending))
	}
	d.release()
	for kind, n := range g.live {
		if n != 0 && kind != "Device" {
			g.violationf("device released with %d live %s", n, kind)
		}
	}
}

// Queue implements gfx.Device.
func (d *Device) Queue(family uint32) gfx.Queue {
	q, ok := d.queues[family]
	if !ok {
		d.gpu.mu.Lock()
		d.gpu.violationf("queue requested from family %d that was not created", family)
		d.gpu.mu.Unlock()
		q = &Queue{gpu: d.gpu, family: family}
		d.queues[family] = q
	}
	return q
}

// WaitIdle implements gfx.Device.
func (d *Device) WaitIdle() error {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("WaitIdle"); err != nil {
		return err
	}
	g.eventf("device wait idle")
	g.completeAll()
	return nil
}

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(size uint64, usage gfx.BufferUsageFlags) (gfx.Buffer, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateBuffer"); err != nil {
		return nil, err
	}
	if size == 0 {
		g.violationf("buffer created with zero size")
	}
	return &Buffer{
		object: g.newObject("Buffer"),
		size:   size,
		usage:  usage,
		bits:   d.physical.BufferMemoryBits,
	}, nil
}

// AllocateMemory implements gfx.Device.
func (d *Device) AllocateMemory(size uint64, memoryType uint32) (gfx.Memory, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("AllocateMemory"); err != nil {
		return nil, err
	}
	if int(memoryType) >= len(d.physical.Memory) {
		g.violationf("allocation from memory type %d out of range", memoryType)
		return nil, errors.Newf("memory type %d out of range", memoryType)
	}
	return &Memory{
		object: g.newObject("Memory"),
		data:   make([]byte, size),
		flags:  d.physical.Memory[memoryType].Flags,
		Type:   memoryType,
	}, nil
}

// CreateShaderModule implements gfx.Device.
func (d *Device) CreateShaderModule(code []byte) (gfx.ShaderModule, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateShaderModule"); err != nil {
		return nil, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Newf("shader code of %d bytes is not valid", len(code))
	}
	return &ShaderModule{object: g.newObject("ShaderModule"), Code: code}, nil
}

// CreatePipelineLayout implements gfx.Device.
func (d *Device) CreatePipelineLayout(pushConstantSize uint32) (gfx.PipelineLayout, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	if pushConstantSize > d.physical.Props.Limits.MaxPushConstantsSize {
		g.violationf("push constants of %d bytes exceed the device limit", pushConstantSize)
	}
	return &PipelineLayout{object: g.newObject("PipelineLayout"), PushConstantSize: pushConstantSize}, nil
}

// CreateRenderPass implements gfx.Device.
func (d *Device) CreateRenderPass(format gfx.Format) (gfx.RenderPass, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateRenderPass"); err != nil {
		return nil, err
	}
	return &RenderPass{object: g.newObject("RenderPass"), Format: format}, nil
}

// CreatePipeline implements gfx.Device.
func (d *Device) CreatePipeline(info gfx.PipelineInfo) (gfx.Pipeline, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreatePipeline"); err != nil {
		return nil, err
	}
	if info.Polygon == gfx.PolygonLine && !d.Info.Features.FillModeNonSolid {
		g.violationf("line polygon mode without fillModeNonSolid enabled")
	}
	return &Pipeline{object: g.newObject("Pipeline"), Info: info}, nil
}

// CreateSwapchain implements gfx.Device.
func (d *Device) CreateSwapchain(info gfx.SwapchainInfo) (gfx.Swapchain, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if info.Old != nil {
		old, ok := info.Old.(*Swapchain)
		switch {
		case !ok:
			g.violationf("old swapchain of unexpected type %T", info.Old)
		case old.released:
			g.violationf("old swapchain %d already released", old.id)
		case old.Retired:
			g.violationf("old swapchain %d already retired", old.id)
		default:
			old.Retired = true
		}
	}
	// the old swapchain is retired even when creation fails
	if err := g.check("CreateSwapchain"); err != nil {
		return nil, err
	}
	if info.Extent.Empty() {
		g.violationf("swapchain created with empty extent %v", info.Extent)
	}
	sc := &Swapchain{object: g.newObject("Swapchain"), Info: info}
	for idx := uint32(0); idx < info.ImageCount; idx++ {
		sc.images = append(sc.images, &Image{Swapchain: sc, Index: idx})
	}
	d.Swapchains = append(d.Swapchains, sc)
	g.eventf("create swapchain %d %dx%d", sc.id, info.Extent.Width, info.Extent.Height)
	return sc, nil
}

// CreateImageView implements gfx.Device.
func (d *Device) CreateImageView(image gfx.Image, format gfx.Format) (gfx.ImageView, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateImageView"); err != nil {
		return nil, err
	}
	return &ImageView{object: g.newObject("ImageView"), Image: image}, nil
}

// CreateFramebuffer implements gfx.Device.
func (d *Device) CreateFramebuffer(pass gfx.RenderPass, view gfx.ImageView, extent gfx.Extent2D) (gfx.Framebuffer, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateFramebuffer"); err != nil {
		return nil, err
	}
	return &Framebuffer{object: g.newObject("Framebuffer"), Extent: extent}, nil
}

// CreateCommandPool implements gfx.Device.
func (d *Device) CreateCommandPool(family uint32) (gfx.CommandPool, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateCommandPool"); err != nil {
		return nil, err
	}
	return &CommandPool{object: g.newObject("CommandPool"), family: family}, nil
}

// CreateSemaphore implements gfx.Device.
func (d *Device) CreateSemaphore() (gfx.Semaphore, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateSemaphore"); err != nil {
		return nil, err
	}
	return &Semaphore{object: g.newObject("Semaphore")}, nil
}

// CreateFence implements gfx.Device.
func (d *Device) CreateFence(signaled bool) (gfx.Fence, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("CreateFence"); err != nil {
		return nil, err
	}
	return &Fence{object: g.newObject("Fence"), Signaled: signaled}, nil
}

// WaitForFences implements gfx.Device. Waiting on a pending fence completes
// every submission up to and including the one it guards.
func (d *Device) WaitForFences(fences []gfx.Fence, timeout uint64) error {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("WaitForFences"); err != nil {
		return err
	}
	for _, f := range fences {
		fence := f.(*Fence)
		g.eventf("wait fence %d", fence.id)
		if fence.pending {
			g.completeThrough(fence)
		}
		if !fence.Signaled {
			if timeout > 0 {
				g.violationf("waiting on fence %d that is never going to signal", fence.id)
			}
			return gfx.ErrTimeout
		}
	}
	return nil
}

// ResetFences implements gfx.Device.
func (d *Device) ResetFences(fences []gfx.Fence) error {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("ResetFences"); err != nil {
		return err
	}
	for _, f := range fences {
		fence := f.(*Fence)
		if fence.pending {
			g.violationf("fence %d reset while pending", fence.id)
		}
		fence.Signaled = false
		g.eventf("reset fence %d", fence.id)
	}
	return nil
}

// AcquireNextImage implements gfx.Device.
func (d *Device) AcquireNextImage(swapchain gfx.Swapchain, timeout uint64, sem gfx.Semaphore) (uint32, error) {
	g := d.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("AcquireNextImage"); err != nil {
		return 0, err
	}
	sc := swapchain.(*Swapchain)
	if sc.Retired || sc.released {
		g.violationf("acquire from retired swapchain %d", sc.id)
	}

	var result error
	if len(g.acquireResults) > 0 {
		result = g.acquireResults[0]
		g.acquireResults = g.acquireResults[1:]
	}
	if result != nil && !errors.Is(result, gfx.ErrSuboptimal) {
		g.eventf("acquire failed: %v", result)
		return 0, result
	}

	semaphore := sem.(*Semaphore)
	if semaphore.Signaled {
		g.violationf("acquire signals semaphore %d that is already signaled", semaphore.id)
	}
	semaphore.Signaled = true

	idx := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	g.eventf("acquire image %d", idx)
	return idx, result
}

// Queue implements gfx.Queue.
type Queue struct {
	gpu    *GPU
	family uint32
}

// Family returns the queue family index.
func (q *Queue) Family() uint32 {
	return q.family
}

// Submit implements gfx.Queue.
func (q *Queue) Submit(s gfx.Submission, f gfx.Fence) error {
	g := q.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("Submit"); err != nil {
		return err
	}
	sub := &submission{}
	for _, w := range s.Wait {
		sem := w.(*Semaphore)
		if !sem.Signaled {
			g.violationf("submission waits on unsignaled semaphore %d", sem.id)
		}
		sem.Signaled = false
	}
	for _, c := range s.Commands {
		cb := c.(*CommandBuffer)
		switch {
		case cb.pending:
			g.violationf("command buffer %d submitted while pending", cb.id)
		case cb.state != stateExecutable:
			g.violationf("command buffer %d submitted while not executable", cb.id)
		}
		cb.pending = true
		sub.commands = append(sub.commands, cb)
		g.submissions = append(g.submissions, cb.names())
	}
	for _, sig := range s.Signal {
		sem := sig.(*Semaphore)
		if sem.Signaled {
			g.violationf("submission signals semaphore %d that is already signaled", sem.id)
		}
		sem.Signaled = true
	}
	if f != nil {
		fence := f.(*Fence)
		if fence.Signaled || fence.pending {
			g.violationf("fence %d submitted while signaled or pending", fence.id)
		}
		fence.pending = true
		sub.fence = fence
		g.eventf("submit fence %d", fence.id)
	} else {
		g.eventf("submit")
	}
	g.pending = append(g.pending, sub)
	return nil
}

// Present implements gfx.Queue.
func (q *Queue) Present(swapchain gfx.Swapchain, image uint32, wait []gfx.Semaphore) error {
	g := q.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("Present"); err != nil {
		return err
	}
	for _, w := range wait {
		sem := w.(*Semaphore)
		if !sem.Signaled {
			g.violationf("present waits on unsignaled semaphore %d", sem.id)
		}
		sem.Signaled = false
	}
	sc := swapchain.(*Swapchain)
	if int(image) >= len(sc.images) {
		g.violationf("present of image %d out of range", image)
	}
	sc.Presented++
	var result error
	if len(g.presentResults) > 0 {
		result = g.presentResults[0]
		g.presentResults = g.presentResults[1:]
	}
	g.eventf("present image %d", image)
	return result
}

// WaitIdle implements gfx.Queue.
func (q *Queue) WaitIdle() error {
	g := q.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("QueueWaitIdle"); err != nil {
		return err
	}
	g.eventf("queue wait idle")
	g.completeAll()
	return nil
}

type submission struct {
	fence    *Fence
	commands []*CommandBuffer
}

func (g *GPU) completeAll() {
	for _, sub := range g.pending {
		g.complete(sub)
	}
	g.pending = nil
}

func (g *GPU) completeThrough(fence *Fence) {
	for idx, sub := range g.pending {
		if sub.fence == fence {
			for _, done := range g.pending[:idx+1] {
				g.complete(done)
			}
			g.pending = g.pending[idx+1:]
			return
		}
	}
}

func (g *GPU) complete(sub *submission) {
	for _, cb := range sub.commands {
		for _, op := range cb.ops {
			if op.copy != nil {
				op.copy()
			}
		}
		cb.pending = false
	}
	if sub.fence != nil {
		sub.fence.pending = false
		sub.fence.Signaled = true
	}
}

// Buffer implements gfx.Buffer.
type Buffer struct {
	object
	size   uint64
	usage  gfx.BufferUsageFlags
	bits   uint32
	memory *Memory
}

// Size implements gfx.Buffer.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the usage the buffer was created with.
func (b *Buffer) Usage() gfx.BufferUsageFlags { return b.usage }

// Memory returns the bound memory.
func (b *Buffer) Memory() *Memory { return b.memory }

// Contents returns a copy of the bound memory as seen by the GPU.
func (b *Buffer) Contents() []byte {
	b.gpu.mu.Lock()
	defer b.gpu.mu.Unlock()
	if b.memory == nil {
		return nil
	}
	return append([]byte(nil), b.memory.data[:b.size]...)
}

// Requirements implements gfx.Buffer.
func (b *Buffer) Requirements() gfx.MemoryRequirements {
	return gfx.MemoryRequirements{
		Size:           (b.size + 255) &^ 255,
		Alignment:      256,
		MemoryTypeBits: b.bits,
	}
}

// Release implements gfx.Releasable, releasing a buffer used by a
// pending submission is a violation.
func (b *Buffer) Release() {
	g := b.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sub := range g.pending {
		for _, cb := range sub.commands {
			if cb.uses(b) {
				g.violationf("buffer %d released while in use by command buffer %d", b.id, cb.id)
			}
		}
	}
	b.release()
}

// Bind implements gfx.Buffer.
func (b *Buffer) Bind(m gfx.Memory) error {
	g := b.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("BindBufferMemory"); err != nil {
		return err
	}
	memory := m.(*Memory)
	if b.bits&(1<<memory.Type) == 0 {
		g.violationf("buffer %d bound to memory type %d outside of its requirements", b.id, memory.Type)
	}
	if uint64(len(memory.data)) < b.size {
		g.violationf("buffer %d bound to memory smaller than itself", b.id)
	}
	b.memory = memory
	return nil
}

// Memory implements gfx.Memory.
type Memory struct {
	object
	data   []byte
	flags  gfx.MemoryPropertyFlags
	mapped bool

	Type uint32
}

// Size implements gfx.Memory.
func (m *Memory) Size() uint64 { return uint64(len(m.data)) }

// Flags returns the properties of the memory type.
func (m *Memory) Flags() gfx.MemoryPropertyFlags { return m.flags }

// Map implements gfx.Memory.
func (m *Memory) Map() ([]byte, error) {
	g := m.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("MapMemory"); err != nil {
		return nil, err
	}
	if m.flags&gfx.MemoryHostVisible == 0 {
		g.violationf("memory %d mapped without being host visible", m.id)
		return nil, errors.New("memory is not host visible")
	}
	if m.mapped {
		g.violationf("memory %d mapped twice", m.id)
	}
	m.mapped = true
	return m.data, nil
}

// Unmap implements gfx.Memory.
func (m *Memory) Unmap() {
	m.gpu.mu.Lock()
	defer m.gpu.mu.Unlock()
	m.mapped = false
}

// Swapchain implements gfx.Swapchain.
type Swapchain struct {
	object
	images []*Image
	next   uint32

	Info      gfx.SwapchainInfo
	Retired   bool
	Presented int
}

// Images implements gfx.Swapchain.
func (s *Swapchain) Images() ([]gfx.Image, error) {
	g := s.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("GetSwapchainImages"); err != nil {
		return nil, err
	}
	images := make([]gfx.Image, len(s.images))
	for idx, img := range s.images {
		images[idx] = img
	}
	return images, nil
}

// Released reports whether the swapchain was released.
func (s *Swapchain) Released() bool {
	s.gpu.mu.Lock()
	defer s.gpu.mu.Unlock()
	return s.released
}

// Image is a swapchain image.
type Image struct {
	Swapchain *Swapchain
	Index     uint32
}

// ImageView implements gfx.ImageView.
type ImageView struct {
	object
	Image gfx.Image
}

// RenderPass implements gfx.RenderPass.
type RenderPass struct {
	object
	Format gfx.Format
}

// Framebuffer implements gfx.Framebuffer.
type Framebuffer struct {
	object
	Extent gfx.Extent2D
}

// ShaderModule implements gfx.ShaderModule.
type ShaderModule struct {
	object
	Code []byte
}

// PipelineLayout implements gfx.PipelineLayout.
type PipelineLayout struct {
	object
	PushConstantSize uint32
}

// Pipeline implements gfx.Pipeline.
type Pipeline struct {
	object
	Info gfx.PipelineInfo
}

// Semaphore implements gfx.Semaphore.
type Semaphore struct {
	object
	Signaled bool
}

// Fence implements gfx.Fence.
type Fence struct {
	object
	Signaled bool
	pending  bool
}

// CommandPool implements gfx.CommandPool.
type CommandPool struct {
	object
	family    uint32
	allocated []*CommandBuffer
}

// Allocate implements gfx.CommandPool.
func (p *CommandPool) Allocate(count int) ([]gfx.CommandBuffer, error) {
	g := p.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]gfx.CommandBuffer, count)
	for idx := range buffers {
		cb := &CommandBuffer{object: g.newObject("CommandBuffer"), pool: p}
		p.allocated = append(p.allocated, cb)
		buffers[idx] = cb
	}
	return buffers, nil
}

// Free implements gfx.CommandPool.
func (p *CommandPool) Free(buffers []gfx.CommandBuffer) {
	g := p.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range buffers {
		cb := b.(*CommandBuffer)
		if cb.pending {
			g.violationf("command buffer %d freed while pending", cb.id)
		}
		cb.release()
	}
}

// Release implements gfx.Releasable, freeing command buffers left in the pool.
func (p *CommandPool) Release() {
	g := p.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, cb := range p.allocated {
		if !cb.released {
			cb.release()
		}
	}
	p.release()
}

type cbState int

const (
	stateInitial cbState = iota
	stateRecording
	stateExecutable
)

type op struct {
	name string
	copy func()
}

// CommandBuffer implements gfx.CommandBuffer.
type CommandBuffer struct {
	object
	pool    *CommandPool
	state   cbState
	pending bool
	oneTime bool
	ops     []op
	buffers []*Buffer
}

func (c *CommandBuffer) uses(b *Buffer) bool {
	for _, used := range c.buffers {
		if used == b {
			return true
		}
	}
	return false
}

// Commands returns the names of the recorded commands.
func (c *CommandBuffer) Commands() []string {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	return c.names()
}

func (c *CommandBuffer) names() []string {
	names := make([]string, len(c.ops))
	for idx, o := range c.ops {
		names[idx] = o.name
	}
	return names
}

func (c *CommandBuffer) record(name string, copyFn func()) {
	if c.state != stateRecording {
		c.gpu.violationf("command buffer %d records %q outside of recording", c.id, name)
	}
	c.ops = append(c.ops, op{name: name, copy: copyFn})
}

// Reset implements gfx.CommandBuffer.
func (c *CommandBuffer) Reset() error {
	g := c.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if c.pending {
		g.violationf("command buffer %d reset while pending", c.id)
	}
	c.ops = nil
	c.buffers = nil
	c.state = stateInitial
	return nil
}

// Begin implements gfx.CommandBuffer.
func (c *CommandBuffer) Begin(oneTime bool) error {
	g := c.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("BeginCommandBuffer"); err != nil {
		return err
	}
	if c.pending {
		g.violationf("command buffer %d recorded while pending", c.id)
	}
	c.ops = nil
	c.buffers = nil
	c.oneTime = oneTime
	c.state = stateRecording
	return nil
}

// End implements gfx.CommandBuffer.
func (c *CommandBuffer) End() error {
	g := c.gpu
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("EndCommandBuffer"); err != nil {
		return err
	}
	if c.state != stateRecording {
		g.violationf("command buffer %d ended outside of recording", c.id)
	}
	c.state = stateExecutable
	return nil
}

// CopyBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, srcOffset, dstOffset, size uint64) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	from, to := src.(*Buffer), dst.(*Buffer)
	if from.usage&gfx.BufferUsageTransferSrc == 0 || to.usage&gfx.BufferUsageTransferDst == 0 {
		c.gpu.violationf("copy between buffers %d and %d without transfer usage", from.id, to.id)
	}
	c.buffers = append(c.buffers, from, to)
	c.record(fmt.Sprintf("copy %d", size), func() {
		if from.memory == nil || to.memory == nil {
			c.gpu.violationf("copy between unbound buffers")
			return
		}
		copy(to.memory.data[dstOffset:dstOffset+size], from.memory.data[srcOffset:srcOffset+size])
	})
}

// BeginRenderPass implements gfx.CommandBuffer.
func (c *CommandBuffer) BeginRenderPass(pass gfx.RenderPass, framebuffer gfx.Framebuffer, extent gfx.Extent2D, clear [4]float32) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	c.record("beginRenderPass", nil)
}

// EndRenderPass implements gfx.CommandBuffer.
func (c *CommandBuffer) EndRenderPass() {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	c.record("endRenderPass", nil)
}

// SetViewport implements gfx.CommandBuffer.
func (c *CommandBuffer) SetViewport(extent gfx.Extent2D) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	c.record(fmt.Sprintf("viewport %dx%d", extent.Width, extent.Height), nil)
}

// BindPipeline implements gfx.CommandBuffer.
func (c *CommandBuffer) BindPipeline(pipeline gfx.Pipeline) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	p := pipeline.(*Pipeline)
	mode := "fill"
	if p.Info.Polygon == gfx.PolygonLine {
		mode = "line"
	}
	c.record("bindPipeline "+mode, nil)
}

// PushConstants implements gfx.CommandBuffer.
func (c *CommandBuffer) PushConstants(layout gfx.PipelineLayout, data []byte) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	c.record(fmt.Sprintf("pushConstants %d", len(data)), nil)
}

// BindVertexBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) BindVertexBuffer(buffer gfx.Buffer) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	b := buffer.(*Buffer)
	if b.released {
		c.gpu.violationf("released buffer %d bound", b.id)
	}
	c.buffers = append(c.buffers, b)
	c.record(fmt.Sprintf("bindVertexBuffer %d", b.id), nil)
}

// BindIndexBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) BindIndexBuffer(buffer gfx.Buffer) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	b := buffer.(*Buffer)
	if b.released {
		c.gpu.violationf("released buffer %d bound", b.id)
	}
	c.buffers = append(c.buffers, b)
	c.record(fmt.Sprintf("bindIndexBuffer %d", b.id), nil)
}

// Draw implements gfx.CommandBuffer.
func (c *CommandBuffer) Draw(vertexCount uint32) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	c.record(fmt.Sprintf("draw %d", vertexCount), nil)
}

// DrawIndexed implements gfx.CommandBuffer.
func (c *CommandBuffer) DrawIndexed(indexCount uint32) {
	c.gpu.mu.Lock()
	defer c.gpu.mu.Unlock()
	c.record(fmt.Sprintf("drawIndexed %d", indexCount), nil)
}
