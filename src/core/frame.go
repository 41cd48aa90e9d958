// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
	"github.com/sirupsen/logrus"
)

// frameSlot holds the synchronization of one frame in flight.
type frameSlot struct {
	imageAvailable gfx.Semaphore
	renderFinished gfx.Semaphore
	fence          gfx.Fence

	// frame is the number of the frame last submitted from the slot.
	frame uint64
}

// frameRing cycles through a fixed number of frame slots,
// independent of the number of swapchain images.
type frameRing struct {
	device  gfx.Device
	slots   []frameSlot
	current int

	// images maps each swapchain image to the slot that last
	// rendered to it, -1 when none did.
	images []int
}

func newFrameRing(device gfx.Device, depth int) (ring *frameRing, err error) {
	ring = &frameRing{device: device, slots: make([]frameSlot, depth)}
	defer func() {
		if err != nil {
			ring.release()
			ring = nil
		}
	}()

	for idx := range ring.slots {
		slot := &ring.slots[idx]
		if slot.imageAvailable, err = device.CreateSemaphore(); err != nil {
			return ring, errors.Wrap(err, "create semaphore")
		}
		if slot.renderFinished, err = device.CreateSemaphore(); err != nil {
			return ring, errors.Wrap(err, "create semaphore")
		}
		if slot.fence, err = device.CreateFence(true); err != nil {
			return ring, errors.Wrap(err, "create fence")
		}
	}
	return ring, nil
}

func (f *frameRing) slot() *frameSlot {
	return &f.slots[f.current]
}

func (f *frameRing) advance() {
	f.current = (f.current + 1) % len(f.slots)
}

// trackImages forgets image ownership for a swapchain of count images.
func (f *frameRing) trackImages(count int) {
	f.images = make([]int, count)
	for idx := range f.images {
		f.images[idx] = -1
	}
}

// claim waits until no other slot renders to image and makes the
// current slot its owner.
func (f *frameRing) claim(image uint32) error {
	if owner := f.images[image]; owner >= 0 && owner != f.current {
		if err := f.device.WaitForFences([]gfx.Fence{f.slots[owner].fence}, math.MaxUint64); err != nil {
			return errors.Wrapf(err, "wait for image %d", image)
		}
	}
	f.images[image] = f.current
	return nil
}

// renewFence replaces the fence of the current slot with a signaled one,
// used when a reset fence did not get submitted.
func (f *frameRing) renewFence() error {
	fence, err := f.device.CreateFence(true)
	if err != nil {
		return errors.Wrap(err, "create fence")
	}
	slot := f.slot()
	slot.fence.Release()
	slot.fence = fence
	return nil
}

func (f *frameRing) release() {
	for idx := range f.slots {
		slot := &f.slots[idx]
		if slot.fence != nil {
			slot.fence.Release()
		}
		if slot.renderFinished != nil {
			slot.renderFinished.Release()
		}
		if slot.imageAvailable != nil {
			slot.imageAvailable.Release()
		}
	}
	f.slots = nil
}

// drawFrame renders and presents one frame, see DrawFrame.
func (r *Renderer) drawFrame() error {
	if r.dirty {
		if err := r.recreate(); err != nil {
			return err
		}
		if r.dirty {
			r.stats.FramesSkipped++
			return nil
		}
	}

	dev := r.ctx.Device
	slot := r.ring.slot()
	if err := dev.WaitForFences([]gfx.Fence{slot.fence}, math.MaxUint64); err != nil {
		return errors.Wrap(err, "wait for frame fence")
	}
	r.complete(slot.frame)

	image, err := dev.AcquireNextImage(r.swapchain.swapchain, math.MaxUint64, slot.imageAvailable)
	suboptimal := false
	switch {
	case errors.Is(err, gfx.ErrOutOfDate):
		r.stats.FramesSkipped++
		r.log.Debug("swapchain out of date on acquire")
		return r.recreate()
	case errors.Is(err, gfx.ErrSuboptimal):
		suboptimal = true
	case err != nil:
		return errors.Wrap(err, "acquire next image")
	}

	if err := r.ring.claim(image); err != nil {
		return err
	}

	if err := r.record(image, r.hook(r.clock.Elapsed(), r.swapchain.extent)); err != nil {
		return err
	}

	if err := dev.ResetFences([]gfx.Fence{slot.fence}); err != nil {
		return errors.Wrap(err, "reset frame fence")
	}
	if err := r.ctx.GraphicsQueue.Submit(gfx.Submission{
		Wait:     []gfx.Semaphore{slot.imageAvailable},
		Commands: []gfx.CommandBuffer{r.swapchain.commands[image]},
		Signal:   []gfx.Semaphore{slot.renderFinished},
	}, slot.fence); err != nil {
		if ferr := r.ring.renewFence(); ferr != nil {
			r.log.WithError(ferr).Error("frame fence lost")
		}
		return errors.Wrap(err, "submit frame")
	}
	r.submitted++
	slot.frame = r.submitted
	r.stats.FramesSubmitted++

	err = r.ctx.PresentQueue.Present(r.swapchain.swapchain, image, []gfx.Semaphore{slot.renderFinished})
	r.ring.advance()

	if r.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		r.log.WithField("frame", r.submitted).WithField("image", image).Trace("frame submitted")
	}

	switch {
	case errors.Is(err, gfx.ErrOutOfDate), errors.Is(err, gfx.ErrSuboptimal), suboptimal:
		r.log.Debug("swapchain stale on present")
		return r.recreate()
	case err != nil:
		return errors.Wrap(err, "present")
	}
	return nil
}

// complete marks every frame up to frame as finished and destroys
// resources waiting for them.
func (r *Renderer) complete(frame uint64) {
	if frame > r.completed {
		r.completed = frame
	}
	if n := r.graveyard.Collect(r.completed); n > 0 {
		r.log.WithField("count", n).Debug("destroyed deleted resources")
	}
}
