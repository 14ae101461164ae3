// Package frame drives the acquire, record, submit and present loop over a
// fixed number of frame slots.
package frame

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
)

// MaxFramesInFlight bounds how many frames may have GPU work outstanding.
const MaxFramesInFlight = 2

// NoTimeout makes fence waits and image acquisition block indefinitely.
const NoTimeout uint64 = math.MaxUint64

type Synchronizer struct {
	slots [MaxFramesInFlight]*Slot

	// imagesInFlight maps a swapchain image to the fence of the slot that
	// last submitted work for it. The fences are owned by the slots.
	imagesInFlight []Fence

	current     int
	frameNumber uint64

	swapchain Swapchain
	queue     GraphicsQueue
	recorder  CommandRecorder
}

// New creates the slots. If creating any synchronization object fails, the
// ones already created are destroyed before returning.
func New(factory SyncFactory, swapchain Swapchain, queue GraphicsQueue, recorder CommandRecorder) (*Synchronizer, error) {
	s := &Synchronizer{
		imagesInFlight: make([]Fence, swapchain.ImageCount()),
		swapchain:      swapchain,
		queue:          queue,
		recorder:       recorder,
	}
	for i := 0; i < MaxFramesInFlight; i++ {
		slot, err := newSlot(i, factory)
		if err != nil {
			s.Destroy()
			return nil, core.Fail(core.ErrResourceCreation, "create synchronization objects", err)
		}
		s.slots[i] = slot
	}
	core.LogDebug("Created %d frame slots for %d swapchain images.", MaxFramesInFlight, len(s.imagesInFlight))
	return s, nil
}

// DrawFrame renders and presents one frame using the current slot.
func (s *Synchronizer) DrawFrame() error {
	slot := s.slots[s.current]
	slot.state = SlotAcquiring

	if err := slot.InFlight.Wait(NoTimeout); err != nil {
		return errors.Wrapf(err, "wait for frame slot %d", slot.index)
	}

	imageIndex, err := s.swapchain.AcquireNextImage(NoTimeout, slot.ImageAvailable)
	if err != nil {
		return errors.Wrap(err, "acquire next image")
	}
	if int(imageIndex) >= len(s.imagesInFlight) {
		return errors.AssertionFailedf("acquired image index %d but only %d images exist", imageIndex, len(s.imagesInFlight))
	}

	// The image may still be in use by a frame submitted from another slot.
	if prior := s.imagesInFlight[imageIndex]; prior != nil {
		if err := prior.Wait(NoTimeout); err != nil {
			return errors.Wrapf(err, "wait for image %d", imageIndex)
		}
	}
	s.imagesInFlight[imageIndex] = slot.InFlight

	slot.state = SlotRecording
	if err := s.recorder.Record(imageIndex); err != nil {
		return errors.Wrapf(err, "record commands for image %d", imageIndex)
	}

	if err := slot.InFlight.Reset(); err != nil {
		return errors.Wrapf(err, "reset fence of frame slot %d", slot.index)
	}
	slot.state = SlotSubmitted
	if err := s.queue.Submit(imageIndex, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return errors.Wrapf(err, "submit image %d", imageIndex)
	}

	slot.state = SlotPresenting
	if err := s.swapchain.Present(imageIndex, slot.RenderFinished); err != nil {
		return errors.Wrapf(err, "present image %d", imageIndex)
	}

	slot.state = SlotIdle
	slot.uses++
	s.frameNumber++
	s.current = (s.current + 1) % MaxFramesInFlight
	return nil
}

// CurrentSlot is the index of the slot the next frame will use.
func (s *Synchronizer) CurrentSlot() int {
	return s.current
}

func (s *Synchronizer) Slot(i int) *Slot {
	return s.slots[i]
}

// FrameNumber counts completed frames.
func (s *Synchronizer) FrameNumber() uint64 {
	return s.frameNumber
}

// ImageOwner returns the fence last recorded for imageIndex, or nil.
func (s *Synchronizer) ImageOwner(imageIndex uint32) Fence {
	if int(imageIndex) >= len(s.imagesInFlight) {
		return nil
	}
	return s.imagesInFlight[imageIndex]
}

// Destroy releases every slot. The device must be idle.
func (s *Synchronizer) Destroy() {
	for i := range s.imagesInFlight {
		s.imagesInFlight[i] = nil
	}
	for i := len(s.slots) - 1; i >= 0; i-- {
		if s.slots[i] != nil {
			s.slots[i].destroy()
			s.slots[i] = nil
		}
	}
}
