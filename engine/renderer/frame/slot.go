package frame

type SlotState int

const (
	SlotIdle SlotState = iota
	SlotAcquiring
	SlotRecording
	SlotSubmitted
	SlotPresenting
)

func (s SlotState) String() string {
	switch s {
	case SlotAcquiring:
		return "Acquiring"
	case SlotRecording:
		return "Recording"
	case SlotSubmitted:
		return "Submitted"
	case SlotPresenting:
		return "Presenting"
	default:
		return "Idle"
	}
}

// Slot is one rotating synchronization context.
type Slot struct {
	index          int
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence

	state SlotState
	uses  uint64
}

func (s *Slot) Index() int {
	return s.index
}

func (s *Slot) State() SlotState {
	return s.state
}

// Uses counts the frames this slot completed.
func (s *Slot) Uses() uint64 {
	return s.uses
}

func newSlot(index int, factory SyncFactory) (*Slot, error) {
	s := &Slot{index: index}
	var err error
	if s.ImageAvailable, err = factory.CreateSemaphore(); err != nil {
		return nil, err
	}
	if s.RenderFinished, err = factory.CreateSemaphore(); err != nil {
		s.destroy()
		return nil, err
	}
	// Created signaled so the first wait on a fresh slot returns at once.
	if s.InFlight, err = factory.CreateFence(true); err != nil {
		s.destroy()
		return nil, err
	}
	return s, nil
}

func (s *Slot) destroy() {
	if s.InFlight != nil {
		s.InFlight.Destroy()
		s.InFlight = nil
	}
	if s.RenderFinished != nil {
		s.RenderFinished.Destroy()
		s.RenderFinished = nil
	}
	if s.ImageAvailable != nil {
		s.ImageAvailable.Destroy()
		s.ImageAvailable = nil
	}
}
