package frame

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
)

type submission struct {
	image uint32
	fence *mockFence
}

// mockGPU executes submissions in order, but only when a fence wait forces
// it to. A fence therefore signals only after it was explicitly released.
type mockGPU struct {
	// manual makes fence waits block until the test releases the fence.
	manual bool

	images     uint32
	acquireSeq []uint32
	acquirePos int

	pending   []submission
	busy      map[uint32]bool
	submitted []uint32

	violations []string

	semaphores int
	fences     int
	destroyed  int
	failAfter  int // creation attempts allowed before failing, -1 for never

	acquireErr error
	recordErr  error
	submitErr  error
	presentErr error

	stateDuringSubmit  []SlotState
	stateDuringPresent []SlotState
	sync               *Synchronizer
}

func newMockGPU(images uint32, acquireSeq ...uint32) *mockGPU {
	return &mockGPU{
		images:     images,
		acquireSeq: acquireSeq,
		busy:       make(map[uint32]bool),
		failAfter:  -1,
	}
}

func (g *mockGPU) violate(format string, args ...interface{}) {
	g.violations = append(g.violations, fmt.Sprintf(format, args...))
}

// completeThrough retires pending submissions in order until f is signaled.
func (g *mockGPU) completeThrough(f *mockFence) bool {
	for len(g.pending) > 0 {
		s := g.pending[0]
		g.pending = g.pending[1:]
		g.busy[s.image] = false
		s.fence.signaled = true
		if s.fence == f {
			return true
		}
	}
	return false
}

func (g *mockGPU) creationAllowed() bool {
	if g.failAfter < 0 {
		return true
	}
	if g.failAfter == 0 {
		return false
	}
	g.failAfter--
	return true
}

type mockSemaphore struct {
	gpu *mockGPU
	id  int
}

func (s *mockSemaphore) Destroy() {
	s.gpu.destroyed++
}

type mockFence struct {
	gpu      *mockGPU
	id       int
	signaled bool
	waits    int
	release  chan struct{}
}

func (f *mockFence) Wait(timeout uint64) error {
	f.waits++
	if f.signaled {
		return nil
	}
	if f.release != nil {
		<-f.release
		f.signaled = true
		return nil
	}
	if !f.gpu.completeThrough(f) {
		return core.Fail(core.ErrFenceTimeout, fmt.Sprintf("wait fence %d", f.id), errors.New("fence never submitted"))
	}
	return nil
}

func (f *mockFence) Reset() error {
	f.signaled = false
	return nil
}

func (f *mockFence) Destroy() {
	f.gpu.destroyed++
}

func (g *mockGPU) CreateSemaphore() (Semaphore, error) {
	if !g.creationAllowed() {
		return nil, errors.New("VK_ERROR_OUT_OF_HOST_MEMORY")
	}
	g.semaphores++
	return &mockSemaphore{gpu: g, id: g.semaphores}, nil
}

func (g *mockGPU) CreateFence(signaled bool) (Fence, error) {
	if !g.creationAllowed() {
		return nil, errors.New("VK_ERROR_OUT_OF_HOST_MEMORY")
	}
	g.fences++
	f := &mockFence{gpu: g, id: g.fences, signaled: signaled}
	if g.manual {
		f.release = make(chan struct{})
	}
	return f, nil
}

func (g *mockGPU) ImageCount() uint32 {
	return g.images
}

func (g *mockGPU) AcquireNextImage(timeout uint64, signal Semaphore) (uint32, error) {
	if g.acquireErr != nil {
		return 0, g.acquireErr
	}
	idx := g.acquireSeq[g.acquirePos%len(g.acquireSeq)]
	g.acquirePos++
	return idx, nil
}

func (g *mockGPU) Present(imageIndex uint32, wait Semaphore) error {
	if g.sync != nil {
		g.stateDuringPresent = append(g.stateDuringPresent, g.sync.Slot(g.sync.CurrentSlot()).State())
	}
	return g.presentErr
}

func (g *mockGPU) Record(imageIndex uint32) error {
	if g.recordErr != nil {
		return g.recordErr
	}
	if g.busy[imageIndex] {
		g.violate("image %d re-recorded while its previous submission is still executing", imageIndex)
	}
	return nil
}

func (g *mockGPU) Submit(imageIndex uint32, wait, signal Semaphore, fence Fence) error {
	if g.submitErr != nil {
		return g.submitErr
	}
	if g.sync != nil {
		g.stateDuringSubmit = append(g.stateDuringSubmit, g.sync.Slot(g.sync.CurrentSlot()).State())
	}
	f := fence.(*mockFence)
	if f.signaled {
		g.violate("fence %d submitted without reset", f.id)
	}
	if g.busy[imageIndex] {
		g.violate("image %d submitted while still in flight", imageIndex)
	}
	g.busy[imageIndex] = true
	g.pending = append(g.pending, submission{image: imageIndex, fence: f})
	g.submitted = append(g.submitted, imageIndex)
	return nil
}

// outstanding counts submissions the GPU has not retired yet.
func (g *mockGPU) outstanding() int {
	return len(g.pending)
}
