package frame

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
)

func newTestSynchronizer(t *testing.T, g *mockGPU) *Synchronizer {
	t.Helper()
	s, err := New(g, g, g, g)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.sync = s
	return s
}

func TestSlotRotation(t *testing.T) {
	const k = 5
	g := newMockGPU(3, 0, 1, 2)
	s := newTestSynchronizer(t, g)

	var seq []int
	for i := 0; i < k*MaxFramesInFlight; i++ {
		seq = append(seq, s.CurrentSlot())
		if err := s.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	for i, slot := range seq {
		if slot != i%MaxFramesInFlight {
			t.Fatalf("slot sequence %v is not round-robin", seq)
		}
	}
	for i := 0; i < MaxFramesInFlight; i++ {
		if got := s.Slot(i).Uses(); got != k {
			t.Fatalf("slot %d used %d times, want %d", i, got, k)
		}
		if st := s.Slot(i).State(); st != SlotIdle {
			t.Fatalf("slot %d left in state %s", i, st)
		}
	}
	if s.FrameNumber() != k*MaxFramesInFlight {
		t.Fatalf("FrameNumber = %d", s.FrameNumber())
	}
}

func TestImageHazardGuard(t *testing.T) {
	sequences := map[string][]uint32{
		"in order":          {0, 1, 2},
		"same image":        {0},
		"repeat pairs":      {0, 1, 1, 2, 2, 0},
		"two images":        {1, 0},
		"irregular":         {2, 0, 0, 1, 2, 2, 1, 0, 1},
		"last image hammer": {2, 2, 2, 0, 2},
	}
	for name, acquire := range sequences {
		t.Run(name, func(t *testing.T) {
			g := newMockGPU(3, acquire...)
			s := newTestSynchronizer(t, g)
			for i := 0; i < 40; i++ {
				if err := s.DrawFrame(); err != nil {
					t.Fatalf("frame %d: %v", i, err)
				}
				if g.outstanding() > MaxFramesInFlight {
					t.Fatalf("frame %d: %d submissions outstanding", i, g.outstanding())
				}
			}
			if len(g.violations) > 0 {
				t.Fatalf("hazard violations: %v", g.violations)
			}
			if len(g.submitted) != 40 {
				t.Fatalf("submitted %d frames, want 40", len(g.submitted))
			}
		})
	}
}

func TestImageOwnerTracksSlotFence(t *testing.T) {
	g := newMockGPU(3, 1, 2)
	s := newTestSynchronizer(t, g)

	if s.ImageOwner(1) != nil {
		t.Fatalf("image 1 owned before any frame")
	}
	if err := s.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if s.ImageOwner(1) != s.Slot(0).InFlight {
		t.Fatalf("image 1 not owned by slot 0 fence")
	}
	if err := s.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if s.ImageOwner(2) != s.Slot(1).InFlight {
		t.Fatalf("image 2 not owned by slot 1 fence")
	}
	if s.ImageOwner(0) != nil || s.ImageOwner(7) != nil {
		t.Fatalf("unexpected owner for unused image")
	}
}

func TestSlotStatesDuringFrame(t *testing.T) {
	g := newMockGPU(2, 0, 1)
	s := newTestSynchronizer(t, g)
	for i := 0; i < 4; i++ {
		if err := s.DrawFrame(); err != nil {
			t.Fatal(err)
		}
	}
	for _, st := range g.stateDuringSubmit {
		if st != SlotSubmitted {
			t.Fatalf("state during submit = %s", st)
		}
	}
	for _, st := range g.stateDuringPresent {
		if st != SlotPresenting {
			t.Fatalf("state during present = %s", st)
		}
	}
	if len(g.stateDuringSubmit) != 4 || len(g.stateDuringPresent) != 4 {
		t.Fatalf("observed %d submits, %d presents", len(g.stateDuringSubmit), len(g.stateDuringPresent))
	}
}

func TestThrottleBlocksUntilFenceReleased(t *testing.T) {
	g := newMockGPU(3, 0, 1, 2)
	g.manual = true
	s := newTestSynchronizer(t, g)

	// Fresh slots start signaled.
	for i := 0; i < MaxFramesInFlight; i++ {
		if err := s.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.DrawFrame() }()

	select {
	case err := <-done:
		t.Fatalf("frame finished before its slot fence was released (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	s.Slot(0).InFlight.(*mockFence).release <- struct{}{}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("DrawFrame: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("frame still blocked after release")
	}
}

func TestDrawFrameErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g *mockGPU)
		kind  error
	}{
		{"acquire out of date", func(g *mockGPU) {
			g.acquireErr = core.Fail(core.ErrSwapchainOutOfDate, "acquire", nil)
		}, core.ErrSwapchainOutOfDate},
		{"acquire surface lost", func(g *mockGPU) {
			g.acquireErr = core.Fail(core.ErrSurfaceLost, "acquire", nil)
		}, core.ErrSurfaceLost},
		{"record", func(g *mockGPU) {
			g.recordErr = core.Fail(core.ErrRecording, "begin command buffer", nil)
		}, core.ErrRecording},
		{"submit", func(g *mockGPU) {
			g.submitErr = core.Fail(core.ErrSubmission, "queue submit", nil)
		}, core.ErrSubmission},
		{"present", func(g *mockGPU) {
			g.presentErr = core.Fail(core.ErrSwapchainOutOfDate, "queue present", nil)
		}, core.ErrSwapchainOutOfDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newMockGPU(3, 0, 1, 2)
			s := newTestSynchronizer(t, g)
			tt.setup(g)
			err := s.DrawFrame()
			if !errors.Is(err, tt.kind) {
				t.Fatalf("got %v, want kind %v", err, tt.kind)
			}
			if s.CurrentSlot() != 0 || s.FrameNumber() != 0 {
				t.Fatalf("failed frame advanced the loop")
			}
		})
	}
}

func TestAcquireIndexOutOfRange(t *testing.T) {
	g := newMockGPU(2, 5)
	s := newTestSynchronizer(t, g)
	if err := s.DrawFrame(); err == nil {
		t.Fatalf("expected error for out of range image index")
	}
}

func TestNewReleasesPartialSlots(t *testing.T) {
	// Slot 0 needs three objects; the fifth creation (slot 1 fence) fails.
	g := newMockGPU(3, 0)
	g.failAfter = 5
	_, err := New(g, g, g, g)
	if !errors.Is(err, core.ErrResourceCreation) {
		t.Fatalf("got %v, want ErrResourceCreation", err)
	}
	if created := g.semaphores + g.fences; g.destroyed != created {
		t.Fatalf("destroyed %d of %d created objects", g.destroyed, created)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	g := newMockGPU(3, 0, 1, 2)
	s := newTestSynchronizer(t, g)
	for i := 0; i < 3; i++ {
		if err := s.DrawFrame(); err != nil {
			t.Fatal(err)
		}
	}
	s.Destroy()
	if want := 3 * MaxFramesInFlight; g.destroyed != want {
		t.Fatalf("destroyed %d objects, want %d", g.destroyed, want)
	}
	for i := uint32(0); i < 3; i++ {
		if s.ImageOwner(i) != nil {
			t.Fatalf("image %d still tracked after Destroy", i)
		}
	}
}
