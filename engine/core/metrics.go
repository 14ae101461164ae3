package core

import (
	"time"

	"github.com/spaghettifunk/prism/engine/containers"
)

const AvgCount = 30

// FrameStats keeps a sliding window of frame times.
type FrameStats struct {
	window      *containers.RingQueue[time.Duration]
	sum         time.Duration
	frames      int
	accumulated time.Duration
	fps         float64
	total       uint64
}

func NewFrameStats() *FrameStats {
	return &FrameStats{
		window: containers.NewRingQueue[time.Duration](AvgCount),
	}
}

// Update records the duration of one frame.
func (m *FrameStats) Update(frame time.Duration) {
	if m.window.IsFull() {
		oldest, _ := m.window.Dequeue()
		m.sum -= oldest
	}
	_ = m.window.Enqueue(frame)
	m.sum += frame
	m.total++

	m.frames++
	m.accumulated += frame
	if m.accumulated >= time.Second {
		m.fps = float64(m.frames) / m.accumulated.Seconds()
		m.accumulated = 0
		m.frames = 0
	}
}

// FrameTime is the average over the last AvgCount frames.
func (m *FrameStats) FrameTime() time.Duration {
	n := m.window.Len()
	if n == 0 {
		return 0
	}
	return m.sum / time.Duration(n)
}

func (m *FrameStats) FPS() float64 {
	return m.fps
}

func (m *FrameStats) Frames() uint64 {
	return m.total
}
