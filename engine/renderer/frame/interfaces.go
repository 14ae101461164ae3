package frame

// Semaphore orders GPU queue operations. The control thread never waits on it.
type Semaphore interface {
	Destroy()
}

// Fence is signaled by the GPU when a submission completes.
type Fence interface {
	// Wait blocks until the fence is signaled or timeout nanoseconds elapse.
	Wait(timeout uint64) error
	Reset() error
	Destroy()
}

type SyncFactory interface {
	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)
}

// Swapchain hands out presentable images and takes them back for display.
type Swapchain interface {
	ImageCount() uint32
	AcquireNextImage(timeout uint64, signal Semaphore) (uint32, error)
	Present(imageIndex uint32, wait Semaphore) error
}

// GraphicsQueue submits the command sequence recorded for an image. The
// submission waits on wait at the color output stage and signals both signal
// and fence on completion.
type GraphicsQueue interface {
	Submit(imageIndex uint32, wait, signal Semaphore, fence Fence) error
}

type CommandRecorder interface {
	Record(imageIndex uint32) error
}
