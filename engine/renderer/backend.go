package renderer

import "github.com/spaghettifunk/prism/engine/renderer/metadata"

type RendererBackend interface {
	Initialize(config metadata.RendererBackendConfig) error
	DrawFrame() error
	Resized(width, height uint32)
	FrameNumber() uint64
	Shutdown() error
}
