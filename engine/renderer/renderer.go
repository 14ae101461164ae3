package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/vulkan"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
)

type Renderer struct {
	backend RendererBackend
}

// New returns a renderer using the Vulkan backend.
func New(p *platform.Platform, shaders vulkan.ShaderSource) *Renderer {
	return NewWithBackend(vulkan.New(p, shaders))
}

func NewWithBackend(backend RendererBackend) *Renderer {
	r := &Renderer{backend: backend}
	core.EventRegister(core.EventCodeResized, r, r.onResized)
	return r
}

func (r *Renderer) Initialize(config metadata.RendererBackendConfig) error {
	if err := r.backend.Initialize(config); err != nil {
		return err
	}
	core.LogInfo("Renderer initialized.")
	return nil
}

func (r *Renderer) DrawFrame() error {
	return r.backend.DrawFrame()
}

func (r *Renderer) FrameNumber() uint64 {
	return r.backend.FrameNumber()
}

func (r *Renderer) Shutdown() error {
	core.EventUnregister(core.EventCodeResized, r)
	if err := r.backend.Shutdown(); err != nil {
		return errors.Wrap(err, "renderer shutdown")
	}
	return nil
}

func (r *Renderer) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	r.backend.Resized(data.Data.U32[0], data.Data.U32[1])
	return false
}
