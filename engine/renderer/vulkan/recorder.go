package vulkan

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
)

// TriangleVertexCount is the number of vertices the vertex shader emits.
const TriangleVertexCount = 3

// CommandRecorder owns one primary command buffer per presentable image and
// records the triangle draw into it.
type CommandRecorder struct {
	context *VulkanContext
	buffers []*VulkanCommandBuffer
}

func NewCommandRecorder(context *VulkanContext) (*CommandRecorder, error) {
	buffers, err := AllocateCommandBuffers(context, context.Device.GraphicsCommandPool, context.ImageSet.ImageCount(), true)
	if err != nil {
		return nil, err
	}
	r := &CommandRecorder{context: context, buffers: buffers}
	context.Own("command buffers", func() {
		FreeCommandBuffers(context, context.Device.GraphicsCommandPool, r.buffers)
	})
	core.LogDebug("Vulkan command buffers created.")
	return r, nil
}

// Buffer returns the command buffer bound to imageIndex.
func (r *CommandRecorder) Buffer(imageIndex uint32) *VulkanCommandBuffer {
	return r.buffers[imageIndex]
}

// Record re-records the buffer of imageIndex: clear, bind the pipeline and
// draw three vertices inside the render pass.
func (r *CommandRecorder) Record(imageIndex uint32) error {
	if int(imageIndex) >= len(r.buffers) {
		return errors.AssertionFailedf("image index %d out of range [0,%d)", imageIndex, len(r.buffers))
	}
	step := fmt.Sprintf("record command buffer %d", imageIndex)
	cb := r.buffers[imageIndex]

	if err := cb.Reset(); err != nil {
		return core.Fail(core.ErrRecording, step, err)
	}
	if err := cb.Begin(false, false, false); err != nil {
		return core.Fail(core.ErrRecording, step, err)
	}

	set := r.context.ImageSet
	r.context.MainRenderpass.Begin(cb, set.Framebuffers[imageIndex].Handle, set.Extent())
	r.context.Pipeline.Bind(cb, vk.PipelineBindPointGraphics)
	vk.CmdDraw(cb.Handle, TriangleVertexCount, 1, 0, 0)
	r.context.MainRenderpass.End(cb)

	if err := cb.End(); err != nil {
		return core.Fail(core.ErrRecording, step, err)
	}
	return nil
}
