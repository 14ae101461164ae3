package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/frame"
)

// VulkanGraphicsQueue submits recorded image command buffers.
type VulkanGraphicsQueue struct {
	context  *VulkanContext
	recorder *CommandRecorder
}

func NewGraphicsQueue(context *VulkanContext, recorder *CommandRecorder) *VulkanGraphicsQueue {
	return &VulkanGraphicsQueue{context: context, recorder: recorder}
}

func (q *VulkanGraphicsQueue) Submit(imageIndex uint32, wait, signal frame.Semaphore, fence frame.Fence) error {
	waitSem, ok1 := wait.(*VulkanSemaphore)
	signalSem, ok2 := signal.(*VulkanSemaphore)
	vkFence, ok3 := fence.(*VulkanFence)
	if !ok1 || !ok2 || !ok3 {
		return errors.AssertionFailedf("unexpected sync object types %T, %T, %T", wait, signal, fence)
	}
	cb := q.recorder.Buffer(imageIndex)

	// Writes to the color attachment wait until the image is available.
	flags := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{waitSem.Handle},
		PWaitDstStageMask:    []vk.PipelineStageFlags{flags},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signalSem.Handle},
	}

	d := q.context.Device
	if err := q.context.locks.SafeQueueCall(uint32(d.QueueFamilies.Graphics), func() error {
		result := vk.QueueSubmit(d.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vkFence.Handle)
		return ResultError(result, core.ErrSubmission, "submit draw command buffer")
	}); err != nil {
		return err
	}
	cb.UpdateSubmitted()
	return nil
}
