package vulkan

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/frame"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// ImageSet is the presentable image set: the swapchain, one view per image
// and, once a render pass exists, one framebuffer per view.
type ImageSet struct {
	context *VulkanContext

	Handle       vk.Swapchain
	Config       metadata.PresentConfiguration
	Images       []vk.Image
	Views        []vk.ImageView
	Framebuffers []*VulkanFramebuffer
}

// ImageSetCreate creates the swapchain for a negotiated configuration and a
// view for each of its images.
func ImageSetCreate(context *VulkanContext, config metadata.PresentConfiguration) (*ImageSet, error) {
	d := context.Device
	set := &ImageSet{context: context, Config: config}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    config.ImageCount,
		ImageFormat:      vk.Format(config.Format.Format),
		ImageColorSpace:  vk.ColorSpace(config.Format.ColorSpace),
		ImageExtent:      vk.Extent2D{Width: config.Extent.Width, Height: config.Extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     d.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(config.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     nil,
	}

	if d.QueueFamilies.Shared() {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
		swapchainCreateInfo.QueueFamilyIndexCount = 0
		swapchainCreateInfo.PQueueFamilyIndices = nil
	} else {
		queueFamilyIndices := d.QueueFamilies.Unique()
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = uint32(len(queueFamilyIndices))
		swapchainCreateInfo.PQueueFamilyIndices = queueFamilyIndices
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(d.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, ResultError(res, core.ErrResourceCreation, "create swapchain")
	}
	set.Handle = handle
	context.Own("swapchain", func() {
		vk.DestroySwapchain(d.LogicalDevice, set.Handle, context.Allocator)
		set.Handle = nil
	})

	var imageCount uint32
	if res := vk.GetSwapchainImages(d.LogicalDevice, set.Handle, &imageCount, nil); res != vk.Success {
		return nil, ResultError(res, core.ErrResourceCreation, "get swapchain images")
	}
	set.Images = make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(d.LogicalDevice, set.Handle, &imageCount, set.Images); res != vk.Success {
		return nil, ResultError(res, core.ErrResourceCreation, "get swapchain images")
	}

	// Images belong to the swapchain; only the views are ours to destroy.
	set.Views = make([]vk.ImageView, imageCount)
	for i := range set.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    set.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   vk.Format(config.Format.Format),
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		if res := vk.CreateImageView(d.LogicalDevice, &viewInfo, context.Allocator, &set.Views[i]); res != vk.Success {
			return nil, ResultError(res, core.ErrResourceCreation, fmt.Sprintf("create image view %d", i))
		}
		view := i
		context.Own(fmt.Sprintf("image view %d", i), func() {
			vk.DestroyImageView(d.LogicalDevice, set.Views[view], context.Allocator)
			set.Views[view] = nil
		})
	}

	core.LogInfo("Swapchain created: %d images, %dx%d, format %d, %s.",
		imageCount, config.Extent.Width, config.Extent.Height, config.Format.Format, config.PresentMode)
	return set, nil
}

// FramebuffersCreate creates one framebuffer per view for renderpass.
func (s *ImageSet) FramebuffersCreate(renderpass *VulkanRenderpass) error {
	s.Framebuffers = make([]*VulkanFramebuffer, len(s.Views))
	for i := range s.Views {
		fb, err := FramebufferCreate(s.context, renderpass, s.Config.Extent.Width, s.Config.Extent.Height, []vk.ImageView{s.Views[i]})
		if err != nil {
			return core.Fail(core.ErrResourceCreation, fmt.Sprintf("create framebuffer %d", i), err)
		}
		s.Framebuffers[i] = fb
		s.context.Own(fmt.Sprintf("framebuffer %d", i), func() {
			fb.Destroy(s.context)
		})
	}
	return nil
}

func (s *ImageSet) ImageCount() uint32 {
	return uint32(len(s.Images))
}

func (s *ImageSet) Extent() vk.Extent2D {
	return vk.Extent2D{Width: s.Config.Extent.Width, Height: s.Config.Extent.Height}
}

// AcquireNextImage returns the index of the next image, signaling signal once
// the image can be rendered to. Suboptimal is accepted.
func (s *ImageSet) AcquireNextImage(timeout uint64, signal frame.Semaphore) (uint32, error) {
	sem, ok := signal.(*VulkanSemaphore)
	if !ok {
		return 0, errors.AssertionFailedf("unexpected semaphore type %T", signal)
	}

	var imageIndex uint32
	err := s.context.locks.SafeCall(SwapchainManagement, func() error {
		result := vk.AcquireNextImage(s.context.Device.LogicalDevice, s.Handle, timeout, sem.Handle, vk.NullFence, &imageIndex)
		if result == vk.Suboptimal {
			return nil
		}
		return ResultError(result, core.ErrSwapchainOutOfDate, "acquire next image")
	})
	return imageIndex, err
}

// Present queues imageIndex for display once wait is signaled.
func (s *ImageSet) Present(imageIndex uint32, wait frame.Semaphore) error {
	sem, ok := wait.(*VulkanSemaphore)
	if !ok {
		return errors.AssertionFailedf("unexpected semaphore type %T", wait)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sem.Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.Handle},
		PImageIndices:      []uint32{imageIndex},
		PResults:           nil,
	}

	d := s.context.Device
	return s.context.locks.SafeQueueCall(uint32(d.QueueFamilies.Present), func() error {
		result := vk.QueuePresent(d.PresentQueue, &presentInfo)
		if result == vk.Suboptimal {
			return nil
		}
		return ResultError(result, core.ErrSwapchainOutOfDate, "present image")
	})
}
