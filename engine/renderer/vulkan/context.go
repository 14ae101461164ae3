package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// VulkanContext owns every Vulkan object of the renderer. Objects register
// their release on the context as they are created, and Release tears them
// down newest first.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice

	ImageSet       *ImageSet
	MainRenderpass *VulkanRenderpass
	Pipeline       *VulkanPipeline
	Recorder       *CommandRecorder

	// Extent the window reported when the image set was negotiated.
	WindowExtent metadata.Extent2D

	locks    *VulkanLockPool
	releases *containers.ReleaseStack
}

func NewVulkanContext() *VulkanContext {
	return &VulkanContext{
		Allocator: nil,
		locks:     NewVulkanLockPool(),
		releases:  containers.NewReleaseStack(),
	}
}

// Own registers the release function of a freshly created object.
func (vc *VulkanContext) Own(name string, release func()) {
	vc.releases.Push(name, release)
}

// Release destroys every owned object in reverse creation order. The device
// must be idle.
func (vc *VulkanContext) Release(onRelease func(name string)) {
	vc.releases.ReleaseAll(onRelease)
}

func (vc *VulkanContext) Owned() int {
	return vc.releases.Len()
}
