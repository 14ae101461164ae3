package vulkan

import (
	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/device"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	Candidate     *metadata.PhysicalDeviceCandidate
	QueueFamilies metadata.QueueFamilyIndices
	// Surface capabilities as queried during enumeration.
	Capabilities vk.SurfaceCapabilities

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool
}

// physicalDevice pairs a candidate with the handles it was built from.
type physicalDevice struct {
	handle       vk.PhysicalDevice
	candidate    *metadata.PhysicalDeviceCandidate
	capabilities vk.SurfaceCapabilities
}

// DeviceCreate picks the best physical device for the surface and creates the
// logical device with one graphics and one present queue.
func DeviceCreate(context *VulkanContext, requirements device.Requirements) error {
	physicalDevices, err := enumeratePhysicalDevices(context)
	if err != nil {
		return err
	}

	candidates := make([]*metadata.PhysicalDeviceCandidate, len(physicalDevices))
	for i, pd := range physicalDevices {
		candidates[i] = pd.candidate
	}
	selected, err := device.Select(candidates, requirements)
	if err != nil {
		return err
	}
	chosen := physicalDevices[selected.Index]
	logSelectedDevice(selected)

	context.Device = &VulkanDevice{
		PhysicalDevice: chosen.handle,
		Candidate:      selected,
		QueueFamilies:  device.FindQueueFamilies(selected.QueueFamilies),
		Capabilities:   chosen.capabilities,
	}
	return logicalDeviceCreate(context, requirements)
}

func enumeratePhysicalDevices(context *VulkanContext) ([]*physicalDevice, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &count, nil); res != vk.Success {
		return nil, ResultError(res, core.ErrNoDeviceFound, "enumerate physical devices")
	}
	if count == 0 {
		return nil, nil
	}
	handles := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &count, handles); res != vk.Success {
		return nil, ResultError(res, core.ErrNoDeviceFound, "enumerate physical devices")
	}

	out := make([]*physicalDevice, 0, count)
	for i, h := range handles[:count] {
		pd, err := describePhysicalDevice(context, i, h)
		if err != nil {
			return nil, err
		}
		out = append(out, pd)
	}
	return out, nil
}

func describePhysicalDevice(context *VulkanContext, index int, handle vk.PhysicalDevice) (*physicalDevice, error) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(handle, &properties)
	properties.Deref()
	properties.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(handle, &features)
	features.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(handle, &memory)
	memory.Deref()

	cacheID, err := uuid.FromBytes(properties.PipelineCacheUUID[:])
	if err != nil {
		cacheID = uuid.Nil
	}

	candidate := &metadata.PhysicalDeviceCandidate{
		Index:         index,
		Name:          vk.ToString(properties.DeviceName[:]),
		Type:          deviceType(properties.DeviceType),
		CacheID:       cacheID,
		APIVersion:    properties.ApiVersion,
		DriverVersion: properties.DriverVersion,
		Features: metadata.DeviceFeatures{
			GeometryShader:    features.GeometryShader == vk.True,
			SamplerAnisotropy: features.SamplerAnisotropy == vk.True,
		},
		MaxImageDimension2D: properties.Limits.MaxImageDimension2D,
	}

	for j := 0; j < int(memory.MemoryHeapCount); j++ {
		heap := memory.MemoryHeaps[j]
		heap.Deref()
		candidate.MemoryHeaps = append(candidate.MemoryHeaps, metadata.MemoryHeap{
			Size:        uint64(heap.Size),
			DeviceLocal: vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0,
		})
	}

	families, err := queueFamilies(handle, context.Surface)
	if err != nil {
		return nil, err
	}
	candidate.QueueFamilies = families

	extensions, err := deviceExtensions(handle)
	if err != nil {
		return nil, err
	}
	candidate.Extensions = extensions

	pd := &physicalDevice{handle: handle, candidate: candidate}
	if err := querySurfaceSupport(pd, context.Surface); err != nil {
		return nil, err
	}

	core.LogDebug("Found device %d: '%s' (%s, API %s, driver %s, cache %s)",
		index, candidate.Name, candidate.Type,
		metadata.VersionString(candidate.APIVersion),
		metadata.VersionString(candidate.DriverVersion),
		candidate.CacheID)
	return pd, nil
}

func deviceType(t vk.PhysicalDeviceType) metadata.DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return metadata.DeviceTypeIntegratedGPU
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return metadata.DeviceTypeDiscreteGPU
	case vk.PhysicalDeviceTypeVirtualGpu:
		return metadata.DeviceTypeVirtualGPU
	case vk.PhysicalDeviceTypeCpu:
		return metadata.DeviceTypeCPU
	default:
		return metadata.DeviceTypeOther
	}
}

func queueFamilies(handle vk.PhysicalDevice, surface vk.Surface) ([]metadata.QueueFamily, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(handle, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(handle, &count, props)

	families := make([]metadata.QueueFamily, count)
	for i := range props {
		props[i].Deref()
		families[i].Graphics = vk.QueueFlagBits(props[i].QueueFlags)&vk.QueueGraphicsBit != 0

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(handle, uint32(i), surface, &supportsPresent); res != vk.Success {
			return nil, ResultError(res, core.ErrNoSuitableDevice, "query surface support")
		}
		families[i].Present = supportsPresent == vk.True
	}
	return families, nil
}

func deviceExtensions(handle vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(handle, "", &count, nil); res != vk.Success {
		return nil, ResultError(res, core.ErrNoSuitableDevice, "enumerate device extensions")
	}
	if count == 0 {
		return nil, nil
	}
	props := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(handle, "", &count, props); res != vk.Success {
		return nil, ResultError(res, core.ErrNoSuitableDevice, "enumerate device extensions")
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func querySurfaceSupport(pd *physicalDevice, surface vk.Surface) error {
	caps := &pd.capabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(pd.handle, surface, caps); res != vk.Success {
		return ResultError(res, core.ErrNoSuitableDevice, "query surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	s := &pd.candidate.Surface
	s.MinImageCount = caps.MinImageCount
	s.MaxImageCount = caps.MaxImageCount
	s.CurrentExtent = metadata.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height}
	s.MinImageExtent = metadata.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height}
	s.MaxImageExtent = metadata.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height}

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd.handle, surface, &formatCount, nil); res != vk.Success {
		return ResultError(res, core.ErrNoSuitableDevice, "query surface formats")
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(pd.handle, surface, &formatCount, formats); res != vk.Success {
			return ResultError(res, core.ErrNoSuitableDevice, "query surface formats")
		}
		for i := range formats {
			formats[i].Deref()
			s.Formats = append(s.Formats, metadata.SurfaceFormat{
				Format:     metadata.Format(formats[i].Format),
				ColorSpace: metadata.ColorSpace(formats[i].ColorSpace),
			})
		}
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd.handle, surface, &modeCount, nil); res != vk.Success {
		return ResultError(res, core.ErrNoSuitableDevice, "query surface present modes")
	}
	if modeCount != 0 {
		modes := make([]vk.PresentMode, modeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(pd.handle, surface, &modeCount, modes); res != vk.Success {
			return ResultError(res, core.ErrNoSuitableDevice, "query surface present modes")
		}
		for _, m := range modes {
			s.PresentModes = append(s.PresentModes, metadata.PresentMode(m))
		}
	}
	return nil
}

func logSelectedDevice(c *metadata.PhysicalDeviceCandidate) {
	core.LogInfo("Selected device: '%s'.", c.Name)
	core.LogInfo("GPU type is %s.", c.Type)
	core.LogInfo("GPU Driver version: %s", metadata.VersionString(c.DriverVersion))
	core.LogInfo("Vulkan API version: %s", metadata.VersionString(c.APIVersion))
	for _, heap := range c.MemoryHeaps {
		gib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if heap.DeviceLocal {
			core.LogInfo("Local GPU memory: %.2f GiB", gib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", gib)
		}
	}
}

func logicalDeviceCreate(context *VulkanContext, requirements device.Requirements) error {
	core.LogInfo("Creating logical device...")
	d := context.Device

	// Shared families get a single queue.
	indices := d.QueueFamilies.Unique()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if requirements.GeometryShader {
		deviceFeatures.GeometryShader = vk.True
	}

	extensionNames := append([]string{}, requirements.DeviceExtensionNames...)
	for _, ext := range d.Candidate.Extensions {
		if ext == portabilitySubsetExtensionName {
			core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
			extensionNames = append(extensionNames, portabilitySubsetExtensionName)
			break
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	var logical vk.Device
	if res := vk.CreateDevice(d.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logical); res != vk.Success {
		return ResultError(res, core.ErrResourceCreation, "create logical device")
	}
	d.LogicalDevice = logical
	context.Own("logical device", func() {
		d.GraphicsQueue = nil
		d.PresentQueue = nil
		vk.DestroyDevice(d.LogicalDevice, context.Allocator)
		d.LogicalDevice = nil
	})
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.QueueFamilies.Graphics), 0, &d.GraphicsQueue)
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.QueueFamilies.Present), 0, &d.PresentQueue)
	core.LogDebug("Queues obtained. Graphics family %d, present family %d.", d.QueueFamilies.Graphics, d.QueueFamilies.Present)
	return nil
}

// CommandPoolCreate creates the graphics command pool. Buffers allocated from
// it can be reset individually.
func CommandPoolCreate(context *VulkanContext) error {
	d := context.Device
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(d.QueueFamilies.Graphics),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return ResultError(res, core.ErrResourceCreation, "create command pool")
	}
	d.GraphicsCommandPool = pool
	context.Own("command pool", func() {
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, context.Allocator)
		d.GraphicsCommandPool = nil
	})
	core.LogInfo("Graphics command pool created.")
	return nil
}

// DeviceWaitIdle blocks until all queues of the device are idle.
func DeviceWaitIdle(context *VulkanContext) error {
	if context.Device == nil || context.Device.LogicalDevice == nil {
		return nil
	}
	return context.locks.SafeCall(DeviceManagement, func() error {
		return ResultError(vk.DeviceWaitIdle(context.Device.LogicalDevice), core.ErrDeviceLost, "wait for device idle")
	})
}
