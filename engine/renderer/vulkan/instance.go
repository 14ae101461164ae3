package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
)

const ValidationLayerName = "VK_LAYER_KHRONOS_validation"

// InstanceCreate creates the Vulkan instance with the window system's
// extensions and, when validation is set, the Khronos validation layer.
func InstanceCreate(context *VulkanContext, appName string, windowExtensions []string, validation bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prism"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{}, windowExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required instance extensions:")
	for _, name := range requiredExtensions {
		core.LogDebug("  %s", name)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var layers []string
	if validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := availableLayers()
		if err != nil {
			return err
		}
		core.LogDebug("Searching for layer: %s...", ValidationLayerName)
		if _, ok := available[ValidationLayerName]; !ok {
			return core.Fail(core.ErrResourceCreation, "enable validation layers",
				errors.Newf("required validation layer is missing: %s", ValidationLayerName))
		}
		core.LogInfo("All required validation layers are present.")
		layers = []string{ValidationLayerName}
	}

	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, context.Allocator, &instance); res != vk.Success {
		return ResultError(res, core.ErrResourceCreation, "create instance")
	}
	context.Instance = instance
	context.Own("instance", func() {
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	})

	if err := vk.InitInstance(context.Instance); err != nil {
		return core.Fail(core.ErrResourceCreation, "load instance functions", err)
	}

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func availableLayers() (map[string]struct{}, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, ResultError(res, core.ErrResourceCreation, "enumerate instance layers")
	}
	props := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, props); res != vk.Success {
		return nil, ResultError(res, core.ErrResourceCreation, "enumerate instance layers")
	}
	names := make(map[string]struct{}, count)
	for i := range props {
		props[i].Deref()
		name := vk.ToString(props[i].LayerName[:])
		core.LogDebug("Available Layer: `%s`", name)
		names[name] = struct{}{}
	}
	return names, nil
}

// DebugCallbackCreate forwards validation messages to the logger.
func DebugCallbackCreate(context *VulkanContext) error {
	core.LogDebug("Creating Vulkan debugger...")

	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
		PNext:       nil,
	}

	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
		return ResultError(res, core.ErrResourceCreation, "create debug callback")
	}
	context.debugCallback = dbg
	context.Own("debug callback", func() {
		vk.DestroyDebugReportCallback(context.Instance, context.debugCallback, context.Allocator)
		context.debugCallback = vk.NullDebugReportCallback
	})

	core.LogDebug("Vulkan debugger created.")
	return nil
}

// SurfaceAttach takes ownership of a surface created by the window system.
func SurfaceAttach(context *VulkanContext, surface vk.Surface) {
	context.Surface = surface
	context.Own("surface", func() {
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	})
	core.LogDebug("Vulkan surface created.")
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
